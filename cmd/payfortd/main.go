// SPDX-License-Identifier: MIT

// Command payfortd serves the PayFort checkout, return, feedback and status
// routes and runs the fulfillment worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/daemon"
	xglog "github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/telemetry"
	"github.com/zeitlabs/payfort/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "payfort",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// An explicit -config wins; otherwise $PAYFORT_DATA/config.yaml is used
	// when present.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("PAYFORT_DATA", "data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("configuration is invalid")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	source := "env+defaults"
	if effectiveConfigPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", effectiveConfigPath).
		Str("version", version.String()).
		Msg("configuration loaded")

	tp, err := telemetry.NewProvider(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize tracing")
	}

	holder := config.NewConfigHolder(cfg, loader, effectiveConfigPath)
	rt, err := daemon.Bootstrap(ctx, holder)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "bootstrap.failed").Msg("failed to initialize runtime")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error().Err(err).Str("event", "runtime.close_failed").Msg("failed to close runtime")
		}
	}()

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), daemon.Deps{
		Logger:  logger,
		Handler: rt.Server.Handler(),
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "manager.init_failed").Msg("failed to create daemon manager")
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("config_watcher", func(context.Context) error {
		holder.Stop()
		return nil
	})

	logger.Info().
		Str("event", "startup").
		Str("listen", cfg.ListenAddr).
		Str("public_base_url", cfg.PublicBaseURL).
		Bool("worker", rt.Worker != nil).
		Msg("starting payfort gateway")

	start := time.Now()
	if err := daemon.NewApp(logger, mgr, rt).Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
		stop()
		_ = rt.Close()
		os.Exit(1)
	}
	logger.Info().Dur("uptime", time.Since(start)).Str("event", "shutdown").Msg("payfort gateway stopped")
}
