// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/metrics"
	"github.com/zeitlabs/payfort/internal/worker"
)

const journalGCInterval = 10 * time.Minute

// App owns the long-lived runtime lifecycle (config watcher, reload wiring,
// fulfillment worker, journal GC) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	worker       *worker.Worker
	journal      *audit.Journal
	audit        *audit.Logger
	reloadSignal os.Signal
	gcInterval   time.Duration
}

// NewApp creates a new App orchestrator for rt.
func NewApp(logger zerolog.Logger, manager Manager, rt *Runtime) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    rt.Holder,
		worker:       rt.Worker,
		journal:      rt.Journal,
		audit:        rt.Audit,
		reloadSignal: syscall.SIGHUP,
		gcInterval:   journalGCInterval,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(ctx, cfg)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						metrics.RecordConfigReload("failed")
						a.audit.ConfigReload(ctx, "failed", map[string]string{"error": err.Error()})
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(ctx)
			return nil
		})
	}

	if a.journal != nil && a.gcInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(a.gcInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := a.journal.RunGC(); err != nil {
						a.logger.Warn().Err(err).Str("event", "audit.gc_failed").Msg("audit journal GC failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyConfig adopts the settings of a reloaded configuration that are not
// read per request.
func (a *App) applyConfig(ctx context.Context, cfg config.AppConfig) {
	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	metrics.RecordConfigReload("success")
	a.audit.ConfigReload(ctx, "success", nil)
	a.logger.Info().Str("event", "config.applied").Msg("reloaded configuration applied")
}
