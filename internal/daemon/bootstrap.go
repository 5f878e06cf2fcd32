// SPDX-License-Identifier: MIT

// Package daemon wires the gateway's collaborators together and owns the
// process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/zeitlabs/payfort/internal/api"
	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/fulfillment"
	"github.com/zeitlabs/payfort/internal/health"
	"github.com/zeitlabs/payfort/internal/lock"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/payfort"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/store"
	"github.com/zeitlabs/payfort/internal/worker"
)

// Runtime is the wired service: storage, audit trail, lock backend, HTTP
// server and fulfillment worker.
type Runtime struct {
	Holder  *config.ConfigHolder
	Store   *store.SQLiteStore
	Journal *audit.Journal
	Audit   *audit.Logger
	Locker  lock.Locker
	Health  *health.Manager
	Server  *api.Server
	// Worker is nil when the fulfillment worker is disabled.
	Worker *worker.Worker

	redis *redis.Client
}

// Bootstrap opens every backend named by the holder's configuration. On
// error, whatever was opened is closed again.
func Bootstrap(ctx context.Context, holder *config.ConfigHolder) (rt *Runtime, err error) {
	cfg := holder.Get()
	logger := log.WithComponent("bootstrap")

	rt = &Runtime{Holder: holder, Health: health.NewManager(cfg.Version)}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return rt, fmt.Errorf("create data dir: %w", err)
	}

	rt.Store, err = store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return rt, fmt.Errorf("open payments store: %w", err)
	}
	rt.Health.RegisterChecker(health.NewPingChecker("payments_store", true, rt.Store.Ping))
	logger.Info().Str("path", cfg.DatabasePath).Msg("payments store ready")

	var sink audit.Sink
	if cfg.Audit.JournalEnabled {
		rt.Journal, err = audit.OpenJournal(cfg.Audit.JournalPath, cfg.Audit.Retention)
		if err != nil {
			return rt, fmt.Errorf("open audit journal: %w", err)
		}
		sink = rt.Journal
		rt.Health.RegisterChecker(health.NewPingChecker("audit_journal", false, rt.Journal.Ping))
		logger.Info().Str("path", cfg.Audit.JournalPath).Msg("audit journal ready")
	}
	rt.Audit = audit.NewLogger(sink)

	if cfg.Redis.Addr != "" {
		rt.redis, err = lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return rt, err
		}
		redisLocker := lock.NewRedisLocker(rt.redis, log.WithComponent("lock"))
		rt.Health.RegisterChecker(health.NewPingChecker("redis", false, redisLocker.Ping))
		rt.Locker = redisLocker
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis cart locks")
	} else {
		rt.Locker = lock.NewLocalLocker()
		logger.Warn().
			Str("event", "lock.local").
			Msg("no redis configured, cart locks only serialize this process")
	}

	fulfillers := fulfillment.NewRegistry()
	fulfillers.Register(payments.ItemPaidCourse, &fulfillment.CourseEnroller{
		Store:   rt.Store,
		Audit:   rt.Audit,
		Gateway: payfort.Slug,
	})

	deps := api.Deps{
		Config:     holder.Get,
		Store:      rt.Store,
		Audit:      rt.Audit,
		Fulfillers: fulfillers,
		Locker:     rt.Locker,
		Health:     rt.Health,
	}
	rt.Server = api.New(deps)

	if cfg.Worker.Enabled {
		rt.Worker = worker.New(rt.Store, func() (worker.Settler, string) {
			return api.Processor(holder.Get(), deps), payfort.Slug
		}, rt.Locker, worker.Config{
			Interval:      cfg.Worker.Interval,
			BatchSize:     cfg.Worker.BatchSize,
			Concurrency:   cfg.Worker.Concurrency,
			RatePerSecond: cfg.Worker.RatePerSecond,
			LockTTL:       cfg.Redis.LockTTL,
			MaxBackoff:    cfg.Worker.MaxBackoff,
		})
		rt.Health.RegisterChecker(health.NewLastRunChecker(3*cfg.Worker.Interval, rt.Worker.LastRun))
	}

	return rt, nil
}

// Close releases the backends in reverse order of opening.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		rt.redis = nil
	}
	if rt.Journal != nil {
		if err := rt.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit journal: %w", err))
		}
		rt.Journal = nil
	}
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close payments store: %w", err))
		}
		rt.Store = nil
	}
	return errors.Join(errs...)
}
