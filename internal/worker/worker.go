// SPDX-License-Identifier: MIT

// Package worker retries invoicing and fulfillment of carts that were paid
// but never fulfilled.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeitlabs/payfort/internal/lock"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/metrics"
	"github.com/zeitlabs/payfort/internal/payments"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Settler invoices and fulfills a paid cart.
type Settler interface {
	Settle(ctx context.Context, cart *payments.Cart, txn *payments.Transaction) (*payments.Invoice, error)
}

// Config tunes a pass.
type Config struct {
	Interval      time.Duration
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
	// LockWait bounds how long a cart lock is waited for before the cart is
	// left to the next pass.
	LockWait time.Duration
	LockTTL  time.Duration
	// MaxBackoff caps the delay before a cart whose settlement failed is
	// retried. The delay doubles from Interval with every failure.
	MaxBackoff time.Duration
}

// Worker manages the periodic fulfillment loop.
type Worker struct {
	store   payments.Store
	settler func() (Settler, string)
	locker  lock.Locker
	cfg     Config
	logger  zerolog.Logger

	busy atomic.Bool

	mu        sync.RWMutex
	lastRun   time.Time
	lastError string
}

// New creates a worker. settler is called once per pass and returns the
// processor to settle with together with its gateway slug.
func New(store payments.Store, settler func() (Settler, string), locker lock.Locker, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Hour
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Worker{
		store:   store,
		settler: settler,
		locker:  locker,
		cfg:     cfg,
		logger:  log.WithComponent("fulfillment_worker"),
	}
}

// Start runs passes until ctx is canceled. The first pass runs at once.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.tryRun(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tryRun(ctx)
		}
	}
}

// LastRun reports the end of the last pass and its error, if any.
func (w *Worker) LastRun() (time.Time, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.lastError
}

func (w *Worker) tryRun(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		return
	}
	defer w.busy.Store(false)

	err := w.RunOnce(ctx)
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastError = ""
	if err != nil {
		w.lastError = err.Error()
	}
	w.mu.Unlock()
}

// RunOnce settles one batch of unfulfilled paid carts. Individual cart
// failures are logged and summarised in the returned error.
func (w *Worker) RunOnce(ctx context.Context) error {
	ids, err := w.store.ListUnfulfilledPaidCarts(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list unfulfilled carts: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	settler, gateway := w.settler()

	limit := rate.Inf
	if w.cfg.RatePerSecond > 0 {
		limit = rate.Limit(w.cfg.RatePerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for _, id := range ids {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			if err := w.settleCart(gctx, settler, gateway, id); err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d carts failed", n, len(ids))
	}
	w.logger.Info().Int("carts", len(ids)).Msg("fulfillment pass completed")
	return nil
}

func (w *Worker) settleCart(ctx context.Context, settler Settler, gateway string, cartID int64) error {
	logger := w.logger.With().Int64(log.FieldCartID, cartID).Logger()

	waitCtx, cancel := context.WithTimeout(ctx, w.cfg.LockWait)
	release, err := w.locker.Acquire(waitCtx, "cart:"+strconv.FormatInt(cartID, 10), w.cfg.LockTTL)
	cancel()
	if err != nil {
		logger.Debug().Err(err).Msg("cart busy, leaving it to the next pass")
		return nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to release cart lock")
		}
	}()

	cart, err := w.store.GetCart(ctx, cartID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load cart")
		return err
	}
	if cart.Status != payments.CartPaid || cart.FulfilledAt != nil {
		return nil
	}

	txn, err := w.store.TransactionForCart(ctx, cartID, gateway)
	if err != nil && !errors.Is(err, payments.ErrNotFound) {
		logger.Error().Err(err).Msg("failed to load transaction")
		return err
	}

	inv, err := settler.Settle(ctx, cart, txn)
	metrics.RecordFulfillment("worker", err)
	if err != nil {
		next := time.Now().Add(w.backoff(cart.FulfillmentAttempts))
		logger.Error().Err(err).
			Int("attempts", cart.FulfillmentAttempts+1).
			Time("next_attempt", next).
			Msg("retry of cart fulfillment failed")
		if derr := w.store.DeferFulfillment(context.WithoutCancel(ctx), cartID, next); derr != nil {
			logger.Warn().Err(derr).Msg("failed to defer cart")
		}
		return err
	}
	logger.Info().Str(log.FieldInvoice, inv.Number).Msg("cart fulfilled by worker")
	return nil
}

// backoff is the delay after the given number of earlier failures.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.Interval
	for i := 0; i < attempts && d < w.cfg.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, w.cfg.MaxBackoff)
}
