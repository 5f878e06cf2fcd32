// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/zeitlabs/payfort/internal/log"
)

// reloadDebounce coalesces the burst of events a single save produces.
const reloadDebounce = 500 * time.Millisecond

// ConfigHolder serves the running configuration and swaps in a new one on
// Reload. A candidate that fails to load or validate never replaces it.
type ConfigHolder struct {
	loader *Loader
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	current   AppConfig
	listeners []chan<- AppConfig
	watcher   *fsnotify.Watcher

	// reloading serialises the file watcher and SIGHUP.
	reloading sync.Mutex
}

// NewConfigHolder wraps initial. configPath is watched by StartWatcher and
// may be empty for environment-only setups.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	return &ConfigHolder{
		loader:  loader,
		path:    configPath,
		logger:  xglog.WithComponent("config"),
		current: initial,
	}
}

// Get returns the running configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RegisterListener adds ch to the channels every accepted configuration is
// offered to. A listener that is not ready to receive misses that reload.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Reload loads and validates the configuration again and publishes it.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.reloading.Lock()
	defer h.reloading.Unlock()

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}
	if err := Validate(next); err != nil {
		h.logger.Error().Err(err).
			Str("event", "config.validation_failed").
			Msg("reloaded configuration is invalid, keeping the running one")
		return fmt.Errorf("validate config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- next:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("listener busy, reload not delivered")
		}
	}
	logChanges(h.logger, prev, next)
	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded")
	return nil
}

// StartWatcher reloads whenever the config file is written or replaced.
// The parent directory is watched so that atomic renames are seen too.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("no config file, watcher disabled (environment-only configuration)")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.path).Msg("watching config file")
	go h.watch(ctx, w)
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()
	target := filepath.Clean(h.path)

	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.logger.Debug().Str("event", "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the watcher, if one is running.
func (h *ConfigHolder) Stop() {
	h.mu.Lock()
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// setting is a reloadable value reported when it changes.
type setting struct {
	name   string
	get    func(AppConfig) string
	secret bool
}

var reportedSettings = []setting{
	{name: "LogLevel", get: func(c AppConfig) string { return c.LogLevel }},
	{name: "PayFort.RedirectURL", get: func(c AppConfig) string { return c.PayFort.RedirectURL }},
	{name: "PayFort.SHAMethod", get: func(c AppConfig) string { return c.PayFort.SHAMethod }},
	{name: "PayFort.Language", get: func(c AppConfig) string { return c.PayFort.Language }},
	{name: "PayFort.AccessCode", get: func(c AppConfig) string { return c.PayFort.AccessCode }, secret: true},
	{name: "PayFort.RequestSHAPhrase", get: func(c AppConfig) string { return c.PayFort.RequestSHAPhrase }, secret: true},
	{name: "PayFort.ResponseSHAPhrase", get: func(c AppConfig) string { return c.PayFort.ResponseSHAPhrase }, secret: true},
	{name: "Payments.SuccessURL", get: func(c AppConfig) string { return c.Payments.SuccessURL }},
	{name: "Payments.ErrorURL", get: func(c AppConfig) string { return c.Payments.ErrorURL }},
	{name: "API.StatusRequireAuth", get: func(c AppConfig) string { return strconv.FormatBool(c.API.StatusRequireAuth) }},
	{name: "API.Tokens", get: func(c AppConfig) string { return strings.Join(c.API.Tokens, "\x00") }, secret: true},
	{name: "API.StatusTokenSecret", get: func(c AppConfig) string { return c.API.StatusTokenSecret }, secret: true},
}

// logChanges reports every changed setting. Secrets are reported as
// rotated and never printed.
func logChanges(logger zerolog.Logger, prev, next AppConfig) {
	for _, s := range reportedSettings {
		before, after := s.get(prev), s.get(next)
		if before == after {
			continue
		}
		ev := logger.Info().Str("event", "config.changed").Str("setting", s.name)
		if s.secret {
			ev.Msg("secret rotated")
			continue
		}
		ev.Str("old", before).Str("new", after).Msg("setting changed")
	}
}
