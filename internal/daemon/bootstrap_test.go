// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/lock"
	"github.com/zeitlabs/payfort/internal/log"
)

func testHolder(t *testing.T, mutate func(*config.AppConfig)) *config.ConfigHolder {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.DataDir = dir
	cfg.DatabasePath = filepath.Join(dir, "payments.db")
	cfg.Audit.JournalPath = filepath.Join(dir, "audit")
	cfg.Worker.Interval = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	return config.NewConfigHolder(cfg, config.NewLoader("", "test"), "")
}

func TestBootstrap_RedisAndJournal(t *testing.T) {
	mr := miniredis.RunT(t)
	holder := testHolder(t, func(cfg *config.AppConfig) {
		cfg.Redis.Addr = mr.Addr()
	})

	rt, err := Bootstrap(context.Background(), holder)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	assert.IsType(t, &lock.RedisLocker{}, rt.Locker)
	require.NotNil(t, rt.Journal)
	require.NotNil(t, rt.Worker)

	ready := rt.Health.Ready(context.Background(), true)
	assert.True(t, ready.Ready)
	assert.Contains(t, ready.Checks, "payments_store")
	assert.Contains(t, ready.Checks, "audit_journal")
	assert.Contains(t, ready.Checks, "redis")
	assert.Contains(t, ready.Checks, "fulfillment_worker")
}

func TestBootstrap_LocalFallback(t *testing.T) {
	holder := testHolder(t, func(cfg *config.AppConfig) {
		cfg.Audit.JournalEnabled = false
		cfg.Worker.Enabled = false
	})

	rt, err := Bootstrap(context.Background(), holder)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	assert.IsType(t, &lock.LocalLocker{}, rt.Locker)
	assert.Nil(t, rt.Journal)
	assert.Nil(t, rt.Worker)
}

func TestBootstrap_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	holder := testHolder(t, func(cfg *config.AppConfig) {
		cfg.Redis.Addr = addr
	})
	rt, err := Bootstrap(context.Background(), holder)
	require.Error(t, err)
	assert.Nil(t, rt)
}

func TestApp_RunServesAndStops(t *testing.T) {
	holder := testHolder(t, nil)
	rt, err := Bootstrap(context.Background(), holder)
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:  log.WithComponent("test"),
		Handler: rt.Server.Handler(),
	})
	require.NoError(t, err)

	app := NewApp(log.WithComponent("test"), mgr, rt)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		at, _ := rt.Worker.LastRun()
		return !at.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RequiresManager(t *testing.T) {
	app := &App{}
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_ApplyConfigSetsLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	app := &App{logger: zerolog.Nop()}
	cfg := config.Defaults()
	cfg.LogLevel = "warn"
	app.applyConfig(context.Background(), cfg)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	cfg.LogLevel = ""
	app.applyConfig(context.Background(), cfg)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
