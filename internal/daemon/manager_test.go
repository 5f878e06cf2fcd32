// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zeitlabs/payfort/internal/log"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(addr string) ServerConfig {
	cfg := DefaultServerConfig(addr)
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

func TestNewManager_ValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(":0"), Deps{Logger: zerolog.Nop(), Handler: http.NotFoundHandler()})
	assert.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(testServerConfig(":0"), Deps{Logger: log.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingHandler)

	mgr, err := NewManager(testServerConfig(":0"), Deps{Logger: log.WithComponent("test"), Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig(":0"), Deps{Logger: log.WithComponent("test"), Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mgr, err := NewManager(testServerConfig(addr), Deps{Logger: log.WithComponent("test"), Handler: handler})
	require.NoError(t, err)

	var order []string
	mgr.RegisterShutdownHook("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	mgr.RegisterShutdownHook("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(addr, 2*time.Second))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{Logger: log.WithComponent("test"), Handler: http.NotFoundHandler()})
	require.NoError(t, err)

	boom := errors.New("boom")
	mgr.RegisterShutdownHook("failing", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))
	cancel()

	err = <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestManager_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	mgr, err := NewManager(testServerConfig(ln.Addr().String()), Deps{Logger: log.WithComponent("test"), Handler: http.NotFoundHandler()})
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server")
}
