// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig holds the HTTP server settings of the daemon.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns conservative timeouts for listenAddr.
func DefaultServerConfig(listenAddr string) ServerConfig {
	return ServerConfig{
		ListenAddr:      listenAddr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Handler serves the gateway routes, health checks and metrics.
	Handler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Handler == nil {
		return ErrMissingHandler
	}
	return nil
}
