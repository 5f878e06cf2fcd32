// SPDX-License-Identifier: MIT

// Package api serves the PayFort checkout, redirect and notification
// routes together with the operational endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeitlabs/payfort/internal/api/middleware"
	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/auth"
	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/fulfillment"
	"github.com/zeitlabs/payfort/internal/health"
	"github.com/zeitlabs/payfort/internal/lock"
	"github.com/zeitlabs/payfort/internal/payfort"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/provider"
)

// defaultLockTTL bounds a feedback lock when no TTL is configured.
const defaultLockTTL = 30 * time.Second

// Deps are the collaborators of the HTTP server.
type Deps struct {
	// Config returns the current configuration. It is called per request
	// so reloaded credentials apply without a restart.
	Config     func() config.AppConfig
	Store      payments.Store
	Audit      *audit.Logger
	Fulfillers *fulfillment.Registry
	Locker     lock.Locker
	Health     *health.Manager
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Server holds the handlers of the gateway.
type Server struct {
	deps Deps
}

// New returns a Server. A nil Locker selects the in-process lock.
func New(deps Deps) *Server {
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Fulfillers == nil {
		deps.Fulfillers = fulfillment.NewRegistry()
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	return &Server{deps: deps}
}

// Processor builds a PayFort processor from cfg.
func Processor(cfg config.AppConfig, deps Deps) *payfort.Processor {
	base := &provider.Base{
		Store:           deps.Store,
		Audit:           deps.Audit,
		Fulfillers:      deps.Fulfillers,
		InvoicePrefix:   cfg.Payments.InvoicePrefix,
		Language:        cfg.PayFort.Language,
		DefaultCurrency: cfg.Payments.DefaultCurrency,
		Now:             deps.Now,
	}
	return payfort.New(base, payfort.SettingsFromConfig(cfg))
}

func (s *Server) processor() (*payfort.Processor, config.AppConfig) {
	cfg := s.deps.Config()
	return Processor(cfg, s.deps), cfg
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	cfg := s.deps.Config()

	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService(cfg),
		EnableLogging:         true,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", serveOpenAPI)

	r.Route("/payfort", func(r chi.Router) {
		r.Handle("/static/*", staticHandler())

		r.Get("/pay/{cartID}/", s.handlePay)
		r.Get("/metadata/{cartID}/", s.handleMetadata)

		r.Group(func(r chi.Router) {
			r.Use(middleware.PerMinute(gatewayRateLimit(cfg), s.deps.Audit))
			r.Post("/return/", s.handleReturn)
			r.Post("/feedback/", s.handleFeedback)
		})

		r.With(auth.Middleware(s.statusPolicy, s.deps.Audit, s.waitPageGrant)).Get("/status/", s.handleStatus)
	})

	return r
}

func (s *Server) statusPolicy() (bool, []string) {
	cfg := s.deps.Config()
	return cfg.API.StatusRequireAuth, cfg.API.Tokens
}

// statusTokenParam carries the wait page's transaction token.
const statusTokenParam = "status_token"

func statusTokenSecret(cfg config.AppConfig) string {
	if cfg.API.StatusTokenSecret != "" {
		return cfg.API.StatusTokenSecret
	}
	return cfg.PayFort.ResponseSHAPhrase
}

// waitPageGrant admits a status poll carrying the token handleReturn signed
// for that transaction.
func (s *Server) waitPageGrant(r *http.Request) (*auth.Principal, bool) {
	q := r.URL.Query()
	ref := q.Get("merchant_reference")
	if !auth.VerifyTransactionToken(statusTokenSecret(s.deps.Config()),
		q.Get(statusTokenParam), q.Get("transaction_id"), ref) {
		return nil, false
	}
	return &auth.Principal{ID: "ref_" + ref}, true
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Tracing.Enabled {
		return ""
	}
	return cfg.LogService
}

func gatewayRateLimit(cfg config.AppConfig) int {
	if !cfg.RateLimit.Enabled {
		return 0
	}
	return cfg.RateLimit.RequestsPerMinute
}

// formData flattens a parsed POST body. The last value of a repeated key
// wins.
func formData(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	data := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			data[k] = vs[len(vs)-1]
		}
	}
	return data, nil
}
