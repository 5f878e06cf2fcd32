// SPDX-License-Identifier: MIT

package config

import "github.com/zeitlabs/payfort/internal/validate"

// SupportedSHAMethods lists the digest names accepted by PayFort signatures.
var SupportedSHAMethods = []string{"SHA-256", "SHA-512"}

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("LogLevel", "must be one of debug, info, warn, error", cfg.LogLevel)
	}
	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	v.URL("PublicBaseURL", cfg.PublicBaseURL, []string{"http", "https"})
	v.Directory("DataDir", cfg.DataDir, false)
	v.NotEmpty("DatabasePath", cfg.DatabasePath)

	// Gateway credentials
	v.NotEmpty("PayFort.AccessCode", cfg.PayFort.AccessCode)
	v.NotEmpty("PayFort.MerchantIdentifier", cfg.PayFort.MerchantIdentifier)
	v.NotEmpty("PayFort.RequestSHAPhrase", cfg.PayFort.RequestSHAPhrase)
	v.NotEmpty("PayFort.ResponseSHAPhrase", cfg.PayFort.ResponseSHAPhrase)
	v.OneOf("PayFort.SHAMethod", cfg.PayFort.SHAMethod, SupportedSHAMethods)
	v.URL("PayFort.RedirectURL", cfg.PayFort.RedirectURL, []string{"https", "http"})
	v.OneOf("PayFort.Language", cfg.PayFort.Language, []string{"en", "ar"})

	// Checkout flow
	v.NotEmpty("Payments.InvoicePrefix", cfg.Payments.InvoicePrefix)
	v.Currency("Payments.DefaultCurrency", cfg.Payments.DefaultCurrency)
	v.IDTemplate("Payments.SuccessURL", cfg.Payments.SuccessURL)
	v.IDTemplate("Payments.ErrorURL", cfg.Payments.ErrorURL)
	v.IDTemplate("Payments.InvoiceURL", cfg.Payments.InvoiceURL)
	v.Range("Payments.StatusMaxAttempts", cfg.Payments.StatusMaxAttempts, 1, 1000)
	v.PositiveDuration("Payments.StatusWaitTime", cfg.Payments.StatusWaitTime)
	if cfg.Payments.DefaultSiteID <= 0 {
		v.AddError("Payments.DefaultSiteID", "must be positive", cfg.Payments.DefaultSiteID)
	}

	if cfg.API.StatusRequireAuth && len(cfg.API.Tokens) == 0 {
		v.AddError("API.Tokens", "at least one token is required when statusRequireAuth is set", "")
	}

	if cfg.Redis.Addr != "" {
		v.PositiveDuration("Redis.LockTTL", cfg.Redis.LockTTL)
	}

	if cfg.Audit.JournalEnabled {
		v.NotEmpty("Audit.JournalPath", cfg.Audit.JournalPath)
	}

	if cfg.RateLimit.Enabled {
		v.Range("RateLimit.RequestsPerMinute", cfg.RateLimit.RequestsPerMinute, 1, 100000)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
	}

	if cfg.Worker.Enabled {
		v.PositiveDuration("Worker.Interval", cfg.Worker.Interval)
		v.Range("Worker.BatchSize", cfg.Worker.BatchSize, 1, 10000)
		v.Range("Worker.Concurrency", cfg.Worker.Concurrency, 1, 64)
		v.PositiveDuration("Worker.MaxBackoff", cfg.Worker.MaxBackoff)
		if cfg.Worker.RatePerSecond <= 0 {
			v.AddError("Worker.RatePerSecond", "must be positive", cfg.Worker.RatePerSecond)
		}
	}

	return v.Err()
}
