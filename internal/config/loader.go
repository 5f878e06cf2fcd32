// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Validation is left to the caller (see Validate).
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "payments.db")
	}
	if cfg.Audit.JournalPath == "" {
		cfg.Audit.JournalPath = filepath.Join(cfg.DataDir, "audit")
	}

	return cfg, nil
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:      "info",
		LogService:    "payfort",
		ListenAddr:    ":8000",
		PublicBaseURL: "http://localhost:8000",
		DataDir:       "data",
		PayFort: PayFortConfig{
			SHAMethod:   "SHA-256",
			RedirectURL: "https://sbcheckout.payfort.com/FortAPI/paymentPage",
			Language:    "en",
		},
		Payments: PaymentsConfig{
			DefaultSiteID:     1,
			InvoicePrefix:     "INV",
			DefaultCurrency:   "SAR",
			StatusMaxAttempts: 24,
			StatusWaitTime:    5 * time.Second,
			SuccessURL:        "/payments/success/{id}/",
			ErrorURL:          "/payments/error/{id}/",
			InvoiceURL:        "/payments/invoice/{id}/",
		},
		Redis: RedisConfig{
			LockTTL: 30 * time.Second,
		},
		Audit: AuditConfig{
			JournalEnabled: true,
			Retention:      90 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Worker: WorkerConfig{
			Enabled:       true,
			Interval:      time.Minute,
			BatchSize:     50,
			Concurrency:   4,
			RatePerSecond: 5,
			MaxBackoff:    time.Hour,
		},
	}
}

func (l *Loader) loadFile(path string, dst *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return nil
}

// mergeEnvConfig overrides cfg with PAYFORT_* environment variables.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("PAYFORT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("PAYFORT_LOG_SERVICE", cfg.LogService)
	cfg.ListenAddr = l.envString("PAYFORT_LISTEN", cfg.ListenAddr)
	cfg.PublicBaseURL = l.envString("PAYFORT_PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.DataDir = l.envString("PAYFORT_DATA", cfg.DataDir)
	cfg.DatabasePath = l.envString("PAYFORT_DB_PATH", cfg.DatabasePath)

	// Gateway credentials
	cfg.PayFort.AccessCode = l.envString("PAYFORT_ACCESS_CODE", cfg.PayFort.AccessCode)
	cfg.PayFort.MerchantIdentifier = l.envString("PAYFORT_MERCHANT_IDENTIFIER", cfg.PayFort.MerchantIdentifier)
	cfg.PayFort.RequestSHAPhrase = l.envString("PAYFORT_REQUEST_SHA_PHRASE", cfg.PayFort.RequestSHAPhrase)
	cfg.PayFort.ResponseSHAPhrase = l.envString("PAYFORT_RESPONSE_SHA_PHRASE", cfg.PayFort.ResponseSHAPhrase)
	cfg.PayFort.SHAMethod = l.envString("PAYFORT_SHA_METHOD", cfg.PayFort.SHAMethod)
	cfg.PayFort.RedirectURL = l.envString("PAYFORT_REDIRECT_URL", cfg.PayFort.RedirectURL)
	cfg.PayFort.Language = l.envString("PAYFORT_LANGUAGE", cfg.PayFort.Language)

	cfg.Payments.InvoicePrefix = l.envString("PAYFORT_INVOICE_PREFIX", cfg.Payments.InvoicePrefix)
	cfg.Payments.DefaultCurrency = l.envString("PAYFORT_DEFAULT_CURRENCY", cfg.Payments.DefaultCurrency)
	cfg.Payments.DefaultSiteID = int64(l.envInt("PAYFORT_DEFAULT_SITE_ID", int(cfg.Payments.DefaultSiteID)))

	cfg.API.Tokens = l.envList("PAYFORT_API_TOKENS", cfg.API.Tokens)
	cfg.API.StatusRequireAuth = l.envBool("PAYFORT_STATUS_REQUIRE_AUTH", cfg.API.StatusRequireAuth)
	cfg.API.StatusTokenSecret = l.envString("PAYFORT_STATUS_TOKEN_SECRET", cfg.API.StatusTokenSecret)

	cfg.Redis.Addr = l.envString("PAYFORT_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = l.envString("PAYFORT_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = l.envInt("PAYFORT_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.LockTTL = l.envDuration("PAYFORT_REDIS_LOCK_TTL", cfg.Redis.LockTTL)

	cfg.Audit.JournalEnabled = l.envBool("PAYFORT_AUDIT_JOURNAL", cfg.Audit.JournalEnabled)
	cfg.Audit.JournalPath = l.envString("PAYFORT_AUDIT_JOURNAL_PATH", cfg.Audit.JournalPath)

	cfg.RateLimit.Enabled = l.envBool("PAYFORT_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = l.envInt("PAYFORT_RATELIMIT_RPM", cfg.RateLimit.RequestsPerMinute)

	cfg.Tracing.Enabled = l.envBool("PAYFORT_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("PAYFORT_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("PAYFORT_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat("PAYFORT_TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)

	cfg.Worker.Enabled = l.envBool("PAYFORT_WORKER_ENABLED", cfg.Worker.Enabled)
	cfg.Worker.Interval = l.envDuration("PAYFORT_WORKER_INTERVAL", cfg.Worker.Interval)
	cfg.Worker.Concurrency = l.envInt("PAYFORT_WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Worker.MaxBackoff = l.envDuration("PAYFORT_WORKER_MAX_BACKOFF", cfg.Worker.MaxBackoff)
}

// LoadFileConfig loads a YAML config file on top of the defaults, without env overrides.
func LoadFileConfig(path string) (AppConfig, error) {
	cfg := Defaults()
	loader := NewLoader(path, "")
	err := loader.loadFile(path, &cfg)
	return cfg, err
}
