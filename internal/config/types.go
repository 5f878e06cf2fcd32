// SPDX-License-Identifier: MIT

package config

import "time"

// AppConfig is the fully resolved service configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	ListenAddr    string `yaml:"listenAddr"`
	PublicBaseURL string `yaml:"publicBaseURL"`
	DataDir       string `yaml:"dataDir"`
	DatabasePath  string `yaml:"databasePath"`

	PayFort   PayFortConfig   `yaml:"payfort"`
	Payments  PaymentsConfig  `yaml:"payments"`
	API       APIConfig       `yaml:"api"`
	Redis     RedisConfig     `yaml:"redis"`
	Audit     AuditConfig     `yaml:"audit"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// PayFortConfig holds the merchant credentials issued by PayFort.
type PayFortConfig struct {
	AccessCode         string `yaml:"accessCode"`
	MerchantIdentifier string `yaml:"merchantIdentifier"`
	RequestSHAPhrase   string `yaml:"requestSHAPhrase"`
	ResponseSHAPhrase  string `yaml:"responseSHAPhrase"`
	SHAMethod          string `yaml:"shaMethod"`
	RedirectURL        string `yaml:"redirectURL"`
	Language           string `yaml:"language"`
}

// PaymentsConfig configures the checkout flow around the gateway.
type PaymentsConfig struct {
	DefaultSiteID     int64         `yaml:"defaultSiteID"`
	InvoicePrefix     string        `yaml:"invoicePrefix"`
	DefaultCurrency   string        `yaml:"defaultCurrency"`
	StatusMaxAttempts int           `yaml:"statusMaxAttempts"`
	StatusWaitTime    time.Duration `yaml:"statusWaitTime"`
	// URL templates; "{id}" is replaced by the transaction or invoice id.
	SuccessURL string `yaml:"successURL"`
	ErrorURL   string `yaml:"errorURL"`
	InvoiceURL string `yaml:"invoiceURL"`
}

// APIConfig configures authentication of the status endpoint.
type APIConfig struct {
	Tokens            []string `yaml:"tokens"`
	StatusRequireAuth bool     `yaml:"statusRequireAuth"`
	// StatusTokenSecret signs the transaction tokens rendered into the wait
	// page. The PayFort response phrase is used when empty.
	StatusTokenSecret string   `yaml:"statusTokenSecret"`
}

// RedisConfig configures the distributed lock backend. An empty Addr selects
// the in-process lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// AuditConfig configures the persistent audit journal.
type AuditConfig struct {
	JournalEnabled bool          `yaml:"journalEnabled"`
	JournalPath    string        `yaml:"journalPath"`
	Retention      time.Duration `yaml:"retention"`
}

// RateLimitConfig configures per-IP limits on gateway facing routes.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// WorkerConfig configures the fulfillment retry worker.
type WorkerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	BatchSize     int           `yaml:"batchSize"`
	Concurrency   int           `yaml:"concurrency"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	MaxBackoff    time.Duration `yaml:"maxBackoff"`
}
