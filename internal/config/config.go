// Package config loads the service configuration from environment variables.
// Every field carries its variable name and default in struct tags; Load
// fills them by reflection and Validate rejects inconsistent settings before
// anything is started.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Publish  PublishConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"6m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for uploads.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds every request except file uploads, which run
	// under UPLOAD_TIMEOUT.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds dataset record storage settings.
type DatabaseConfig struct {
	// URL selects the backend by scheme: postgres:// or postgresql:// for
	// PostgreSQL, sqlite:// or file: for an embedded SQLite database.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// Pool settings apply to PostgreSQL only.
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds dataset upload and processing settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted file in bytes (default: 50MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envAlt:"MAX_FILE_SIZE" default:"52428800"`

	// AllowedExtensions lists accepted file extensions, dot included.
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" envAlt:"ALLOWED_FILE_TYPES" default:".csv,.xlsx,.xls,.json"`

	// MaxRecords truncates parsed tables to this many rows.
	MaxRecords int `env:"UPLOAD_MAX_RECORDS" envAlt:"MAX_RECORDS" default:"1000000"`

	// StrictValidation controls the header-and-delimiter check on CSV text.
	StrictValidation bool `env:"UPLOAD_STRICT_VALIDATION" envAlt:"DATA_VALIDATION_STRICT" default:"true"`

	// PreviewRows is the number of head and sample rows in a preview.
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"5"`

	// MaxConcurrent is the number of uploads processed at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a processing slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single upload from parse to record.
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// StorageConfig holds content store settings.
type StorageConfig struct {
	// IPFSURL is the IPFS node API address. Empty keeps content in memory.
	IPFSURL string `env:"IPFS_API_URL" envAlt:"IPFS_URL"`

	// GatewayURL is used for reads the node cannot serve.
	GatewayURL string `env:"IPFS_GATEWAY_URL" envAlt:"IPFS_GATEWAY"`

	Timeout time.Duration `env:"IPFS_TIMEOUT" default:"30s"`
}

// PublishConfig holds settings for retrying failed publications.
type PublishConfig struct {
	Enabled     bool          `env:"PUBLISH_RETRY_ENABLED" default:"true"`
	Interval    time.Duration `env:"PUBLISH_RETRY_INTERVAL" default:"1m"`
	BatchSize   int           `env:"PUBLISH_BATCH_SIZE" default:"20"`
	MaxAttempts int           `env:"PUBLISH_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	Burst             int  `env:"RATE_LIMIT_BURST" default:"20"`

	// UploadLimit is requests per minute for upload endpoints.
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For and X-Real-IP headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys are accepted in the X-API-Key header when RequireAPIKey is set.
	APIKeys       []string `env:"API_KEYS"`
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IngestConfig builds the pipeline configuration from the upload section.
func (c *Config) IngestConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	if c.Upload.MaxFileSize > 0 {
		cfg.MaxFileSizeBytes = c.Upload.MaxFileSize
	}
	if len(c.Upload.AllowedExtensions) > 0 {
		exts := make([]string, len(c.Upload.AllowedExtensions))
		for i, e := range c.Upload.AllowedExtensions {
			e = strings.ToLower(strings.TrimSpace(e))
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts[i] = e
		}
		cfg.AllowedExtensions = exts
	}
	if c.Upload.MaxRecords > 0 {
		cfg.MaxRecords = c.Upload.MaxRecords
	}
	cfg.StrictValidation = c.Upload.StrictValidation
	return cfg
}
