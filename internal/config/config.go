package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"wa-gateway"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Server configuration
	Port           int           `env:"PORT" yaml:"port" default:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" yaml:"request_timeout" default:"30s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// Session lifecycle configuration
	Session SessionConfig `yaml:"session,inline"`

	// Webhook configuration
	Webhook WebhookConfig `yaml:"webhook,inline"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage,inline"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`

	// Health check configuration
	Health HealthConfig `yaml:"health,inline"`

	// Security configuration
	Security SecurityConfig `yaml:"security,inline"`
}

// SessionConfig holds session lifecycle configuration
type SessionConfig struct {
	// Transport selects the wire-protocol provider. Only "loopback" is
	// built into this binary; deployments link their own.
	Transport      string        `env:"SESSION_TRANSPORT" yaml:"transport" default:"loopback"`
	ReconnectDelay time.Duration `env:"SESSION_RECONNECT_DELAY" yaml:"reconnect_delay" default:"2s"`
}

// WebhookConfig holds webhook delivery configuration
type WebhookConfig struct {
	URL     string        `env:"WEBHOOK_URL" yaml:"url"` // Empty disables delivery
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" yaml:"timeout" default:"10s"`
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, validLevel := range validLevels {
		if level == validLevel {
			valid = true
			break
		}
	}
	if !valid {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	// Validate log format
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	// Validate port range
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	// Validate timeout values
	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout must be greater than 0"))
	}

	if c.Session.ReconnectDelay <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_reconnect_delay must be greater than 0"))
	}

	if c.Webhook.URL != "" && c.Webhook.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("webhook_timeout must be greater than 0 when a webhook is configured"))
	}

	// Validate storage config
	if c.Storage.Backend != "local" && c.Storage.Backend != "s3" {
		result = multierror.Append(result, fmt.Errorf("storage_backend must be 'local' or 's3', got %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
		result = multierror.Append(result, fmt.Errorf("storage_s3_bucket is required when using S3 storage"))
	}

	// Validate security config
	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.Port),
		logger.StringField("transport", c.Session.Transport),
		logger.DurationField("reconnect_delay", c.Session.ReconnectDelay),
		logger.StringField("storage_backend", c.Storage.Backend),
		logger.BoolField("webhook_configured", c.Webhook.URL != ""),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled),
	)
}
