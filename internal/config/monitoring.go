package config

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" yaml:"metrics_enabled" default:"true"`
	MetricsPath    string `env:"METRICS_PATH" yaml:"metrics_path" default:"/metrics"`
}
