package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
)

// Config is the immutable service configuration built once at startup.
// Components receive only the sub-struct they need.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Forwarding  ForwardingConfig  `yaml:"forwarding"`
	Auth        AuthConfig        `yaml:"auth"`
	Headers     HeadersConfig     `yaml:"headers"`
	Notify      NotifyConfig      `yaml:"notify"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// PublicURL is the externally reachable base URL, used by /test to call /webhook.
	PublicURL          string   `yaml:"public_url"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// StorageConfig represents event store configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ForwardingConfig holds the optional relay destination.
type ForwardingConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Enabled reports whether a forwarding destination is configured.
func (f ForwardingConfig) Enabled() bool { return f.URL != "" }

// AuthConfig holds the optional credentials for the two access gates.
// An empty value leaves the corresponding gate open.
type AuthConfig struct {
	AdminToken     string `yaml:"admin_token"`
	BrowsePassword string `yaml:"browse_password"`
}

// HeadersConfig extends the built-in sensitive header list.
type HeadersConfig struct {
	Sensitive []string `yaml:"sensitive"`
}

// NotifyConfig configures capture notifications over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Enabled reports whether notifications should be published.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// MonitoringConfig represents monitoring and observability configuration
type MonitoringConfig struct {
	MetricsEnabled bool          `yaml:"metrics_enabled"`
	Logging        LoggingConfig `yaml:"logging"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MaintenanceConfig configures periodic store housekeeping. A zero interval disables it.
type MaintenanceConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load builds the configuration: defaults, then the optional YAML file at
// configPath, then .env files, then process environment variables.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()
	return LoadWithEnv(configPath, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup and without .env handling.
func LoadWithEnv(configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(configPath string, cfg *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Fatal().Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("failed to parse config file %s", configPath)).
			Fatal().Build()
	}
	return nil
}
