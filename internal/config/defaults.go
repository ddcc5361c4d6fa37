package config

import "time"

const (
	DefaultListenAddr          = ":8000"
	DefaultDatabasePath        = "webhooks.db"
	DefaultNotifySubject       = "webhook.captured"
	DefaultMaintenanceInterval = 5 * time.Minute
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server:      ServerConfig{ListenAddr: DefaultListenAddr},
		Storage:     StorageConfig{DatabasePath: DefaultDatabasePath},
		Notify:      NotifyConfig{Subject: DefaultNotifySubject},
		Maintenance: MaintenanceConfig{Interval: DefaultMaintenanceInterval},
		Monitoring: MonitoringConfig{
			Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		},
	}
}

// DefaultApplier fills in values for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
}

type notifyDefaults struct{}

func (notifyDefaults) Domain() string { return "notify" }

func (notifyDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) {
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
}

var defaultAppliers = []DefaultApplier{serverDefaults{}, notifyDefaults{}, loggingDefaults{}}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}
