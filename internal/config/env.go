package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
)

// Environment variable names.
const (
	EnvForwardURL          = "FORWARD_WEBHOOK_URL"
	EnvForwardToken        = "FORWARD_WEBHOOK_TOKEN"
	EnvAdminToken          = "ADMIN_TOKEN"
	EnvBrowsePassword      = "BROWSE_PASSWORD"
	EnvDatabasePath        = "DATABASE_PATH"
	EnvListenAddr          = "LISTEN_ADDR"
	EnvPublicURL           = "PUBLIC_URL"
	EnvSensitiveHeaders    = "SENSITIVE_HEADERS"
	EnvNATSURL             = "NATS_URL"
	EnvNATSSubject         = "NATS_SUBJECT"
	EnvMetricsEnabled      = "METRICS_ENABLED"
	EnvMaintenanceInterval = "MAINTENANCE_INTERVAL"
	EnvCORSAllowedOrigins  = "CORS_ALLOWED_ORIGINS"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFormat           = "LOG_FORMAT"
)

var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env.local and .env when present. Variables already set
// in the process environment are never overwritten, and the first file to
// define a key wins.
func loadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", path))
	}
}

// applyEnv overlays environment variables onto cfg. Unset variables leave cfg untouched.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvForwardURL, &cfg.Forwarding.URL)
	str(EnvForwardToken, &cfg.Forwarding.Token)
	str(EnvAdminToken, &cfg.Auth.AdminToken)
	str(EnvBrowsePassword, &cfg.Auth.BrowsePassword)
	str(EnvDatabasePath, &cfg.Storage.DatabasePath)
	str(EnvListenAddr, &cfg.Server.ListenAddr)
	str(EnvPublicURL, &cfg.Server.PublicURL)
	str(EnvNATSURL, &cfg.Notify.NATSURL)
	str(EnvNATSSubject, &cfg.Notify.Subject)

	if v, ok := lookup(EnvSensitiveHeaders); ok {
		cfg.Headers.Sensitive = append(cfg.Headers.Sensitive, splitList(v)...)
	}
	if v, ok := lookup(EnvCORSAllowedOrigins); ok {
		cfg.Server.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Monitoring.Logging.Level = LogLevel(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Monitoring.Logging.Format = LogFormat(v)
	}

	if v, ok := lookup(EnvMetricsEnabled); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return envError(EnvMetricsEnabled, v, err)
		}
		cfg.Monitoring.MetricsEnabled = enabled
	}
	if v, ok := lookup(EnvMaintenanceInterval); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return envError(EnvMaintenanceInterval, v, err)
		}
		cfg.Maintenance.Interval = d
	}
	return nil
}

func envError(key, value string, err error) error {
	return errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("invalid value for %s", key)).
		WithContext("value", value).
		Fatal().
		Build()
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
