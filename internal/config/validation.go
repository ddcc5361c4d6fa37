package config

import (
	"fmt"
	"net/url"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
)

// ValidateConfig validates the complete configuration.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateForwarding(); err != nil {
		return err
	}
	if err := cv.validateServer(); err != nil {
		return err
	}
	if err := cv.validateStorage(); err != nil {
		return err
	}
	return cv.validateMaintenance()
}

func (cv *configurationValidator) validateForwarding() error {
	if !cv.config.Forwarding.Enabled() {
		return nil
	}
	return validateHTTPURL("forwarding.url", cv.config.Forwarding.URL)
}

func (cv *configurationValidator) validateServer() error {
	if cv.config.Server.PublicURL == "" {
		return nil
	}
	return validateHTTPURL("server.public_url", cv.config.Server.PublicURL)
}

func (cv *configurationValidator) validateStorage() error {
	if cv.config.Storage.DatabasePath == "" {
		return configError("storage.database_path cannot be empty", nil)
	}
	return nil
}

func (cv *configurationValidator) validateMaintenance() error {
	if cv.config.Maintenance.Interval < 0 {
		return configError(fmt.Sprintf("maintenance.interval must not be negative, got %s", cv.config.Maintenance.Interval), nil)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return configError(fmt.Sprintf("%s is not a valid URL", field), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return configError(fmt.Sprintf("%s must use http or https, got %q", field, u.Scheme), nil)
	}
	if u.Host == "" {
		return configError(fmt.Sprintf("%s must include a host", field), nil)
	}
	return nil
}

func configError(msg string, cause error) error {
	b := errors.ConfigError(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}
