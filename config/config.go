// Package config defines rowboat's environment-driven configuration.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See the individual domain config files
// for the available variables:
//   - database.go: Postgres and Redis configuration
//   - exporter.go: exporter loop configuration
//   - sinks.go: FTP and HTTP sink configuration
//   - http.go: status HTTP server configuration
//   - observability.go: metrics and log output configuration
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeExporter runs the scheduled export loop.
	ServiceModeExporter ServiceMode = "exporter"
	// ServiceModeHTTP runs the status HTTP server.
	ServiceModeHTTP ServiceMode = "http"
)

// AppConfig is the main application configuration struct composing
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior. Set DEV=true to enable.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services selects which service modes run, comma-delimited.
	Services string `env:"SERVICES" envDefault:"exporter"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Exporter      ExporterConfig
	Sinks         SinksConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call it after env parsing, before validation.
func (c *AppConfig) Sanitize() {
	c.Exporter.Sanitize()
	c.Sinks.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

// ParseServices parses a comma-delimited list of service mode names.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if strings.TrimSpace(servicesStr) == "" {
		return nil, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		switch mode {
		case ServiceModeExporter, ServiceModeHTTP:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: exporter, http)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsExporterEnabled returns true if the export loop is enabled.
func (c *AppConfig) IsExporterEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeExporter]
}

// IsHTTPServerEnabled returns true if the status HTTP server is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}
