package config

import (
	"strings"
	"time"
)

// SinksConfig groups sink connection settings. These come from the
// environment once at startup; delivery code never reads env vars directly.
type SinksConfig struct {
	FTP  FTPSinkConfig  `envPrefix:"FTP_"`
	HTTP HTTPSinkConfig `envPrefix:"SINK_"`

	// Timeout applies to a single delivery attempt on either sink.
	Timeout time.Duration `env:"SINK_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to sink configuration values.
func (s *SinksConfig) Sanitize() {
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	s.FTP.sanitize()
	s.HTTP.sanitize()
}

// FTPSinkConfig contains the file-transfer sink connection settings
// (FTP_HOST, FTP_USER, FTP_PASSWORD).
type FTPSinkConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"21"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
}

func (c *FTPSinkConfig) sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	c.User = strings.TrimSpace(c.User)
	if c.Port <= 0 {
		c.Port = 21
	}
}

// Configured reports whether the FTP sink has connection settings.
func (c *FTPSinkConfig) Configured() bool {
	return c.Host != ""
}

// HTTPSinkConfig contains the HTTP sink destination (SINK_URL).
type HTTPSinkConfig struct {
	URL string `env:"URL"`
}

func (c *HTTPSinkConfig) sanitize() {
	c.URL = strings.TrimSpace(c.URL)
}

// Configured reports whether the HTTP sink has a destination.
func (c *HTTPSinkConfig) Configured() bool {
	return c.URL != ""
}
