package config

import "time"

// ExporterConfig contains exporter loop configuration.
type ExporterConfig struct {
	// Interval is the exporter tick interval.
	Interval time.Duration `env:"EXPORTER_INTERVAL" envDefault:"1s"`

	// BatchSize caps how many due exports one tick will run.
	BatchSize int `env:"EXPORTER_BATCH_SIZE" envDefault:"10"`

	// LockTTL bounds how long a per-export run lock is held if a runner
	// dies mid-run.
	LockTTL time.Duration `env:"EXPORTER_LOCK_TTL" envDefault:"10m"`

	// RunRetention is how long completed run records are kept.
	RunRetention time.Duration `env:"EXPORTER_RUN_RETENTION" envDefault:"720h"`

	// QueryTimeout bounds a single export's query execution.
	QueryTimeout time.Duration `env:"EXPORTER_QUERY_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to exporter configuration values.
func (e *ExporterConfig) Sanitize() {
	if e.Interval <= 0 {
		e.Interval = time.Second
	}
	if e.BatchSize < 1 {
		e.BatchSize = 1
	}
	if e.LockTTL < time.Minute {
		e.LockTTL = time.Minute
	}
	if e.RunRetention < time.Hour {
		e.RunRetention = time.Hour
	}
	if e.QueryTimeout <= 0 {
		e.QueryTimeout = 60 * time.Second
	}
}
