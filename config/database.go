package config

// DBConfig contains PostgreSQL source database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"rowboat"`
	Password string `env:"PASSWORD" envDefault:"rowboat"`
	Name     string `env:"NAME"     envDefault:"rowboat"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether migrations apply during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the distributed run lock.
type RedisConfig struct {
	// URI accepts either host:port or a redis:// / rediss:// URL.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
	// Enabled toggles the Redis run lock. When disabled, overlapping-run
	// protection relies on the Postgres claim alone.
	Enabled bool `env:"ENABLED" envDefault:"true"`
}
