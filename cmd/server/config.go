package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all server configuration parsed from environment
// variables. Flags override PORT and SQLITE_PATH for local runs.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Store selects the backing store: sqlite, postgres or memory.
	Store      string `env:"STORE" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"transfers.db"`

	// PostgreSQL (used when STORE=postgres)
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"transfers"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"transfers"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"transfers"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL
// if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Origins splits the CORS origin list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
