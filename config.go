package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"denim-factory/factory"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDialect   string `env:"DB_DIALECT" envDefault:"sqlite"`
	SQLitePath  string `env:"DB_SQLITE_PATH" envDefault:"tmp/denim_factory.sqlite"`
	PostgresDSN string `env:"DB_POSTGRES_DSN"`
	DatabaseURL string `env:"DATABASE_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DefaultWeeks int     `env:"DEFAULT_TOTAL_WEEKS" envDefault:"12"`
	DemandPrice  float64 `env:"DEMAND_BASE_PRICE" envDefault:"20"`
	RandomEvents bool    `env:"RANDOM_EVENTS" envDefault:"true"`
	RNGSeed      int64   `env:"RNG_SEED" envDefault:"0"`

	Retention       time.Duration `env:"FINISHED_GAME_RETENTION" envDefault:"720h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// loadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DefaultWeeks < 1 || c.DefaultWeeks > factory.MaxWeeks {
		return fmt.Errorf("DEFAULT_TOTAL_WEEKS must be between 1 and %d, got %d", factory.MaxWeeks, c.DefaultWeeks)
	}
	if c.DemandPrice <= 0 {
		return fmt.Errorf("DEMAND_BASE_PRICE must be positive, got %v", c.DemandPrice)
	}
	if c.Retention < 0 {
		return fmt.Errorf("FINISHED_GAME_RETENTION must not be negative")
	}
	return nil
}
