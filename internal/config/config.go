// Package config содержит логику чтения конфигурации аптечной кассы.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultStoreTimeout ограничивает одну транзакцию проведения продажи.
const DefaultStoreTimeout = 10 * time.Second

// Config содержит параметры конфигурации кассы.
type Config struct {
	RunAddress   string        `env:"RUN_ADDRESS"`
	DatabaseURI  string        `env:"DATABASE_URI"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStoreTimeout := cfg.StoreTimeout

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.DurationVar(&cfg.StoreTimeout, "t", DefaultStoreTimeout, "time limit for one sale transaction")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStoreTimeout != 0 {
		cfg.StoreTimeout = envStoreTimeout
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StoreTimeout < 0 {
		return nil, errors.New("store timeout must not be negative")
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	return cfg, nil
}
