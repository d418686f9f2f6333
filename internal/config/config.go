// Package config содержит логику чтения конфигурации приложения.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации приложения.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	MarketplaceAddress string `env:"MARKETPLACE_ADDRESS"`
	AuthSecret         string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envMarketplaceAddress := cfg.MarketplaceAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MarketplaceAddress, "r", "", "marketplace API address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envMarketplaceAddress != "" {
		cfg.MarketplaceAddress = envMarketplaceAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
