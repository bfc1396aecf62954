// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidTTL    = errors.New("cache TTLs must be positive")
	ErrInvalidBudget = errors.New("query budgets must be positive")
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	Budgets BudgetConfig  `yaml:"budgets"`
	Keys    KeysConfig    `yaml:"keys"`
	Worker  WorkerConfig  `yaml:"worker"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR"`
}

type RedisConfig struct {
	// Addr empty means no redis: the in-memory cache is used and the warmup
	// worker is disabled.
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	UseTLS   bool   `yaml:"use_tls" env:"REDIS_TLS"`
}

// CacheConfig holds per-record-type result TTLs. Provider data goes stale
// quickly, so the TTLs stay short.
type CacheConfig struct {
	LocationTTL time.Duration `yaml:"location_ttl" env:"CACHE_LOCATION_TTL"`
	EventTTL    time.Duration `yaml:"event_ttl" env:"CACHE_EVENT_TTL"`
	SearchTTL   time.Duration `yaml:"search_ttl" env:"CACHE_SEARCH_TTL"`
}

// BudgetConfig holds the per-capability query deadlines applied by the HTTP
// layer and the warmup worker.
type BudgetConfig struct {
	Location time.Duration `yaml:"location" env:"BUDGET_LOCATION"`
	Event    time.Duration `yaml:"event" env:"BUDGET_EVENT"`
	Search   time.Duration `yaml:"search" env:"BUDGET_SEARCH"`
}

type KeysConfig struct {
	IPStack          string `yaml:"ipstack" env:"IPSTACK_KEY"`
	Ticketmaster     string `yaml:"ticketmaster" env:"TICKETMASTER_KEY"`
	SeatGeekClientID string `yaml:"seatgeek_client_id" env:"SEATGEEK_CLIENT_ID"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Cache: CacheConfig{
			LocationTTL: time.Hour,
			EventTTL:    45 * time.Minute,
			SearchTTL:   30 * time.Minute,
		},
		Budgets: BudgetConfig{
			Location: 5 * time.Second,
			Event:    15 * time.Second,
			Search:   10 * time.Second,
		},
		Worker:  WorkerConfig{Concurrency: 5},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path if it exists, then applies environment overrides. A missing
// file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Cache.LocationTTL <= 0 || cfg.Cache.EventTTL <= 0 || cfg.Cache.SearchTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Budgets.Location <= 0 || cfg.Budgets.Event <= 0 || cfg.Budgets.Search <= 0 {
		return nil, ErrInvalidBudget
	}
	return cfg, nil
}
