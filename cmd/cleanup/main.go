package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/config"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/infra/cache"
)

// cleanup purges result-cache entries older than the given age, across all
// record-type prefixes. Meant to run from cron.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	olderThan := flag.Duration("older-than", 4*time.Hour, "purge entries older than this")
	flag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Redis.Addr == "" {
		log.Fatal().Msg("cleanup requires redis")
	}

	rdb := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		UseTLS:   cfg.Redis.UseTLS,
	})

	caches := map[string]domain.ResultCache[domain.LocationRecord]{
		"discovery:location": cache.NewRedisCache[domain.LocationRecord](rdb, "discovery:location"),
	}
	// The stored value type does not matter for deletion; reuse one record
	// type for the remaining prefixes.
	caches["discovery:event"] = cache.NewRedisCache[domain.LocationRecord](rdb, "discovery:event")
	caches["discovery:search"] = cache.NewRedisCache[domain.LocationRecord](rdb, "discovery:search")

	ctx := context.Background()
	log.Info().Dur("older_than", *olderThan).Msg("starting cache cleanup")

	for prefix, c := range caches {
		if err := c.DeleteOlderThan(ctx, *olderThan); err != nil {
			log.Fatal().Err(err).Str("prefix", prefix).Msg("cleanup failed")
		}
		log.Info().Str("prefix", prefix).Msg("purged")
	}

	log.Info().Msg("cache cleanup completed")
}
