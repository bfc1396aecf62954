package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/config"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/engine"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/infra/cache"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/infra/providers"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/transport/httpapi"
	"github.com/Emmanuelcsam/WhatNow--sub001/internal/transport/taskqueue"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		log = log.Level(level)
	}

	client := providers.NewHTTPClient()
	governor := engine.NewGovernor()

	locReg := domain.NewRegistry[domain.LocationRecord]()
	mustRegister(log, locReg.Register(providers.NewIPAPI(client)))
	mustRegister(log, locReg.Register(providers.NewFreeGeoIP(client)))
	mustRegister(log, locReg.Register(providers.NewNominatim(client)))
	if cfg.Keys.IPStack != "" {
		mustRegister(log, locReg.Register(providers.NewIPStack(client, cfg.Keys.IPStack)))
	}

	evReg := domain.NewRegistry[domain.EventRecord]()
	if cfg.Keys.Ticketmaster != "" {
		mustRegister(log, evReg.Register(providers.NewTicketmaster(client, cfg.Keys.Ticketmaster)))
	}
	if cfg.Keys.SeatGeekClientID != "" {
		mustRegister(log, evReg.Register(providers.NewSeatGeek(client, cfg.Keys.SeatGeekClientID)))
	}

	searchReg := domain.NewRegistry[domain.SearchHit]()
	mustRegister(log, searchReg.Register(providers.NewDuckDuckGo(client)))

	var (
		locCache    domain.ResultCache[domain.LocationRecord]
		evCache     domain.ResultCache[domain.EventRecord]
		searchCache domain.ResultCache[domain.SearchHit]
		asynqClient *asynq.Client
	)
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.UseTLS,
		})
		locCache = cache.NewRedisCache[domain.LocationRecord](rdb, "discovery:location")
		evCache = cache.NewRedisCache[domain.EventRecord](rdb, "discovery:event")
		searchCache = cache.NewRedisCache[domain.SearchHit](rdb, "discovery:search")
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		log.Warn().Msg("redis disabled, using in-memory caches")
		locCache = cache.NewMemoryCache[domain.LocationRecord]()
		evCache = cache.NewMemoryCache[domain.EventRecord]()
		searchCache = cache.NewMemoryCache[domain.SearchHit]()
	}

	locEngine := engine.New(locReg, governor, locCache, engine.NewLocationConsensus(), cfg.Cache.LocationTTL, log)
	evEngine := engine.New(evReg, governor, evCache, engine.NewRelevanceRanker[domain.EventRecord](), cfg.Cache.EventTTL, log)
	searchEngine := engine.New(searchReg, governor, searchCache, engine.NewRelevanceRanker[domain.SearchHit](), cfg.Cache.SearchTTL, log)

	descriptors := locReg.Descriptors()
	descriptors = append(descriptors, evReg.Descriptors()...)
	descriptors = append(descriptors, searchReg.Descriptors()...)

	api := httpapi.NewServer(locEngine, evEngine, searchEngine, governor, descriptors, cfg.Budgets, asynqClient, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var asynqSrv *asynq.Server
	if cfg.Redis.Addr != "" {
		asynqSrv = asynq.NewServer(
			asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
			asynq.Config{Concurrency: cfg.Worker.Concurrency},
		)
		worker := taskqueue.NewWorker(locEngine, evEngine, searchEngine, cfg.Budgets, log)
		mux := asynq.NewServeMux()
		worker.Register(mux)
		go func() {
			if err := asynqSrv.Run(mux); err != nil {
				log.Error().Err(err).Msg("task worker stopped")
			}
		}()
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if asynqSrv != nil {
		asynqSrv.Shutdown()
	}
}

func mustRegister(log zerolog.Logger, err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("register provider")
	}
}
