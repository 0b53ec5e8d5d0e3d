package main

import (
	"context"

	"github.com/grovehq/grove/internal/app"
	"github.com/grovehq/grove/internal/cache"
	"github.com/grovehq/grove/internal/config"
	"github.com/grovehq/grove/internal/db"
	"github.com/grovehq/grove/internal/logger"
	"github.com/grovehq/grove/internal/matching"
	"github.com/grovehq/grove/internal/notify"
	"github.com/grovehq/grove/internal/server"
	"github.com/grovehq/grove/internal/service/intros"
	"github.com/grovehq/grove/internal/service/matches"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.App.Env == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Composition root: one engine, one intros collaborator, one facade.
	email := notify.NewLogSender(log)
	engine := matching.NewVectorEngine(appCtx)
	introsSvc := intros.NewService(appCtx, email)
	matchesSvc := matches.NewService(appCtx, engine, introsSvc, email)

	router := server.NewRouter(engine, server.NewMatchesHandler(matchesSvc, log))

	log.Info("starting http server", "addr", cfg.HTTP.Host+":"+cfg.HTTP.Port)
	if err := server.Start(cfg, router); err != nil {
		log.Error("http server exited", "err", err)
	}
}
