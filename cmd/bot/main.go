package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	coreconfig "schedulebot/core/config"
	"schedulebot/core/database"
	"schedulebot/core/logger"
	"schedulebot/internal/asu"
	"schedulebot/internal/bot"
	"schedulebot/internal/cache"
	"schedulebot/internal/dialog"
	"schedulebot/internal/storage"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("bot: %v", err)
	}
}

func run() error {
	startedAt := time.Now()

	// Missing .env is fine; env vars may come from the environment itself.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store cache.Store
	if cfg.Cache.Backend == coreconfig.CacheBackendRedis {
		redisStore, err := storage.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		pgStore := storage.NewCacheStore(db)
		store = pgStore

		// Redis expires entries itself; postgres needs the periodic sweep.
		if cfg.Cache.SweepSpec != "" {
			sweeper, err := cache.NewSweeper(cfg.Cache.SweepSpec, pgStore)
			if err != nil {
				return err
			}
			sweeper.Start()
			defer sweeper.Stop()
		}
	}

	provider := asu.New(cfg.Provider)
	prefs := storage.NewPreferenceStore(db)
	stats := storage.NewStatsStore(db)

	svc := dialog.NewService(provider, prefs, stats, store, cfg.Cache)
	machine := dialog.NewMachine(svc)

	app, err := bot.New(cfg, svc, machine, stats)
	if err != nil {
		return err
	}

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	err = app.Run(ctx)
	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
