package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/internal/database"
	"github.com/pulse-social/pulse/internal/queue"
	pulseredis "github.com/pulse-social/pulse/internal/redis"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := pulseredis.NewClient(cfg.CacheURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Unlike the API server, the worker is useless without the cache it
	// writes to; fail fast so the supervisor restarts us.
	if err := redisClient.Ping(ctx); err != nil {
		log.Fatalf("Redis unreachable: %v", err)
	}

	bus, err := queue.NewBus(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create event bus: %v", err)
	}
	defer bus.Close()

	timelineCache := cache.NewTimelineCache(redisClient.Client, cfg.TimelineCap)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)

	h := worker.NewHandler(timelineCache, userRepo, followRepo, cfg.FanoutBatchSize)
	manager := worker.NewManager(bus, h, worker.ManagerConfig{
		WorkerCount: cfg.WorkerConcurrency,
	})

	manager.Start(ctx)
	log.Println("[Worker] Running, press Ctrl+C to stop")

	<-ctx.Done()
	manager.Stop()
}
