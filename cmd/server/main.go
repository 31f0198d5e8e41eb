package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/internal/database"
	"github.com/pulse-social/pulse/internal/handler"
	"github.com/pulse-social/pulse/internal/queue"
	pulseredis "github.com/pulse-social/pulse/internal/redis"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/service"
	transport "github.com/pulse-social/pulse/internal/transport/http"
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

	// A dead cache is survivable: reads fall back to the database and the
	// health endpoint reports it. Don't refuse to start.
	if err := redisClient.Ping(ctx); err != nil {
		log.Printf("[WARN] Redis unreachable at startup, timeline cache degraded: %v", err)
	}

	bus, err := queue.NewBus(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create event bus: %v", err)
	}
	defer bus.Close()

	timelineCache := cache.NewTimelineCache(redisClient.Client, cfg.TimelineCap)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	authService := service.NewAuthService(userRepo, cfg)
	postService := service.NewPostService(postRepo, userRepo, bus, timelineCache)
	followService := service.NewFollowService(followRepo, userRepo, db, timelineCache, cfg.CelebrityThreshold)
	timelineService := service.NewTimelineService(timelineCache, postRepo, userRepo, followRepo, cfg.PullWindow)
	systemService := service.NewSystemService(db, timelineCache, bus, userRepo, postRepo, followRepo)

	router := transport.NewRouter(transport.RouterConfig{
		AuthHandler:     handler.NewAuthHandler(authService),
		UserHandler:     handler.NewUserHandler(authService),
		FollowHandler:   handler.NewFollowHandler(followService),
		PostHandler:     handler.NewPostHandler(postService),
		TimelineHandler: handler.NewTimelineHandler(timelineService),
		SystemHandler:   handler.NewSystemHandler(systemService),
		JWTSecret:       cfg.TokenSecret,
	})

	server := transport.NewServer(cfg.ServerPort, router)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
