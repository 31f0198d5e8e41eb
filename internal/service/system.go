package service

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/queue"
	"github.com/pulse-social/pulse/internal/repository"
)

const (
	statusHealthy     = "healthy"
	statusDegraded    = "degraded"
	statusUnavailable = "unavailable"
)

// SystemService reports dependency health and system-wide counters.
type SystemService struct {
	db            *sqlx.DB
	timelineCache cache.TimelineCache
	bus           queue.Bus
	userRepo      repository.UserRepository
	postRepo      repository.PostRepository
	followRepo    repository.FollowRepository
}

func NewSystemService(
	db *sqlx.DB,
	timelineCache cache.TimelineCache,
	bus queue.Bus,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
) *SystemService {
	return &SystemService{
		db:            db,
		timelineCache: timelineCache,
		bus:           bus,
		userRepo:      userRepo,
		postRepo:      postRepo,
		followRepo:    followRepo,
	}
}

// Health probes each dependency. It always returns a response: a dead
// dependency shows up as "unavailable", never as a failed health check.
func (s *SystemService) Health(ctx context.Context) *model.HealthResponse {
	resp := &model.HealthResponse{
		Database: statusHealthy,
		Cache:    statusHealthy,
		Bus:      statusHealthy,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		log.Printf("[SystemService] Database health check FAILED: %v", err)
		resp.Database = statusUnavailable
	}

	if !s.timelineCache.Available(ctx) {
		resp.Cache = statusUnavailable
	}

	if err := s.bus.Ping(pingCtx); err != nil {
		log.Printf("[SystemService] Bus health check FAILED: %v", err)
		resp.Bus = statusUnavailable
	}

	resp.Status = statusHealthy
	if resp.Database != statusHealthy || resp.Cache != statusHealthy || resp.Bus != statusHealthy {
		resp.Status = statusDegraded
	}
	return resp
}

// Metrics returns system-wide counters. Individual count failures zero the
// counter and are logged; metrics never fail the request.
func (s *SystemService) Metrics(ctx context.Context) *model.MetricsResponse {
	resp := &model.MetricsResponse{
		CacheAvailable: s.timelineCache.Available(ctx),
	}

	var err error
	if resp.TotalUsers, err = s.userRepo.CountUsers(ctx); err != nil {
		log.Printf("[SystemService] CountUsers FAILED: %v", err)
	}
	if resp.TotalPosts, err = s.postRepo.CountPosts(ctx); err != nil {
		log.Printf("[SystemService] CountPosts FAILED: %v", err)
	}
	if resp.TotalFollows, err = s.followRepo.CountFollows(ctx); err != nil {
		log.Printf("[SystemService] CountFollows FAILED: %v", err)
	}
	if resp.CelebrityUsers, err = s.userRepo.CountCelebrities(ctx); err != nil {
		log.Printf("[SystemService] CountCelebrities FAILED: %v", err)
	}

	return resp
}
