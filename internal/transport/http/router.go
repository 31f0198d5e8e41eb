package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pulse-social/pulse/internal/handler"
	authmw "github.com/pulse-social/pulse/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	FollowHandler   *handler.FollowHandler
	PostHandler     *handler.PostHandler
	TimelineHandler *handler.TimelineHandler
	SystemHandler   *handler.SystemHandler
	JWTSecret       string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	// Operational endpoints, no auth
	r.Route("/system", func(r chi.Router) {
		r.Get("/health", cfg.SystemHandler.Health)
		r.Get("/metrics", cfg.SystemHandler.Metrics)
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	r.Get("/users/{username}", cfg.UserHandler.GetProfile)
	r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
	r.Get("/posts/{id}", cfg.PostHandler.GetByID)
	r.Get("/posts/user/{id}", cfg.PostHandler.GetUserPosts)
	r.Get("/timeline/global", cfg.TimelineHandler.GetGlobalTimeline)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/users/me", cfg.AuthHandler.Me)

		r.Post("/users/follow/{id}", cfg.FollowHandler.Follow)
		r.Delete("/users/follow/{id}", cfg.FollowHandler.Unfollow)

		r.Post("/posts", cfg.PostHandler.Create)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)

		r.Get("/timeline", cfg.TimelineHandler.GetTimeline)
	})

	return r
}
