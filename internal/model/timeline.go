package model

import "errors"

// Timeline sources, reported to clients so operators can see which path
// served a read.
const (
	TimelineSourceCache     = "cache"
	TimelineSourceCachePull = "cache+pull"
	TimelineSourceDatabase  = "database"
)

// TimelineResponse is the timeline read response.
type TimelineResponse struct {
	Posts   []Post `json:"posts"`
	Source  string `json:"source"`
	HasMore bool   `json:"has_more"`
}

// HealthResponse summarizes per-dependency health. Never served with a 5xx.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Bus      string `json:"bus"`
}

// MetricsResponse reports system-wide counters.
type MetricsResponse struct {
	TotalUsers     int64 `json:"total_users"`
	TotalPosts     int64 `json:"total_posts"`
	TotalFollows   int64 `json:"total_follows"`
	CelebrityUsers int64 `json:"celebrity_users"`
	CacheAvailable bool  `json:"cache_available"`
}

// ErrCacheUnavailable is returned by cache-backed reads when Redis cannot
// be reached; callers fall back to the durable store.
var ErrCacheUnavailable = errors.New("timeline cache unavailable")
