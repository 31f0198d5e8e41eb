package handler

import (
	"log"
	"net/http"

	"github.com/pulse-social/pulse/internal/httputil"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/internal/transport/http/middleware"
)

type TimelineHandler struct {
	timelineService *service.TimelineService
}

func NewTimelineHandler(timelineService *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{
		timelineService: timelineService,
	}
}

// GetTimeline handles GET /timeline
// Returns the authenticated user's home timeline. The response carries a
// "source" field so callers can tell which read path served it.
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit, offset := paginationParams(r)

	resp, err := h.timelineService.GetTimeline(r.Context(), viewerID, limit, offset)
	if err != nil {
		log.Printf("[ERROR] Timeline handler: viewer=%d err=%v", viewerID, err)
		httputil.WriteInternalError(w, "Failed to load timeline")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetGlobalTimeline handles GET /timeline/global
// Public firehose of recent posts, no authentication required.
func (h *TimelineHandler) GetGlobalTimeline(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	posts, err := h.timelineService.GetGlobalTimeline(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[ERROR] Global timeline handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to load global timeline")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
	})
}
