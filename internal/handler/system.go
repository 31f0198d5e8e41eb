package handler

import (
	"net/http"

	"github.com/pulse-social/pulse/internal/httputil"
	"github.com/pulse-social/pulse/internal/service"
)

type SystemHandler struct {
	systemService *service.SystemService
}

func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// Health handles GET /health
// Always 200: a degraded dependency is reported in the body, not as an
// HTTP failure, so load balancers keep routing while operators see state.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.systemService.Health(r.Context()))
}

// Metrics handles GET /metrics
func (h *SystemHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.systemService.Metrics(r.Context()))
}
