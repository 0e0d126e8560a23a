package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/metrics"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/response"
)

// HealthHandler serves liveness, readiness and runtime counters.
type HealthHandler struct {
	ready func() bool
}

// NewHealthHandler creates a HealthHandler. ready reports whether the
// backend connections finished their startup checks.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Healthz answers as long as the process is serving requests.
func (h *HealthHandler) Healthz(c *gin.Context) {
	response.WriteSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}

// Readyz answers 200 once the backends are reachable, 503 before that.
func (h *HealthHandler) Readyz(c *gin.Context) {
	if h.ready != nil && !h.ready() {
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{Detail: "backends are still starting"})
		return
	}
	response.WriteSuccess(c, http.StatusOK, gin.H{"status": "ready"})
}

// Stats exposes the in-process counters.
func (h *HealthHandler) Stats(c *gin.Context) {
	response.WriteSuccess(c, http.StatusOK, metrics.Get().Stats())
}
