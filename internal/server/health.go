package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"live-shopping/internal/clock"
	"live-shopping/utils"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

// HealthStatus is the payload of the health endpoints
type HealthStatus struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// HealthCheck is a named dependency probe
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	ready  atomic.Bool
	checks []HealthCheck
	clock  clock.Clock
}

// NewHealthHandler creates a HealthHandler that starts out not ready
func NewHealthHandler(clk clock.Clock, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, clock: clk}
}

// SetReady marks the service as ready (or not) to receive traffic
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LivenessHandler handles GET /healthz
func (h *HealthHandler) LivenessHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: h.timestamp(),
	}, "alive")
}

// ReadinessHandler handles GET /readyz
func (h *HealthHandler) ReadinessHandler(c *gin.Context) {
	if !h.ready.Load() {
		utils.JSONResponse(c, http.StatusServiceUnavailable, HealthStatus{
			Status:    "not_ready",
			Timestamp: h.timestamp(),
		}, "not ready")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allOK := true
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			checks[check.Name] = err.Error()
			allOK = false
			continue
		}
		checks[check.Name] = "ok"
	}

	if !allOK {
		utils.Warn("ReadinessHandler: dependency check failed", map[string]any{"checks": checks})
		utils.JSONResponse(c, http.StatusServiceUnavailable, HealthStatus{
			Status:    "not_ready",
			Checks:    checks,
			Timestamp: h.timestamp(),
		}, "not ready")
		return
	}

	utils.JSONResponse(c, http.StatusOK, HealthStatus{
		Status:    "ready",
		Checks:    checks,
		Timestamp: h.timestamp(),
	}, "ready")
}

func (h *HealthHandler) timestamp() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}
