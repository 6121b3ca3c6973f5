package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is the minimal contract I need from a dependency to check readiness.
// I keep it local to the handler package to avoid coupling and simplify tests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names one readiness dependency.
type Check struct {
	Name   string
	Pinger Pinger
}

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Liveness responds OK if the process is up; it doesn't check dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness pings every dependency and reports each one; any failure makes the whole probe 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, chk := range h.checks {
		if chk.Pinger == nil {
			continue
		}
		if err := chk.Pinger.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			deps[chk.Name] = err.Error()
			continue
		}
		deps[chk.Name] = "ok"
	}
	if status != http.StatusOK {
		c.JSON(status, gin.H{"status": "unavailable", "checks": deps})
		return
	}
	c.JSON(status, gin.H{"status": "ready", "checks": deps})
}
