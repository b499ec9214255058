package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

// HealthCheck probes one dependency. A nil error means ready.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	log     *logger.Logger
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthHandler(log *logger.Logger, checks map[string]HealthCheck) *HealthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthHandler{
		log:     log.With("handler", "HealthHandler"),
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// HealthCheck is the liveness probe. It never touches dependencies.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready runs every registered check concurrently and reports each result.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	report := make(gin.H, len(names))
	for i, name := range names {
		if results[i] != nil {
			ready = false
			report[name] = "unavailable"
			h.log.Warn("Readiness check failed", "check", name, "error", results[i])
			continue
		}
		report[name] = "ok"
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"success": ready, "checks": report})
}
