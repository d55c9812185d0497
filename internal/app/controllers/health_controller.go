package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/hostelhub/internal/app/models/dto"
)

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// HealthController reports liveness of the API and its dependencies
type HealthController struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthController creates a new HealthController
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second}
}

// HealthResponse lists each dependency as "ok" or its error
type HealthResponse struct {
	Status       string            `json:"status" example:"ok"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health runs every dependency check
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=HealthResponse} "All dependencies reachable"
// @Failure 503 {object} dto.APIResponse{data=HealthResponse} "A dependency is down"
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	rc, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Dependencies: make(map[string]string, len(names))}
	for _, name := range names {
		if err := c.checks[name](rc); err != nil {
			resp.Dependencies[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, dto.APIResponse{
		Success:   status == http.StatusOK,
		Data:      resp,
		Timestamp: time.Now(),
	})
}
