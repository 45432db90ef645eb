// Package endpoint holds handlers shared by every scribe deployment.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/component"
)

// HealthChecker is usually component.Registry.HealthAll.
type HealthChecker func(ctx context.Context) []component.Health

// HealthReport is the GET /health body.
type HealthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Timestamp  time.Time              `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Health answers 503 only when a component is unhealthy; degraded still
// serves traffic.
func Health(service, version string, check HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := HealthReport{Service: service, Version: version, Timestamp: time.Now().UTC()}
		if check != nil {
			report.Components = check(c.Request.Context())
		}
		report.Status = component.Overall(report.Components)

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}
