// internal/api/health_handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/srl-labs/access-gateway/internal/models"
)

// @Summary Health check
// @Description Reports that the gateway is up, with uptime, VPN status and the number of open terminal sessions.
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse "Gateway is healthy"
// @Router /health [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(svc.StartTime).Round(time.Second).String(),
		StartTime: svc.StartTime,
		Version:   svc.Version,
		VPNStatus: string(svc.VPN.Observe().Status),
		Sessions:  svc.SSH.Count(),
	})
}
