// internal/api/vpn_handlers.go
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/srl-labs/access-gateway/internal/models"
	"github.com/srl-labs/access-gateway/internal/vpn"
)

// @Summary Connect VPN
// @Description Starts the OpenVPN client with the given config, replacing any running client. Returns as soon as the process is spawned; poll the status endpoint for progress.
// @Tags VPN
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param connect_request body models.VPNConnectRequest true "OpenVPN config and optional credentials"
// @Success 202 {object} models.VPNActionResponse "Client started"
// @Failure 400 {object} models.ErrorResponse "Missing or invalid config"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Failure 500 {object} models.ErrorResponse "Client could not be started"
// @Failure 503 {object} models.ErrorResponse "Gateway shutting down"
// @Router /api/vpn/connect [post]
func VPNConnectHandler(c *gin.Context) {
	var req models.VPNConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("VPN connect failed: Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.OvpnContent) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "ovpnContent is required"})
		return
	}

	username := c.GetString("username")
	log.Infof("VPN connect requested by %s (user '%s', credentials: %t)", c.ClientIP(), username, req.Username != "" && req.Password != "")

	err := svc.VPN.Connect(vpn.ConnectRequest{
		Config:   req.OvpnContent,
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, vpn.ErrEmptyConfig):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, vpn.ErrShutdown):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
		return
	default:
		log.Errorf("VPN connect failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start VPN client: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, models.VPNActionResponse{
		Status:  string(vpn.StatusConnecting),
		Message: "VPN connection initiated",
	})
}

// @Summary Disconnect VPN
// @Description Stops the OpenVPN client if one is running. Always succeeds.
// @Tags VPN
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.VPNActionResponse "Client stopped"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/vpn/disconnect [post]
func VPNDisconnectHandler(c *gin.Context) {
	log.Infof("VPN disconnect requested by %s", c.ClientIP())
	svc.VPN.Stop()
	c.JSON(http.StatusOK, models.VPNActionResponse{
		Status:  string(vpn.StatusDisconnected),
		Message: "VPN disconnected",
	})
}

// @Summary Get VPN status
// @Description Returns the VPN client state, tunnel interface, external IP and the most recent log lines.
// @Tags VPN
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.VPNStatusResponse "Current state"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/vpn/status [get]
func VPNStatusHandler(c *gin.Context) {
	snap := svc.VPN.Observe()

	resp := models.VPNStatusResponse{
		Status:    string(snap.Status),
		Interface: optional(snap.Interface),
		IP:        optional(snap.IP),
		Logs:      formatLogs(snap.Logs),
		PID:       snap.PID,
	}
	if !snap.StartedAt.IsZero() {
		resp.StartedAt = &snap.StartedAt
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get VPN logs
// @Description Returns the complete in-memory VPN client log, oldest first.
// @Tags VPN
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.VPNLogsResponse "Log lines"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/vpn/logs [get]
func VPNLogsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.VPNLogsResponse{Logs: formatLogs(svc.VPN.Logs())})
}

func formatLogs(entries []vpn.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}
