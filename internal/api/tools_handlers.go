// internal/api/tools_handlers.go
package api

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/srl-labs/access-gateway/internal/models"
)

// @Summary Ping a host
// @Description Sends a single ICMP echo request using the system ping utility. A host is reachable only if a reply was seen.
// @Tags Network Tools
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param ping_request body models.PingRequest true "Host and optional timeout in milliseconds"
// @Success 200 {object} models.PingResponse "Probe result (reachable or unreachable)"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/network/ping [post]
func PingHandler(c *gin.Context) {
	var req models.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Ping failed: Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	host, err := normalizeHost(req.Host)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	timeout, err := probeTimeout(req.Timeout)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	log.Debugf("Ping '%s' (timeout %s) requested by %s", host, timeout, c.ClientIP())
	res := svc.Prober.PingHost(c.Request.Context(), host, timeout)

	resp := models.PingResponse{
		Host:     host,
		Status:   "unreachable",
		Duration: res.Elapsed.Milliseconds(),
	}
	if res.Reachable {
		resp.Status = "reachable"
		resp.Output = res.Output
	} else {
		resp.Error = res.Err
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Check a TCP port
// @Description Attempts a TCP connection to host:port and closes it immediately on success.
// @Tags Network Tools
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param port_request body models.PortCheckRequest true "Host, port and optional timeout in milliseconds"
// @Success 200 {object} models.PortCheckResponse "Probe result (open or closed)"
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/network/port-check [post]
func PortCheckHandler(c *gin.Context) {
	var req models.PortCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Port check failed: Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	host, err := normalizeHost(req.Host)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	port, err := validatePort(req.Port)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	timeout, err := probeTimeout(req.Timeout)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	log.Debugf("Port check '%s:%d' (timeout %s) requested by %s", host, port, timeout, c.ClientIP())
	res := svc.Prober.CheckPort(c.Request.Context(), host, port, timeout)

	resp := models.PortCheckResponse{
		Host:     host,
		Port:     port,
		Status:   "closed",
		Duration: res.Elapsed.Milliseconds(),
	}
	if res.Reachable {
		resp.Status = "open"
	} else {
		resp.Reason = string(res.Reason)
		resp.Error = res.Err
	}
	c.JSON(http.StatusOK, resp)
}
