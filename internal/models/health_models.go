// internal/models/health_models.go
package models

import "time"

// HealthResponse represents basic health information about the gateway
type HealthResponse struct {
	Status    string    `json:"status"`            // "healthy" or other status indicators
	Uptime    string    `json:"uptime"`            // Human-readable uptime
	StartTime time.Time `json:"startTime"`         // When the server started
	Version   string    `json:"version,omitempty"` // Gateway version
	VPNStatus string    `json:"vpnStatus"`         // Current VPN client status
	Sessions  int       `json:"sshSessions"`       // Open websocket sessions
}
