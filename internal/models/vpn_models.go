// internal/models/vpn_models.go
package models

import "time"

// VPNConnectRequest is the payload for starting the VPN client
type VPNConnectRequest struct {
	OvpnContent string `json:"ovpnContent" example:"client\ndev tun\nremote vpn.example.com 1194"` // OpenVPN config text
	Username    string `json:"username,omitempty"`                                                 // Used only together with password
	Password    string `json:"password,omitempty"`                                                 // Used only together with username
}

// VPNActionResponse is returned by connect and disconnect
type VPNActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VPNStatusResponse describes the current VPN client state.
// Interface and IP are null until the tunnel is up.
type VPNStatusResponse struct {
	Status    string     `json:"status" example:"connected"`
	Interface *string    `json:"interface"`
	IP        *string    `json:"ip"`
	Logs      []string   `json:"logs"` // Most recent entries, oldest first
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// VPNLogsResponse holds the complete bounded client log
type VPNLogsResponse struct {
	Logs []string `json:"logs"`
}
