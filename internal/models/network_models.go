// internal/models/network_models.go
package models

// PingRequest is the payload for an ICMP reachability probe
type PingRequest struct {
	Host    string   `json:"host" example:"10.0.0.1"`
	Timeout *FlexInt `json:"timeout,omitempty" swaggertype:"integer" example:"5000"` // Milliseconds, 100-60000
}

// PingResponse reports the outcome of a ping probe
type PingResponse struct {
	Host     string `json:"host"`
	Status   string `json:"status" example:"reachable"` // "reachable" or "unreachable"
	Duration int64  `json:"duration"`                   // Milliseconds
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PortCheckRequest is the payload for a TCP connect probe
type PortCheckRequest struct {
	Host    string   `json:"host" example:"10.0.0.1"`
	Port    *FlexInt `json:"port" swaggertype:"integer" example:"22"`
	Timeout *FlexInt `json:"timeout,omitempty" swaggertype:"integer" example:"5000"` // Milliseconds, 100-60000
}

// PortCheckResponse reports the outcome of a TCP probe
type PortCheckResponse struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Status   string `json:"status" example:"open"` // "open" or "closed"
	Duration int64  `json:"duration"`              // Milliseconds
	Reason   string `json:"reason,omitempty"`      // timeout, refused, unreachable or error
	Error    string `json:"error,omitempty"`
}
