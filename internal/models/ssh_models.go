// internal/models/ssh_models.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Inbound websocket message types
const (
	TypeSSHConnect    = "ssh_connect"
	TypeSSHInput      = "ssh_input"
	TypeSSHResize     = "ssh_resize"
	TypeSSHDisconnect = "ssh_disconnect"
	TypePing          = "ping"
)

// Outbound websocket message types
const (
	TypeSSHConnected    = "ssh_connected"
	TypeSSHData         = "ssh_data"
	TypeSSHError        = "ssh_error"
	TypeSSHDisconnected = "ssh_disconnected"
	TypePong            = "pong"
	TypeError           = "error"
)

const DefaultSSHPort = 22

// InboundMessage is one decoded frame from the browser. The set of
// implementations is closed; Dispatch hands each to its InboundHandler method.
type InboundMessage interface {
	inbound()
}

// SSHConnect asks the gateway to open a shell on a remote host
type SSHConnect struct {
	Host       string   `json:"host"`
	Port       *FlexInt `json:"port,omitempty"`
	Username   string   `json:"username"`
	Password   string   `json:"password,omitempty"`
	PrivateKey string   `json:"privateKey,omitempty"`
	Passphrase string   `json:"passphrase,omitempty"` // For encrypted private keys
}

// SSHInput carries keystrokes for the remote shell
type SSHInput struct {
	Data string `json:"data"`
}

// SSHResize carries the browser terminal geometry
type SSHResize struct {
	Rows FlexInt `json:"rows"`
	Cols FlexInt `json:"cols"`
}

// SSHDisconnect closes the remote shell but keeps the websocket open
type SSHDisconnect struct{}

// Ping is an application-level keepalive
type Ping struct{}

func (SSHConnect) inbound()    {}
func (SSHInput) inbound()      {}
func (SSHResize) inbound()     {}
func (SSHDisconnect) inbound() {}
func (Ping) inbound()          {}

// TargetPort returns the requested port or 22.
func (c SSHConnect) TargetPort() int {
	return c.Port.Int(DefaultSSHPort)
}

// Validate checks the fields the bridge needs before dialing.
func (c SSHConnect) Validate() error {
	if c.Host == "" || c.Username == "" {
		return errors.New("host and username are required")
	}
	if c.Password == "" && c.PrivateKey == "" {
		return errors.New("either password or privateKey is required")
	}
	if p := c.TargetPort(); p < 1 || p > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

// InboundHandler has one method per inbound message kind. Adding a kind adds
// a method, so every implementation must handle it.
type InboundHandler interface {
	OnConnect(SSHConnect)
	OnInput(SSHInput)
	OnResize(SSHResize)
	OnDisconnect(SSHDisconnect)
	OnPing(Ping)
}

// Dispatch routes msg to the matching handler method.
func Dispatch(msg InboundMessage, h InboundHandler) {
	switch m := msg.(type) {
	case SSHConnect:
		h.OnConnect(m)
	case SSHInput:
		h.OnInput(m)
	case SSHResize:
		h.OnResize(m)
	case SSHDisconnect:
		h.OnDisconnect(m)
	case Ping:
		h.OnPing(m)
	}
}

// ErrUnknownMessageType is returned by DecodeInbound for unrecognised tags.
var ErrUnknownMessageType = errors.New("unknown message type")

// DecodeInbound parses a websocket text frame into its message variant.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var msg InboundMessage
	var err error
	switch envelope.Type {
	case TypeSSHConnect:
		var m SSHConnect
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeSSHInput:
		var m SSHInput
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeSSHResize:
		var m SSHResize
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeSSHDisconnect:
		msg = SSHDisconnect{}
	case TypePing:
		msg = Ping{}
	case "":
		return nil, errors.New("missing message type")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", envelope.Type, err)
	}
	return msg, nil
}

// OutboundMessage is a frame sent to the browser
type OutboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    string `json:"data,omitempty"`
}

// SSHSessionInfo describes one live websocket session
type SSHSessionInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Created     time.Time `json:"created"`
	Connected   bool      `json:"connected"`             // A remote shell is attached
	Host        string    `json:"host,omitempty"`        // Remote host of the attached shell
	Port        int       `json:"port,omitempty"`        // Remote port of the attached shell
	Username    string    `json:"username,omitempty"`    // Remote user of the attached shell
	ConnectedAt time.Time `json:"connectedAt,omitempty"` // When the shell was attached
	BytesIn     uint64    `json:"bytesIn"`               // Browser to remote
	BytesOut    uint64    `json:"bytesOut"`              // Remote to browser
}
