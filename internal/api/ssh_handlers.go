// internal/api/ssh_handlers.go
package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/srl-labs/access-gateway/internal/config"
	"github.com/srl-labs/access-gateway/internal/metrics"
	"github.com/srl-labs/access-gateway/internal/models"
	"github.com/srl-labs/access-gateway/internal/ssh"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 3 * time.Minute
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 1 << 20

	maxTerminalSize = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browsers whose origin is in ALLOWED_ORIGINS.
func checkOrigin(r *http.Request) bool {
	origin := strings.TrimRight(r.Header.Get("Origin"), "/")
	if origin == "" {
		return true
	}
	for _, allowed := range config.AppConfig.Origins() {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	log.Warnf("Rejected websocket upgrade from origin '%s' (%s)", origin, r.RemoteAddr)
	return false
}

// wsConn serialises writes to a websocket; gorilla allows one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
	once sync.Once
}

func (w *wsConn) Send(msg models.OutboundMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(msg)
}

// Close sends a close frame and closes the socket. Safe to call repeatedly.
func (w *wsConn) Close() error {
	var err error
	w.once.Do(func() {
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = w.conn.Close()
	})
	return err
}

func (w *wsConn) keepalive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// wsDispatcher routes decoded frames to the session.
type wsDispatcher struct {
	session *ssh.Session
	ws      *wsConn
}

// OnConnect rejects incomplete requests before the session sees them.
func (d *wsDispatcher) OnConnect(m models.SSHConnect) {
	if err := m.Validate(); err != nil {
		log.Debug("Rejected ssh_connect", "session", d.session.ID, "error", err)
		d.ws.Send(models.OutboundMessage{Type: models.TypeSSHError, Message: err.Error()})
		return
	}
	d.session.Connect(m)
}

// OnResize drops geometry outside 1..maxTerminalSize.
func (d *wsDispatcher) OnResize(m models.SSHResize) {
	rows, cols := int(m.Rows), int(m.Cols)
	if rows < 1 || cols < 1 || rows > maxTerminalSize || cols > maxTerminalSize {
		log.Debug("Ignoring invalid terminal size", "session", d.session.ID, "rows", rows, "cols", cols)
		return
	}
	d.session.Resize(rows, cols)
}

func (d *wsDispatcher) OnInput(m models.SSHInput)         { d.session.Input(m.Data) }
func (d *wsDispatcher) OnDisconnect(models.SSHDisconnect) { d.session.Disconnect() }
func (d *wsDispatcher) OnPing(models.Ping)                { d.ws.Send(models.OutboundMessage{Type: models.TypePong}) }

// @Summary SSH terminal websocket
// @Description Upgrades to a websocket that bridges a browser terminal to a remote SSH shell. Frames are JSON objects tagged by "type": ssh_connect, ssh_input, ssh_resize, ssh_disconnect and ping inbound; ssh_connected, ssh_data, ssh_error, ssh_disconnected, pong and error outbound. When auth is enabled the token may be passed as the "token" query parameter.
// @Tags SSH
// @Security BearerAuth
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101 "Switching protocols"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Failure 403 "Origin not allowed"
// @Router /ws/ssh [get]
func WebSocketSSHHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written an error response.
		log.Warnf("Websocket upgrade failed for %s: %v", c.ClientIP(), err)
		return
	}
	ws := &wsConn{conn: conn}

	session, err := svc.SSH.NewSession(c.ClientIP(), ws)
	if err != nil {
		log.Warnf("Refusing websocket session from %s: %v", c.ClientIP(), err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	defer session.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go ws.keepalive(done)

	dispatcher := &wsDispatcher{session: session, ws: ws}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug("Websocket closed unexpectedly", "session", session.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		msg, err := models.DecodeInbound(data)
		if err != nil {
			metrics.ProtocolErrors.Inc()
			log.Debug("Malformed websocket frame", "session", session.ID, "error", err)
			reason := "invalid message format"
			if errors.Is(err, models.ErrUnknownMessageType) {
				reason = err.Error()
			}
			ws.Send(models.OutboundMessage{Type: models.TypeError, Message: reason})
			continue
		}
		models.Dispatch(msg, dispatcher)
	}
}

// @Summary List terminal sessions
// @Description Lists open websocket terminal sessions and their attached SSH targets.
// @Tags SSH
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.SSHSessionInfo "Live sessions"
// @Failure 401 {object} models.ErrorResponse "Unauthorized (JWT)"
// @Router /api/ssh/sessions [get]
func ListSSHSessionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, svc.SSH.ListSessions())
}
