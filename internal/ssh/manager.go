// internal/ssh/manager.go
package ssh

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/srl-labs/access-gateway/internal/metrics"
	"github.com/srl-labs/access-gateway/internal/models"
)

// ErrManagerClosed is returned by NewSession after Shutdown.
var ErrManagerClosed = errors.New("SSH manager is shut down")

// SSHManager keeps the registry of live websocket sessions
type SSHManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	dialer   Dialer
	closed   bool
}

// NewSSHManager creates a manager whose sessions open shells through dialer
func NewSSHManager(dialer Dialer) *SSHManager {
	if dialer == nil {
		dialer = &ClientDialer{Timeout: DefaultConnectTimeout}
	}
	log.Info("SSH Manager initialized")
	return &SSHManager{
		sessions: make(map[string]*Session),
		dialer:   dialer,
	}
}

// NewSession registers a session for a freshly accepted websocket. Nothing
// touches a remote host until the session receives a connect request.
func (m *SSHManager) NewSession(remoteAddr string, sender Sender) (*Session, error) {
	s := &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		Created:    time.Now(),
		sender:     sender,
		dialer:     m.dialer,
		onClose:    m.remove,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	m.sessions[s.ID] = s
	metrics.SSHSessionsActive.Inc()

	log.Info("Websocket session created", "session", s.ID, "remote", remoteAddr)
	return s, nil
}

func (m *SSHManager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		delete(m.sessions, s.ID)
		metrics.SSHSessionsActive.Dec()
	}
}

// GetSession retrieves a session by id
func (m *SSHManager) GetSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// ListSessions returns all live sessions, oldest first
func (m *SSHManager) ListSessions() []models.SSHSessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	result := make([]models.SSHSessionInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, s.Info())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Created.Before(result[j].Created) })

	log.Debugf("Returning %d SSH sessions.", len(result))
	return result
}

// Count returns the number of live sessions
func (m *SSHManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes all sessions and rejects new ones
func (m *SSHManager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	// Close calls back into remove, so the lock must not be held here.
	for _, s := range sessions {
		s.Close()
	}

	log.Info("SSH Manager shutdown complete", "closed", len(sessions))
}
