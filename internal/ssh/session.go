// internal/ssh/session.go
package ssh

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/jpillora/sizestr"

	"github.com/srl-labs/access-gateway/internal/metrics"
	"github.com/srl-labs/access-gateway/internal/models"
)

const (
	outputBufferSize = 32 * 1024

	// Queued keystrokes beyond these limits are dropped while the remote
	// side is not reading.
	inputQueueDepth = 1024
	maxPendingInput = 4 << 20
)

// Sender delivers frames to the browser. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(msg models.OutboundMessage) error
}

// Session bridges one websocket to at most one remote shell.
type Session struct {
	ID         string
	RemoteAddr string
	Created    time.Time

	sender  Sender
	dialer  Dialer
	onClose func(*Session)

	mu          sync.Mutex
	shell       Shell
	input       *inputWriter
	target      Target
	connectedAt time.Time
	cancelDial  context.CancelFunc
	// generation invalidates pending dials and output pumps from earlier
	// connects.
	generation uint64
	closed     bool

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
}

func (s *Session) send(msgType, message string) {
	if err := s.sender.Send(models.OutboundMessage{Type: msgType, Message: message}); err != nil {
		log.Debug("Failed to send websocket message", "session", s.ID, "type", msgType, "error", err)
	}
}

// Connect opens a remote shell for a validated req in the background,
// replacing any attached or pending one. The outcome arrives as ssh_connected
// or ssh_error.
func (s *Session) Connect(req models.SSHConnect) {
	target := Target{
		Host:       req.Host,
		Port:       req.TargetPort(),
		Username:   req.Username,
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
		Rows:       DefaultRows,
		Cols:       DefaultCols,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	shell, cancel := s.detachLocked()
	ctx, dialCancel := context.WithCancel(context.Background())
	s.cancelDial = dialCancel
	gen := s.generation
	s.mu.Unlock()

	release(shell, cancel)

	log.Info("Opening SSH connection", "session", s.ID, "addr", target.Addr(), "user", target.Username)
	go s.dial(ctx, gen, target)
}

func (s *Session) dial(ctx context.Context, gen uint64, target Target) {
	shell, err := s.dialer.Dial(ctx, target)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		if shell != nil {
			shell.Close()
		}
		log.Debug("Discarding superseded SSH dial", "session", s.ID, "addr", target.Addr())
		return
	}
	cancel := s.cancelDial
	s.cancelDial = nil
	if err != nil {
		s.mu.Unlock()
		cancel()

		metrics.SSHConnectsTotal.WithLabelValues("failed").Inc()
		reason := describeDialError(err)
		log.Warn("SSH connection failed", "session", s.ID, "addr", target.Addr(), "user", target.Username, "reason", reason, "error", err)
		s.send(models.TypeSSHError, fmt.Sprintf("SSH connection to %s failed: %s", target.Addr(), reason))
		return
	}
	input := newInputWriter()
	s.shell = shell
	s.input = input
	s.target = target
	s.connectedAt = time.Now()
	s.mu.Unlock()
	cancel()

	go s.writeInput(shell, input)

	metrics.SSHConnectsTotal.WithLabelValues("success").Inc()
	metrics.SSHShellsActive.Inc()
	log.Info("SSH connection established", "session", s.ID, "addr", target.Addr(), "user", target.Username)

	s.send(models.TypeSSHConnected, fmt.Sprintf("Connected to %s", target.Addr()))
	go s.pump(gen, shell)
}

// pump relays shell output until the remote side closes. A trailing partial
// UTF-8 sequence is held back until the rest arrives.
func (s *Session) pump(gen uint64, shell Shell) {
	out := shell.Output()
	buf := make([]byte, outputBufferSize)
	var carry []byte

	for {
		n, err := out.Read(buf)
		if n > 0 {
			chunk := append(carry, buf[:n]...)
			complete, rest := splitUTF8(chunk)
			carry = append([]byte(nil), rest...)
			if len(complete) > 0 && !s.relay(gen, complete) {
				return
			}
		}
		if err != nil {
			break
		}
	}
	if len(carry) > 0 {
		s.relay(gen, carry)
	}
	s.remoteClosed(gen)
}

func (s *Session) relay(gen uint64, data []byte) bool {
	s.mu.Lock()
	current := !s.closed && gen == s.generation
	s.mu.Unlock()
	if !current {
		return false
	}

	s.bytesOut.Add(uint64(len(data)))
	metrics.SSHBytesTotal.WithLabelValues("out").Add(float64(len(data)))
	if err := s.sender.Send(models.OutboundMessage{Type: models.TypeSSHData, Data: string(data)}); err != nil {
		log.Debug("Failed to relay SSH output", "session", s.ID, "error", err)
	}
	return true
}

func (s *Session) remoteClosed(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.shell == nil {
		s.mu.Unlock()
		return
	}
	shell, cancel := s.detachLocked()
	s.mu.Unlock()

	release(shell, cancel)
	log.Info("SSH connection closed by remote host", "session", s.ID)
	s.send(models.TypeSSHDisconnected, "Connection closed by remote host")
}

// Input queues keystrokes for the shell and returns without waiting for the
// remote side. Without a shell it does nothing.
func (s *Session) Input(data string) {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()
	if input == nil || data == "" {
		return
	}

	if !input.enqueue([]byte(data)) {
		log.Warn("Dropping terminal input, remote host is not reading", "session", s.ID, "bytes", len(data))
	}
}

// writeInput feeds queued input to shell in order until the shell is
// detached. A blocked Write is released by closing the shell.
func (s *Session) writeInput(shell Shell, input *inputWriter) {
	for {
		select {
		case data := <-input.queue:
			input.pending.Add(-int64(len(data)))
			if _, err := shell.Write(data); err != nil {
				log.Debug("SSH write failed", "session", s.ID, "error", err)
				return
			}
			s.bytesIn.Add(uint64(len(data)))
			metrics.SSHBytesTotal.WithLabelValues("in").Add(float64(len(data)))
		case <-input.done:
			return
		}
	}
}

// Resize forwards the terminal geometry. Without a shell it does nothing.
func (s *Session) Resize(rows, cols int) {
	s.mu.Lock()
	shell := s.shell
	if shell != nil {
		s.target.Rows, s.target.Cols = rows, cols
	}
	s.mu.Unlock()
	if shell == nil {
		return
	}

	if err := shell.Resize(rows, cols); err != nil {
		log.Debug("SSH window change failed", "session", s.ID, "error", err)
	}
}

// Disconnect closes the shell or cancels a pending dial. ssh_disconnected is
// sent only when there was something to close.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	active := s.shell != nil || s.cancelDial != nil
	shell, cancel := s.detachLocked()
	s.mu.Unlock()

	release(shell, cancel)
	if active {
		log.Info("SSH connection closed by client", "session", s.ID)
		s.send(models.TypeSSHDisconnected, "SSH connection closed")
	}
}

// Close tears the session down and closes the sender if it is an io.Closer.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	shell, cancel := s.detachLocked()
	s.mu.Unlock()

	release(shell, cancel)

	log.Info("Websocket session closed",
		"session", s.ID,
		"duration", time.Since(s.Created).Round(time.Second).String(),
		"in", sizestr.ToString(int64(s.bytesIn.Load())),
		"out", sizestr.ToString(int64(s.bytesOut.Load())))

	if closer, ok := s.sender.(io.Closer); ok {
		closer.Close()
	}
	if s.onClose != nil {
		s.onClose(s)
	}
}

// detachLocked clears the shell and pending dial and bumps the generation.
// The caller releases the returned handles after unlocking.
func (s *Session) detachLocked() (Shell, context.CancelFunc) {
	s.generation++
	if s.input != nil {
		s.input.stop()
		s.input = nil
	}
	shell, cancel := s.shell, s.cancelDial
	s.shell, s.cancelDial = nil, nil
	if shell != nil {
		metrics.SSHShellsActive.Dec()
	}
	return shell, cancel
}

func release(shell Shell, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if shell != nil {
		if err := shell.Close(); err != nil {
			log.Debug("Error closing SSH shell", "error", err)
		}
	}
}

// inputWriter is the FIFO between the websocket reader and the shell.
type inputWriter struct {
	queue   chan []byte
	pending atomic.Int64
	done    chan struct{}
	once    sync.Once
}

func newInputWriter() *inputWriter {
	return &inputWriter{
		queue: make(chan []byte, inputQueueDepth),
		done:  make(chan struct{}),
	}
}

// enqueue never blocks. It reports false when the data was dropped.
func (w *inputWriter) enqueue(data []byte) bool {
	select {
	case <-w.done:
		return true
	default:
	}
	if w.pending.Add(int64(len(data))) > maxPendingInput {
		w.pending.Add(-int64(len(data)))
		return false
	}
	select {
	case w.queue <- data:
		return true
	default:
		w.pending.Add(-int64(len(data)))
		return false
	}
}

func (w *inputWriter) stop() {
	w.once.Do(func() { close(w.done) })
}

// Info returns a snapshot for listings.
func (s *Session) Info() models.SSHSessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := models.SSHSessionInfo{
		ID:         s.ID,
		RemoteAddr: s.RemoteAddr,
		Created:    s.Created,
		Connected:  s.shell != nil,
		BytesIn:    s.bytesIn.Load(),
		BytesOut:   s.bytesOut.Load(),
	}
	if s.shell != nil {
		info.Host = s.target.Host
		info.Port = s.target.Port
		info.Username = s.target.Username
		info.ConnectedAt = s.connectedAt
	}
	return info
}

// splitUTF8 splits b before a trailing incomplete UTF-8 sequence.
func splitUTF8(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return b, nil
			}
			return b[:i], b[i:]
		}
	}
	return b, nil
}
