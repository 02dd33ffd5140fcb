// internal/ssh/session_test.go
package ssh

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/srl-labs/access-gateway/internal/models"
)

// recorder is a Sender that keeps every frame.
type recorder struct {
	mu   sync.Mutex
	msgs []models.OutboundMessage
}

func (r *recorder) Send(msg models.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) ofType(t string) []models.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OutboundMessage
	for _, m := range r.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) data() string {
	var b strings.Builder
	for _, m := range r.ofType(models.TypeSSHData) {
		b.WriteString(m.Data)
	}
	return b.String()
}

// echoShell writes input straight back to its output.
type echoShell struct {
	r       *io.PipeReader
	w       *io.PipeWriter
	mu      sync.Mutex
	resizes [][2]int
	closed  chan struct{}
	once    sync.Once
	// stall makes Write block until the shell is closed, like a remote
	// process that never reads its input.
	stall bool
}

func newEchoShell(stall bool) *echoShell {
	r, w := io.Pipe()
	return &echoShell{r: r, w: w, closed: make(chan struct{}), stall: stall}
}

func (e *echoShell) Write(p []byte) (int, error) {
	if e.stall {
		<-e.closed
		return 0, io.ErrClosedPipe
	}
	return e.w.Write(p)
}

func (e *echoShell) Output() io.Reader { return e.r }

func (e *echoShell) Resize(rows, cols int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resizes = append(e.resizes, [2]int{rows, cols})
	return nil
}

func (e *echoShell) Close() error {
	e.once.Do(func() {
		e.w.Close()
		e.r.Close()
		close(e.closed)
	})
	return nil
}

// remoteHangup ends the output stream as if the remote shell exited.
func (e *echoShell) remoteHangup() { e.w.Close() }

type fakeDialer struct {
	mu      sync.Mutex
	shells  []*echoShell
	err     error
	block   bool
	stall   bool
	targets []Target
}

func (d *fakeDialer) Dial(ctx context.Context, t Target) (Shell, error) {
	d.mu.Lock()
	d.targets = append(d.targets, t)
	err, block, stall := d.err, d.block, d.stall
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	sh := newEchoShell(stall)
	d.mu.Lock()
	d.shells = append(d.shells, sh)
	d.mu.Unlock()
	return sh, nil
}

func (d *fakeDialer) lastShell() *echoShell {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shells[len(d.shells)-1]
}

type SessionSuite struct {
	suite.Suite
	dialer  *fakeDialer
	manager *SSHManager
	rec     *recorder
	session *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.dialer = &fakeDialer{}
	s.manager = NewSSHManager(s.dialer)
	s.rec = &recorder{}
	var err error
	s.session, err = s.manager.NewSession("127.0.0.1:5555", s.rec)
	s.Require().NoError(err)
}

func (s *SessionSuite) TearDownTest() {
	s.manager.Shutdown()
}

func (s *SessionSuite) connect() {
	s.session.Connect(models.SSHConnect{Host: "10.0.0.1", Username: "root", Password: "pw"})
	s.Require().Eventually(func() bool {
		return len(s.rec.ofType(models.TypeSSHConnected)) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *SessionSuite) TestEchoRoundTripPreservesOrder() {
	s.connect()

	var want strings.Builder
	for i := 0; i < 50; i++ {
		chunk := strings.Repeat(string(rune('a'+i%26)), i+1)
		want.WriteString(chunk)
		s.session.Input(chunk)
	}

	s.Require().Eventually(func() bool {
		return s.rec.data() == want.String()
	}, 2*time.Second, 5*time.Millisecond)

	// the writer counts input after Write returns, which may trail the echo
	s.Require().Eventually(func() bool {
		return s.session.Info().BytesIn == uint64(want.Len())
	}, 2*time.Second, 5*time.Millisecond)
	info := s.session.Info()
	s.Equal(uint64(want.Len()), info.BytesOut)
	s.True(info.Connected)
	s.Equal("10.0.0.1", info.Host)
	s.Equal(22, info.Port)
}

func (s *SessionSuite) TestDefaultTerminalGeometry() {
	s.connect()
	s.dialer.mu.Lock()
	defer s.dialer.mu.Unlock()
	s.Equal(DefaultRows, s.dialer.targets[0].Rows)
	s.Equal(DefaultCols, s.dialer.targets[0].Cols)
}

func (s *SessionSuite) TestInputBeforeConnectIsDropped() {
	s.session.Input("ls\r")
	s.session.Resize(40, 120)
	s.session.Input("whoami\r")

	time.Sleep(20 * time.Millisecond)
	s.Empty(s.rec.ofType(models.TypeSSHData))
	s.Empty(s.rec.ofType(models.TypeSSHError))
	s.Empty(s.dialer.targets)
}

func (s *SessionSuite) TestAuthRejectedSendsOneErrorWithoutPassword() {
	s.dialer.err = errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain")

	s.session.Connect(models.SSHConnect{Host: "10.0.0.1", Username: "root", Password: "wrong"})
	s.Require().Eventually(func() bool {
		return len(s.rec.ofType(models.TypeSSHError)) > 0
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	errs := s.rec.ofType(models.TypeSSHError)
	s.Require().Len(errs, 1)
	s.Contains(errs[0].Message, "authentication failed")
	s.NotContains(errs[0].Message, "wrong")
	s.False(s.session.Info().Connected)

	// the session stays usable
	s.dialer.mu.Lock()
	s.dialer.err = nil
	s.dialer.mu.Unlock()
	s.connect()
}

func (s *SessionSuite) TestDisconnectIsIdempotent() {
	s.connect()
	sh := s.dialer.lastShell()

	s.session.Disconnect()
	s.session.Disconnect()

	s.Len(s.rec.ofType(models.TypeSSHDisconnected), 1)
	<-sh.closed
	s.False(s.session.Info().Connected)

	// input after disconnect is dropped
	s.session.Input("late\r")
}

func (s *SessionSuite) TestDisconnectCancelsPendingDial() {
	s.dialer.block = true
	s.session.Connect(models.SSHConnect{Host: "10.0.0.1", Username: "root", Password: "pw"})
	s.Require().Eventually(func() bool {
		s.dialer.mu.Lock()
		defer s.dialer.mu.Unlock()
		return len(s.dialer.targets) == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.session.Disconnect()
	time.Sleep(20 * time.Millisecond)

	s.Len(s.rec.ofType(models.TypeSSHDisconnected), 1)
	s.Empty(s.rec.ofType(models.TypeSSHError), "a cancelled dial is not an error")
}

func (s *SessionSuite) TestRemoteCloseNotifiesBrowser() {
	s.connect()
	s.dialer.lastShell().remoteHangup()

	s.Require().Eventually(func() bool {
		return len(s.rec.ofType(models.TypeSSHDisconnected)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	s.False(s.session.Info().Connected)
}

func (s *SessionSuite) TestReconnectReplacesShell() {
	s.connect()
	first := s.dialer.lastShell()

	s.session.Connect(models.SSHConnect{Host: "10.0.0.2", Username: "root", Password: "pw"})
	s.Require().Eventually(func() bool {
		return len(s.rec.ofType(models.TypeSSHConnected)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	<-first.closed
	s.Equal("10.0.0.2", s.session.Info().Host)
}

func (s *SessionSuite) TestResizeForwarded() {
	s.connect()
	s.session.Resize(40, 120)
	s.session.Resize(50, 200)

	sh := s.dialer.lastShell()
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.Equal([][2]int{{40, 120}, {50, 200}}, sh.resizes)
}

func (s *SessionSuite) TestStalledShellDoesNotBlockCaller() {
	s.dialer.stall = true
	s.connect()
	sh := s.dialer.lastShell()

	done := make(chan struct{})
	go func() {
		defer close(done)
		chunk := strings.Repeat("x", 64*1024)
		for i := 0; i < 100; i++ {
			s.session.Input(chunk)
		}
		s.session.Resize(30, 100)
		s.session.Disconnect()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.FailNow("input to a stalled shell blocked the caller")
	}
	<-sh.closed
	s.Len(s.rec.ofType(models.TypeSSHDisconnected), 1)
	s.False(s.session.Info().Connected)
}

func (s *SessionSuite) TestCloseUnregistersAndClosesShell() {
	s.connect()
	sh := s.dialer.lastShell()
	s.Equal(1, s.manager.Count())

	s.session.Close()
	s.session.Close()

	<-sh.closed
	s.Equal(0, s.manager.Count())
	s.Empty(s.rec.ofType(models.TypeSSHDisconnected))
}

func (s *SessionSuite) TestUTF8SplitAcrossReads() {
	s.connect()
	sh := s.dialer.lastShell()

	euro := []byte("€") // 3 bytes
	go func() {
		sh.w.Write(euro[:1])
		time.Sleep(10 * time.Millisecond)
		sh.w.Write(euro[1:])
	}()

	s.Require().Eventually(func() bool {
		return s.rec.data() == "€"
	}, 2*time.Second, 5*time.Millisecond)
	for _, m := range s.rec.ofType(models.TypeSSHData) {
		s.NotContains(m.Data, "�")
	}
}

func TestSplitUTF8(t *testing.T) {
	c, r := splitUTF8([]byte("abc"))
	assert.Equal(t, "abc", string(c))
	assert.Empty(t, r)

	b := append([]byte("ab"), []byte("日")[:2]...)
	c, r = splitUTF8(b)
	assert.Equal(t, "ab", string(c))
	assert.Equal(t, []byte("日")[:2], r)

	c, r = splitUTF8([]byte("ab日"))
	assert.Equal(t, "ab日", string(c))
	assert.Empty(t, r)
}

func TestManagerListAndShutdown(t *testing.T) {
	m := NewSSHManager(&fakeDialer{})
	a, err := m.NewSession("a", &recorder{})
	assert.NoError(t, err)
	time.Sleep(time.Millisecond)
	b, err := m.NewSession("b", &recorder{})
	assert.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list := m.ListSessions()
	assert.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	got, ok := m.GetSession(b.ID)
	assert.True(t, ok)
	assert.Same(t, b, got)

	m.Shutdown()
	assert.Equal(t, 0, m.Count())
	_, err = m.NewSession("c", &recorder{})
	assert.ErrorIs(t, err, ErrManagerClosed)
}
