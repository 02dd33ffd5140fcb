// internal/vpn/supervisor.go
package vpn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/srl-labs/access-gateway/internal/metrics"
)

// Status is the lifecycle state of the VPN connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

const (
	DefaultBinary         = "openvpn"
	DefaultStopGrace      = 3 * time.Second
	DefaultResolveTimeout = 30 * time.Second

	// drainTimeout bounds how long exit handling waits for buffered output
	// after the process itself is gone.
	drainTimeout = time.Second
	killTimeout  = 5 * time.Second
)

var (
	// ErrEmptyConfig is returned by Connect when no config text is given.
	ErrEmptyConfig = errors.New("VPN config content is required")
	// ErrShutdown is returned by Connect after Shutdown.
	ErrShutdown = errors.New("VPN supervisor is shut down")
)

// ConnectRequest carries the inputs of one connection attempt.
type ConnectRequest struct {
	Config   string
	Username string
	Password string
}

// Snapshot is an immutable view of the supervisor state.
type Snapshot struct {
	Status    Status
	Interface string
	IP        string
	PID       int
	StartedAt time.Time
	Logs      []LogEntry
}

// CommandFactory builds the client command for the given artifact paths.
// authPath is empty when no credentials were supplied.
type CommandFactory func(configPath, authPath string) *exec.Cmd

// Options configures a Supervisor. Zero values select the defaults.
type Options struct {
	Binary         string
	ExtraArgs      []string
	WorkDir        string
	StopGrace      time.Duration
	ResolveTimeout time.Duration
	Resolver       NetInfoResolver
	Command        CommandFactory
}

type process struct {
	cmd       *exec.Cmd
	files     *artifacts
	startedAt time.Time
	tunHint   string // guarded by Supervisor.mu
	done      chan struct{}
}

// Supervisor owns the single VPN client process and its state.
type Supervisor struct {
	opts Options

	// lifecycle serialises Connect, Stop and Shutdown so that two spawns
	// never race.
	lifecycle sync.Mutex

	mu       sync.Mutex
	status   Status
	proc     *process
	logs     *logBuffer
	iface    string
	ip       string
	shutdown bool
}

// NewSupervisor returns a Supervisor in the disconnected state.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	s := &Supervisor{
		opts:   opts,
		status: StatusDisconnected,
		logs:   newLogBuffer(MaxLogEntries),
	}
	if s.opts.Command == nil {
		s.opts.Command = s.defaultCommand
	}
	metrics.SetVPNStatus(string(StatusDisconnected))
	return s
}

func (s *Supervisor) defaultCommand(configPath, authPath string) *exec.Cmd {
	args := []string{"--config", configPath}
	if authPath != "" {
		args = append(args, "--auth-user-pass", authPath)
	}
	args = append(args, s.opts.ExtraArgs...)
	return exec.Command(s.opts.Binary, args...)
}

// Connect starts a new client process for req, replacing any running one.
// It returns once the process has been spawned; progress is reported through
// Observe.
func (s *Supervisor) Connect(req ConnectRequest) error {
	if strings.TrimSpace(req.Config) == "" {
		return ErrEmptyConfig
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	closed := s.shutdown
	s.mu.Unlock()
	if closed {
		return ErrShutdown
	}

	s.stopLocked("new connection requested")

	files, err := writeArtifacts(s.opts.WorkDir, req.Config, req.Username, req.Password)
	if err != nil {
		metrics.VPNStartsTotal.WithLabelValues("io_error").Inc()
		s.mu.Lock()
		s.appendLocked("Failed to prepare VPN files")
		s.mu.Unlock()
		log.Errorf("VPN connect aborted: %v", err)
		return err
	}

	cmd := s.opts.Command(files.configPath, files.authPath)

	// stdout and stderr share one pipe so lines keep their emission order.
	reader, writer, err := os.Pipe()
	if err != nil {
		files.release()
		metrics.VPNStartsTotal.WithLabelValues("io_error").Inc()
		return fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		writer.Close()
		reader.Close()
		files.release()
		metrics.VPNStartsTotal.WithLabelValues("spawn_error").Inc()

		s.mu.Lock()
		s.setStatusLocked(StatusError)
		s.appendLocked(fmt.Sprintf("Failed to start VPN client: %v", err))
		s.mu.Unlock()

		log.Errorf("Failed to start VPN client '%s': %v", cmd.Path, err)
		return fmt.Errorf("failed to start VPN client: %w", err)
	}
	writer.Close()

	p := &process{
		cmd:       cmd,
		files:     files,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.proc = p
	s.iface, s.ip = "", ""
	s.setStatusLocked(StatusConnecting)
	s.appendLocked(fmt.Sprintf("Started VPN client (pid %d)", cmd.Process.Pid))
	s.mu.Unlock()

	metrics.VPNStartsTotal.WithLabelValues("started").Inc()
	log.Info("VPN client started", "pid", cmd.Process.Pid, "binary", cmd.Path, "credentials", files.authPath != "")

	go s.watch(p, reader)
	return nil
}

// Stop terminates the running client, if any, and resets the state to
// disconnected. It is safe to call at any time.
func (s *Supervisor) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked("stop requested")
}

// Shutdown stops the client and rejects further Connect calls.
func (s *Supervisor) Shutdown() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.stopLocked("gateway shutting down")
}

// stopLocked must be called with s.lifecycle held.
func (s *Supervisor) stopLocked(reason string) {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	if p != nil {
		s.appendLocked("Stopping VPN client: " + reason)
	}
	s.iface, s.ip = "", ""
	s.setStatusLocked(StatusDisconnected)
	s.mu.Unlock()

	if p == nil {
		return
	}

	s.terminate(p)
	p.files.release()
}

// terminate sends SIGTERM, waits for the grace period and then kills.
func (s *Supervisor) terminate(p *process) {
	pid := p.cmd.Process.Pid

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-p.done
			return
		}
		log.Debug("SIGTERM failed, killing VPN client", "pid", pid, "error", err)
	} else {
		select {
		case <-p.done:
			log.Info("VPN client stopped", "pid", pid)
			return
		case <-time.After(s.opts.StopGrace):
			log.Warn("VPN client did not exit within grace period, killing", "pid", pid, "grace", s.opts.StopGrace)
		}
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Errorf("Failed to kill VPN client (pid %d): %v", pid, err)
	}
	select {
	case <-p.done:
	case <-time.After(killTimeout):
		log.Errorf("VPN client (pid %d) still not reaped after kill", pid)
	}
}

// watch reads the client output until the process exits.
func (s *Supervisor) watch(p *process, out *os.File) {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		scanner := bufio.NewScanner(out)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			s.handleLine(p, scanner.Text())
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
			log.Debug("VPN output reader stopped", "error", err)
		}
	}()

	err := p.cmd.Wait()

	// A grandchild may still hold the pipe open; do not wait for it forever.
	select {
	case <-drained:
	case <-time.After(drainTimeout):
	}
	out.Close()
	<-drained

	s.handleExit(p, exitCode(err))
}

// handleLine records one output line and applies its marker.
func (s *Supervisor) handleLine(p *process, line string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered while processing VPN output line: %v", r)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != p {
		return
	}

	s.appendLocked(line)
	metrics.VPNLogLines.Inc()
	log.Debug("openvpn", "line", line)

	if dev, ok := ParseTunDevice(line); ok {
		p.tunHint = dev
	}

	switch Classify(line) {
	case MarkerCompleted:
		if s.status == StatusConnecting {
			s.setStatusLocked(StatusConnected)
			go s.resolveNetInfo(p, p.tunHint)
		}
	case MarkerAuthFailed:
		if s.status == StatusConnecting || s.status == StatusConnected {
			s.setStatusLocked(StatusError)
		}
	}
}

// handleExit runs exactly once per process, after its output is drained.
func (s *Supervisor) handleExit(p *process, code int) {
	s.mu.Lock()
	if s.proc == p {
		s.proc = nil
		s.iface, s.ip = "", ""
		if s.status != StatusError {
			s.setStatusLocked(StatusDisconnected)
		}
		s.appendLocked(fmt.Sprintf("VPN client exited with code %d", code))
		log.Info("VPN client exited", "pid", p.cmd.Process.Pid, "code", code)
	}
	s.mu.Unlock()

	p.files.release()
	close(p.done)
}

func (s *Supervisor) resolveNetInfo(p *process, hint string) {
	iface, ip := hint, ""

	if r := s.opts.Resolver; r != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ResolveTimeout)
		defer cancel()
		go func() {
			select {
			case <-p.done:
				cancel()
			case <-ctx.Done():
			}
		}()

		if name, err := r.Interface(ctx, hint); err == nil {
			iface = name
		} else {
			log.Warnf("Could not determine VPN interface: %v", err)
		}
		if addr, err := r.ExternalIP(ctx); err == nil {
			ip = addr
		} else {
			log.Warnf("Could not determine external IP: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != p || s.status != StatusConnected {
		return
	}
	s.iface, s.ip = iface, ip
	if iface != "" || ip != "" {
		s.appendLocked(fmt.Sprintf("Tunnel interface: %s, external IP: %s", orNone(iface), orNone(ip)))
	}
}

// Observe returns the current state with the most recent log entries.
func (s *Supervisor) Observe() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:    s.status,
		Interface: s.iface,
		IP:        s.ip,
		Logs:      s.logs.tail(StatusLogEntries),
	}
	if s.proc != nil {
		snap.PID = s.proc.cmd.Process.Pid
		snap.StartedAt = s.proc.startedAt
	}
	return snap
}

// Logs returns the whole bounded log, oldest first.
func (s *Supervisor) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs.tail(0)
}

// AppendLog adds a supervisor message to the log.
func (s *Supervisor) AppendLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Supervisor) appendLocked(msg string) {
	s.logs.append(LogEntry{Time: time.Now(), Message: msg})
}

func (s *Supervisor) setStatusLocked(st Status) {
	if s.status != st {
		log.Info("VPN status changed", "from", s.status, "to", st)
	}
	s.status = st
	metrics.SetVPNStatus(string(st))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
