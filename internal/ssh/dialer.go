// internal/ssh/dialer.go
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultRows           = 24
	DefaultCols           = 80
	TerminalType          = "xterm-256color"
)

// ErrInvalidKey is returned when the private key cannot be parsed.
var ErrInvalidKey = errors.New("invalid private key")

// Target describes the remote shell to open.
type Target struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey string
	Passphrase string
	Rows       int
	Cols       int
}

// Addr returns host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Shell is an interactive remote shell with a PTY attached.
type Shell interface {
	Write(p []byte) (int, error)
	// Output yields shell output until the remote side closes.
	Output() io.Reader
	Resize(rows, cols int) error
	Close() error
}

// Dialer opens remote shells. Dial must return promptly once ctx is done.
type Dialer interface {
	Dial(ctx context.Context, t Target) (Shell, error)
}

// ClientDialer opens shells with golang.org/x/crypto/ssh.
type ClientDialer struct {
	Timeout time.Duration
	// KnownHostsFile enables host key verification when set. Otherwise any
	// host key is accepted.
	KnownHostsFile string
}

func (d *ClientDialer) hostKeyCallback() (gossh.HostKeyCallback, error) {
	if d.KnownHostsFile == "" {
		return gossh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts '%s': %w", d.KnownHostsFile, err)
	}
	return cb, nil
}

func authMethods(t Target) ([]gossh.AuthMethod, error) {
	var methods []gossh.AuthMethod
	if t.PrivateKey != "" {
		signer, err := gossh.ParsePrivateKey([]byte(t.PrivateKey))
		var missing *gossh.PassphraseMissingError
		if errors.As(err, &missing) && t.Passphrase != "" {
			signer, err = gossh.ParsePrivateKeyWithPassphrase([]byte(t.PrivateKey), []byte(t.Passphrase))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		methods = append(methods, gossh.PublicKeys(signer))
	}
	if t.Password != "" {
		password := t.Password
		methods = append(methods,
			gossh.Password(password),
			gossh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	return methods, nil
}

// Dial connects, authenticates and starts a shell with a PTY.
func (d *ClientDialer) Dial(ctx context.Context, t Target) (Shell, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	if t.Rows <= 0 || t.Cols <= 0 {
		t.Rows, t.Cols = DefaultRows, DefaultCols
	}

	auth, err := authMethods(t)
	if err != nil {
		return nil, err
	}
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	config := &gossh.ClientConfig{
		User:            t.Username,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := t.Addr()
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// The handshake and channel setup have no context of their own; closing
	// the socket when ctx ends unblocks them.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := gossh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	client := gossh.NewClient(sshConn, chans, reqs)

	shell, err := startShell(client, t.Rows, t.Cols)
	if err != nil {
		client.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if !stop() {
		// ctx fired while the shell was starting.
		shell.Close()
		return nil, ctx.Err()
	}

	log.Debug("SSH shell started", "addr", addr, "user", t.Username, "rows", t.Rows, "cols", t.Cols)
	return shell, nil
}

func startShell(client *gossh.Client, rows, cols int) (*clientShell, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	modes := gossh.TerminalModes{
		gossh.ECHO:          1,
		gossh.TTY_OP_ISPEED: 14400,
		gossh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(TerminalType, rows, cols, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	return &clientShell{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

type clientShell struct {
	client  *gossh.Client
	session *gossh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	once    sync.Once
}

func (s *clientShell) Write(p []byte) (int, error) { return s.stdin.Write(p) }
func (s *clientShell) Output() io.Reader           { return s.stdout }

func (s *clientShell) Resize(rows, cols int) error {
	return s.session.WindowChange(rows, cols)
}

func (s *clientShell) Close() error {
	var err error
	s.once.Do(func() {
		s.session.Close()
		err = s.client.Close()
	})
	return err
}

// describeDialError maps a dial failure to a short reason that is safe to
// show to the browser.
func describeDialError(err error) string {
	var keyErr *knownhosts.KeyError
	var dnsErr *net.DNSError
	var netErr net.Error
	msg := err.Error()

	switch {
	case errors.Is(err, ErrInvalidKey):
		return "invalid private key"
	case errors.Is(err, context.DeadlineExceeded):
		return "connection timed out"
	case errors.Is(err, context.Canceled):
		return "connection cancelled"
	case errors.As(err, &keyErr), strings.Contains(msg, "knownhosts:"):
		return "host key verification failed"
	case strings.Contains(msg, "unable to authenticate"):
		return "authentication failed"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return "host unreachable"
	case errors.As(err, &dnsErr):
		return "host not found"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "connection timed out"
	case strings.Contains(msg, "handshake failed"):
		return "SSH handshake failed"
	default:
		return "connection failed"
	}
}
