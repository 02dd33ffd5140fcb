// internal/probe/probe.go

// Package probe implements stateless reachability checks: ICMP ping through
// the platform ping utility and plain TCP connect attempts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/srl-labs/access-gateway/internal/executor"
	"github.com/srl-labs/access-gateway/internal/metrics"
)

const DefaultTimeout = 5 * time.Second

// Reason names why a probe did not succeed.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"
	ReasonRefused     Reason = "refused"
	ReasonUnreachable Reason = "unreachable"
	ReasonError       Reason = "error"
)

// Result is the outcome of a single probe invocation.
type Result struct {
	Host      string
	Port      int
	Reachable bool
	Elapsed   time.Duration
	Output    string
	Err       string
	Reason    Reason
}

// Prober runs probes. The zero value is not usable; use New.
type Prober struct {
	runner     executor.Runner
	pingBinary string
	goos       string
	dialer     func(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Prober.
type Option func(*Prober)

// WithRunner replaces the command runner used for ping.
func WithRunner(r executor.Runner) Option {
	return func(p *Prober) { p.runner = r }
}

// WithPingBinary sets the ping executable name or path.
func WithPingBinary(bin string) Option {
	return func(p *Prober) {
		if bin != "" {
			p.pingBinary = bin
		}
	}
}

// WithGOOS overrides the platform used to pick ping flags.
func WithGOOS(goos string) Option {
	return func(p *Prober) { p.goos = goos }
}

func New(opts ...Option) *Prober {
	p := &Prober{
		runner:     executor.Default,
		pingBinary: "ping",
		goos:       runtime.GOOS,
	}
	var d net.Dialer
	p.dialer = d.DialContext
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// replyRegex matches a line reporting at least one echo reply across the
// common ping implementations (iputils, BSD, busybox, Windows).
var replyRegex = regexp.MustCompile(`(?i)(\b[1-9]\d* (packets )?received|bytes from|Reply from .*TTL=)`)

// pingArgs returns the ping arguments for a single echo request bounded by timeout.
func pingArgs(goos, host string, timeout time.Duration) []string {
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), host}
	case "darwin", "freebsd", "openbsd", "netbsd":
		return []string{"-c", "1", "-W", strconv.FormatInt(timeout.Milliseconds(), 10), host}
	default:
		secs := int(math.Ceil(timeout.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(secs), host}
	}
}

// PingHost sends one ICMP echo request to host. The command is killed when
// timeout elapses. Output that does not clearly show a reply is treated as
// unreachable.
func (p *Prober) PingHost(ctx context.Context, host string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Host: host}
	start := time.Now()
	stdout, stderr, err := p.runner.Run(ctx, p.pingBinary, pingArgs(p.goos, host, timeout)...)
	res.Elapsed = time.Since(start)
	res.Output = strings.TrimSpace(stdout)

	switch {
	case err == nil && replyRegex.MatchString(stdout):
		res.Reachable = true
	case errors.Is(err, executor.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Reason = ReasonTimeout
		res.Err = fmt.Sprintf("ping timed out after %s", timeout)
	case err != nil:
		res.Reason = ReasonUnreachable
		res.Err = firstNonEmpty(strings.TrimSpace(stderr), lastLine(stdout), "host unreachable")
	default:
		// exit 0 without a recognisable reply line
		res.Reason = ReasonUnreachable
		res.Err = "no reply received"
	}

	metrics.ObserveProbe("ping", res.Reachable, res.Elapsed)
	log.Debug("Ping probe finished", "host", host, "reachable", res.Reachable, "elapsed", res.Elapsed, "reason", res.Reason)
	return res
}

// CheckPort attempts a TCP connection to host:port. A connection that is
// established before timeout is closed immediately and reported reachable.
func (p *Prober) CheckPort(ctx context.Context, host string, port int, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Host: host, Port: port}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	start := time.Now()
	conn, err := p.dialer(ctx, "tcp", address)
	res.Elapsed = time.Since(start)

	if err == nil {
		conn.Close()
		res.Reachable = true
	} else {
		res.Reason = classifyDialError(err)
		res.Err = describe(res.Reason, address, timeout)
	}

	metrics.ObserveProbe("tcp", res.Reachable, res.Elapsed)
	log.Debug("Port probe finished", "address", address, "reachable", res.Reachable, "elapsed", res.Elapsed, "reason", res.Reason)
	return res
}

func classifyDialError(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ReasonUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonUnreachable
	}
	return ReasonError
}

func describe(reason Reason, address string, timeout time.Duration) string {
	switch reason {
	case ReasonTimeout:
		return fmt.Sprintf("connection to %s timed out after %s", address, timeout)
	case ReasonRefused:
		return fmt.Sprintf("connection to %s refused", address)
	case ReasonUnreachable:
		return fmt.Sprintf("%s is unreachable", address)
	default:
		return fmt.Sprintf("connection to %s failed", address)
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
