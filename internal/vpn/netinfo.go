// internal/vpn/netinfo.go
package vpn

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

// NetInfoResolver derives the tunnel interface and public address once the
// client reports a completed connection.
type NetInfoResolver interface {
	// Interface returns the tunnel interface name. hint is the device the
	// client reported opening, or "" if none was seen.
	Interface(ctx context.Context, hint string) (string, error)
	// ExternalIP returns the address the outside world sees for this host.
	ExternalIP(ctx context.Context) (string, error)
}

// SystemResolver resolves interface facts from the host network stack and
// the public IP from an HTTP echo service.
type SystemResolver struct {
	IPCheckURL string
	Client     *http.Client
	Attempts   int
}

// NewSystemResolver returns a resolver using ipCheckURL for the public IP.
func NewSystemResolver(ipCheckURL string) *SystemResolver {
	return &SystemResolver{
		IPCheckURL: ipCheckURL,
		Client:     &http.Client{Timeout: 5 * time.Second},
		Attempts:   4,
	}
}

func (r *SystemResolver) backoff() *backoff.Backoff {
	return &backoff.Backoff{Min: 250 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true}
}

// retry calls fn until it succeeds, the attempts run out or ctx ends.
func (r *SystemResolver) retry(ctx context.Context, fn func() (string, error)) (string, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	b := r.backoff()
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return "", lastErr
}

func (r *SystemResolver) Interface(ctx context.Context, hint string) (string, error) {
	return r.retry(ctx, func() (string, error) {
		if hint != "" {
			if _, err := net.InterfaceByName(hint); err == nil {
				return hint, nil
			}
		}
		ifaces, err := net.Interfaces()
		if err != nil {
			return "", err
		}
		for _, iface := range ifaces {
			name := strings.ToLower(iface.Name)
			if iface.Flags&net.FlagUp != 0 && (strings.HasPrefix(name, "tun") || strings.HasPrefix(name, "tap") || strings.HasPrefix(name, "utun")) {
				return iface.Name, nil
			}
		}
		return "", fmt.Errorf("no tunnel interface found")
	})
}

func (r *SystemResolver) ExternalIP(ctx context.Context) (string, error) {
	if r.IPCheckURL == "" {
		return "", fmt.Errorf("no IP check URL configured")
	}
	return r.retry(ctx, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.IPCheckURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := r.Client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("IP check returned %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
		if err != nil {
			return "", err
		}
		ip := strings.TrimSpace(string(body))
		if net.ParseIP(ip) == nil {
			return "", fmt.Errorf("IP check returned an invalid address")
		}
		return ip, nil
	})
}
