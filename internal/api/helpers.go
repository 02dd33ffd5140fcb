// internal/api/helpers.go
package api

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/srl-labs/access-gateway/internal/config"
	"github.com/srl-labs/access-gateway/internal/models"
)

const (
	minProbeTimeoutMs     = 100
	defaultProbeTimeoutMs = 5000
	maxProbeTimeoutMs     = 60000
	maxHostLength         = 253
)

// hostnameRegex matches RFC 1123 host names, with an optional trailing dot.
var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*\.?$`)

// normalizeHost trims the host and checks that it is a plain host name or IP
// literal. Anything that could be read as a command line option is rejected.
func normalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is required")
	}
	if strings.HasPrefix(host, "-") {
		return "", fmt.Errorf("invalid host")
	}
	if len(host) > maxHostLength {
		return "", fmt.Errorf("host is too long")
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if !hostnameRegex.MatchString(host) {
		return "", fmt.Errorf("invalid host")
	}
	return host, nil
}

// probeTimeout applies the configured default and bounds to a requested
// timeout in milliseconds.
func probeTimeout(requested *models.FlexInt) (time.Duration, error) {
	def := config.AppConfig.ProbeDefaultTimeoutMs
	if def <= 0 {
		def = defaultProbeTimeoutMs
	}
	max := config.AppConfig.ProbeMaxTimeoutMs
	if max <= 0 || max > maxProbeTimeoutMs {
		max = maxProbeTimeoutMs
	}

	ms := requested.Int(def)
	if ms < minProbeTimeoutMs || ms > max {
		return 0, fmt.Errorf("timeout must be between %d and %d milliseconds", minProbeTimeoutMs, max)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func validatePort(port *models.FlexInt) (int, error) {
	if port == nil {
		return 0, fmt.Errorf("port is required")
	}
	p := int(*port)
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535")
	}
	return p, nil
}

// optional returns nil for empty strings so JSON renders null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
