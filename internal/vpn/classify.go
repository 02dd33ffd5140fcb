// internal/vpn/classify.go
package vpn

import (
	"regexp"
	"strings"
)

// Marker is the lifecycle meaning of one line of client output.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerCompleted
	MarkerAuthFailed
)

func (m Marker) String() string {
	switch m {
	case MarkerCompleted:
		return "completed"
	case MarkerAuthFailed:
		return "auth-failed"
	default:
		return "none"
	}
}

const completionMarker = "Initialization Sequence Completed"

var authFailureMarkers = []string{
	"AUTH_FAILED",
	"auth-failure",
}

// Classify maps a single output line to its lifecycle marker.
func Classify(line string) Marker {
	if strings.Contains(line, completionMarker) {
		return MarkerCompleted
	}
	for _, m := range authFailureMarkers {
		if strings.Contains(line, m) {
			return MarkerAuthFailed
		}
	}
	return MarkerNone
}

var tunDeviceRegex = regexp.MustCompile(`TUN/TAP device (\S+) opened`)

// ParseTunDevice extracts the device name from the line OpenVPN prints when
// it opens its tun/tap interface.
func ParseTunDevice(line string) (string, bool) {
	m := tunDeviceRegex.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
