// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SSHSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Name: "gateway_ssh_sessions_active", Help: "Open websocket sessions"})
	SSHShellsActive   = promauto.NewGauge(prometheus.GaugeOpts{Name: "gateway_ssh_shells_active", Help: "Sessions with an attached remote shell"})
	SSHConnectsTotal  = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gateway_ssh_connects_total", Help: "Remote shell connect attempts by result"}, []string{"result"})
	SSHBytesTotal     = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gateway_ssh_bytes_total", Help: "Bytes relayed by direction"}, []string{"direction"})

	VPNStatus       = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "gateway_vpn_status", Help: "1 for the current VPN status, 0 otherwise"}, []string{"status"})
	VPNStartsTotal  = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gateway_vpn_starts_total", Help: "VPN client spawn attempts by result"}, []string{"result"})
	VPNLogLines     = promauto.NewCounter(prometheus.CounterOpts{Name: "gateway_vpn_log_lines_total", Help: "Lines read from the VPN client"})
	ProtocolErrors  = promauto.NewCounter(prometheus.CounterOpts{Name: "gateway_ws_protocol_errors_total", Help: "Malformed websocket frames"})
	ProbesTotal     = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gateway_probes_total", Help: "Reachability probes by kind and result"}, []string{"kind", "result"})
	ProbeDuration   = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "gateway_probe_duration_seconds", Help: "Probe duration seconds", Buckets: prometheus.ExponentialBuckets(0.001, 2, 16)}, []string{"kind"})
)

var vpnStatuses = []string{"disconnected", "connecting", "connected", "error"}

// SetVPNStatus marks status as the single active VPN status.
func SetVPNStatus(status string) {
	for _, s := range vpnStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		VPNStatus.WithLabelValues(s).Set(v)
	}
}

// ObserveProbe records a probe outcome.
func ObserveProbe(kind string, reachable bool, elapsed time.Duration) {
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	ProbesTotal.WithLabelValues(kind, result).Inc()
	ProbeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
