// internal/vpn/doc.go

// Package vpn supervises the single OpenVPN client process run by the gateway.
//
// A Supervisor owns the process-wide connection state: the lifecycle status,
// the spawned process, the temporary config and credential files written for
// it, a bounded log of its output and the interface/IP facts derived once the
// tunnel is up. Callers only ever see immutable Snapshot values.
//
// Status transitions are driven by the client's own output. Each line is
// passed through Classify, which recognises the completion and
// authentication-failure markers:
//
//	disconnected -> connecting          Connect accepted, process spawned
//	connecting   -> connected           "Initialization Sequence Completed"
//	connecting|connected -> error       "AUTH_FAILED"
//	any          -> disconnected        process exit (error is kept) or Stop
//
// All methods are safe for concurrent use.
package vpn
