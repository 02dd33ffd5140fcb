// internal/vpn/logbuffer.go
package vpn

import (
	"fmt"
	"time"
)

const (
	// MaxLogEntries bounds the in-memory client log.
	MaxLogEntries = 100
	// StatusLogEntries is the number of entries included in a Snapshot.
	StatusLogEntries = 20
)

// LogEntry is one timestamped line of supervisor or client output.
type LogEntry struct {
	Time    time.Time
	Message string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(time.RFC3339), e.Message)
}

// logBuffer is a fixed-capacity FIFO. It is not safe for concurrent use; the
// Supervisor guards it with its own mutex.
type logBuffer struct {
	entries []LogEntry
	start   int
	size    int
}

func newLogBuffer(capacity int) *logBuffer {
	return &logBuffer{entries: make([]LogEntry, capacity)}
}

func (b *logBuffer) append(e LogEntry) {
	capacity := len(b.entries)
	if b.size < capacity {
		b.entries[(b.start+b.size)%capacity] = e
		b.size++
		return
	}
	// full: overwrite the oldest
	b.entries[b.start] = e
	b.start = (b.start + 1) % capacity
}

func (b *logBuffer) len() int { return b.size }

// tail returns a copy of the most recent n entries, oldest first. n <= 0
// returns everything.
func (b *logBuffer) tail(n int) []LogEntry {
	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]LogEntry, n)
	capacity := len(b.entries)
	offset := b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.entries[(b.start+offset+i)%capacity]
	}
	return out
}
