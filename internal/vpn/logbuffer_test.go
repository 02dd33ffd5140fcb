// internal/vpn/logbuffer_test.go
package vpn

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendLogKeepsNewest(t *testing.T) {
	s := NewSupervisor(Options{WorkDir: t.TempDir()})
	for i := 0; i < 150; i++ {
		s.AppendLog(fmt.Sprintf("line %d", i))
	}

	all := s.Logs()
	require.Len(t, all, MaxLogEntries)
	assert.Equal(t, "line 50", all[0].Message)
	assert.Equal(t, "line 149", all[len(all)-1].Message)
	for i, e := range all {
		assert.Equal(t, fmt.Sprintf("line %d", 50+i), e.Message)
	}

	last := s.Observe().Logs
	require.Len(t, last, StatusLogEntries)
	assert.Equal(t, "line 130", last[0].Message)
	assert.Equal(t, "line 149", last[StatusLogEntries-1].Message)
}

func TestLogBufferKeepsNewest(t *testing.T) {
	b := newLogBuffer(MaxLogEntries)
	for i := 0; i < 150; i++ {
		b.append(LogEntry{Time: time.Unix(int64(i), 0), Message: fmt.Sprintf("line %d", i)})
	}

	assert.Equal(t, MaxLogEntries, b.len())

	all := b.tail(0)
	assert.Len(t, all, MaxLogEntries)
	assert.Equal(t, "line 50", all[0].Message)
	assert.Equal(t, "line 149", all[len(all)-1].Message)
}

func TestLogBufferPartial(t *testing.T) {
	b := newLogBuffer(4)
	b.append(LogEntry{Message: "a"})
	b.append(LogEntry{Message: "b"})

	got := b.tail(10)
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Message)
	assert.Equal(t, "b", got[1].Message)
}

func TestLogEntryString(t *testing.T) {
	e := LogEntry{Time: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Message: "hello"}
	assert.Equal(t, "[2025-01-02T03:04:05Z] hello", e.String())
}
