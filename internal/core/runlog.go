package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunLog is the append-only, timestamped progress log shown to users. It is written
// by the active phase and read concurrently by status queries.
type RunLog struct {
	mu    sync.RWMutex
	lines []string
	now   func() time.Time
}

// NewRunLog creates an empty RunLog.
func NewRunLog() *RunLog {
	return &RunLog{now: time.Now}
}

// Append adds one line prefixed with the wall-clock time.
func (l *RunLog) Append(msg string) {
	line := "[" + l.now().Format("15:04:05") + "] " + msg

	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()

	log.Info().Msg(msg)
}

// Snapshot returns a copy of every line appended so far.
func (l *RunLog) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Reset drops every line.
func (l *RunLog) Reset() {
	l.mu.Lock()
	l.lines = nil
	l.mu.Unlock()
}
