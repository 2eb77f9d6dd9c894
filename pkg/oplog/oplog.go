// Package oplog accumulates the human-readable operation log for one order.
//
// The log is scoped to a single order's processing lifetime: it is reset
// when a new order enters the Processing phase and read back in full when
// the order reaches a terminal state. It never truncates or rotates.
package oplog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sousbot/sousbot/pkg/types"
)

// Logger accumulates timestamped task-outcome lines for the active order.
type Logger struct {
	mu      sync.Mutex
	lines   []string
	seq     int
	orderID int64
}

// New creates an empty operation logger.
func New() *Logger {
	return &Logger{}
}

// Begin resets the log and writes the order header line.
func (l *Logger) Begin(orderID int64, recipeName string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = l.lines[:0]
	l.seq = 0
	l.orderID = orderID
	l.lines = append(l.lines, fmt.Sprintf("processing order #%d, recipe %s", orderID, recipeName))
}

// Task appends one executed task line with its outcome and measured duration.
func (l *Logger) Task(description string, success bool, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	outcome := "Success"
	if !success {
		outcome = "Failed"
	}
	l.lines = append(l.lines, fmt.Sprintf("- Task %d: %s [%s] - %.1fs", l.seq, description, outcome, d.Seconds()))
}

// Note appends a free-form line, used for fallback reasons and warnings
// that belong in the persisted record.
func (l *Logger) Note(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, line)
}

// Finish appends the trailing summary line with total elapsed time and
// the order's final outcome.
func (l *Logger) Finish(outcome types.OrderOutcome, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tag := "Failed"
	switch outcome {
	case types.OutcomeCompleted:
		tag = "Success"
	case types.OutcomeCancelled:
		tag = "Cancelled"
	case types.OutcomeTimedOut:
		tag = "TimedOut"
	}
	l.lines = append(l.lines, fmt.Sprintf("order #%d finished in %.1fs [%s]", l.orderID, elapsed.Seconds(), tag))
}

// Text returns the accumulated log as a single string.
func (l *Logger) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return strings.Join(l.lines, "\n")
}

// TaskCount returns how many task lines have been recorded since Begin.
func (l *Logger) TaskCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seq
}
