// Package state persists the engine's runtime status to a JSON file.
//
// The file is the contact surface for the status CLI command and for
// stale-instance detection: a fresh heartbeat from another pid means a
// second engine is already serving this station.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/types"
)

const heartbeatInterval = 10 * time.Second

// staleAfter is how old a heartbeat may be before the writing process is
// considered dead.
const staleAfter = 30 * time.Second

// EngineState is the persisted status document.
type EngineState struct {
	EngineID     string    `json:"engineId"`
	ProcessID    int       `json:"processId"`
	StartedAt    time.Time `json:"startedAt"`
	Heartbeat    time.Time `json:"heartbeat"`
	Operational  bool      `json:"operational"`
	CurrentOrder int64     `json:"currentOrder,omitempty"`
	LastMessage  string    `json:"lastMessage,omitempty"`

	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	TimedOut  int `json:"timedOut"`
}

// Manager owns the status file and implements the engine's status sink.
type Manager struct {
	path   string
	logger logger.Logger

	mu    sync.Mutex
	state EngineState

	heartbeatStop chan struct{}
}

// NewManager creates a status manager writing under dir.
func NewManager(dir string, log logger.Logger) *Manager {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("Failed to create state directory", logger.WithField("error", err))
	}

	return &Manager{
		path:   filepath.Join(dir, "engine.json"),
		logger: log,
		state: EngineState{
			EngineID:  uuid.NewString(),
			ProcessID: os.Getpid(),
			StartedAt: time.Now(),
			Heartbeat: time.Now(),
		},
	}
}

// Path returns the status file location.
func (m *Manager) Path() string {
	return m.path
}

// SetOperational records whether the engine can claim orders.
func (m *Manager) SetOperational(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Operational = ok
	m.saveLocked()
}

// SetCurrentOrder records the order currently being processed.
func (m *Manager) SetCurrentOrder(orderID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.CurrentOrder = orderID
	m.saveLocked()
}

// ClearCurrentOrder marks the engine as idle.
func (m *Manager) ClearCurrentOrder() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.CurrentOrder = 0
	m.saveLocked()
}

// SetMessage records a human-readable status line.
func (m *Manager) SetMessage(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastMessage = message
	m.saveLocked()
}

// RecordOutcome bumps the terminal-outcome counters.
func (m *Manager) RecordOutcome(outcome types.OrderOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch outcome {
	case types.OutcomeCompleted:
		m.state.Completed++
	case types.OutcomeFailed:
		m.state.Failed++
	case types.OutcomeCancelled:
		m.state.Cancelled++
	case types.OutcomeTimedOut:
		m.state.TimedOut++
	}
	m.saveLocked()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() EngineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartHeartbeat refreshes the heartbeat field until ctx is cancelled or
// StopHeartbeat is called.
func (m *Manager) StartHeartbeat(ctx context.Context) {
	m.mu.Lock()
	if m.heartbeatStop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.heartbeatStop = stop
	m.mu.Unlock()

	ticker := time.NewTicker(heartbeatInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				m.mu.Lock()
				m.saveLocked()
				m.mu.Unlock()
			}
		}
	}()
}

// StopHeartbeat stops the heartbeat updater.
func (m *Manager) StopHeartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
}

// Cleanup writes a final non-operational state on shutdown.
func (m *Manager) Cleanup() {
	m.StopHeartbeat()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Operational = false
	m.state.CurrentOrder = 0
	m.state.ProcessID = 0
	m.saveLocked()
}

// saveLocked writes the state file atomically. Callers hold m.mu.
func (m *Manager) saveLocked() {
	m.state.Heartbeat = time.Now()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		m.logger.Warn("Failed to marshal engine state", logger.WithField("error", err))
		return
	}

	tempFile := m.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		m.logger.Warn("Failed to write state file", logger.WithField("error", err))
		return
	}
	if err := os.Rename(tempFile, m.path); err != nil {
		os.Remove(tempFile)
		m.logger.Warn("Failed to replace state file", logger.WithField("error", err))
	}
}

// Read loads a status file written by a (possibly different) engine
// process.
func Read(path string) (*EngineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state EngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

// IsLive reports whether the state belongs to a process that is still
// heartbeating.
func (s *EngineState) IsLive() bool {
	if s.ProcessID == 0 {
		return false
	}
	return time.Since(s.Heartbeat) <= staleAfter
}
