// Package process provides process management utilities
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sousbot/sousbot/pkg/logger"
)

// Manager handles process lifecycle and signals.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
}

// NewManager creates a new process manager.
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger:           log,
		shutdownHandlers: make([]func(), 0),
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run in
// reverse registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start begins listening for OS signals. The context controls the
// lifetime of the manager.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case <-ctx.Done():
			m.handleShutdown()
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig))
			m.handleShutdown()
		}
	}()
}

// Stop stops the process manager.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()
}

// IsRunning checks if the process manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.logger.Info("Initiating graceful shutdown...")

	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.running = false
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}

// ProcessInfo represents information about a running process.
type ProcessInfo struct {
	PID       int
	IsRunning bool
}

// GetProcessInfo returns information about a process.
func GetProcessInfo(pid int) (*ProcessInfo, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	err = proc.Signal(syscall.Signal(0))
	return &ProcessInfo{PID: pid, IsRunning: err == nil}, nil
}

// KillProcess terminates a process, trying SIGTERM before SIGKILL.
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return proc.Kill()
	}

	// Give the process a moment to shut down cleanly.
	time.Sleep(2 * time.Second)

	if err := proc.Signal(syscall.Signal(0)); err == nil {
		return proc.Kill()
	}
	return nil
}
