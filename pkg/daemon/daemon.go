// Package daemon runs the fulfillment engine as a background process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sousbot/sousbot/internal/engine"
	"github.com/sousbot/sousbot/pkg/actuator"
	"github.com/sousbot/sousbot/pkg/backend"
	"github.com/sousbot/sousbot/pkg/catalog"
	"github.com/sousbot/sousbot/pkg/config"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/notifier"
	"github.com/sousbot/sousbot/pkg/process"
	"github.com/sousbot/sousbot/pkg/state"
	"github.com/sousbot/sousbot/pkg/types"
)

// StateDirName is the per-station working directory for runtime files.
const StateDirName = ".sousbot"

// Manager wires the full engine stack and owns its lifetime.
type Manager struct {
	workDir        string
	configPath     string
	pidFile        string
	stateDir       string
	logger         logger.Logger
	processManager *process.Manager
	stateManager   *state.Manager
	reloadManager  *config.ReloadManager
	engine         *engine.Engine
	cancel         context.CancelFunc
	mu             sync.RWMutex
}

// Config represents daemon configuration.
type Config struct {
	WorkDir    string
	ConfigPath string
	LogFile    string
	LogLevel   string
}

// NewManager creates a new daemon manager.
func NewManager(cfg Config) *Manager {
	stateDir := filepath.Join(cfg.WorkDir, StateDirName)
	log := logger.CreateLogger(cfg.LogFile, cfg.LogLevel)

	return &Manager{
		workDir:        cfg.WorkDir,
		configPath:     cfg.ConfigPath,
		pidFile:        filepath.Join(stateDir, "daemon.pid"),
		stateDir:       stateDir,
		logger:         log,
		processManager: process.NewManager(log),
	}
}

// StateDir returns the runtime state directory.
func (m *Manager) StateDir() string {
	return m.stateDir
}

// StatusFilePath returns where the engine status file is written.
func (m *Manager) StatusFilePath() string {
	return filepath.Join(m.stateDir, "engine.json")
}

// PIDFilePath returns the daemon pid file location.
func (m *Manager) PIDFilePath() string {
	return m.pidFile
}

// StartWithContext builds the engine stack and runs it until ctx is
// cancelled. It blocks for the lifetime of the engine.
func (m *Manager) StartWithContext(ctx context.Context) error {
	m.mu.Lock()

	if m.isRunning() {
		m.mu.Unlock()
		return ErrDaemonAlreadyRunning
	}

	if err := os.MkdirAll(m.stateDir, 0o755); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := m.writePIDFile(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	cfg, err := config.NewManager().LoadConfig(m.configPath)
	if err != nil {
		m.removePIDFile()
		m.mu.Unlock()
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.stateManager = state.NewManager(m.stateDir, m.logger)
	m.engine = engine.NewEngine(m.buildDependencies(cfg), cfg)

	m.reloadManager = config.NewReloadManager(m.configPath, m.logger)
	m.reloadManager.AddCallback(func(reloaded *types.SousbotConfig, err error) {
		if err != nil {
			m.logger.Warn("Ignoring invalid configuration change",
				logger.WithField("error", err))
			return
		}
		m.engine.ApplyConfig(reloaded)
	})
	if err := m.reloadManager.StartWatching(); err != nil {
		m.logger.Warn("Configuration hot-reload unavailable",
			logger.WithField("error", err))
	}

	m.processManager.RegisterShutdownHandler(func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		m.StopWithContext(shutdownCtx)
	})
	m.processManager.Start(ctx)
	m.stateManager.StartHeartbeat(ctx)

	m.logger.Info("Daemon started", logger.WithField("pid", os.Getpid()))
	m.mu.Unlock()

	return m.engine.Start(ctx)
}

// StopWithContext stops the daemon.
func (m *Manager) StopWithContext(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return ErrDaemonNotRunning
	}

	m.logger.Info("Stopping daemon...")

	if m.reloadManager != nil {
		m.reloadManager.StopWatching()
	}
	m.cancel()
	m.cancel = nil

	if m.stateManager != nil {
		m.stateManager.Cleanup()
	}
	m.processManager.Stop()
	m.removePIDFile()

	m.logger.Info("Daemon stopped")
	return nil
}

// Stop stops the daemon with a default timeout.
func (m *Manager) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return m.StopWithContext(ctx)
}

// Status describes a running daemon.
type Status struct {
	Running bool
	PID     int
	Engine  *state.EngineState
}

// Status returns the daemon status, inspecting the pid and status files
// so it also works from a separate process.
func (m *Manager) Status() (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isRunning() {
		return &Status{Running: false}, nil
	}

	status := &Status{Running: true}
	if pid, err := m.readPIDFile(); err == nil {
		status.PID = pid
	}
	if engineState, err := state.Read(m.StatusFilePath()); err == nil {
		status.Engine = engineState
	}
	return status, nil
}

// IsRunning checks if the daemon is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning()
}

// buildDependencies assembles the engine's dependency set from the
// configuration.
func (m *Manager) buildDependencies(cfg *types.SousbotConfig) engine.Dependencies {
	backendClient := backend.New(cfg.Backend)
	act := actuator.New(cfg.Actuator)
	matcher := catalog.NewKeywordMatcher()

	notifierCfg := notifier.Config{Enabled: cfg.Notifications.IsEnabled()}
	if cfg.Notifications != nil {
		notifierCfg.SuccessSound = cfg.Notifications.SuccessSound != ""
		notifierCfg.FailureSound = cfg.Notifications.FailureSound != ""
	}

	return engine.Dependencies{
		Backend:  backendClient,
		Actuator: act,
		Catalog:  catalog.New(backendClient, matcher, m.logger, cfg.Catalog),
		Notifier: notifier.New(notifierCfg, m.logger),
		Status:   m.stateManager,
		Metrics:  metrics.New(cfg.Metrics),
		Logger:   m.logger,
	}
}

func (m *Manager) isRunning() bool {
	pid, err := m.readPIDFile()
	if err != nil {
		return false
	}
	info, err := process.GetProcessInfo(pid)
	if err != nil {
		return false
	}
	return info.IsRunning
}

func (m *Manager) writePIDFile() error {
	return os.WriteFile(m.pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

func (m *Manager) readPIDFile() (int, error) {
	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func (m *Manager) removePIDFile() {
	os.Remove(m.pidFile)
}
