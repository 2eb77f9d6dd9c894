// Package config provides configuration management including hot-reload functionality
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/types"
)

// ReloadManager watches the configuration file and pushes reloaded
// configurations to registered callbacks.
type ReloadManager struct {
	configPath     string
	logger         logger.Logger
	watcher        *fsnotify.Watcher
	callbacks      []ReloadCallback
	lastModTime    time.Time
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isWatching     bool
}

// ReloadCallback is called when configuration changes.
type ReloadCallback func(*types.SousbotConfig, error)

// ReloadEventType represents the type of reload event.
type ReloadEventType string

const (
	ReloadEventTypeModified ReloadEventType = "modified"
	ReloadEventTypeCreated  ReloadEventType = "created"
	ReloadEventTypeRemoved  ReloadEventType = "removed"
	ReloadEventTypeError    ReloadEventType = "error"
)

// NewReloadManager creates a new configuration reload manager.
func NewReloadManager(configPath string, log logger.Logger) *ReloadManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &ReloadManager{
		configPath:     configPath,
		logger:         log,
		debouncePeriod: 500 * time.Millisecond,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// AddCallback adds a reload callback.
func (rm *ReloadManager) AddCallback(callback ReloadCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = append(rm.callbacks, callback)
}

// StartWatching begins watching the configuration file for changes.
func (rm *ReloadManager) StartWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isWatching {
		return fmt.Errorf("already watching configuration file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	rm.watcher = watcher

	// Watch the directory, not the file: editors replace the file on
	// save and the inode-level watch would be lost.
	configDir := filepath.Dir(rm.configPath)
	if err := rm.watcher.Add(configDir); err != nil {
		rm.watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	if stat, err := os.Stat(rm.configPath); err == nil {
		rm.lastModTime = stat.ModTime()
	}

	rm.isWatching = true
	go rm.watchLoop()

	rm.logger.Debug("Started watching configuration file",
		logger.WithField("path", rm.configPath))
	return nil
}

// StopWatching stops watching the configuration file.
func (rm *ReloadManager) StopWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.isWatching {
		return nil
	}

	rm.cancel()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
		rm.debounceTimer = nil
	}
	if rm.watcher != nil {
		if err := rm.watcher.Close(); err != nil {
			rm.logger.Warn("Error closing file watcher", logger.WithField("error", err))
		}
		rm.watcher = nil
	}

	rm.isWatching = false
	rm.logger.Debug("Stopped watching configuration file")
	return nil
}

// IsWatching returns whether the manager is currently watching.
func (rm *ReloadManager) IsWatching() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.isWatching
}

// TriggerReload manually triggers a configuration reload.
func (rm *ReloadManager) TriggerReload() {
	rm.logger.Debug("Manually triggering configuration reload")
	rm.handleConfigChange(ReloadEventTypeModified)
}

// SetDebouncePeriod sets the debounce period for file change events.
func (rm *ReloadManager) SetDebouncePeriod(period time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.debouncePeriod = period
}

func (rm *ReloadManager) watchLoop() {
	defer func() {
		if r := recover(); r != nil {
			rm.logger.Error("Configuration watcher panic recovered",
				logger.WithField("panic", r))
		}
	}()

	for {
		select {
		case <-rm.ctx.Done():
			return

		case event, ok := <-rm.watcher.Events:
			if !ok {
				return
			}
			if !rm.isConfigFileEvent(event.Name) {
				continue
			}

			rm.logger.Debug("Configuration file event received",
				logger.WithField("event", event.String()))
			rm.debounceReload(rm.mapFsnotifyEvent(event.Op))

		case err, ok := <-rm.watcher.Errors:
			if !ok {
				return
			}
			rm.logger.Error("Configuration file watcher error",
				logger.WithField("error", err))
			rm.notifyCallbacks(nil, err)
		}
	}
}

func (rm *ReloadManager) isConfigFileEvent(eventPath string) bool {
	configFileName := filepath.Base(rm.configPath)
	eventFileName := filepath.Base(eventPath)

	if eventFileName == configFileName {
		return true
	}
	// Editors write through temporary siblings before renaming.
	return strings.HasPrefix(eventFileName, configFileName)
}

func (rm *ReloadManager) mapFsnotifyEvent(op fsnotify.Op) ReloadEventType {
	switch {
	case op&fsnotify.Write == fsnotify.Write:
		return ReloadEventTypeModified
	case op&fsnotify.Create == fsnotify.Create:
		return ReloadEventTypeCreated
	case op&fsnotify.Remove == fsnotify.Remove:
		return ReloadEventTypeRemoved
	default:
		return ReloadEventTypeModified
	}
}

func (rm *ReloadManager) debounceReload(eventType ReloadEventType) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
	}
	rm.debounceTimer = time.AfterFunc(rm.debouncePeriod, func() {
		rm.handleConfigChange(eventType)
	})
}

func (rm *ReloadManager) handleConfigChange(eventType ReloadEventType) {
	rm.logger.Debug("Processing configuration change",
		logger.WithField("eventType", eventType))

	if eventType == ReloadEventTypeRemoved {
		rm.notifyCallbacks(nil, fmt.Errorf("configuration file was removed: %s", rm.configPath))
		return
	}

	stat, err := os.Stat(rm.configPath)
	if err != nil {
		rm.logger.Error("Failed to stat configuration file",
			logger.WithField("error", err))
		rm.notifyCallbacks(nil, err)
		return
	}

	rm.mu.Lock()
	if !stat.ModTime().After(rm.lastModTime) {
		rm.mu.Unlock()
		rm.logger.Debug("Configuration file not modified, skipping reload")
		return
	}
	rm.lastModTime = stat.ModTime()
	rm.mu.Unlock()

	cfg, err := NewManager().LoadConfig(rm.configPath)
	if err != nil {
		rm.logger.Error("Failed to reload configuration",
			logger.WithField("error", err))
		rm.notifyCallbacks(nil, err)
		return
	}

	rm.logger.Info("Configuration reloaded successfully",
		logger.WithField("poll_interval", cfg.Engine.PollInterval()))
	rm.notifyCallbacks(cfg, nil)
}

func (rm *ReloadManager) notifyCallbacks(cfg *types.SousbotConfig, err error) {
	rm.mu.RLock()
	callbacks := make([]ReloadCallback, len(rm.callbacks))
	copy(callbacks, rm.callbacks)
	rm.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb ReloadCallback) {
			defer func() {
				if r := recover(); r != nil {
					rm.logger.Error("Reload callback panic recovered",
						logger.WithField("panic", r))
				}
			}()
			cb(cfg, err)
		}(callback)
	}
}
