// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sousbot/sousbot/pkg/types"
)

// DefaultFileName is the configuration file looked for in the working
// directory when no explicit path is given.
const DefaultFileName = "sousbot.config.json"

// Manager handles configuration operations.
type Manager struct{}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file. JSON is tried first, then
// YAML.
func (m *Manager) LoadConfig(path string) (*types.SousbotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.SousbotConfig

	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a configuration.
func (m *Manager) ValidateConfig(cfg *types.SousbotConfig) error {
	if cfg.Version != "1.0" {
		return fmt.Errorf("unsupported config version: %s", cfg.Version)
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseUrl is required")
	}
	parsed, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.baseUrl is not a valid URL: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RobotID <= 0 {
		return fmt.Errorf("backend.robotId must be positive")
	}

	if cfg.Actuator.Mode != "" && cfg.Actuator.Mode != types.ActuatorModeSimulated {
		return fmt.Errorf("unknown actuator mode: %s", cfg.Actuator.Mode)
	}

	if cfg.Catalog.MaxRetries < 0 {
		return fmt.Errorf("catalog.maxRetries must not be negative")
	}
	if cfg.Catalog.PageSize < 0 {
		return fmt.Errorf("catalog.pageSize must not be negative")
	}

	return nil
}

// GetDefaultConfig returns a default configuration pointed at a backend.
func (m *Manager) GetDefaultConfig(baseURL string, robotID int64) *types.SousbotConfig {
	enabled := true

	return &types.SousbotConfig{
		Version: "1.0",
		Backend: types.BackendConfig{
			BaseURL: baseURL,
			RobotID: robotID,
		},
		Engine: types.EngineConfig{
			PollIntervalSeconds: 5,
		},
		Catalog: types.CatalogConfig{
			MaxRetries: 5,
			PageSize:   100,
		},
		Actuator: types.ActuatorConfig{
			Mode: types.ActuatorModeSimulated,
		},
		Notifications: &types.NotificationConfig{
			Enabled: &enabled,
		},
		Logging: types.LoggingConfig{
			Level: "info",
		},
	}
}

// SaveConfig writes a configuration file as indented JSON.
func (m *Manager) SaveConfig(path string, cfg *types.SousbotConfig) error {
	if err := m.ValidateConfig(cfg); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (m *Manager) validateConfig(cfg *types.SousbotConfig) (*types.SousbotConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
