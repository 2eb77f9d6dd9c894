package types

import "time"

// SousbotConfig is the root configuration document.
type SousbotConfig struct {
	Version       string              `json:"version" yaml:"version"`
	Backend       BackendConfig       `json:"backend" yaml:"backend"`
	Engine        EngineConfig        `json:"engine" yaml:"engine"`
	Catalog       CatalogConfig       `json:"catalog" yaml:"catalog"`
	Actuator      ActuatorConfig      `json:"actuator" yaml:"actuator"`
	Notifications *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Metrics       *MetricsConfig      `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
}

// BackendConfig points the engine at the fulfillment backend.
type BackendConfig struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl"`
	APIKey         string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	RobotID        int64  `json:"robotId" yaml:"robotId"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// Timeout returns the HTTP timeout for backend calls.
func (c BackendConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EngineConfig tunes the orchestration loop. Millisecond fields with a
// zero value fall back to their defaults at load time.
type EngineConfig struct {
	PollIntervalSeconds  int  `json:"pollIntervalSeconds,omitempty" yaml:"pollIntervalSeconds,omitempty"`
	RandomRecipeMode     bool `json:"randomRecipeMode,omitempty" yaml:"randomRecipeMode,omitempty"`
	RepeatPauseMs        int  `json:"repeatPauseMs,omitempty" yaml:"repeatPauseMs,omitempty"`
	IngredientPauseMs    int  `json:"ingredientPauseMs,omitempty" yaml:"ingredientPauseMs,omitempty"`
	MonitorIntervalMs    int  `json:"monitorIntervalMs,omitempty" yaml:"monitorIntervalMs,omitempty"`
	MonitorBudgetSeconds int  `json:"monitorBudgetSeconds,omitempty" yaml:"monitorBudgetSeconds,omitempty"`
	ProgressEverySeconds int  `json:"progressEverySeconds,omitempty" yaml:"progressEverySeconds,omitempty"`

	// Nominal simulated timing bands per action class.
	MovementBandMs int `json:"movementBandMs,omitempty" yaml:"movementBandMs,omitempty"`
	PickUpBandMs   int `json:"pickUpBandMs,omitempty" yaml:"pickUpBandMs,omitempty"`
	PlaceBandMs    int `json:"placeBandMs,omitempty" yaml:"placeBandMs,omitempty"`
	GenericBandMs  int `json:"genericBandMs,omitempty" yaml:"genericBandMs,omitempty"`
	DefaultStepMs  int `json:"defaultStepMs,omitempty" yaml:"defaultStepMs,omitempty"`
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// PollInterval returns the poller tick interval.
func (c EngineConfig) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RepeatPause is the pause between repeats of a single step.
func (c EngineConfig) RepeatPause() time.Duration { return msOr(c.RepeatPauseMs, 250*time.Millisecond) }

// IngredientPause is the pause between ingredients.
func (c EngineConfig) IngredientPause() time.Duration {
	return msOr(c.IngredientPauseMs, 500*time.Millisecond)
}

// MonitorInterval is the actuator status sampling interval.
func (c EngineConfig) MonitorInterval() time.Duration {
	return msOr(c.MonitorIntervalMs, 500*time.Millisecond)
}

// MonitorBudget is the wall-clock budget for reaching a terminal actuator
// status after dispatch.
func (c EngineConfig) MonitorBudget() time.Duration {
	if c.MonitorBudgetSeconds <= 0 {
		return 180 * time.Second
	}
	return time.Duration(c.MonitorBudgetSeconds) * time.Second
}

// ProgressEvery is how often the monitor surfaces wait progress.
func (c EngineConfig) ProgressEvery() time.Duration {
	if c.ProgressEverySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ProgressEverySeconds) * time.Second
}

// Band returns the nominal simulated duration for an action class.
func (c EngineConfig) Band(class ActionClass) time.Duration {
	switch class {
	case ActionMovement:
		return msOr(c.MovementBandMs, 1500*time.Millisecond)
	case ActionPickUp:
		return msOr(c.PickUpBandMs, 2*time.Second)
	case ActionPlace:
		return msOr(c.PlaceBandMs, 2500*time.Millisecond)
	default:
		return msOr(c.GenericBandMs, time.Second)
	}
}

// DefaultStepDuration is the nominal duration of the fallback step used
// for ingredients with no resolved operations.
func (c EngineConfig) DefaultStepDuration() time.Duration {
	return msOr(c.DefaultStepMs, 2*time.Second)
}

// CatalogConfig tunes catalog bootstrap and pagination.
type CatalogConfig struct {
	MaxRetries          int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	InitialRetryDelayMs int `json:"initialRetryDelayMs,omitempty" yaml:"initialRetryDelayMs,omitempty"`
	PageSize            int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
}

// Retries returns how many times a failed bootstrap is retried.
func (c CatalogConfig) Retries() int {
	if c.MaxRetries <= 0 {
		return 5
	}
	return c.MaxRetries
}

// InitialRetryDelay is the first backoff delay; it doubles each attempt.
func (c CatalogConfig) InitialRetryDelay() time.Duration {
	return msOr(c.InitialRetryDelayMs, 2*time.Second)
}

// EffectivePageSize returns the page size used for paginated fetches.
func (c CatalogConfig) EffectivePageSize() int {
	if c.PageSize <= 0 {
		return 100
	}
	return c.PageSize
}

// ActuatorMode selects the actuator implementation.
type ActuatorMode string

const (
	ActuatorModeSimulated ActuatorMode = "simulated"
)

// ActuatorConfig configures the actuator connection.
type ActuatorConfig struct {
	Mode              ActuatorMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	StepLatencyMs     int          `json:"stepLatencyMs,omitempty" yaml:"stepLatencyMs,omitempty"`
	CompletionDelayMs int          `json:"completionDelayMs,omitempty" yaml:"completionDelayMs,omitempty"`
}

// StepLatency is the simulated per-call latency of the actuator.
func (c ActuatorConfig) StepLatency() time.Duration {
	return msOr(c.StepLatencyMs, 100*time.Millisecond)
}

// CompletionDelay is how long the simulated actuator takes to reach a
// terminal status after the full recipe has been dispatched.
func (c ActuatorConfig) CompletionDelay() time.Duration {
	return msOr(c.CompletionDelayMs, 2*time.Second)
}

// NotificationConfig configures desktop notifications.
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SuccessSound string `json:"successSound,omitempty" yaml:"successSound,omitempty"`
	FailureSound string `json:"failureSound,omitempty" yaml:"failureSound,omitempty"`
}

// IsEnabled treats a nil Enabled pointer as on.
func (c *NotificationConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.Enabled == nil || *c.Enabled
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Listen  string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// ListenAddr returns the metrics listen address.
func (c MetricsConfig) ListenAddr() string {
	if c.Listen == "" {
		return ":9134"
	}
	return c.Listen
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// EffectiveLevel returns the configured level or "info".
func (c LoggingConfig) EffectiveLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}
