package engine

import (
	"context"
	"time"

	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/types"
)

// CompletionMonitor samples the actuator status after dispatch until a
// terminal state, cancellation, or the wall-clock budget, whichever fires
// first.
type CompletionMonitor struct {
	actuator interfaces.Actuator
	log      logger.Logger
	cfg      func() types.EngineConfig
}

// NewCompletionMonitor wires a monitor.
func NewCompletionMonitor(act interfaces.Actuator, log logger.Logger, cfg func() types.EngineConfig) *CompletionMonitor {
	return &CompletionMonitor{actuator: act, log: log, cfg: cfg}
}

// Wait blocks until the order's terminal outcome is known. Exceeding the
// budget yields OutcomeTimedOut, which is reported to the backend as a
// failure but keeps its own distinguishable kind.
func (m *CompletionMonitor) Wait(ctx context.Context, orderID int64) types.OrderOutcome {
	cfg := m.cfg()
	log := m.log.WithOrder(orderID)

	start := time.Now()
	deadline := start.Add(cfg.MonitorBudget())
	lastProgress := start

	ticker := time.NewTicker(cfg.MonitorInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Warn("wait interrupted by cancellation")
			return types.OutcomeCancelled
		case <-ticker.C:
			switch m.actuator.Status() {
			case types.ActuatorCompleted:
				log.Debug("actuator reached Completed",
					logger.WithField("waited", time.Since(start).Round(time.Millisecond)))
				return types.OutcomeCompleted
			case types.ActuatorFailed:
				log.Warn("actuator reported Failed",
					logger.WithField("actuator_log", m.actuator.Log()))
				return types.OutcomeFailed
			}

			now := time.Now()
			if now.After(deadline) {
				log.Error("actuator never reached a terminal status",
					logger.WithField("budget", cfg.MonitorBudget()),
					logger.WithField("actuator_log", m.actuator.Log()))
				return types.OutcomeTimedOut
			}
			// Cosmetic progress only; has no effect on correctness.
			if now.Sub(lastProgress) >= cfg.ProgressEvery() {
				log.Info("waiting for actuator",
					logger.WithField("elapsed", now.Sub(start).Round(time.Second)))
				lastProgress = now
			}
		}
	}
}
