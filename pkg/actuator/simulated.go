// Package actuator provides the simulated actuator implementation.
//
// The real kitchen hardware is an external collaborator; the engine only
// ever drives the status-level contract in pkg/interfaces. The simulated
// implementation stands in for it during development and testing, with
// configurable latency and failure injection.
package actuator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sousbot/sousbot/pkg/types"
)

// Simulated is an in-process actuator. Each fine-grained call sleeps the
// configured step latency; Dispatch moves the lifecycle to Processing and
// schedules the terminal transition after the completion delay.
type Simulated struct {
	mu       sync.Mutex
	status   types.ActuatorStatus
	busy     bool
	canServe bool
	logLines []string

	stepLatency     time.Duration
	completionDelay time.Duration
	finalStatus     types.ActuatorStatus
	failCall        error
}

// Option configures the simulated actuator.
type Option func(*Simulated)

// WithStepLatency sets the per-call latency.
func WithStepLatency(d time.Duration) Option {
	return func(s *Simulated) { s.stepLatency = d }
}

// WithCompletionDelay sets how long after Dispatch the terminal status is
// reached.
func WithCompletionDelay(d time.Duration) Option {
	return func(s *Simulated) { s.completionDelay = d }
}

// WithFinalStatus overrides the terminal status reached after Dispatch.
func WithFinalStatus(status types.ActuatorStatus) Option {
	return func(s *Simulated) { s.finalStatus = status }
}

// WithCallError makes every fine-grained call fail with err.
func WithCallError(err error) Option {
	return func(s *Simulated) { s.failCall = err }
}

// WithServingGateClosed starts the actuator with a closed serving gate.
func WithServingGateClosed() Option {
	return func(s *Simulated) { s.canServe = false }
}

// New creates an idle simulated actuator.
func New(cfg types.ActuatorConfig, opts ...Option) *Simulated {
	s := &Simulated{
		status:          types.ActuatorIdle,
		canServe:        true,
		stepLatency:     cfg.StepLatency(),
		completionDelay: cfg.CompletionDelay(),
		finalStatus:     types.ActuatorCompleted,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch hands the full recipe over and starts the terminal countdown.
func (s *Simulated) Dispatch(ctx context.Context, order *types.Order, recipeName string, ingredients []string) error {
	s.mu.Lock()
	s.busy = true
	s.status = types.ActuatorProcessing
	s.logLines = append(s.logLines,
		fmt.Sprintf("dispatched recipe %s (%d ingredients) for order #%d", recipeName, len(ingredients), order.OrderID))
	delay := s.completionDelay
	final := s.finalStatus
	s.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.mu.Lock()
		s.status = final
		s.busy = false
		s.logLines = append(s.logLines, fmt.Sprintf("reached %s", final))
		s.mu.Unlock()
	}()
	return nil
}

// IsBusy reports whether a dispatched recipe is still in flight.
func (s *Simulated) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Status returns the coarse lifecycle status.
func (s *Simulated) Status() types.ActuatorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Log returns the accumulated operation log.
func (s *Simulated) Log() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.logLines, "\n")
}

// CanServe reports whether the serving stage can accept a new order.
func (s *Simulated) CanServe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canServe
}

// SetServingGate opens or closes the serving stage.
func (s *Simulated) SetServingGate(open bool) {
	s.mu.Lock()
	s.canServe = open
	s.mu.Unlock()
}

// Reset returns the actuator to idle, clearing the operation log.
func (s *Simulated) Reset() {
	s.mu.Lock()
	s.status = types.ActuatorIdle
	s.busy = false
	s.logLines = nil
	s.mu.Unlock()
}

func (s *Simulated) call(ctx context.Context, line string) error {
	timer := time.NewTimer(s.stepLatency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	err := s.failCall
	if err == nil {
		s.logLines = append(s.logLines, line)
	}
	s.mu.Unlock()
	return err
}

// Move simulates a motion to or through the described position.
func (s *Simulated) Move(ctx context.Context, description string) error {
	return s.call(ctx, "move: "+description)
}

// CloseGripper simulates closing the gripper.
func (s *Simulated) CloseGripper(ctx context.Context) error {
	return s.call(ctx, "gripper closed")
}

// OpenGripper simulates opening the gripper.
func (s *Simulated) OpenGripper(ctx context.Context) error {
	return s.call(ctx, "gripper opened")
}

// TransferIngredient simulates moving one ingredient to the bowl.
func (s *Simulated) TransferIngredient(ctx context.Context, ingredient string) error {
	return s.call(ctx, "transfer: "+ingredient)
}
