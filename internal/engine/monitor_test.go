package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/mocks"
	"github.com/sousbot/sousbot/pkg/types"
)

func TestWaitCompleted(t *testing.T) {
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorCompleted)

	m := NewCompletionMonitor(act, quietLogger(), fastEngineConfig)
	if got := m.Wait(context.Background(), 1); got != types.OutcomeCompleted {
		t.Fatalf("Wait() = %v, want Completed", got)
	}
}

func TestWaitFailed(t *testing.T) {
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorProcessing)
	go func() {
		time.Sleep(10 * time.Millisecond)
		act.SetStatus(types.ActuatorFailed)
	}()

	m := NewCompletionMonitor(act, quietLogger(), fastEngineConfig)
	if got := m.Wait(context.Background(), 2); got != types.OutcomeFailed {
		t.Fatalf("Wait() = %v, want Failed", got)
	}
}

func TestWaitFailureSurfacesActuatorLog(t *testing.T) {
	act := mocks.NewMockActuator()
	if err := act.Dispatch(context.Background(), &types.Order{OrderID: 5}, "Phở bò", nil); err != nil {
		t.Fatal(err)
	}
	act.SetStatus(types.ActuatorFailed)

	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("warn", &buf)

	m := NewCompletionMonitor(act, log, fastEngineConfig)
	if got := m.Wait(context.Background(), 5); got != types.OutcomeFailed {
		t.Fatalf("Wait() = %v, want Failed", got)
	}
	if !strings.Contains(buf.String(), "dispatched Phở bò") {
		t.Errorf("actuator log not surfaced on failure: %q", buf.String())
	}
}

func TestWaitBudgetExhausted(t *testing.T) {
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorProcessing) // never reaches a terminal status

	m := NewCompletionMonitor(act, quietLogger(), fastEngineConfig)
	start := time.Now()
	got := m.Wait(context.Background(), 3)
	if got != types.OutcomeTimedOut {
		t.Fatalf("Wait() = %v, want TimedOut", got)
	}
	if time.Since(start) < time.Second {
		t.Errorf("Wait returned before the budget elapsed")
	}
}

func TestWaitCancellation(t *testing.T) {
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorProcessing)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	m := NewCompletionMonitor(act, quietLogger(), fastEngineConfig)
	if got := m.Wait(ctx, 4); got != types.OutcomeCancelled {
		t.Fatalf("Wait() = %v, want Cancelled", got)
	}
}
