package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/mocks"
	"github.com/sousbot/sousbot/pkg/types"
)

func newTestPoller(b *mocks.MockBackend, act *mocks.MockActuator, cat *mocks.MockCatalog, ctrl *Controller) *Poller {
	return NewPoller(b, cat, act, ctrl, metrics.New(nil), quietLogger(), fastEngineConfig)
}

func TestTickSkipsWhileNonOperational(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	cat := &mocks.MockCatalog{OperationalVal: false}
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if b.DequeueCalls != 0 {
		t.Errorf("DequeueCalls = %d, want 0 while non-operational", b.DequeueCalls)
	}
}

func TestTickSkipsWhileOrderInFlight(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	token, _ := ctrl.acquire()
	defer ctrl.release(token)

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if b.DequeueCalls != 0 {
		t.Errorf("DequeueCalls = %d, want 0 while an order is in flight", b.DequeueCalls)
	}
}

func TestTickSkipsWhileServingGateClosed(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.CanServeVal = false
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if b.DequeueCalls != 0 {
		t.Errorf("DequeueCalls = %d, want 0 while the serving gate is closed", b.DequeueCalls)
	}
}

func TestTickSkipsWhileActuatorBusy(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.BusyVal = true // still finishing the previous recipe
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if b.DequeueCalls != 0 {
		t.Errorf("DequeueCalls = %d, want 0 while the actuator is busy", b.DequeueCalls)
	}
}

func TestTickEmptyQueue(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if b.DequeueCalls != 1 {
		t.Errorf("DequeueCalls = %d, want 1", b.DequeueCalls)
	}
	if len(b.Pushes()) != 0 {
		t.Errorf("status pushes = %v, want none on an empty queue", b.Pushes())
	}
}

func TestTickDequeueErrorIsNonFatal(t *testing.T) {
	b := &mocks.MockBackend{
		DequeueFunc: func() (*types.Order, error) { return nil, errors.New("backend down") },
	}
	act := mocks.NewMockActuator()
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())
	p.tick(context.Background())

	if b.DequeueCalls != 2 {
		t.Errorf("DequeueCalls = %d, want 2 (loop keeps ticking)", b.DequeueCalls)
	}
}

func TestTickDiscardsCancelledOrder(t *testing.T) {
	b := &mocks.MockBackend{
		DequeueFunc:   func() (*types.Order, error) { return &types.Order{OrderID: 101, RecipeID: 2}, nil },
		CancelledFunc: func(int64) (bool, error) { return true, nil },
	}
	act := mocks.NewMockActuator()
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if len(b.Pushes()) != 0 {
		t.Errorf("status pushes = %v, want none for a pre-cancelled order", b.Pushes())
	}
	if act.Dispatches != 0 {
		t.Errorf("Dispatches = %d, want 0 for a discarded order", act.Dispatches)
	}
	if ctrl.Busy() {
		t.Error("discarded order left a claim held")
	}
}

func TestTickDiscardsInvalidOrderID(t *testing.T) {
	b := &mocks.MockBackend{
		DequeueFunc: func() (*types.Order, error) { return &types.Order{OrderID: 0}, nil },
	}
	act := mocks.NewMockActuator()
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	if len(b.Pushes()) != 0 {
		t.Errorf("status pushes = %v, want none for an invalid order id", b.Pushes())
	}
}

func TestTickProcessesOrder(t *testing.T) {
	b := &mocks.MockBackend{
		DequeueFunc: func() (*types.Order, error) { return &types.Order{OrderID: 101, RecipeID: 2}, nil },
	}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorCompleted)
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	pushes := b.Pushes()
	if len(pushes) != 2 || pushes[0] != types.OrderStatusProcessing || pushes[1] != types.OrderStatusCompleted {
		t.Fatalf("status pushes = %v, want [Processing Completed]", pushes)
	}
	if len(b.Logs()) != 1 {
		t.Errorf("submitted logs = %d, want 1", len(b.Logs()))
	}
}

func TestTickCancellationCheckErrorAssumesActive(t *testing.T) {
	b := &mocks.MockBackend{
		DequeueFunc:   func() (*types.Order, error) { return &types.Order{OrderID: 101, RecipeID: 2}, nil },
		CancelledFunc: func(int64) (bool, error) { return false, errors.New("flaky endpoint") },
	}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorCompleted)
	cat := phoCatalog()
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	p := newTestPoller(b, act, cat, ctrl)
	p.tick(context.Background())

	pushes := b.Pushes()
	if len(pushes) == 0 || pushes[0] != types.OrderStatusProcessing {
		t.Fatalf("status pushes = %v, want the order processed despite the check error", pushes)
	}
}
