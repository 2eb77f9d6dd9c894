package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/mocks"
	"github.com/sousbot/sousbot/pkg/oplog"
	"github.com/sousbot/sousbot/pkg/types"
)

var phoRecipe = types.Recipe{
	ID:          2,
	Name:        "Phở bò",
	Ingredients: []string{"Bánh phở", "thịt bò", "hành", "rau thơm", "nước dùng"},
}

func phoCatalog() *mocks.MockCatalog {
	return &mocks.MockCatalog{
		OperationalVal: true,
		RecipesVal:     []types.Recipe{phoRecipe},
		Ops: map[string][]types.OperationStep{
			"bánh phở":  {{Description: "lấy bánh phở", RepeatCount: 1}},
			"nước dùng": {{Description: "chan nước dùng", RepeatCount: 2}},
			// thịt bò, hành and rau thơm resolve nothing and use the
			// default preparation step.
		},
	}
}

func newTestController(b *mocks.MockBackend, act *mocks.MockActuator, cat *mocks.MockCatalog, n *mocks.MockNotifier, sink *mocks.MockStatusSink) (*Controller, *oplog.Logger) {
	ol := oplog.New()
	ctrl := NewController(b, act, cat, n, sink, metrics.New(nil), ol, quietLogger(), fastEngineConfig)
	return ctrl, ol
}

func TestProcessCompletesPhoOrder(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorCompleted)
	n := &mocks.MockNotifier{}
	sink := &mocks.MockStatusSink{}
	ctrl, _ := newTestController(b, act, phoCatalog(), n, sink)

	order := &types.Order{OrderID: 101, RecipeID: 2}
	if err := ctrl.Process(context.Background(), order); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	pushes := b.Pushes()
	want := []types.OrderStatus{types.OrderStatusProcessing, types.OrderStatusCompleted}
	if len(pushes) != len(want) || pushes[0] != want[0] || pushes[1] != want[1] {
		t.Fatalf("status pushes = %v, want %v", pushes, want)
	}

	logs := b.Logs()
	if len(logs) != 1 {
		t.Fatalf("submitted logs = %d, want 1", len(logs))
	}
	text := logs[0].LogText
	if !strings.Contains(text, "processing order #101, recipe Phở bò") {
		t.Errorf("log missing header:\n%s", text)
	}
	for _, fragment := range []string{
		"lấy bánh phở",
		"chan nước dùng (1/2)",
		"chan nước dùng (2/2)",
		"prepare thịt bò",
		"prepare hành",
		"prepare rau thơm",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("log missing %q:\n%s", fragment, text)
		}
	}
	if !strings.Contains(text, "order #101 finished in") || !strings.Contains(text, "[Success]") {
		t.Errorf("log missing success summary:\n%s", text)
	}

	if len(n.Starts) != 1 || len(n.Successes) != 1 || len(n.Failures) != 0 {
		t.Errorf("notifications = start %v success %v failure %v", n.Starts, n.Successes, n.Failures)
	}
	if len(sink.Outcomes) != 1 || sink.Outcomes[0] != types.OutcomeCompleted {
		t.Errorf("recorded outcomes = %v, want [Completed]", sink.Outcomes)
	}
	if ctrl.Busy() {
		t.Error("claim not released after completion")
	}
}

func TestProcessRejectsSecondClaim(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	ctrl, _ := newTestController(b, act, phoCatalog(), &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	token, ok := ctrl.acquire()
	if !ok {
		t.Fatal("initial claim failed")
	}
	defer ctrl.release(token)

	err := ctrl.Process(context.Background(), &types.Order{OrderID: 102, RecipeID: 2})
	if !errors.Is(err, ErrOrderInFlight) {
		t.Fatalf("Process() error = %v, want ErrOrderInFlight", err)
	}
	if len(b.Pushes()) != 0 {
		t.Errorf("status pushes = %v, want none for a rejected claim", b.Pushes())
	}
}

func TestProcessEmptyCatalogFailsOrder(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	cat := &mocks.MockCatalog{OperationalVal: true}
	ctrl, _ := newTestController(b, act, cat, &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	err := ctrl.Process(context.Background(), &types.Order{OrderID: 103, RecipeID: 2})
	if !errors.Is(err, ErrNoRecipesAvailable) {
		t.Fatalf("Process() error = %v, want ErrNoRecipesAvailable", err)
	}

	pushes := b.Pushes()
	if len(pushes) != 2 || pushes[1] != types.OrderStatusFailed {
		t.Errorf("status pushes = %v, want [Processing Failed]", pushes)
	}
	if len(b.Logs()) != 0 {
		t.Errorf("operation log submitted for a failed order")
	}
	if ctrl.Busy() {
		t.Error("claim not released after failure")
	}
}

func TestProcessAbortsWhenProcessingPushFails(t *testing.T) {
	b := &mocks.MockBackend{
		PushStatusFunc: func(_ int64, status types.OrderStatus) error {
			if status == types.OrderStatusProcessing {
				return errors.New("backend unreachable")
			}
			return nil
		},
	}
	act := mocks.NewMockActuator()
	ctrl, _ := newTestController(b, act, phoCatalog(), &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	err := ctrl.Process(context.Background(), &types.Order{OrderID: 104, RecipeID: 2})
	if !errors.Is(err, ErrStatusPushFailed) {
		t.Fatalf("Process() error = %v, want ErrStatusPushFailed", err)
	}
	if act.Dispatches != 0 {
		t.Errorf("Dispatches = %d, want 0 when the order is aborted", act.Dispatches)
	}
	if ctrl.Busy() {
		t.Error("claim not released after abort")
	}
}

func TestProcessUnknownRecipeFallsBackToRandom(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorCompleted)
	ctrl, _ := newTestController(b, act, phoCatalog(), &mocks.MockNotifier{}, &mocks.MockStatusSink{})

	if err := ctrl.Process(context.Background(), &types.Order{OrderID: 105, RecipeID: 99}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	logs := b.Logs()
	if len(logs) != 1 {
		t.Fatalf("submitted logs = %d, want 1", len(logs))
	}
	if !strings.Contains(logs[0].LogText, "recipe Phở bò") {
		t.Errorf("fallback recipe not used:\n%s", logs[0].LogText)
	}
}

func TestProcessTimeoutReportsFailed(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorProcessing) // never terminal
	n := &mocks.MockNotifier{}
	sink := &mocks.MockStatusSink{}
	ctrl, _ := newTestController(b, act, phoCatalog(), n, sink)

	err := ctrl.Process(context.Background(), &types.Order{OrderID: 106, RecipeID: 2})
	if !errors.Is(err, ErrActuatorTimeout) {
		t.Fatalf("Process() error = %v, want ErrActuatorTimeout", err)
	}

	pushes := b.Pushes()
	if len(pushes) != 2 || pushes[1] != types.OrderStatusFailed {
		t.Errorf("status pushes = %v, want [Processing Failed]", pushes)
	}
	if len(b.Logs()) != 0 {
		t.Errorf("operation log submitted for a timed-out order")
	}
	if len(n.Failures) != 1 {
		t.Errorf("failure notifications = %v, want one", n.Failures)
	}
	if len(sink.Outcomes) != 1 || sink.Outcomes[0] != types.OutcomeTimedOut {
		t.Errorf("recorded outcomes = %v, want [TimedOut]", sink.Outcomes)
	}
}

func TestProcessCancellationSkipsFailedPush(t *testing.T) {
	b := &mocks.MockBackend{}
	act := mocks.NewMockActuator()
	act.SetStatus(types.ActuatorProcessing)
	n := &mocks.MockNotifier{}
	ctrl, _ := newTestController(b, act, phoCatalog(), n, &mocks.MockStatusSink{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := ctrl.Process(ctx, &types.Order{OrderID: 107, RecipeID: 2})
	if !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("Process() error = %v, want ErrOrderCancelled", err)
	}

	pushes := b.Pushes()
	if len(pushes) != 1 || pushes[0] != types.OrderStatusProcessing {
		t.Errorf("status pushes = %v, want [Processing] only", pushes)
	}
	if len(n.Failures) != 0 {
		t.Errorf("cancellation must not notify failure, got %v", n.Failures)
	}
	if ctrl.Busy() {
		t.Error("claim not released after cancellation")
	}
}
