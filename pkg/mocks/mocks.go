// Package mocks provides mock implementations of interfaces for testing.
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sousbot/sousbot/pkg/types"
)

// MockBackend is a scriptable backend with call recording.
type MockBackend struct {
	mu sync.Mutex

	RecipesFunc    func(page, pageSize int) ([]types.RecipeRecord, error)
	StepsFunc      func(recipeID int64) ([]types.RecipeStepRecord, error)
	TasksFunc      func(pageNumber, pageSize int) ([]types.StepTaskRecord, error)
	DequeueFunc    func() (*types.Order, error)
	CancelledFunc  func(orderID int64) (bool, error)
	PushStatusFunc func(orderID int64, status types.OrderStatus) error
	SubmitLogFunc  func(record types.OperationLogRecord) error

	RecipeCalls   int
	DequeueCalls  int
	StatusPushes  []types.OrderStatus
	SubmittedLogs []types.OperationLogRecord
}

func (m *MockBackend) FetchActiveRecipes(_ context.Context, page, pageSize int) ([]types.RecipeRecord, error) {
	m.mu.Lock()
	m.RecipeCalls++
	m.mu.Unlock()
	if m.RecipesFunc != nil {
		return m.RecipesFunc(page, pageSize)
	}
	return nil, nil
}

func (m *MockBackend) FetchRecipeSteps(_ context.Context, recipeID int64) ([]types.RecipeStepRecord, error) {
	if m.StepsFunc != nil {
		return m.StepsFunc(recipeID)
	}
	return nil, nil
}

func (m *MockBackend) FetchStepTasks(_ context.Context, pageNumber, pageSize int) ([]types.StepTaskRecord, error) {
	if m.TasksFunc != nil {
		return m.TasksFunc(pageNumber, pageSize)
	}
	return nil, nil
}

func (m *MockBackend) DequeueOrder(_ context.Context) (*types.Order, error) {
	m.mu.Lock()
	m.DequeueCalls++
	m.mu.Unlock()
	if m.DequeueFunc != nil {
		return m.DequeueFunc()
	}
	return nil, nil
}

func (m *MockBackend) IsOrderCancelled(_ context.Context, orderID int64) (bool, error) {
	if m.CancelledFunc != nil {
		return m.CancelledFunc(orderID)
	}
	return false, nil
}

func (m *MockBackend) PushOrderStatus(_ context.Context, orderID int64, status types.OrderStatus) error {
	m.mu.Lock()
	m.StatusPushes = append(m.StatusPushes, status)
	m.mu.Unlock()
	if m.PushStatusFunc != nil {
		return m.PushStatusFunc(orderID, status)
	}
	return nil
}

func (m *MockBackend) SubmitOperationLog(_ context.Context, record types.OperationLogRecord) error {
	m.mu.Lock()
	m.SubmittedLogs = append(m.SubmittedLogs, record)
	m.mu.Unlock()
	if m.SubmitLogFunc != nil {
		return m.SubmitLogFunc(record)
	}
	return nil
}

// Pushes returns a copy of the recorded status pushes.
func (m *MockBackend) Pushes() []types.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.OrderStatus(nil), m.StatusPushes...)
}

// Logs returns a copy of the submitted operation log records.
func (m *MockBackend) Logs() []types.OperationLogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.OperationLogRecord(nil), m.SubmittedLogs...)
}

// MockActuator records fine-grained calls and serves a scriptable status.
type MockActuator struct {
	mu sync.Mutex

	StatusVal   types.ActuatorStatus
	CanServeVal bool
	BusyVal     bool

	MoveErr     error
	CloseErr    error
	OpenErr     error
	TransferErr error
	DispatchErr error

	Moves         []string
	Transfers     []string
	GripperCloses int
	GripperOpens  int
	Dispatches    int
	logLines      []string
}

// NewMockActuator returns an idle actuator with an open serving gate.
func NewMockActuator() *MockActuator {
	return &MockActuator{StatusVal: types.ActuatorIdle, CanServeVal: true}
}

func (m *MockActuator) Dispatch(_ context.Context, _ *types.Order, recipeName string, _ []string) error {
	m.mu.Lock()
	m.Dispatches++
	m.logLines = append(m.logLines, "dispatched "+recipeName)
	m.mu.Unlock()
	return m.DispatchErr
}

func (m *MockActuator) IsBusy() bool { return m.BusyVal }

func (m *MockActuator) Status() types.ActuatorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StatusVal
}

// SetStatus changes the reported status, typically from a test goroutine.
func (m *MockActuator) SetStatus(s types.ActuatorStatus) {
	m.mu.Lock()
	m.StatusVal = s
	m.mu.Unlock()
}

func (m *MockActuator) Log() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.logLines, "\n")
}

func (m *MockActuator) CanServe() bool { return m.CanServeVal }

func (m *MockActuator) Move(_ context.Context, description string) error {
	m.mu.Lock()
	m.Moves = append(m.Moves, description)
	m.mu.Unlock()
	return m.MoveErr
}

func (m *MockActuator) CloseGripper(_ context.Context) error {
	m.mu.Lock()
	m.GripperCloses++
	m.mu.Unlock()
	return m.CloseErr
}

func (m *MockActuator) OpenGripper(_ context.Context) error {
	m.mu.Lock()
	m.GripperOpens++
	m.mu.Unlock()
	return m.OpenErr
}

func (m *MockActuator) TransferIngredient(_ context.Context, ingredient string) error {
	m.mu.Lock()
	m.Transfers = append(m.Transfers, ingredient)
	m.mu.Unlock()
	return m.TransferErr
}

// MockCatalog serves a fixed recipe set and operations map.
type MockCatalog struct {
	OperationalVal bool
	RecipesVal     []types.Recipe
	Ops            map[string][]types.OperationStep
}

func (m *MockCatalog) Operational() bool       { return m.OperationalVal }
func (m *MockCatalog) Recipes() []types.Recipe { return m.RecipesVal }

func (m *MockCatalog) RecipeByID(id int64) (types.Recipe, bool) {
	for _, r := range m.RecipesVal {
		if r.ID == id {
			return r, true
		}
	}
	return types.Recipe{}, false
}

func (m *MockCatalog) RandomRecipe() (types.Recipe, bool) {
	if len(m.RecipesVal) == 0 {
		return types.Recipe{}, false
	}
	return m.RecipesVal[0], true
}

func (m *MockCatalog) OperationsFor(ingredient string) ([]types.OperationStep, bool) {
	ops, ok := m.Ops[strings.ToLower(ingredient)]
	if !ok || len(ops) == 0 {
		return nil, false
	}
	return ops, true
}

// MockNotifier records notifications.
type MockNotifier struct {
	mu        sync.Mutex
	Starts    []int64
	Successes []int64
	Failures  []int64
}

func (m *MockNotifier) NotifyOrderStart(orderID int64, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Starts = append(m.Starts, orderID)
}

func (m *MockNotifier) NotifyOrderSuccess(orderID int64, _ string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Successes = append(m.Successes, orderID)
}

func (m *MockNotifier) NotifyOrderFailure(orderID int64, _ string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, orderID)
}

// MockStatusSink records the engine state mirror.
type MockStatusSink struct {
	mu           sync.Mutex
	Operational  bool
	CurrentOrder int64
	Messages     []string
	Outcomes     []types.OrderOutcome
}

func (m *MockStatusSink) SetOperational(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Operational = ok
}

func (m *MockStatusSink) SetCurrentOrder(orderID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentOrder = orderID
}

func (m *MockStatusSink) ClearCurrentOrder() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CurrentOrder = 0
}

func (m *MockStatusSink) SetMessage(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
}

func (m *MockStatusSink) RecordOutcome(outcome types.OrderOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}
