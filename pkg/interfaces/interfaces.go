// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"
	"time"

	"github.com/sousbot/sousbot/pkg/types"
)

// Backend is the logical contract of the remote fulfillment API.
// Transport details live in pkg/backend.
type Backend interface {
	// FetchActiveRecipes returns one page of recipes. Inactive recipes are
	// filtered client-side by the caller.
	FetchActiveRecipes(ctx context.Context, page, pageSize int) ([]types.RecipeRecord, error)
	// FetchRecipeSteps returns the ordered textual steps of one recipe.
	FetchRecipeSteps(ctx context.Context, recipeID int64) ([]types.RecipeStepRecord, error)
	// FetchStepTasks returns one page of fine-grained actuator tasks.
	FetchStepTasks(ctx context.Context, pageNumber, pageSize int) ([]types.StepTaskRecord, error)
	// DequeueOrder returns the next queued order, or (nil, nil) when the
	// queue is empty.
	DequeueOrder(ctx context.Context) (*types.Order, error)
	// IsOrderCancelled checks the backend's cancellation flag for an order.
	// A response that cannot be parsed is reported as not cancelled.
	IsOrderCancelled(ctx context.Context, orderID int64) (bool, error)
	// PushOrderStatus reports a lifecycle status transition.
	PushOrderStatus(ctx context.Context, orderID int64, status types.OrderStatus) error
	// SubmitOperationLog persists the structured operation log of a
	// completed order.
	SubmitOperationLog(ctx context.Context, record types.OperationLogRecord) error
}

// Actuator is the external system that performs preparation work. The
// engine only ever sees this status-level contract, never kinematics.
type Actuator interface {
	// Dispatch hands the full recipe to the actuator after the per-step
	// sequence has been driven.
	Dispatch(ctx context.Context, order *types.Order, recipeName string, ingredients []string) error
	IsBusy() bool
	Status() types.ActuatorStatus
	Log() string
	// CanServe reports whether the serving/output stage can accept a new
	// order (e.g. the previous bowl has been collected).
	CanServe() bool

	// Fine-grained step operations driven by the task executor.
	Move(ctx context.Context, description string) error
	CloseGripper(ctx context.Context) error
	OpenGripper(ctx context.Context) error
	TransferIngredient(ctx context.Context, ingredient string) error
}

// Catalog exposes the loaded recipe set and resolved ingredient operations.
type Catalog interface {
	// Operational reports whether bootstrap succeeded. The poller never
	// claims orders while the catalog is non-operational.
	Operational() bool
	Recipes() []types.Recipe
	RecipeByID(id int64) (types.Recipe, bool)
	RandomRecipe() (types.Recipe, bool)
	// OperationsFor is total over loaded ingredients: a missing entry is
	// reported via ok=false, never an error.
	OperationsFor(ingredient string) ([]types.OperationStep, bool)
}

// Matcher attributes one textual recipe step to an ingredient. Pluggable
// so the heuristic can be swapped and tested independently.
type Matcher interface {
	MatchIngredient(stepText string, candidates []string) string
}

// OrderNotifier surfaces order outcomes to the operator.
type OrderNotifier interface {
	NotifyOrderStart(orderID int64, recipe string)
	NotifyOrderSuccess(orderID int64, recipe string, duration time.Duration)
	NotifyOrderFailure(orderID int64, recipe string, err error)
}

// StatusSink mirrors engine state for operator visibility.
type StatusSink interface {
	SetOperational(ok bool)
	SetCurrentOrder(orderID int64)
	ClearCurrentOrder()
	SetMessage(message string)
	RecordOutcome(outcome types.OrderOutcome)
}
