// Package types provides core types and configurations for Sousbot
package types

import (
	"time"
)

// OrderStatus represents the lifecycle status of a fulfillment order
type OrderStatus string

const (
	OrderStatusQueued     OrderStatus = "Queued"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusFailed     OrderStatus = "Failed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Order is one customer request pulled from the backend queue.
// It is owned by the lifecycle controller for the duration of processing
// and dereferenced once a terminal status has been reported.
type Order struct {
	OrderID     int64       `json:"orderId"`
	RecipeID    int64       `json:"recipeId"`
	RobotID     int64       `json:"robotId"`
	LocationID  int64       `json:"locationId"`
	Status      OrderStatus `json:"status"`
	OrderedTime time.Time   `json:"orderedTime"`
}

// Recipe is a named dish definition with an ordered ingredient list.
// Ingredient order is significant: it is the default task ordering.
type Recipe struct {
	ID          int64
	Name        string
	Ingredients []string
}

// OperationStep is one unit of actuator work, possibly repeated.
type OperationStep struct {
	Description   string
	EstimatedTime time.Duration
	RepeatCount   int
}

// TaskResult is the transient outcome of a single executed step-repeat.
type TaskResult struct {
	Success  bool
	Duration time.Duration
}

// OrderOutcome is the terminal result of one order's processing pipeline.
type OrderOutcome string

const (
	OutcomeCompleted OrderOutcome = "Completed"
	OutcomeFailed    OrderOutcome = "Failed"
	OutcomeTimedOut  OrderOutcome = "TimedOut"
	OutcomeCancelled OrderOutcome = "Cancelled"
)

// Failed reports whether the outcome maps to a backend "Failed" push.
// TimedOut keeps its own error kind but is reported as a failure.
func (o OrderOutcome) Failed() bool {
	return o == OutcomeFailed || o == OutcomeTimedOut
}

// ActuatorStatus is the coarse lifecycle state reported by the actuator.
type ActuatorStatus string

const (
	ActuatorIdle       ActuatorStatus = "Idle"
	ActuatorProcessing ActuatorStatus = "Processing"
	ActuatorCompleted  ActuatorStatus = "Completed"
	ActuatorFailed     ActuatorStatus = "Failed"
)

// ActionClass classifies a step description into a timing/dispatch band.
// Classification is a display and timing aid only; it never changes the
// logical outcome of a task.
type ActionClass string

const (
	ActionMovement ActionClass = "movement"
	ActionPickUp   ActionClass = "pickup"
	ActionPlace    ActionClass = "place"
	ActionGeneric  ActionClass = "generic"
)

// OperationLogRecord is the structured log submitted to the backend when
// an order completes.
type OperationLogRecord struct {
	OrderID   int64       `json:"orderId"`
	RobotID   int64       `json:"robotId"`
	StartTime time.Time   `json:"startTime"`
	EndTime   time.Time   `json:"endTime"`
	Status    OrderStatus `json:"status"`
	LogText   string      `json:"logText"`
}

// RecipeRecord is the wire shape of one active recipe.
type RecipeRecord struct {
	RecipeID    int64  `json:"recipeId"`
	RecipeName  string `json:"recipeName"`
	Ingredients string `json:"ingredients"` // comma-separated
	IsActive    bool   `json:"isActive"`
}

// RecipeStepRecord is the wire shape of one textual recipe step.
type RecipeStepRecord struct {
	StepID          int64  `json:"stepId"`
	StepDescription string `json:"stepDescription"`
	StepNumber      int    `json:"stepNumber"`
}

// StepTaskRecord is the wire shape of one fine-grained actuator task.
type StepTaskRecord struct {
	StepTaskID      int64  `json:"stepTaskId"`
	StepID          int64  `json:"stepId"`
	TaskDescription string `json:"taskDescription"`
	TaskOrder       int    `json:"taskOrder"`
	EstimatedTime   string `json:"estimatedTime"` // "HH:MM:SS" or Go duration
	RepeatCount     int    `json:"repeatCount"`
}
