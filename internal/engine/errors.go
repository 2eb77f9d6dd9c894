package engine

import "errors"

// Sentinel errors for the orchestration pipeline. Per-order failures are
// translated into a backend status push at the controller boundary and
// never propagate far enough to crash the poll loop.
var (
	// ErrOrderInFlight is returned when a claim is attempted while
	// another order is being processed.
	ErrOrderInFlight = errors.New("an order is already in flight")

	// ErrNoRecipesAvailable means the catalog holds no recipes at all;
	// the current order fails immediately.
	ErrNoRecipesAvailable = errors.New("no recipes available")

	// ErrActuatorTimeout means the actuator never reached a terminal
	// status within the monitor budget.
	ErrActuatorTimeout = errors.New("actuator did not reach a terminal status in time")

	// ErrOrderCancelled marks the normal cancellation path; it is not
	// reported to the backend as a failure.
	ErrOrderCancelled = errors.New("order cancelled")

	// ErrActuatorFailed means the actuator reported a Failed terminal
	// status.
	ErrActuatorFailed = errors.New("actuator reported failure")

	// ErrStatusPushFailed means the Processing push did not reach the
	// backend, so the order is aborted rather than letting the remote
	// view diverge silently.
	ErrStatusPushFailed = errors.New("could not report Processing status")
)
