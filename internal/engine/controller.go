package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/oplog"
	"github.com/sousbot/sousbot/pkg/types"
)

// claimToken proves ownership of the single in-flight order slot. Only
// the holder of the current token can release the claim, so a stray
// release from another code path can never free a claim it does not own.
type claimToken struct {
	id string
}

// Controller owns the per-order state machine:
//
//	Waiting → Processing → {Completed | Failed | Cancelled}
//
// Waiting is implicit (no claim held). At most one order is ever in
// flight; the claim is released exactly once on every exit path.
type Controller struct {
	backend  interfaces.Backend
	catalog  interfaces.Catalog
	notifier interfaces.OrderNotifier
	status   interfaces.StatusSink
	metrics  *metrics.Metrics
	oplog    *oplog.Logger
	log      logger.Logger
	cfg      func() types.EngineConfig

	executor *TaskExecutor
	monitor  *CompletionMonitor

	mu    sync.Mutex
	owner string // empty while Waiting
}

// NewController wires a lifecycle controller.
func NewController(
	b interfaces.Backend,
	act interfaces.Actuator,
	cat interfaces.Catalog,
	n interfaces.OrderNotifier,
	status interfaces.StatusSink,
	m *metrics.Metrics,
	ol *oplog.Logger,
	log logger.Logger,
	cfg func() types.EngineConfig,
) *Controller {
	return &Controller{
		backend:  b,
		catalog:  cat,
		notifier: n,
		status:   status,
		metrics:  m,
		oplog:    ol,
		log:      log,
		cfg:      cfg,
		executor: NewTaskExecutor(act, cat, ol, log, m, cfg),
		monitor:  NewCompletionMonitor(act, log, cfg),
	}
}

// Busy reports whether an order is currently claimed.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner != ""
}

// acquire takes the single-flight claim. It fails while another order is
// in flight.
func (c *Controller) acquire() (*claimToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != "" {
		return nil, false
	}
	token := &claimToken{id: uuid.NewString()}
	c.owner = token.id
	return token, true
}

// release frees the claim if token is the current owner.
func (c *Controller) release(token *claimToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == token.id {
		c.owner = ""
	}
}

// Process runs one order through the full pipeline. All per-order
// failures are translated into a backend status push here; nothing
// escapes to crash the poll loop.
func (c *Controller) Process(ctx context.Context, order *types.Order) error {
	token, ok := c.acquire()
	if !ok {
		return ErrOrderInFlight
	}
	defer c.release(token)

	log := c.log.WithOrder(order.OrderID)
	started := time.Now()

	c.status.SetCurrentOrder(order.OrderID)
	defer c.status.ClearCurrentOrder()

	// The remote system's view must not diverge silently: if Processing
	// cannot be reported, the order is aborted rather than worked on
	// invisibly.
	if err := c.backend.PushOrderStatus(ctx, order.OrderID, types.OrderStatusProcessing); err != nil {
		log.Error("failed to push Processing status", logger.WithField("error", err))
		c.metrics.BackendError("push order status")
		c.finish(ctx, order, types.OutcomeFailed, started, "", log)
		return fmt.Errorf("%w: %v", ErrStatusPushFailed, err)
	}
	c.statusMessage(fmt.Sprintf("processing order #%d", order.OrderID))

	recipe, note, err := c.selectRecipe(order, log)
	if err != nil {
		c.finish(ctx, order, types.OutcomeFailed, started, "", log)
		return err
	}

	c.oplog.Begin(order.OrderID, recipe.Name)
	if note != "" {
		c.oplog.Note(note)
	}
	c.notifier.NotifyOrderStart(order.OrderID, recipe.Name)

	if err := c.executor.Run(ctx, order, recipe); err != nil {
		if ctx.Err() != nil {
			c.finish(ctx, order, types.OutcomeCancelled, started, recipe.Name, log)
			return ErrOrderCancelled
		}
		log.Error("recipe dispatch failed", logger.WithField("error", err))
		c.finish(ctx, order, types.OutcomeFailed, started, recipe.Name, log)
		return err
	}

	outcome := c.monitor.Wait(ctx, order.OrderID)
	c.finish(ctx, order, outcome, started, recipe.Name, log)

	switch outcome {
	case types.OutcomeCompleted:
		return nil
	case types.OutcomeCancelled:
		return ErrOrderCancelled
	case types.OutcomeTimedOut:
		return ErrActuatorTimeout
	default:
		return ErrActuatorFailed
	}
}

// finish reports the terminal outcome: status push, operation log
// submission on success, notifications and bookkeeping. Cancellation is
// a normal terminal path and performs no Failed push.
func (c *Controller) finish(ctx context.Context, order *types.Order, outcome types.OrderOutcome, started time.Time, recipeName string, log logger.Logger) {
	elapsed := time.Since(started)
	if recipeName != "" {
		// Begin ran, so the summary line belongs to this order's log.
		c.oplog.Finish(outcome, elapsed)
	}

	switch {
	case outcome == types.OutcomeCompleted:
		if err := c.backend.PushOrderStatus(ctx, order.OrderID, types.OrderStatusCompleted); err != nil {
			log.Error("failed to push Completed status", logger.WithField("error", err))
			c.metrics.BackendError("push order status")
		}
		record := types.OperationLogRecord{
			OrderID:   order.OrderID,
			RobotID:   order.RobotID,
			StartTime: started,
			EndTime:   started.Add(elapsed),
			Status:    types.OrderStatusCompleted,
			LogText:   c.oplog.Text(),
		}
		if err := c.backend.SubmitOperationLog(ctx, record); err != nil {
			log.Error("failed to submit operation log", logger.WithField("error", err))
			c.metrics.BackendError("submit operation log")
		}
		c.notifier.NotifyOrderSuccess(order.OrderID, recipeName, elapsed)
		log.Success("order completed", logger.WithField("elapsed", elapsed.Round(time.Millisecond)))
		c.statusMessage(fmt.Sprintf("order #%d completed in %s", order.OrderID, elapsed.Round(time.Second)))

	case outcome == types.OutcomeCancelled:
		log.Info("order cancelled")
		c.statusMessage(fmt.Sprintf("order #%d cancelled", order.OrderID))

	default: // Failed and TimedOut both report Failed upstream
		if err := c.backend.PushOrderStatus(ctx, order.OrderID, types.OrderStatusFailed); err != nil {
			log.Error("failed to push Failed status", logger.WithField("error", err))
			c.metrics.BackendError("push order status")
		}
		c.notifier.NotifyOrderFailure(order.OrderID, recipeName, outcomeError(outcome))
		log.Error("order failed", logger.WithField("outcome", outcome))
		c.statusMessage(fmt.Sprintf("order #%d failed (%s)", order.OrderID, outcome))
	}

	c.metrics.OrderFinished(outcome, elapsed)
	c.status.RecordOutcome(outcome)
}

func outcomeError(outcome types.OrderOutcome) error {
	if outcome == types.OutcomeTimedOut {
		return ErrActuatorTimeout
	}
	return ErrActuatorFailed
}

// selectRecipe resolves which recipe the order should produce. Random
// mode or an unknown recipe id falls back to a uniformly random loaded
// recipe; an empty catalog fails the order immediately. The returned
// note, if any, is recorded in the operation log after the header.
func (c *Controller) selectRecipe(order *types.Order, log logger.Logger) (types.Recipe, string, error) {
	note := ""
	if !c.cfg().RandomRecipeMode {
		if recipe, ok := c.catalog.RecipeByID(order.RecipeID); ok {
			return recipe, "", nil
		}
		if len(c.catalog.Recipes()) == 0 {
			log.Error("no recipes loaded, failing order")
			return types.Recipe{}, "", ErrNoRecipesAvailable
		}
		log.Warn("order recipe not in catalog, falling back to random",
			logger.WithField("recipe_id", order.RecipeID))
		note = fmt.Sprintf("recipe %d not found, random fallback", order.RecipeID)
	}

	recipe, ok := c.catalog.RandomRecipe()
	if !ok {
		log.Error("no recipes loaded, failing order")
		return types.Recipe{}, "", ErrNoRecipesAvailable
	}
	return recipe, note, nil
}

func (c *Controller) statusMessage(message string) {
	c.status.SetMessage(message)
}
