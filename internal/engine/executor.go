package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/oplog"
	"github.com/sousbot/sousbot/pkg/types"
)

// TaskExecutor drives one recipe's ingredients through the actuator,
// strictly sequentially: ingredient order, then step order, then repeat
// order. A single failing step is logged and skipped over; the order's
// final pass/fail comes from the actuator's terminal status, not from
// individual task errors.
type TaskExecutor struct {
	actuator interfaces.Actuator
	catalog  interfaces.Catalog
	oplog    *oplog.Logger
	log      logger.Logger
	metrics  *metrics.Metrics
	cfg      func() types.EngineConfig
}

// NewTaskExecutor wires an executor.
func NewTaskExecutor(
	act interfaces.Actuator,
	cat interfaces.Catalog,
	ol *oplog.Logger,
	log logger.Logger,
	m *metrics.Metrics,
	cfg func() types.EngineConfig,
) *TaskExecutor {
	return &TaskExecutor{
		actuator: act,
		catalog:  cat,
		oplog:    ol,
		log:      log,
		metrics:  m,
		cfg:      cfg,
	}
}

// Run executes every ingredient of the recipe and then hands the full
// recipe to the actuator. It returns an error only for cancellation or a
// dispatch failure, never for individual step errors.
func (x *TaskExecutor) Run(ctx context.Context, order *types.Order, recipe types.Recipe) error {
	cfg := x.cfg()
	log := x.log.WithOrder(order.OrderID)

	for i, ingredient := range recipe.Ingredients {
		if err := ctx.Err(); err != nil {
			return err
		}

		steps, ok := x.catalog.OperationsFor(ingredient)
		if !ok {
			x.runDefaultStep(ctx, ingredient, cfg, log)
		} else {
			x.runSteps(ctx, ingredient, steps, cfg, log)
		}

		if i < len(recipe.Ingredients)-1 {
			if err := sleepCtx(ctx, cfg.IngredientPause()); err != nil {
				return err
			}
		}
	}

	// A cancellation during the last ingredient's steps returns here
	// without tripping the pause check above; the recipe must not reach
	// the actuator once the order is cancelled.
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Debug("all ingredients executed, dispatching recipe",
		logger.WithField("recipe", recipe.Name))
	if err := x.actuator.Dispatch(ctx, order, recipe.Name, recipe.Ingredients); err != nil {
		return fmt.Errorf("dispatching recipe to actuator: %w", err)
	}
	return nil
}

// runSteps executes one ingredient's resolved operation list with repeat
// handling.
func (x *TaskExecutor) runSteps(ctx context.Context, ingredient string, steps []types.OperationStep, cfg types.EngineConfig, log logger.Logger) {
	for _, step := range steps {
		repeats := step.RepeatCount
		if repeats < 1 {
			repeats = 1
		}
		for k := 1; k <= repeats; k++ {
			if ctx.Err() != nil {
				return
			}
			description := step.Description
			if repeats > 1 {
				description = fmt.Sprintf("%s (%d/%d)", description, k, repeats)
			}

			result := x.executeStep(ctx, ingredient, description, step, cfg)
			x.oplog.Task(description, result.Success, result.Duration)
			x.metrics.TaskExecuted(result.Duration, result.Success)

			if k < repeats {
				if sleepCtx(ctx, cfg.RepeatPause()) != nil {
					return
				}
			}
		}
	}
}

// runDefaultStep covers ingredients with no resolved operations: one
// nominal-duration step, then a bare ingredient transfer.
func (x *TaskExecutor) runDefaultStep(ctx context.Context, ingredient string, cfg types.EngineConfig, log logger.Logger) {
	log.Debug("no operations resolved, using default step",
		logger.WithField("ingredient", ingredient))

	description := fmt.Sprintf("prepare %s", ingredient)
	start := time.Now()
	err := sleepCtx(ctx, cfg.DefaultStepDuration())
	if err == nil {
		err = x.actuator.TransferIngredient(ctx, ingredient)
	}
	duration := time.Since(start)

	if err != nil {
		log.Warn("default step failed",
			logger.WithField("ingredient", ingredient),
			logger.WithField("error", err))
	}
	x.oplog.Task(description, err == nil, duration)
	x.metrics.TaskExecuted(duration, err == nil)
}

// executeStep dispatches a single step-repeat and measures its duration.
// The duration is recorded even when the dispatch errors or panics.
func (x *TaskExecutor) executeStep(ctx context.Context, ingredient, description string, step types.OperationStep, cfg types.EngineConfig) types.TaskResult {
	class := ClassifyAction(step.Description)
	band := cfg.Band(class)
	if step.EstimatedTime > 0 {
		band = step.EstimatedTime
	}

	start := time.Now()
	err := x.dispatchStep(ctx, class, ingredient, description, band)
	duration := time.Since(start)

	if err != nil {
		x.log.Warn("task dispatch failed",
			logger.WithField("task", description),
			logger.WithField("class", class),
			logger.WithField("error", err))
		return types.TaskResult{Success: false, Duration: duration}
	}
	return types.TaskResult{Success: true, Duration: duration}
}

// dispatchStep performs the actuator call pair for the step's class. A
// panic escaping the actuator is converted to an error so it stays local
// to this task.
func (x *TaskExecutor) dispatchStep(ctx context.Context, class types.ActionClass, ingredient, description string, band time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actuator panicked: %v", r)
		}
	}()

	if err := sleepCtx(ctx, band); err != nil {
		return err
	}

	switch class {
	case types.ActionPickUp:
		if err := x.actuator.Move(ctx, description); err != nil {
			return err
		}
		return x.actuator.CloseGripper(ctx)
	case types.ActionPlace:
		if err := x.actuator.TransferIngredient(ctx, ingredient); err != nil {
			return err
		}
		return x.actuator.OpenGripper(ctx)
	default: // movement and generic steps are a plain motion
		return x.actuator.Move(ctx, description)
	}
}

// Sub-phrases used to classify free-text step descriptions. The data is
// bilingual (Vietnamese recipes with occasional English task text), so
// both vocabularies are matched, case-insensitively.
var (
	pickUpPhrases   = []string{"pick", "grab", "gắp", "lấy", "nhặt"}
	placePhrases    = []string{"place", "pour", "put", "add", "đổ", "rót", "chan", "thêm", "cho vào", "bỏ vào"}
	movementPhrases = []string{"move", "lift", "lower", "di chuyển", "đưa", "nâng", "hạ"}
)

// ClassifyAction buckets a step description into an action class. This
// only picks the timing band and actuator call pair; it never changes the
// logical outcome of a task.
func ClassifyAction(description string) types.ActionClass {
	text := strings.ToLower(description)
	switch {
	case containsAnyPhrase(text, pickUpPhrases):
		return types.ActionPickUp
	case containsAnyPhrase(text, placePhrases):
		return types.ActionPlace
	case containsAnyPhrase(text, movementPhrases):
		return types.ActionMovement
	default:
		return types.ActionGeneric
	}
}

func containsAnyPhrase(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// sleepCtx pauses for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
