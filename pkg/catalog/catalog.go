// Package catalog builds and serves the ingredient-to-operations map.
//
// The catalog is assembled from three independently fetched collections
// (active recipes, per-recipe textual steps, and a paginated flat list of
// actuator tasks keyed by step id) joined by recipe/step identifiers. A
// finished build is published as an immutable snapshot that is swapped
// atomically, so readers never observe a partially updated map.
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sousbot/sousbot/pkg/backend"
	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/types"
)

// Catalog owns the loaded recipe set and resolved ingredient operations.
type Catalog struct {
	backend interfaces.Backend
	matcher interfaces.Matcher
	log     logger.Logger
	cfg     types.CatalogConfig

	snapshot    atomic.Pointer[snapshot]
	operational atomic.Bool

	randMu sync.Mutex
	rand   *rand.Rand
}

// snapshot is one immutable catalog build.
type snapshot struct {
	recipes []types.Recipe
	byID    map[int64]types.Recipe
	ops     map[string][]types.OperationStep // keyed by lowercased ingredient
}

// New creates an unloaded catalog.
func New(b interfaces.Backend, m interfaces.Matcher, log logger.Logger, cfg types.CatalogConfig) *Catalog {
	return &Catalog{
		backend: b,
		matcher: m,
		log:     log,
		cfg:     cfg,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Load bootstraps the catalog, retrying failed builds with exponential
// backoff (initial delay doubling each attempt). Exhausting the retries
// leaves the catalog non-operational; there is no automatic recovery.
func (c *Catalog) Load(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialRetryDelay()
	bo.RandomizationFactor = 0
	bo.Multiplier = 2

	attempt := 0
	operation := func() (*snapshot, error) {
		attempt++
		snap, err := c.build(ctx)
		if err != nil {
			c.log.Warn("catalog build failed",
				logger.WithField("attempt", attempt),
				logger.WithField("error", err))
			return nil, err
		}
		return snap, nil
	}

	snap, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.Retries()+1)),
	)
	if err != nil {
		c.operational.Store(false)
		return fmt.Errorf("catalog bootstrap exhausted %d retries: %w", c.cfg.Retries(), err)
	}

	c.snapshot.Store(snap)
	c.operational.Store(true)
	c.log.Success("catalog loaded",
		logger.WithField("recipes", len(snap.recipes)),
		logger.WithField("ingredients", len(snap.ops)))
	return nil
}

// build performs one full fetch-and-join pass.
func (c *Catalog) build(ctx context.Context) (*snapshot, error) {
	pageSize := c.cfg.EffectivePageSize()

	var records []types.RecipeRecord
	for page := 1; ; page++ {
		batch, err := c.backend.FetchActiveRecipes(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching recipes page %d: %w", page, err)
		}
		records = append(records, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("backend returned no active recipes")
	}

	var tasks []types.StepTaskRecord
	for page := 1; ; page++ {
		batch, err := c.backend.FetchStepTasks(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching step tasks page %d: %w", page, err)
		}
		tasks = append(tasks, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	tasksByStep := make(map[int64][]types.StepTaskRecord)
	for _, task := range tasks {
		tasksByStep[task.StepID] = append(tasksByStep[task.StepID], task)
	}
	for stepID := range tasksByStep {
		list := tasksByStep[stepID]
		sort.SliceStable(list, func(i, j int) bool { return list[i].TaskOrder < list[j].TaskOrder })
		tasksByStep[stepID] = list
	}

	snap := &snapshot{
		byID: make(map[int64]types.Recipe),
		ops:  make(map[string][]types.OperationStep),
	}

	for _, record := range records {
		recipe := types.Recipe{
			ID:          record.RecipeID,
			Name:        record.RecipeName,
			Ingredients: splitIngredients(record.Ingredients),
		}
		if len(recipe.Ingredients) == 0 {
			c.log.Warn("recipe has no ingredients, skipping",
				logger.WithField("recipe", recipe.Name))
			continue
		}
		snap.recipes = append(snap.recipes, recipe)
		snap.byID[recipe.ID] = recipe

		for _, ingredient := range recipe.Ingredients {
			key := strings.ToLower(ingredient)
			if _, ok := snap.ops[key]; !ok {
				snap.ops[key] = nil
			}
		}

		steps, err := c.backend.FetchRecipeSteps(ctx, recipe.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching steps for recipe %d: %w", recipe.ID, err)
		}
		sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })

		for _, step := range steps {
			ingredient := c.matcher.MatchIngredient(step.StepDescription, recipe.Ingredients)
			if ingredient == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(step.StepDescription), strings.ToLower(ingredient)) {
				c.log.Debug("step attributed by fallback",
					logger.WithField("step", step.StepID),
					logger.WithField("ingredient", ingredient))
			}
			key := strings.ToLower(ingredient)
			for _, task := range tasksByStep[step.StepID] {
				snap.ops[key] = append(snap.ops[key], toOperationStep(task))
			}
		}
	}

	if len(snap.recipes) == 0 {
		return nil, fmt.Errorf("no usable recipes after filtering")
	}
	return snap, nil
}

func toOperationStep(task types.StepTaskRecord) types.OperationStep {
	repeat := task.RepeatCount
	if repeat < 1 {
		repeat = 1
	}
	estimated, err := backend.ParseEstimatedTime(task.EstimatedTime)
	if err != nil {
		estimated = 0 // executor falls back to the generic timing band
	}
	return types.OperationStep{
		Description:   task.TaskDescription,
		EstimatedTime: estimated,
		RepeatCount:   repeat,
	}
}

func splitIngredients(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Operational reports whether bootstrap has succeeded.
func (c *Catalog) Operational() bool {
	return c.operational.Load()
}

// Recipes returns a read-only snapshot of the loaded recipes.
func (c *Catalog) Recipes() []types.Recipe {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil
	}
	return snap.recipes
}

// RecipeByID looks up a loaded recipe.
func (c *Catalog) RecipeByID(id int64) (types.Recipe, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		return types.Recipe{}, false
	}
	r, ok := snap.byID[id]
	return r, ok
}

// RandomRecipe picks uniformly among loaded recipes.
func (c *Catalog) RandomRecipe() (types.Recipe, bool) {
	snap := c.snapshot.Load()
	if snap == nil || len(snap.recipes) == 0 {
		return types.Recipe{}, false
	}
	c.randMu.Lock()
	idx := c.rand.Intn(len(snap.recipes))
	c.randMu.Unlock()
	return snap.recipes[idx], true
}

// OperationsFor returns the resolved operation list for an ingredient
// (case-insensitive). A missing or empty entry reports ok=false so the
// executor can fall back to the default single-step behavior.
func (c *Catalog) OperationsFor(ingredient string) ([]types.OperationStep, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	ops, ok := snap.ops[strings.ToLower(ingredient)]
	if !ok || len(ops) == 0 {
		return nil, false
	}
	return ops, true
}
