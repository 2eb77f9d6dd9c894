package catalog_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/catalog"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/mocks"
	"github.com/sousbot/sousbot/pkg/types"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", io.Discard)
}

func phoBackend() *mocks.MockBackend {
	return &mocks.MockBackend{
		RecipesFunc: func(page, pageSize int) ([]types.RecipeRecord, error) {
			if page > 1 {
				return nil, nil
			}
			return []types.RecipeRecord{
				{RecipeID: 2, RecipeName: "Phở bò", Ingredients: "Bánh phở,thịt bò,hành,rau thơm,nước dùng", IsActive: true},
			}, nil
		},
		StepsFunc: func(recipeID int64) ([]types.RecipeStepRecord, error) {
			return []types.RecipeStepRecord{
				{StepID: 11, StepDescription: "Chần bánh phở", StepNumber: 1},
				{StepID: 12, StepDescription: "Pour the hot broth", StepNumber: 2},
			}, nil
		},
		TasksFunc: func(pageNumber, pageSize int) ([]types.StepTaskRecord, error) {
			if pageNumber > 1 {
				return nil, nil
			}
			return []types.StepTaskRecord{
				{StepTaskID: 2, StepID: 11, TaskDescription: "shake noodles dry", TaskOrder: 2, EstimatedTime: "00:00:05", RepeatCount: 3},
				{StepTaskID: 1, StepID: 11, TaskDescription: "dip noodles in boiling water", TaskOrder: 1, EstimatedTime: "00:00:10"},
				{StepTaskID: 3, StepID: 12, TaskDescription: "ladle broth over noodles", TaskOrder: 1, EstimatedTime: "00:00:08"},
			}, nil
		},
	}
}

func TestLoadBuildsOperations(t *testing.T) {
	c := catalog.New(phoBackend(), catalog.NewKeywordMatcher(), testLogger(), types.CatalogConfig{
		MaxRetries: 1, InitialRetryDelayMs: 1,
	})

	if c.Operational() {
		t.Fatal("catalog must not be operational before Load")
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !c.Operational() {
		t.Fatal("catalog should be operational after Load")
	}

	// Step 11 matched "Bánh phở" directly; its tasks come back in
	// taskOrder, not fetch order.
	ops, ok := c.OperationsFor("bánh phở")
	if !ok {
		t.Fatal("expected operations for bánh phở")
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	if ops[0].Description != "dip noodles in boiling water" {
		t.Errorf("tasks not sorted by taskOrder: %+v", ops)
	}
	if ops[1].RepeatCount != 3 {
		t.Errorf("repeat count not carried: %+v", ops[1])
	}
	if ops[0].RepeatCount != 1 {
		t.Errorf("repeat count should default to 1: %+v", ops[0])
	}

	// Step 12 matched nước dùng via the broth keyword fallback.
	if _, ok := c.OperationsFor("nước dùng"); !ok {
		t.Error("expected operations for nước dùng via broth fallback")
	}

	// Ingredients with no resolved steps report ok=false so the executor
	// can use the default single-step behavior; never an error.
	if _, ok := c.OperationsFor("thịt bò"); ok {
		t.Error("thịt bò has no steps, expected ok=false")
	}
	if _, ok := c.OperationsFor("no such ingredient"); ok {
		t.Error("unknown ingredient, expected ok=false")
	}
}

func TestLoadRetriesExhausted(t *testing.T) {
	b := &mocks.MockBackend{
		RecipesFunc: func(page, pageSize int) ([]types.RecipeRecord, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	c := catalog.New(b, catalog.NewKeywordMatcher(), testLogger(), types.CatalogConfig{
		MaxRetries: 3, InitialRetryDelayMs: 1,
	})

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected bootstrap failure")
	}
	if c.Operational() {
		t.Fatal("catalog must be non-operational after exhausted retries")
	}
	// Initial attempt plus exactly maxRetries retries.
	if b.RecipeCalls != 4 {
		t.Errorf("expected 4 attempts, got %d", b.RecipeCalls)
	}
}

func TestLoadRetryDelaysDouble(t *testing.T) {
	var attempts []time.Time
	b := &mocks.MockBackend{
		RecipesFunc: func(page, pageSize int) ([]types.RecipeRecord, error) {
			attempts = append(attempts, time.Now())
			return nil, fmt.Errorf("connection refused")
		},
	}
	c := catalog.New(b, catalog.NewKeywordMatcher(), testLogger(), types.CatalogConfig{
		MaxRetries: 3, InitialRetryDelayMs: 40,
	})

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected bootstrap failure")
	}
	if len(attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(attempts))
	}

	// Delays start at the initial retry delay and double each attempt:
	// 40ms, 80ms, 160ms. Lower bounds only, timers never fire early.
	prev := 30 * time.Millisecond
	for i := 1; i < len(attempts); i++ {
		delay := attempts[i].Sub(attempts[i-1])
		if delay < prev {
			t.Errorf("delay %d = %v, want >= %v", i, delay, prev)
		}
		prev = delay + delay/2
	}
}

func TestLoadEmptyRecipeSetIsRetried(t *testing.T) {
	b := &mocks.MockBackend{
		RecipesFunc: func(page, pageSize int) ([]types.RecipeRecord, error) {
			return nil, nil
		},
	}
	c := catalog.New(b, catalog.NewKeywordMatcher(), testLogger(), types.CatalogConfig{
		MaxRetries: 2, InitialRetryDelayMs: 1,
	})

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("empty recipe set must fail bootstrap")
	}
	if b.RecipeCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", b.RecipeCalls)
	}
}

func TestRecipeLookup(t *testing.T) {
	c := catalog.New(phoBackend(), catalog.NewKeywordMatcher(), testLogger(), types.CatalogConfig{
		MaxRetries: 1, InitialRetryDelayMs: 1,
	})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	r, ok := c.RecipeByID(2)
	if !ok || r.Name != "Phở bò" {
		t.Fatalf("lookup failed: %+v %v", r, ok)
	}
	if len(r.Ingredients) != 5 {
		t.Errorf("ingredient list mangled: %v", r.Ingredients)
	}
	if _, ok := c.RecipeByID(99); ok {
		t.Error("unknown id should not resolve")
	}

	if _, ok := c.RandomRecipe(); !ok {
		t.Error("random recipe should be available")
	}
}
