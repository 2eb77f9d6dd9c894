// Package engine contains the order fulfillment pipeline: the dequeue
// poller, the per-order lifecycle controller, the task executor and the
// completion monitor, wired together over injected dependencies.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/oplog"
	"github.com/sousbot/sousbot/pkg/types"
)

// CatalogLoader is a catalog that can (re)bootstrap itself from the
// backend.
type CatalogLoader interface {
	interfaces.Catalog
	Load(ctx context.Context) error
}

// Dependencies carries everything the engine needs. All fields are
// required except Metrics, which may be a disabled instance.
type Dependencies struct {
	Backend  interfaces.Backend
	Actuator interfaces.Actuator
	Catalog  CatalogLoader
	Notifier interfaces.OrderNotifier
	Status   interfaces.StatusSink
	Metrics  *metrics.Metrics
	Logger   logger.Logger
}

// Engine is the top-level fulfillment daemon object.
type Engine struct {
	deps   Dependencies
	config atomic.Pointer[types.SousbotConfig]

	controller *Controller
	poller     *Poller

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEngine builds an engine from its dependencies. Missing required
// dependencies are a programming error and panic immediately.
func NewEngine(deps Dependencies, cfg *types.SousbotConfig) *Engine {
	if deps.Backend == nil {
		panic("engine: Backend is required")
	}
	if deps.Actuator == nil {
		panic("engine: Actuator is required")
	}
	if deps.Catalog == nil {
		panic("engine: Catalog is required")
	}
	if deps.Notifier == nil {
		panic("engine: Notifier is required")
	}
	if deps.Status == nil {
		panic("engine: Status is required")
	}
	if deps.Logger == nil {
		panic("engine: Logger is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}
	if cfg == nil {
		cfg = &types.SousbotConfig{}
	}

	e := &Engine{deps: deps}
	e.config.Store(cfg)

	engineCfg := func() types.EngineConfig { return e.config.Load().Engine }

	e.controller = NewController(
		deps.Backend,
		deps.Actuator,
		deps.Catalog,
		deps.Notifier,
		deps.Status,
		deps.Metrics,
		oplog.New(),
		deps.Logger,
		engineCfg,
	)
	e.poller = NewPoller(
		deps.Backend,
		deps.Catalog,
		deps.Actuator,
		e.controller,
		deps.Metrics,
		deps.Logger,
		engineCfg,
	)
	return e
}

// ApplyConfig swaps the active configuration. Duration and mode changes
// take effect on the next poll tick or order.
func (e *Engine) ApplyConfig(cfg *types.SousbotConfig) {
	if cfg == nil {
		return
	}
	e.config.Store(cfg)
	e.deps.Logger.Info("configuration applied",
		logger.WithField("poll_interval", cfg.Engine.PollInterval()))
}

// Config returns the active configuration.
func (e *Engine) Config() *types.SousbotConfig {
	return e.config.Load()
}

// Controller exposes the lifecycle controller, mainly for status checks.
func (e *Engine) Controller() *Controller {
	return e.controller
}

// Start bootstraps the catalog and runs the poller and metrics listener
// until ctx is cancelled or Stop is called. A failed bootstrap leaves
// the engine running but non-operational: the poller keeps ticking and
// skipping, so the process stays alive for inspection.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	log := e.deps.Logger
	log.Info("fulfillment engine starting")

	if err := e.deps.Catalog.Load(ctx); err != nil {
		log.Error("catalog bootstrap failed, engine is non-operational",
			logger.WithField("error", err))
		e.deps.Status.SetOperational(false)
		e.deps.Metrics.SetOperational(false)
		e.deps.Status.SetMessage("catalog bootstrap failed")
	} else {
		e.deps.Status.SetOperational(true)
		e.deps.Metrics.SetOperational(true)
		e.deps.Status.SetMessage("ready")
	}

	group, ctx := NewSafeGroup(ctx, log)
	group.Go(func() error { return e.poller.Run(ctx) })
	group.Go(func() error { return e.deps.Metrics.Serve(ctx) })

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("fulfillment engine stopped")
	return err
}

// Stop requests a shutdown of a running engine. Stopping an engine that
// was never started is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
