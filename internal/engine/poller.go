package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sousbot/sousbot/pkg/interfaces"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/types"
)

// Poller is the fixed-interval dequeue loop. Each tick checks the gates
// (catalog operational, no order in flight, actuator serving), pulls at
// most one order, re-checks its cancellation flag, and hands it to the
// controller synchronously. One tick never overlaps the next order's
// work: Process blocks the loop by design of the single-claim model.
type Poller struct {
	backend    interfaces.Backend
	catalog    interfaces.Catalog
	actuator   interfaces.Actuator
	controller *Controller
	metrics    *metrics.Metrics
	log        logger.Logger
	cfg        func() types.EngineConfig
}

// NewPoller wires a dequeue poller.
func NewPoller(
	b interfaces.Backend,
	cat interfaces.Catalog,
	act interfaces.Actuator,
	ctrl *Controller,
	m *metrics.Metrics,
	log logger.Logger,
	cfg func() types.EngineConfig,
) *Poller {
	return &Poller{
		backend:    b,
		catalog:    cat,
		actuator:   act,
		controller: ctrl,
		metrics:    m,
		log:        log,
		cfg:        cfg,
	}
}

// Run loops until ctx is cancelled. Interval changes picked up through
// cfg take effect on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.cfg().PollInterval()
	p.log.Info("order poller started", logger.WithField("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("order poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
			if next := p.cfg().PollInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				p.log.Info("poll interval updated", logger.WithField("interval", interval))
			}
		}
	}
}

// tick performs a single poll cycle. Every failure path logs and returns;
// the loop itself never dies on a bad tick.
func (p *Poller) tick(ctx context.Context) {
	p.metrics.PollTick()

	if !p.catalog.Operational() {
		p.log.Debug("skipping poll, catalog not operational")
		return
	}
	if p.controller.Busy() {
		p.log.Debug("skipping poll, order in flight")
		return
	}
	if !p.actuator.CanServe() {
		p.log.Debug("skipping poll, actuator not serving")
		return
	}
	if p.actuator.IsBusy() {
		p.log.Debug("skipping poll, actuator still working")
		return
	}

	order, err := p.backend.DequeueOrder(ctx)
	if err != nil {
		p.log.Warn("dequeue failed", logger.WithField("error", err))
		p.metrics.BackendError("dequeue order")
		return
	}
	if order == nil {
		return // queue empty
	}
	if order.OrderID <= 0 {
		p.log.Warn("discarding order with invalid id",
			logger.WithField("order_id", order.OrderID))
		return
	}

	// A cancellation observed before the claim means the order is
	// discarded without ever entering Processing.
	cancelled, err := p.backend.IsOrderCancelled(ctx, order.OrderID)
	if err != nil {
		p.log.Warn("cancellation check failed, assuming active",
			logger.WithField("order_id", order.OrderID),
			logger.WithField("error", err))
		p.metrics.BackendError("cancellation check")
	}
	if cancelled {
		p.log.Info("order cancelled before claim, discarding",
			logger.WithField("order_id", order.OrderID))
		return
	}

	if err := p.controller.Process(ctx, order); err != nil {
		if errors.Is(err, ErrOrderCancelled) || errors.Is(err, context.Canceled) {
			return
		}
		p.log.Error("order processing failed",
			logger.WithField("order_id", order.OrderID),
			logger.WithField("error", err))
	}
}
