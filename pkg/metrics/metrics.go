// Package metrics provides Prometheus metrics for the fulfillment engine.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sousbot/sousbot/pkg/types"
)

// Metrics collects engine counters and histograms on its own registry.
// A disabled config yields a no-op instance so call sites never nil-check.
type Metrics struct {
	enabled  bool
	listen   string
	registry *prometheus.Registry

	pollTicks         prometheus.Counter
	ordersFinished    *prometheus.CounterVec
	backendErrors     *prometheus.CounterVec
	tasksExecuted     *prometheus.CounterVec
	taskDuration      prometheus.Histogram
	orderDuration     prometheus.Histogram
	engineOperational prometheus.Gauge
}

// New creates a metrics collector.
func New(cfg *types.MetricsConfig) *Metrics {
	if cfg == nil || !cfg.Enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		enabled:  true,
		listen:   cfg.ListenAddr(),
		registry: registry,

		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sousbot",
			Name:      "poll_ticks_total",
			Help:      "Number of poller ticks.",
		}),
		ordersFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousbot",
			Name:      "orders_finished_total",
			Help:      "Orders that reached a terminal outcome, by outcome.",
		}, []string{"outcome"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousbot",
			Name:      "backend_errors_total",
			Help:      "Transient backend errors, by operation.",
		}, []string{"op"}),
		tasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousbot",
			Name:      "tasks_executed_total",
			Help:      "Executed preparation tasks, by result.",
		}, []string{"result"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sousbot",
			Name:      "task_duration_seconds",
			Help:      "Measured dispatch-to-acknowledgment duration per task.",
			Buckets:   prometheus.DefBuckets,
		}),
		orderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sousbot",
			Name:      "order_duration_seconds",
			Help:      "End-to-end processing duration per order.",
			Buckets:   []float64{5, 15, 30, 60, 120, 180, 300},
		}),
		engineOperational: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sousbot",
			Name:      "engine_operational",
			Help:      "1 while the catalog is loaded and orders can be claimed.",
		}),
	}

	registry.MustRegister(
		m.pollTicks,
		m.ordersFinished,
		m.backendErrors,
		m.tasksExecuted,
		m.taskDuration,
		m.orderDuration,
		m.engineOperational,
	)
	return m
}

// PollTick counts one poller tick.
func (m *Metrics) PollTick() {
	if !m.enabled {
		return
	}
	m.pollTicks.Inc()
}

// OrderFinished records a terminal outcome and the order duration.
func (m *Metrics) OrderFinished(outcome types.OrderOutcome, d time.Duration) {
	if !m.enabled {
		return
	}
	m.ordersFinished.WithLabelValues(string(outcome)).Inc()
	m.orderDuration.Observe(d.Seconds())
}

// BackendError records a transient backend failure.
func (m *Metrics) BackendError(op string) {
	if !m.enabled {
		return
	}
	m.backendErrors.WithLabelValues(op).Inc()
}

// TaskExecuted records one executed task.
func (m *Metrics) TaskExecuted(d time.Duration, success bool) {
	if !m.enabled {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.tasksExecuted.WithLabelValues(result).Inc()
	m.taskDuration.Observe(d.Seconds())
}

// SetOperational mirrors the catalog's operational flag.
func (m *Metrics) SetOperational(ok bool) {
	if !m.enabled {
		return
	}
	if ok {
		m.engineOperational.Set(1)
	} else {
		m.engineOperational.Set(0)
	}
}

// Handler returns the scrape handler for the engine registry.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics listener until ctx is cancelled. A disabled
// instance returns immediately.
func (m *Metrics) Serve(ctx context.Context) error {
	if !m.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: m.listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
