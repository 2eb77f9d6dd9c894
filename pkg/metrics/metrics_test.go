package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/metrics"
	"github.com/sousbot/sousbot/pkg/types"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := metrics.New(nil)

	// None of these may panic on a disabled instance.
	m.PollTick()
	m.OrderFinished(types.OutcomeCompleted, time.Second)
	m.BackendError("dequeue order")
	m.TaskExecuted(time.Second, true)
	m.SetOperational(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled handler status = %d, want 404", resp.StatusCode)
	}
}

func TestCountersAppearInScrape(t *testing.T) {
	m := metrics.New(&types.MetricsConfig{Enabled: true})

	m.PollTick()
	m.PollTick()
	m.OrderFinished(types.OutcomeCompleted, 30*time.Second)
	m.OrderFinished(types.OutcomeTimedOut, 200*time.Second)
	m.BackendError("push order status")
	m.TaskExecuted(2*time.Second, true)
	m.TaskExecuted(time.Second, false)
	m.SetOperational(true)

	body := scrape(t, m)
	for _, want := range []string{
		`sousbot_poll_ticks_total 2`,
		`sousbot_orders_finished_total{outcome="Completed"} 1`,
		`sousbot_orders_finished_total{outcome="TimedOut"} 1`,
		`sousbot_backend_errors_total{op="push order status"} 1`,
		`sousbot_tasks_executed_total{result="success"} 1`,
		`sousbot_tasks_executed_total{result="failure"} 1`,
		`sousbot_engine_operational 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}
