package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sousbot/sousbot/pkg/backend"
	"github.com/sousbot/sousbot/pkg/types"
)

func newClient(t *testing.T, handler http.Handler) (*backend.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := backend.New(types.BackendConfig{BaseURL: srv.URL + "/"})
	return c, srv
}

func TestDequeueOrderEmptyQueue(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no content": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
		"null payload": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("null"))
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newClient(t, handler)
			order, err := c.DequeueOrder(context.Background())
			if err != nil {
				t.Fatalf("empty queue must not be an error: %v", err)
			}
			if order != nil {
				t.Fatalf("expected nil order, got %+v", order)
			}
		})
	}
}

func TestDequeueOrderDecodes(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/next" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"orderId":101,"recipeId":2,"robotId":7,"locationId":3,"status":"Queued","orderedTime":"2026-08-20T10:30:00Z"}`))
	}))

	order, err := c.DequeueOrder(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if order.OrderID != 101 || order.RecipeID != 2 || order.RobotID != 7 {
		t.Errorf("bad order: %+v", order)
	}
	if order.OrderedTime.IsZero() {
		t.Error("orderedTime not decoded")
	}
}

func TestIsOrderCancelledShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"direct true", "true", true},
		{"direct false", "false", false},
		{"wrapped isCancelled", `{"isCancelled":true}`, true},
		{"wrapped cancelled", `{"cancelled":true}`, true},
		{"garbage treated as not cancelled", `{"whatever":1}`, false},
		{"unparseable treated as not cancelled", `not json at all`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			got, err := c.IsOrderCancelled(context.Background(), 5)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFetchActiveRecipesFiltersInactive(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"recipeId":1,"recipeName":"Phở bò","ingredients":"Bánh phở,thịt bò","isActive":true},
			{"recipeId":2,"recipeName":"Retired","ingredients":"x","isActive":false}
		]`))
	}))

	recipes, err := c.FetchActiveRecipes(context.Background(), 1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(recipes) != 1 || recipes[0].RecipeID != 1 {
		t.Errorf("inactive recipe not filtered: %+v", recipes)
	}
}

func TestPushOrderStatusTransientError(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	err := c.PushOrderStatus(context.Background(), 9, types.OrderStatusProcessing)
	var te *backend.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if te.StatusCode != http.StatusBadGateway {
		t.Errorf("status code not carried: %+v", te)
	}
}

func TestSubmitOperationLogBody(t *testing.T) {
	var gotPath, gotMethod string
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
	}))

	err := c.SubmitOperationLog(context.Background(), types.OperationLogRecord{
		OrderID: 101, RobotID: 7, Status: types.OrderStatusCompleted, LogText: "done",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/operationlogs" || gotMethod != http.MethodPost {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
}

func TestParseEstimatedTime(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:02:30", 2*time.Minute + 30*time.Second, false},
		{"01:00:00", time.Hour, false},
		{"45s", 45 * time.Second, false},
		{"2m30s", 2*time.Minute + 30*time.Second, false},
		{"", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range cases {
		got, err := backend.ParseEstimatedTime(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}
