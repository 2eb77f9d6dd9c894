// Package backend implements the HTTP client for the fulfillment API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sousbot/sousbot/pkg/types"
)

// Client talks JSON over HTTP to the fulfillment backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a backend client from configuration.
func New(cfg types.BackendConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeBaseURL strips trailing slashes so paths are never doubled.
func normalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

// FetchActiveRecipes returns one page of recipes, filtered to isActive.
func (c *Client) FetchActiveRecipes(ctx context.Context, page, pageSize int) ([]types.RecipeRecord, error) {
	var records []types.RecipeRecord
	path := fmt.Sprintf("/api/recipes?page=%d&pageSize=%d", page, pageSize)
	if err := c.getJSON(ctx, "fetch recipes", path, &records); err != nil {
		return nil, err
	}
	active := records[:0]
	for _, r := range records {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// FetchRecipeSteps returns the textual steps of one recipe.
func (c *Client) FetchRecipeSteps(ctx context.Context, recipeID int64) ([]types.RecipeStepRecord, error) {
	var records []types.RecipeStepRecord
	path := fmt.Sprintf("/api/recipes/%d/steps", recipeID)
	if err := c.getJSON(ctx, "fetch recipe steps", path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchStepTasks returns one page of fine-grained actuator tasks.
func (c *Client) FetchStepTasks(ctx context.Context, pageNumber, pageSize int) ([]types.StepTaskRecord, error) {
	var records []types.StepTaskRecord
	path := fmt.Sprintf("/api/steptasks?pageNumber=%d&pageSize=%d", pageNumber, pageSize)
	if err := c.getJSON(ctx, "fetch step tasks", path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DequeueOrder asks for the next queued order. An empty queue (204, empty
// body, or a null payload) returns (nil, nil).
func (c *Client) DequeueOrder(ctx context.Context) (*types.Order, error) {
	const op = "dequeue order"
	body, status, err := c.do(ctx, op, http.MethodGet, "/api/orders/next", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil, nil
	}

	var order types.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, &TransientError{Op: op, Err: fmt.Errorf("decoding order: %w", err)}
	}
	return &order, nil
}

// IsOrderCancelled checks the cancellation flag for an order. The backend
// answers either with a bare boolean or a wrapped object; anything that
// fails to parse is reported as not cancelled.
func (c *Client) IsOrderCancelled(ctx context.Context, orderID int64) (bool, error) {
	path := fmt.Sprintf("/api/orders/%d/cancelled", orderID)
	body, _, err := c.do(ctx, "check cancellation", http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	trimmed := bytes.TrimSpace(body)

	var direct bool
	if err := json.Unmarshal(trimmed, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		IsCancelled *bool `json:"isCancelled"`
		Cancelled   *bool `json:"cancelled"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil {
		if wrapped.IsCancelled != nil {
			return *wrapped.IsCancelled, nil
		}
		if wrapped.Cancelled != nil {
			return *wrapped.Cancelled, nil
		}
	}

	return false, nil
}

// PushOrderStatus reports a lifecycle transition for an order.
func (c *Client) PushOrderStatus(ctx context.Context, orderID int64, status types.OrderStatus) error {
	path := fmt.Sprintf("/api/orders/%d/status", orderID)
	payload := map[string]types.OrderStatus{"status": status}
	_, _, err := c.do(ctx, "push order status", http.MethodPut, path, payload)
	return err
}

// SubmitOperationLog persists the structured log of a completed order.
func (c *Client) SubmitOperationLog(ctx context.Context, record types.OperationLogRecord) error {
	_, _, err := c.do(ctx, "submit operation log", http.MethodPost, "/api/operationlogs", record)
	return err
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	body, status, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransientError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, &TransientError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("backend returned %s", resp.Status),
		}
	}

	return body, resp.StatusCode, nil
}
