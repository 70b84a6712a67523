// Package transmit implements the transmission subsystem: it accepts
// tracking tasks from the orchestration layer, batches them, and delivers
// them to the collection endpoint with retry, backoff, and spooling.
//
// Handoff into the transmitter is always non-blocking; delivery happens on
// a single worker goroutine owned by the Transmitter. The transmitter is
// the only writer of task completion state after handoff.
package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	trkerrors "github.com/engagekit/tracker/pkg/tracker/errors"
	"github.com/engagekit/tracker/pkg/tracker/task"
)

// maxErrorBodyBytes caps how much of an error response body is read for
// diagnostics.
const maxErrorBodyBytes = 1 << 10

// Client delivers encoded batches to the collection endpoint over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a delivery client for the given endpoint.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Endpoint returns the collection endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts one encoded batch. A non-2xx response or transport failure is
// returned as a *errors.DeliveryError carrying retryability information.
func (c *Client) Send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &trkerrors.DeliveryError{
			Endpoint: c.endpoint,
			Message:  "build request",
			Err:      err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &trkerrors.DeliveryError{
			Endpoint: c.endpoint,
			Message:  err.Error(),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &trkerrors.DeliveryError{
		StatusCode: resp.StatusCode,
		Endpoint:   c.endpoint,
		Message:    string(msg),
	}
}

// wireTask pairs a visitor with one event in the batch body.
type wireTask struct {
	VisitorID string          `json:"visitor_id"`
	SceneID   string          `json:"scene_id,omitempty"`
	Event     json.RawMessage `json:"event"`
}

// EncodeBatch serializes tasks into the collection endpoint's batch body.
func EncodeBatch(tasks []*task.Task) ([]byte, error) {
	items := make([]wireTask, 0, len(tasks))
	for _, t := range tasks {
		evtJSON, err := json.Marshal(t.Event())
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", t.Event().ID(), err)
		}
		items = append(items, wireTask{
			VisitorID: t.VisitorID(),
			SceneID:   t.SceneID(),
			Event:     evtJSON,
		})
	}

	body, err := json.Marshal(map[string]any{"events": items})
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return body, nil
}
