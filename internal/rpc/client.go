// ABOUTME: JSON-over-HTTPS client for named remote procedures on the field-service backend
// ABOUTME: Wraps payloads in a {data} envelope and unwraps the {result} field of responses

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxResponseBodySize caps how much of a response body is read (8MB).
const MaxResponseBodySize = 8 << 20

// maxLoggedBody bounds the error body text written to the diagnostic stream.
const maxLoggedBody = 512

// HTTPClient performs HTTP requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Invoker is the calling surface the rest of the module depends on.
// *Client implements it; tests substitute counting fakes.
type Invoker interface {
	Invoke(ctx context.Context, procedure string, payload any, opts ...CallOption) (json.RawMessage, error)
}

// RemoteCallError reports a remote procedure that answered with a non-success
// status or an undecodable body. Body holds the raw response text for operators;
// Error() leaves it out.
type RemoteCallError struct {
	Procedure  string
	StatusCode int
	Body       string
	Reason     string
}

func (e *RemoteCallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("remote procedure %s failed (status %d): %s", e.Procedure, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("remote procedure %s failed with status %d", e.Procedure, e.StatusCode)
}

// Config holds configuration for the client.
type Config struct {
	BaseURL    string
	HTTPClient HTTPClient
	Logger     *slog.Logger
}

// Client invokes remote procedures. Every backend call goes through Invoke.
type Client struct {
	baseURL string
	http    HTTPClient
	logger  *slog.Logger
}

// NewClient creates a client for the procedures under cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

type callOptions struct {
	bearer string
}

// CallOption adjusts a single Invoke call.
type CallOption func(*callOptions)

// WithBearer authenticates the call with the given access token.
func WithBearer(token string) CallOption {
	return func(o *callOptions) {
		o.bearer = token
	}
}

type envelope struct {
	Data any `json:"data"`
}

// Invoke POSTs {"data": payload} to <base-url>/<procedure> and returns the
// response's "result" field, or the whole body when there is none.
// There are no retries.
func (c *Client) Invoke(ctx context.Context, procedure string, payload any, opts ...CallOption) (json.RawMessage, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(envelope{Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+procedure, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", procedure, err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if o.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+o.bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote call transport failure",
			"procedure", procedure,
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("calling %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", procedure, err)
	}

	c.logger.Debug("remote call",
		"procedure", procedure,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("remote call rejected",
			"procedure", procedure,
			"request_id", requestID,
			"status", resp.StatusCode,
			"body", truncate(string(respBody), maxLoggedBody),
		)
		return nil, &RemoteCallError{
			Procedure:  procedure,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// Non-object JSON (array, scalar) is returned whole when valid.
		if json.Valid(respBody) {
			return json.RawMessage(respBody), nil
		}
		c.logger.Error("remote call returned invalid JSON",
			"procedure", procedure,
			"request_id", requestID,
			"body", truncate(string(respBody), maxLoggedBody),
		)
		return nil, &RemoteCallError{
			Procedure:  procedure,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Reason:     "response is not valid JSON",
		}
	}

	if result, ok := decoded["result"]; ok {
		return result, nil
	}
	return json.RawMessage(respBody), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
