package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// Client talks to the remote game function endpoints.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	requestID  atomic.Int64
}

// NewClient creates a new game API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "gameapi"),
	}
}

// nextID generates a unique request ID for log correlation.
func (c *Client) nextID() string {
	id := c.requestID.Add(1)
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), id)
}

// get issues a GET with the retry budget and decodes the response into out.
func (c *Client) get(ctx context.Context, op, endpoint string, query url.Values, out any) error {
	return c.call(ctx, op, http.MethodGet, endpoint, query, nil, out, true)
}

// post issues a POST with a JSON body. Writes are never retried: a duplicate
// case open or payment is worse than a surfaced failure.
func (c *Client) post(ctx context.Context, op, endpoint string, body, out any) error {
	return c.call(ctx, op, http.MethodPost, endpoint, nil, body, out, false)
}

// put issues a PUT with a JSON body. Like POST, never retried.
func (c *Client) put(ctx context.Context, op, endpoint string, body, out any) error {
	return c.call(ctx, op, http.MethodPut, endpoint, nil, body, out, false)
}

// del issues a DELETE, with either a query or a JSON body per endpoint.
func (c *Client) del(ctx context.Context, op, endpoint string, query url.Values, body, out any) error {
	return c.call(ctx, op, http.MethodDelete, endpoint, query, body, out, false)
}

// call executes one logical request, retrying idempotent calls on transient
// failures with a fixed delay between attempts.
func (c *Client) call(ctx context.Context, op, method, endpoint string, query url.Values, body, out any, idempotent bool) error {
	if endpoint == "" {
		return WrapError(op, fmt.Errorf("endpoint not configured"))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return WrapError(op, fmt.Errorf("marshaling request: %w", err))
		}
	}

	reqURL := endpoint
	if len(query) > 0 {
		reqURL = endpoint + "?" + query.Encode()
	}

	reqID := c.nextID()
	logger := c.logger.With("op", op, "request_id", reqID)

	retries := 0
	if idempotent {
		retries = c.config.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying after delay", "attempt", attempt, "delay", c.config.RetryDelay)
			select {
			case <-ctx.Done():
				return WrapError(op, ctx.Err())
			case <-time.After(c.config.RetryDelay):
			}
		}

		err := c.doRequest(ctx, op, method, reqURL, payload, out)
		if err == nil {
			logger.Debug("request successful")
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		logger.Debug("request failed, will retry", "error", err, "attempt", attempt)
	}

	return lastErr
}

// doRequest performs a single HTTP request and decodes the response.
func (c *Client) doRequest(ctx context.Context, op, method, reqURL string, payload []byte, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return WrapError(op, fmt.Errorf("creating HTTP request: %w", err))
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return WrapError(op, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return WrapError(op, fmt.Errorf("reading response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		// Every endpoint reports business errors as {"error": "..."}.
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return NewServerError(op, httpResp.StatusCode, errResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return WrapError(op, fmt.Errorf("unmarshaling response: %w", err))
	}
	return nil
}
