// Package ollama is an HTTP client for a local Ollama inference server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/folio/internal/logger"
)

const (
	// DefaultEndpoint is the default Ollama API endpoint
	DefaultEndpoint = "http://localhost:11434"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxRetries is the default number of retries
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retries
	DefaultRetryDelay = 1 * time.Second
)

// Client is an HTTP client for the Ollama API
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithEndpoint sets the Ollama API endpoint
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

// WithMaxRetries sets the maximum number of retries
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the initial retry delay
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// NewClient creates a new Ollama client
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:     logger.Get(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Endpoint returns the configured API endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// send performs an HTTP request with retry logic and returns the open response
// of the first successful attempt. The caller closes the body.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1)) // exponential backoff
			c.logger.Debugf("Retrying request (attempt %d/%d) after %v", attempt, c.maxRetries, delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			c.logger.Debugf("Request failed: %v", lastErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var errResp ErrorResponse
		var errMsg string
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			errMsg = fmt.Sprintf("ollama API error (status %d): %s", resp.StatusCode, errResp.Error)
		} else {
			errMsg = fmt.Sprintf("ollama API error (status %d): %s", resp.StatusCode, string(respBody))
		}

		// 5xx is retried, 4xx is returned immediately
		if resp.StatusCode >= 500 {
			lastErr = errors.New(errMsg)
			c.logger.Debugf("Server error: %v", lastErr)
			continue
		}
		return nil, errors.New(errMsg)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, response interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if response != nil {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// Generate sends a non-streaming text generation request to Ollama
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	r := *req
	r.Stream = false

	var resp GenerateResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/generate", &r, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama generation error: %s", resp.Error)
	}
	return &resp, nil
}

// GenerateStream sends a streaming generation request and calls onDelta for
// each fragment as it arrives. It returns the concatenated response text.
func (c *Client) GenerateStream(ctx context.Context, req *GenerateRequest, onDelta func(delta string)) (string, error) {
	r := *req
	r.Stream = true

	resp, err := c.send(ctx, http.MethodPost, "/api/generate", &r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frag GenerateResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			return out.String(), fmt.Errorf("failed to decode stream fragment: %w", err)
		}
		if frag.Error != "" {
			return out.String(), fmt.Errorf("ollama generation error: %s", frag.Error)
		}

		if frag.Response != "" {
			out.WriteString(frag.Response)
			if onDelta != nil {
				onDelta(frag.Response)
			}
		}
		if frag.Done {
			return out.String(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return out.String(), fmt.Errorf("failed to read stream: %w", err)
	}
	return out.String(), errors.New("stream ended before completion")
}

// Unload asks the server to release a loaded model immediately
func (c *Client) Unload(ctx context.Context, model string) error {
	req := &GenerateRequest{Model: model, KeepAlive: "0"}
	return c.doRequest(ctx, http.MethodPost, "/api/generate", req, nil)
}

// ListModels lists available models
func (c *Client) ListModels(ctx context.Context) (*ListModelsResponse, error) {
	var resp ListModelsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HasModel reports whether the named model is available locally. A name
// without a tag matches any tag of that model.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	list, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range list.Models {
		if m.Name == name {
			return true, nil
		}
		if !strings.Contains(name, ":") && strings.SplitN(m.Name, ":", 2)[0] == name {
			return true, nil
		}
	}
	return false, nil
}

// PullModel downloads a model if it's not already available
func (c *Client) PullModel(ctx context.Context, modelName string) error {
	req := &PullRequest{
		Name:   modelName,
		Stream: false,
	}
	var resp PullResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/pull", req, &resp); err != nil {
		return err
	}
	c.logger.Infof("Model pull status: %s", resp.Status)
	return nil
}

// HealthCheck verifies that Ollama is running and accessible
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not accessible: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status: %d", resp.StatusCode)
	}

	return nil
}
