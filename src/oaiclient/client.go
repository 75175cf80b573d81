// Package oaiclient is a thin client for OpenAI-compatible chat completion
// endpoints. It sends a prepared message list plus tool descriptors and
// decodes the structured response; no streaming.
package oaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/corvid-labs/quill/src/aisdk"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

var _ aisdk.Provider = (*Client)(nil)

// Client is an OpenAI-compatible chat completions client.
type Client struct {
	config     aisdk.ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new client. The API key may be empty; requests will
// then fail with an auth error that the orchestrator reports to the user.
func NewClient(config aisdk.ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.RetryCount == 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "oai_client")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Model returns a client bound to the given model name.
func (c *Client) Model(ctx context.Context, modelName string) (aisdk.ModelClient, error) {
	if modelName == "" {
		return nil, ErrNoModel
	}
	return &ModelClient{client: c, model: modelName}, nil
}

// createChatCompletion sends a chat completion request (internal method).
func (c *Client) createChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages), "tools", len(req.Tools))

	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, "POST", "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("received error response", "status_code", resp.StatusCode)
		return nil, c.handleError(resp)
	}

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	logger.Info("chat completion successful", "usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	url := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying on transport and
// server errors with linear backoff. Client errors (4xx) return immediately.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	logger := c.logger.With("method", "doRequestWithRetry", "url", req.URL.String())

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	for i := 0; i < c.config.RetryCount; i++ {
		reqCopy := req.Clone(req.Context())
		if bodyBytes != nil {
			reqCopy.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(reqCopy)
		if err != nil {
			lastErr = err
			logger.Debug("request attempt failed", "attempt", i+1, "error", err)
			time.Sleep(c.config.RetryDelay * time.Duration(i+1))
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		logger.Debug("server error, retrying", "attempt", i+1, "status_code", resp.StatusCode)
		time.Sleep(c.config.RetryDelay * time.Duration(i+1))
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryCount, lastErr)
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp aisdk.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
		Code:       errResp.Error.Code,
		Param:      errResp.Error.Param,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = resp.Header.Get("Retry-After")
	}

	return apiErr
}
