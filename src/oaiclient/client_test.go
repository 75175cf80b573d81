package oaiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corvid-labs/quill/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionJSON(text string) string {
	resp := aisdk.ChatCompletionResponse{
		ID:    "cmpl-1",
		Model: "test-model",
		Choices: []aisdk.Choice{{
			Message:      aisdk.Message{Role: "assistant", Content: aisdk.Text(text)},
			FinishReason: "stop",
		}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func testClient(baseURL string) *Client {
	return NewClient(aisdk.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		RetryCount: 3,
		RetryDelay: time.Millisecond,
	})
}

func chat(t *testing.T, c *Client, model string) (*aisdk.ChatCompletionResponse, error) {
	t.Helper()
	mc, err := c.Model(context.Background(), model)
	require.NoError(t, err)
	return mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []*aisdk.Message{{Role: "user", Content: aisdk.Text("hi")}},
	})
}

func TestCreateChatCompletion(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq aisdk.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("hello back")))
	}))
	defer server.Close()

	resp, err := chat(t, testClient(server.URL), "test-model")
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Choices[0].Message.Content.String())

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	// The bound model name is stamped onto the request.
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestModelRequiresName(t *testing.T) {
	c := testClient("http://unused.test")
	_, err := c.Model(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient(aisdk.ClientConfig{BaseURL: "http://unused.test"})
	_, err := chat(t, c, "test-model")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","choices":[]}`))
	}))
	defer server.Close()

	_, err := chat(t, testClient(server.URL), "test-model")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "internal", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionJSON("third time lucky")))
	}))
	defer server.Close()

	resp, err := chat(t, testClient(server.URL), "test-model")
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Choices[0].Message.Content.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	_, err := chat(t, testClient(server.URL), "test-model")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsAuthError())
	assert.False(t, apiErr.IsRateLimit())
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "bad key")
}

func TestRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	_, err := chat(t, testClient(server.URL), "test-model")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsRateLimit())
	assert.Equal(t, "20", apiErr.RetryAfter)
}

func TestRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := chat(t, testClient(server.URL), "test-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed after 3 retries")
}
