package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/bill-extractor/internal/common"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     120,
			"completion_tokens": 30,
			"total_tokens":      150,
		},
	}
}

func TestOpenAIInvokeOK(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "json_object", body["response_format"].(map[string]any)["type"])
		_ = json.NewEncoder(w).Encode(chatResponse(`{"summary":"ok"}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"}, nil)
	out, err := c.Invoke(context.Background(), "extract this", Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out.Text)
	assert.Equal(t, 150, out.Tokens.TotalTokens)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestOpenAIInvokeRetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse(`{}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Invoke(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestOpenAIInvokeRateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 1}, nil)
	_, err := c.Invoke(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestOpenAIInvokeBadRequestIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Invoke(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, 1, calls)
}
