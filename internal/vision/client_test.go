package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(body)
}

func TestClientInfer(t *testing.T) {
	var gotReq *http.Request
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody("A cat sitting on a windowsill."))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{
		BaseURL: ts.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})

	out, err := client.Infer(context.Background(), "aGVsbG8=", "What is in this image?")
	require.NoError(t, err)
	assert.Equal(t, "A cat sitting on a windowsill.", out)

	assert.Equal(t, "/chat/completions", gotReq.URL.Path)
	assert.Equal(t, "Bearer test-key", gotReq.Header.Get("Authorization"))

	var payload chatRequest
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "test-model", payload.Model)
	require.Len(t, payload.Messages, 1)
	require.Len(t, payload.Messages[0].Content, 2)
	assert.Equal(t, "What is in this image?", payload.Messages[0].Content[0].Text)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", payload.Messages[0].Content[1].ImageURL.URL)
}

func TestClientInferMissingAPIKey(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, Model: "test-model"})

	_, err := client.Infer(context.Background(), "aGVsbG8=", "prompt")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, 0, calls)
}

func TestClientInferProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "rate limit exceeded"}}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "test-key", Model: "test-model"})

	_, err := client.Infer(context.Background(), "aGVsbG8=", "prompt")

	var provider *ProviderError
	require.ErrorAs(t, err, &provider)
	assert.Equal(t, http.StatusTooManyRequests, provider.Status)
	assert.Equal(t, "rate limit exceeded", provider.Message)
}

func TestClientInferTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		io.WriteString(w, completionBody("too late"))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{
		BaseURL: ts.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 50 * time.Millisecond,
	})

	_, err := client.Infer(context.Background(), "aGVsbG8=", "prompt")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClientInferEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices": []}`)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: "test-key", Model: "test-model"})

	_, err := client.Infer(context.Background(), "aGVsbG8=", "prompt")
	assert.ErrorContains(t, err, "empty response")
}
