package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestProvider(serverURL string, maxRetries int) *OpenAIProvider {
	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o",
		BaseURL: serverURL,
	}, "Chinese", 0.2, 10*time.Second, maxRetries)
	p.retryDelay = 5 * time.Millisecond
	return p
}

func TestOpenAIProvider_Generate(t *testing.T) {
	t.Run("returns first choice content", func(t *testing.T) {
		var gotReq chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			resp := chatResponse{
				Choices: []chatChoice{
					{Message: Message{Role: RoleAssistant, Content: "translated text"}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		p := newOpenAITestProvider(server.URL, 0)
		out, err := p.Generate(context.Background(), []Message{
			{Role: RoleSystem, Content: "translate"},
			{Role: RoleUser, Content: "hello"},
		})

		require.NoError(t, err)
		assert.Equal(t, "translated text", out)
		assert.Equal(t, "gpt-4o", gotReq.Model)
		require.Len(t, gotReq.Messages, 2)
		assert.Equal(t, RoleSystem, gotReq.Messages[0].Role)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(chatResponse{
				Choices: []chatChoice{{Message: Message{Content: "ok"}}},
			})
		}))
		defer server.Close()

		p := newOpenAITestProvider(server.URL, 2)
		out, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		p := newOpenAITestProvider(server.URL, 3)
		_, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "bad key", apiErr.Message)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(chatResponse{})
		}))
		defer server.Close()

		p := newOpenAITestProvider(server.URL, 0)
		_, err := p.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
		assert.ErrorContains(t, err, "no choices")
	})
}

func TestOpenAIProvider_Metadata(t *testing.T) {
	p := newOpenAITestProvider("http://localhost:0", 0)

	assert.Equal(t, "openai", p.Provider())
	assert.Equal(t, "gpt-4o", p.Model())
	assert.Equal(t, "Chinese", p.Lang())
}
