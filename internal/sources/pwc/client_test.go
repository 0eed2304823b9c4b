package pwc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/sources"
)

func newTestClient(serverURL string) *Client {
	return New(Config{BaseURL: serverURL, RateLimit: 100, BurstSize: 10}, nil)
}

func TestClient_RepositoryURL(t *testing.T) {
	t.Run("chains both lookups", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/papers/", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/papers/":
				assert.Equal(t, "2301.12345", r.URL.Query().Get("arxiv_id"))
				w.Write([]byte(`{"count":1,"results":[{"id":"attention-is-not-all-you-need"}]}`))
			case "/papers/attention-is-not-all-you-need/repositories/":
				w.Write([]byte(`{"count":2,"results":[{"url":"https://github.com/acme/attn","is_official":true,"stars":42},{"url":"https://github.com/fork/attn"}]}`))
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		url, err := newTestClient(server.URL).RepositoryURL(context.Background(), "2301.12345")
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/acme/attn", url)
	})

	t.Run("unknown paper is not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count":0,"results":[]}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).RepositoryURL(context.Background(), "2301.12345")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("paper without repositories is not found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/papers/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/papers/" {
				w.Write([]byte(`{"count":1,"results":[{"id":"p1"}]}`))
				return
			}
			w.Write([]byte(`{"count":0,"results":[]}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		_, err := newTestClient(server.URL).RepositoryURL(context.Background(), "2301.12345")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("server errors are transient, not not-found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
			RateLimit:  100,
			BurstSize:  10,
			MaxRetries: 1,
			RetryDelay: 5 * time.Millisecond,
		})
		client := New(Config{BaseURL: server.URL}, httpClient)

		_, err := client.RepositoryURL(context.Background(), "2301.12345")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}
