package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperwire/arxiv-digest/internal/domain"
)

func TestClient_DownloadSource(t *testing.T) {
	t.Run("writes archive into directory", func(t *testing.T) {
		payload := []byte("not really a tarball")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/2301.12345", r.URL.Path)
			w.Write(payload)
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})
		dir := t.TempDir()

		path, err := client.DownloadSource(context.Background(), "2301.12345", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "2301.12345.tar.gz"), path)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("flattens old-style ids", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("x"))
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})
		dir := t.TempDir()

		path, err := client.DownloadSource(context.Background(), "hep-th/9901001", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "hep-th_9901001.tar.gz"), path)
	})

	t.Run("404 is a normal not-found outcome", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})

		_, err := client.DownloadSource(context.Background(), "2301.12345", t.TempDir())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("other statuses are transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})

		_, err := client.DownloadSource(context.Background(), "2301.12345", t.TempDir())
		assert.ErrorIs(t, err, domain.ErrTransient)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_FetchSourceToTemp(t *testing.T) {
	t.Run("cleanup removes the scoped directory", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("archive"))
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})

		path, cleanup, err := client.FetchSourceToTemp(context.Background(), "2301.12345")
		require.NoError(t, err)

		_, err = os.Stat(path)
		require.NoError(t, err)

		cleanup()

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("directory removed on failure paths", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := New(Config{EPrintBaseURL: server.URL, RateLimit: 100, BurstSize: 10})

		_, cleanup, err := client.FetchSourceToTemp(context.Background(), "2301.12345")
		require.Error(t, err)
		cleanup() // must be safe even after failure
	})
}
