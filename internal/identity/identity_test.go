package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const mappingBody = `{
	"success": true,
	"mapping": {
		"alice": {"chat_handle": "U100", "name": "Alice"},
		"bob": {"chat_handle": "U200", "name": "Bob"},
		"ghost": {"chat_handle": "", "name": "No Handle"}
	}
}`

func newTestClient(url string, ttl time.Duration) *Client {
	return New(discardLogger(), Config{
		BaseURL:  url,
		APIKey:   "key",
		CacheTTL: ttl,
	}, backoff.Config{MaxRetries: 1, BaseDelay: time.Millisecond})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/members/github-chat-mapping/", r.URL.Path)
		require.Equal(t, "Api-Key key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(mappingBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, time.Hour)

	id, ok := client.Resolve(context.Background(), "alice")
	require.True(t, ok)
	require.Equal(t, Identity{Handle: "U100", DisplayName: "Alice"}, id)

	// Unmapped users and empty handles resolve to nothing.
	_, ok = client.Resolve(context.Background(), "nobody")
	require.False(t, ok)
	_, ok = client.Resolve(context.Background(), "ghost")
	require.False(t, ok)

	require.Equal(t, int32(1), calls.Load(), "mapping served from cache within TTL")
}

func TestResolve_ExpiredCacheRefetches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(mappingBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, time.Hour)

	base := time.Now()
	client.now = func() time.Time { return base }

	_, ok := client.Resolve(context.Background(), "alice")
	require.True(t, ok)

	client.now = func() time.Time { return base.Add(2 * time.Hour) }

	_, ok = client.Resolve(context.Background(), "bob")
	require.True(t, ok)
	require.Equal(t, int32(2), calls.Load())
}

func TestResolve_ServesStaleOnRefreshFailure(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(mappingBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, time.Hour)

	base := time.Now()
	client.now = func() time.Time { return base }

	_, ok := client.Resolve(context.Background(), "alice")
	require.True(t, ok)

	fail.Store(true)
	client.now = func() time.Time { return base.Add(2 * time.Hour) }

	id, ok := client.Resolve(context.Background(), "alice")
	require.True(t, ok, "stale mapping still serves after a failed refresh")
	require.Equal(t, "U100", id.Handle)
}

func TestResolve_EmptyCacheOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, time.Hour)

	_, ok := client.Resolve(context.Background(), "alice")
	require.False(t, ok)
}

func TestCacheInfo(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mappingBody))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, time.Hour)

	info := client.CacheInfo()
	require.Zero(t, info.Size)
	require.False(t, info.CacheValid)

	_, _ = client.Resolve(context.Background(), "alice")

	info = client.CacheInfo()
	require.Equal(t, 2, info.Size)
	require.True(t, info.CacheValid)
}
