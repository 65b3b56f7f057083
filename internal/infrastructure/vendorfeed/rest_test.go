package vendorfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/vendor"
)

func restDefinition(t *testing.T, endpoint string) *vendor.VendorDefinition {
	t.Helper()
	def, err := vendor.NewVendorDefinition("globex", "Globex Distributing", vendor.FeedProtocolREST, vendor.FeedFormatJSON, 2)
	require.NoError(t, err)
	def.FeedEndpoint = endpoint
	return def
}

func TestRESTHandler_FetchFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("should fetch feed with bearer auth", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`[{"upc": "012345678905", "price": "10.00"}]`))
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		data, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "sekret"})

		require.NoError(t, err)
		assert.Equal(t, "Bearer sekret", gotAuth)
		assert.Contains(t, string(data), "012345678905")
	})

	t.Run("should fall back to basic auth without api key", func(t *testing.T) {
		var gotUser, gotPass string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, _ = r.BasicAuth()
			w.Write([]byte(`[]`))
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		_, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{
			"username": "feeds",
			"password": "hunter2",
		})

		require.NoError(t, err)
		assert.Equal(t, "feeds", gotUser)
		assert.Equal(t, "hunter2", gotPass)
	})

	t.Run("should classify 401 as auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		_, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "bad"})

		assert.ErrorIs(t, err, vendor.ErrFeedAuthFailed)
	})

	t.Run("should classify 5xx as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		_, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "k"})

		assert.ErrorIs(t, err, vendor.ErrFeedTransient)
	})

	t.Run("should classify 404 as unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		_, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "k"})

		assert.ErrorIs(t, err, vendor.ErrFeedUnavailable)
	})

	t.Run("should classify connection refusal as transient", func(t *testing.T) {
		handler := NewRESTHandler(time.Second)

		_, err := handler.FetchFeed(ctx, restDefinition(t, "http://127.0.0.1:1"), vendor.Credentials{"api_key": "k"})

		assert.ErrorIs(t, err, vendor.ErrFeedTransient)
	})
}

func TestRESTHandler_RateLimit(t *testing.T) {
	t.Run("should reuse one limiter per endpoint", func(t *testing.T) {
		handler := NewRESTHandler(time.Second)

		assert.Same(t, handler.limiterFor("http://a.test/feed"), handler.limiterFor("http://a.test/feed"))
		assert.NotSame(t, handler.limiterFor("http://a.test/feed"), handler.limiterFor("http://b.test/feed"))
	})

	t.Run("should not let one vendor exhaust another's budget", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()
		handler := NewRESTHandler(time.Second)

		busy := handler.limiterFor("http://hammered.test/feed")
		for busy.Allow() {
		}
		require.False(t, busy.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		_, err := handler.FetchFeed(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "k"})

		require.NoError(t, err)
	})
}

func TestRESTHandler_TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("should issue HEAD request", func(t *testing.T) {
		var gotMethod string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		err := handler.TestConnection(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "k"})

		require.NoError(t, err)
		assert.Equal(t, http.MethodHead, gotMethod)
	})

	t.Run("should surface auth rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()
		handler := NewRESTHandler(5 * time.Second)

		err := handler.TestConnection(ctx, restDefinition(t, server.URL), vendor.Credentials{"api_key": "k"})

		assert.ErrorIs(t, err, vendor.ErrFeedAuthFailed)
	})
}

func TestRESTHandler_ParseRows(t *testing.T) {
	handler := NewRESTHandler(time.Second)
	def := restDefinition(t, "http://example.test/feed")

	rows, parseErrs, err := handler.ParseRows(def, []byte(`[{"upc": "012345678905", "price": "10.00"}]`))

	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	require.Len(t, rows, 1)
	assert.Equal(t, "012345678905", rows[0].Fields["upc"])
}
