package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ouerghi0x/cv-maker-sub000/utils"
)

func TestGeoService_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolves city and country from the endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/203.0.113.9/json/", r.URL.Path)
			w.Write([]byte(`{"city":"Tunis","country_name":"Tunisia"}`))
		}))
		defer server.Close()

		svc := NewGeoService(true, server.URL, time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "Tunis, Tunisia", svc.Lookup(ctx, "203.0.113.9"))
	})

	t.Run("Caches results per address", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.Write([]byte(`{"city":"Paris","country_name":"France"}`))
		}))
		defer server.Close()

		svc := NewGeoService(true, server.URL, time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "Paris, France", svc.Lookup(ctx, "203.0.113.10"))
		assert.Equal(t, "Paris, France", svc.Lookup(ctx, "203.0.113.10"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("Local addresses short-circuit", func(t *testing.T) {
		svc := NewGeoService(true, "http://unused.invalid", time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "Local Development", svc.Lookup(ctx, "127.0.0.1"))
		assert.Equal(t, "Local Development", svc.Lookup(ctx, "::1"))
		assert.Equal(t, "Local Development", svc.Lookup(ctx, "192.168.1.44"))
	})

	t.Run("Missing fields degrade to Unknown", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		svc := NewGeoService(true, server.URL, time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "Unknown, Unknown", svc.Lookup(ctx, "203.0.113.11"))
	})

	t.Run("Non-200 response degrades to empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		svc := NewGeoService(true, server.URL, time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "", svc.Lookup(ctx, "203.0.113.12"))
	})

	t.Run("Malformed body degrades to empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>rate limited</html>"))
		}))
		defer server.Close()

		svc := NewGeoService(true, server.URL, time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "", svc.Lookup(ctx, "203.0.113.13"))
	})

	t.Run("Disabled lookup returns empty without any request", func(t *testing.T) {
		svc := NewGeoService(false, "http://unused.invalid", time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "", svc.Lookup(ctx, "203.0.113.14"))
	})

	t.Run("Empty address returns empty", func(t *testing.T) {
		svc := NewGeoService(true, "http://unused.invalid", time.Second, utils.NewTTLCache(10, time.Minute))

		assert.Equal(t, "", svc.Lookup(ctx, ""))
	})
}
