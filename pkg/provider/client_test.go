package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/cache"
)

var (
	windowStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestClient(t *testing.T, url string, c cache.Cache, mutate func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.CacheTTL = 0
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg, c, testLogger())
	require.NoError(t, err)

	client.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_FetchIdentifier_Paginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "+15551234567", r.URL.Query().Get("phone"))
		assert.Equal(t, windowStart.Format(time.RFC3339), r.URL.Query().Get("start"))

		switch r.URL.Query().Get("cursor") {
		case "":
			writeJSON(t, w, map[string]any{
				"messages":    []any{map[string]any{"text": "Hello", "timestamp": "2024-03-01T10:00:00Z"}},
				"next_cursor": "page-2",
			})
		case "page-2":
			writeJSON(t, w, map[string]any{
				"messages":    []any{map[string]any{"body": "Second", "created_at": 1709290800.0, "direction": "outbound"}},
				"next_cursor": nil,
			})
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, nil)
	records, err := client.FetchIdentifier(context.Background(), "+15551234567", windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Hello", records[0].Text)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), records[0].Timestamp)
	assert.Equal(t, "+15551234567", records[0].PhoneNumber)

	assert.Equal(t, "Second", records[1].Text)
	assert.Equal(t, time.Unix(1709290800, 0).UTC(), records[1].Timestamp)
	assert.Equal(t, "outbound", records[1].Direction)
}

func TestClient_FetchIdentifier_BareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []any{
			map[string]any{"text": "a", "timestamp": "2024-03-01T10:00:00Z", "phone_number": "+1999"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, nil)
	records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "+1999", records[0].PhoneNumber)
}

func TestClient_FetchIdentifier_CustomPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"result": map[string]any{
				"entries": []any{map[string]any{"content": map[string]any{"caption": "Photo"}, "ts": "2024-03-01T10:00:00Z", "media": true}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, func(cfg *Config) {
		cfg.Paths = Paths{
			Items:     "result.entries",
			Text:      "content.caption",
			Timestamp: "ts",
			HasMedia:  "media",
		}
	})
	records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Photo", records[0].Text)
	assert.True(t, records[0].HasMedia)
}

func TestClient_FetchIdentifier_EmptyPages(t *testing.T) {
	t.Run("empty final page keeps earlier records", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cursor") == "" {
				writeJSON(t, w, map[string]any{
					"messages":    []any{map[string]any{"text": "Hello", "timestamp": "2024-03-01T10:00:00Z"}},
					"next_cursor": "p2",
				})
				return
			}
			writeJSON(t, w, map[string]any{"messages": []any{}, "next_cursor": nil})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, nil, nil)
		result := client.Fetch(context.Background(), []string{"+1555"}, windowStart, windowEnd)

		assert.Empty(t, result.Errors)
		assert.True(t, result.Results["+1555"].Success)
		require.Len(t, result.Pool(), 1)
		assert.Equal(t, "Hello", result.Pool()[0].Text)
	})

	t.Run("number with no messages is a success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"data": []any{}})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, nil, nil)
		records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("or expression falling through an empty list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"messages": []any{}})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, nil, func(cfg *Config) {
			cfg.Paths.Items = "messages || data"
		})
		records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("non array messages are still rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"messages": "none"})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, nil, nil)
		_, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
		assert.Error(t, err)
	})
}

func TestUniqueIdentifiers(t *testing.T) {
	assert.Equal(t, []string{"+1a", "+1b"}, UniqueIdentifiers([]string{" +1a", "", "+1b", "+1a ", "  "}))
	assert.Empty(t, UniqueIdentifiers(nil))
}

func TestClient_FetchIdentifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, map[string]any{"messages": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, nil)
	records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchIdentifier_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, map[string]any{"messages": []any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, nil)
	var waits []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, waits)
}

func TestClient_FetchIdentifier_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, nil)
	_, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
	require.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchIdentifier_UsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{"messages": []any{map[string]any{"text": "cached", "timestamp": "2024-03-01T10:00:00Z"}}})
	}))
	defer server.Close()

	memory := cache.NewMemoryCache(cache.DefaultMemoryCacheConfig())
	client := newTestClient(t, server.URL, memory, func(cfg *Config) {
		cfg.CacheTTL = time.Minute
	})

	for i := 0; i < 2; i++ {
		records, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "cached", records[0].Text)
		assert.Equal(t, windowStart.Add(10*time.Hour), records[0].Timestamp)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), memory.Stats().Hits)
}

func TestClient_FetchIdentifier_FailuresAreNotCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	memory := cache.NewMemoryCache(cache.DefaultMemoryCacheConfig())
	client := newTestClient(t, server.URL, memory, func(cfg *Config) {
		cfg.CacheTTL = time.Minute
	})

	for i := 0; i < 2; i++ {
		_, err := client.FetchIdentifier(context.Background(), "+1555", windowStart, windowEnd)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, memory.Stats().Size)
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		phone := r.URL.Query().Get("phone")
		if phone == "+1bad" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeJSON(t, w, map[string]any{"messages": []any{
			map[string]any{"text": "hi " + phone, "timestamp": "2024-03-01T10:00:00Z"},
		}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil, func(cfg *Config) {
		cfg.Concurrency = 2
	})

	result := client.Fetch(context.Background(), []string{"+1a", "+1bad", "+1b", "+1a"}, windowStart, windowEnd)

	assert.Equal(t, []string{"+1a", "+1bad", "+1b"}, result.Identifiers)
	assert.True(t, result.Results["+1a"].Success)
	assert.False(t, result.Results["+1bad"].Success)
	assert.Empty(t, result.Results["+1bad"].Records)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "+1bad", result.Errors[0].PhoneNumber)

	pool := result.Pool()
	require.Len(t, pool, 2)
	assert.Equal(t, "hi +1a", pool[0].Text)
	assert.Equal(t, "hi +1b", pool[1].Text)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	wait, ok := ParseRetryAfter("3", now)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, wait)

	wait, ok = ParseRetryAfter("3600", now)
	assert.True(t, ok)
	assert.Equal(t, MaxRetryAfter, wait)

	wait, ok = ParseRetryAfter(now.Add(5*time.Second).Format(http.TimeFormat), now)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)

	_, ok = ParseRetryAfter("soon", now)
	assert.False(t, ok)
}

func TestNewClient_RejectsBadPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.Paths.Items = "messages[?"
	_, err := NewClient(cfg, nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid items path")
}
