package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:        "test-agent",
		Timeout:          5 * time.Second,
		PageTimeout:      5 * time.Second,
		MaxAttempts:      3,
		RateLimitBackoff: time.Millisecond,
		NetworkBackoff:   time.Millisecond,
	})
}

type payload struct {
	Total int `json:"total_results"`
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "62.02A", r.URL.Query().Get("activite_principale"))
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		w.Write([]byte(`{"total_results": 42}`))
	}))
	defer srv.Close()

	var got payload
	err := newTestFetcher().GetJSON(context.Background(), srv.URL+"/search",
		url.Values{"activite_principale": {"62.02A"}},
		map[string]string{"X-Key": "secret"}, &got)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Total)
}

func TestGetJSON_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"total_results": 1}`))
	}))
	defer srv.Close()

	var got payload
	require.NoError(t, newTestFetcher().GetJSON(context.Background(), srv.URL, nil, nil, &got))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, got.Total)
}

func TestGetJSON_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestFetcher().GetJSON(context.Background(), srv.URL, nil, nil, &payload{})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestGetJSON_OtherStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestFetcher().GetJSON(context.Background(), srv.URL, nil, nil, &payload{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestGetJSON_MalformedBodyNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"total_results":`))
	}))
	defer srv.Close()

	err := newTestFetcher().GetJSON(context.Background(), srv.URL, nil, nil, &payload{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_NetworkFailureRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	start := time.Now()
	err := newTestFetcher().GetJSON(context.Background(), addr, nil, nil, &payload{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDo_PostJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acme site officiel", body["q"])
		w.Write([]byte(`{"total_results": 5}`))
	}))
	defer srv.Close()

	var got payload
	err := newTestFetcher().Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]any{"q": "acme site officiel"},
	}, &got)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Total)
}

func TestDo_SingleAttemptWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestFetcher().Do(context.Background(), Request{URL: srv.URL}, &payload{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Nos carrières</body></html>"))
	}))
	defer srv.Close()

	html, err := newTestFetcher().GetHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "Nos carrières")
}

func TestGetHTML_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestFetcher().GetHTML(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not html")
}

func TestGetHTML_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().GetHTML(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestGetHTML_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<p>home</p>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	html, err := newTestFetcher().GetHTML(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "<p>home</p>", html)
}

func TestNewHTTPFetcher_SharedClientHasTimeout(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{Timeout: 3 * time.Second, PageTimeout: 7 * time.Second})
	assert.Equal(t, 7*time.Second, f.Client().Timeout)

	f = NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, 25*time.Second, f.Client().Timeout)
}

func TestClient_SlowServerTimesOutWithoutCallerDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(HTTPOptions{Timeout: 50 * time.Millisecond, PageTimeout: 50 * time.Millisecond})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := f.Client().Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetHTML_TruncatesLargePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>"))
		chunk := []byte(strings.Repeat("a", 64<<10))
		for i := 0; i < 64; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	body, err := newTestFetcher().GetHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(body), MaxPageBytes)
	assert.True(t, strings.HasPrefix(body, "<html><body>"))
}
