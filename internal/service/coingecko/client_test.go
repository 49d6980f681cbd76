package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"CoinPull/internal/domain/models"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type countingMetrics struct {
	mu       sync.Mutex
	attempts []string
	outcomes []string
}

func (m *countingMetrics) RecordFetchAttempt(result string) {
	m.mu.Lock()
	m.attempts = append(m.attempts, result)
	m.mu.Unlock()
}

func (m *countingMetrics) RecordFetchOutcome(kind string, _ float64) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, kind)
	m.mu.Unlock()
}
func (m *countingMetrics) RecordCacheLookup(string)        {}
func (m *countingMetrics) RecordCacheEviction()            {}
func (m *countingMetrics) RecordCacheSize(int)             {}
func (m *countingMetrics) RecordLastPrice(string, float64) {}

func newTestClient(t *testing.T, url string, sl *sleepRecorder, opts ...Option) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:        url,
		APIKey:         "test-key",
		AttemptTimeout: 2 * time.Second,
		BackoffBase:    time.Second,
		BackoffCap:     5 * time.Second,
		MaxAttempts:    3,
	}
	return New(cfg, append([]Option{WithSleeper(sl.sleep)}, opts...)...)
}

const okBody = `{"prices":[[1000,100],[2000,0],[3000,105],[1500,102]],"market_caps":[],"total_volumes":[]}`

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("vs_currency") != "usd" || q.Get("days") != "7" || q.Get("precision") != "full" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("x-cg-demo-api-key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-cg-demo-api-key"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent should be set")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	sl := &sleepRecorder{}
	c := newTestClient(t, server.URL, sl)

	out := c.Fetch(context.Background(), "bitcoin", 7)
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}

	wantMs := []int64{1000, 1500, 3000}
	if out.Series.Len() != len(wantMs) {
		t.Fatalf("len = %d, want %d", out.Series.Len(), len(wantMs))
	}
	for i, ms := range wantMs {
		if got := out.Series.At(i).Timestamp.UnixMilli(); got != ms {
			t.Errorf("point %d ts = %d, want %d", i, got, ms)
		}
	}
	if len(sl.recorded()) != 0 {
		t.Errorf("unexpected backoff: %v", sl.recorded())
	}
}

func TestFetchRateLimitedThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	sl := &sleepRecorder{}
	m := &countingMetrics{}
	c := newTestClient(t, server.URL, sl, WithMetrics(m))

	out := c.Fetch(context.Background(), "bitcoin", 1)
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if got := sl.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("backoff = %v, want %v", got, want)
	}
	wantAttempts := []string{"rate_limited", "rate_limited", "ok"}
	if !reflect.DeepEqual(m.attempts, wantAttempts) {
		t.Errorf("attempt metrics = %v, want %v", m.attempts, wantAttempts)
	}
	if !reflect.DeepEqual(m.outcomes, []string{"ok"}) {
		t.Errorf("outcome metrics = %v", m.outcomes)
	}
}

func TestFetchRateLimitedExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sl := &sleepRecorder{}
	out := newTestClient(t, server.URL, sl).Fetch(context.Background(), "bitcoin", 1)
	if !errors.Is(out.Err, models.ErrRateLimited) {
		t.Fatalf("err = %v, want rate limited", out.Err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if got := sl.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("backoff = %v, want %v", got, want)
	}
}

func TestFetchTimeoutExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	sl := &sleepRecorder{}
	c := New(Config{
		BaseURL:        server.URL,
		AttemptTimeout: 30 * time.Millisecond,
		BackoffBase:    time.Second,
		BackoffCap:     5 * time.Second,
		MaxAttempts:    3,
	}, WithSleeper(sl.sleep))

	out := c.Fetch(context.Background(), "bitcoin", 1)
	if !errors.Is(out.Err, models.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", out.Err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if got := sl.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("backoff = %v, want %v", got, want)
	}
}

func TestFetchNetworkFailureExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	sl := &sleepRecorder{}
	out := newTestClient(t, url, sl).Fetch(context.Background(), "bitcoin", 1)
	if !errors.Is(out.Err, models.ErrNetworkFailure) {
		t.Fatalf("err = %v, want network failure", out.Err)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if got := sl.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("backoff = %v, want %v", got, want)
	}
}

func TestFetchTerminalFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *models.FetchError
	}{
		{"not found", http.StatusNotFound, `{"error":"coin not found"}`, models.ErrNotFound},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrMalformed},
		{"unauthorized", http.StatusUnauthorized, `{"status":{"error_code":10002}}`, models.ErrMalformed},
		{"invalid json", http.StatusOK, `{"prices":`, models.ErrMalformed},
		{"missing prices", http.StatusOK, `{"market_caps":[]}`, models.ErrMalformed},
		{"null prices", http.StatusOK, `{"prices":null}`, models.ErrMalformed},
		{"prices not array", http.StatusOK, `{"prices":"x"}`, models.ErrMalformed},
		{"short pair", http.StatusOK, `{"prices":[[1000]]}`, models.ErrMalformed},
		{"bad timestamp", http.StatusOK, `{"prices":[["x",1]]}`, models.ErrMalformed},
		{"empty prices", http.StatusOK, `{"prices":[]}`, models.ErrEmpty},
		{"all zero prices", http.StatusOK, `{"prices":[[1000,0],[2000,-1],[3000,null]]}`, models.ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			sl := &sleepRecorder{}
			out := newTestClient(t, server.URL, sl).Fetch(context.Background(), "doge", 7)
			if out.OK() {
				t.Fatal("expected failure")
			}
			if !errors.Is(out.Err, tt.want) {
				t.Errorf("kind = %s, want %s", out.Err.Kind, tt.want.Kind)
			}
			if got := calls.Load(); got != 1 {
				t.Errorf("attempts = %d, want 1", got)
			}
			if len(sl.recorded()) != 0 {
				t.Errorf("unexpected backoff: %v", sl.recorded())
			}
		})
	}
}

func TestFetchContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, server.URL, &sleepRecorder{}, WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	out := c.Fetch(ctx, "bitcoin", 1)
	if !errors.Is(out.Err, models.ErrNetworkFailure) {
		t.Fatalf("err = %v, want network failure", out.Err)
	}
}

func TestRetryStateSchedule(t *testing.T) {
	tests := []struct {
		name string
		kind models.ErrorKind
		max  int
		base time.Duration
		cap  time.Duration
		want []time.Duration
	}{
		{"rate limited linear", models.KindRateLimited, 4, time.Second, 5 * time.Second, []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}},
		{"timeout doubling", models.KindTimeout, 3, time.Second, 5 * time.Second, []time.Duration{1 * time.Second, 2 * time.Second}},
		{"timeout capped", models.KindTimeout, 5, 2 * time.Second, 5 * time.Second, []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}},
		{"network doubling", models.KindNetworkFailure, 4, time.Second, 5 * time.Second, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}},
		{"not found terminal", models.KindNotFound, 3, time.Second, 5 * time.Second, nil},
		{"malformed terminal", models.KindMalformed, 3, time.Second, 5 * time.Second, nil},
		{"empty terminal", models.KindEmpty, 3, time.Second, 5 * time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRetryState(tt.max, tt.base, tt.cap)
			var got []time.Duration
			for {
				s.begin()
				wait, ok := s.next(tt.kind)
				if !ok {
					break
				}
				got = append(got, wait)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("schedule = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"short", "bad gateway", 11},
		{"ascii cut", strings.Repeat("a", 250), 200},
		{"rune across limit", strings.Repeat("a", 199) + "é" + strings.Repeat("b", 10), 199},
		{"rune ends at limit", strings.Repeat("a", 198) + "é" + strings.Repeat("b", 10), 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snippet([]byte(tt.body))
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("snippet %q is not valid UTF-8", got)
			}
		})
	}
}
