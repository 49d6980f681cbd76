package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"CoinPull/internal/domain/models"
	"CoinPull/internal/scheduler"
	"CoinPull/pkg/config"
	xhttp "CoinPull/pkg/http"
	applogger "CoinPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

type countingCache struct{ calls atomic.Int32 }

func (c *countingCache) Get(context.Context, string, int, time.Time) models.FetchOutcome {
	c.calls.Add(1)
	return models.Failure(models.KindTimeout, "request timeout after 3 attempts")
}

func (c *countingCache) BucketOf(now time.Time) int64 { return now.Unix() / 900 }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunContextLifecycle(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 0
	cfg.Refresher.Enabled = true
	cfg.Refresher.RunOnStart = true

	cache := &countingCache{}
	l := applogger.NewNop()
	routes := xhttp.HandlerFunc(func(e *echo.Echo) {
		e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	})
	srv := xhttp.NewServer(routes, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithLogger(l))
	ref := scheduler.NewRefresher(cache, cfg.Coins, cfg.Refresher.Windows, scheduler.WithLogger(l))

	var closed atomic.Bool
	app := New(cfg, l, srv, ref, closerFunc(func() error { closed.Store(true); return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for cache.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cache.calls.Load() == 0 {
		t.Error("run_on_start did not warm the cache")
	}

	resp, err := http.Get("http://" + srv.Echo().ListenerAddr().String() + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ping status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunContext: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	if !closed.Load() {
		t.Error("closers not called")
	}
}
