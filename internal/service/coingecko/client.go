package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"CoinPull/internal/domain/models"
	drepo "CoinPull/internal/domain/repository"
	"CoinPull/internal/services/normalize"
	xhttp "CoinPull/pkg/http"
	applogger "CoinPull/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config holds the CoinGecko client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	APIKeyHeader      string
	UserAgent         string
	AttemptTimeout    time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	RequestsPerMinute int
}

// DefaultConfig mirrors the public demo API limits.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.coingecko.com/api/v3",
		APIKeyHeader:   "x-cg-demo-api-key",
		UserAgent:      "CoinPull/1.0 (+market_chart)",
		AttemptTimeout: 15 * time.Second,
		MaxAttempts:    3,
		BackoffBase:    time.Second,
		BackoffCap:     5 * time.Second,
	}
}

// Option configures Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, xhttp.WithHTTPClient(hc)) }
}

// Client fetches market_chart price history.
type Client struct {
	cfg      Config
	http     *xhttp.Client
	httpOpts []xhttp.ClientOption
	limiter  *rate.Limiter
	sleep    Sleeper
	logger   *applogger.Logger
	metrics  drepo.Metrics
}

// New creates a CoinGecko client. Zero fields in cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = def.APIKeyHeader
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}

	c := &Client{
		cfg:    cfg,
		sleep:  sleepContext,
		logger: applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.RequestsPerMinute > 0 {
		every := time.Minute / time.Duration(cfg.RequestsPerMinute)
		c.limiter = rate.NewLimiter(rate.Every(every), 1)
	}

	httpOpts := []xhttp.ClientOption{
		xhttp.WithBaseURL(cfg.BaseURL),
		xhttp.WithTimeout(cfg.AttemptTimeout),
		xhttp.WithDefaultHeader("Accept", "application/json"),
		xhttp.WithDefaultHeader("User-Agent", cfg.UserAgent),
		xhttp.WithDefaultHeader(cfg.APIKeyHeader, cfg.APIKey),
	}
	c.http = xhttp.NewClient(append(httpOpts, c.httpOpts...)...)
	return c
}

// Fetch retrieves the USD price history of seriesID over the last windowDays days.
func (c *Client) Fetch(ctx context.Context, seriesID string, windowDays int) models.FetchOutcome {
	start := time.Now()
	log := c.logger.With(
		applogger.String("fetch_id", uuid.NewString()),
		applogger.String("coin", seriesID),
		applogger.Int("days", windowDays),
	)

	outcome := c.fetch(ctx, log, seriesID, windowDays)

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordFetchOutcome(outcome.Label(), elapsed.Seconds())
	}
	if outcome.OK() {
		log.Info("market chart fetched",
			applogger.Int("points", outcome.Series.Len()),
			applogger.Duration("duration_ms", elapsed),
		)
		if c.metrics != nil {
			last, _ := outcome.Series.Last().Price.Float64()
			c.metrics.RecordLastPrice(seriesID, last)
		}
	} else {
		log.Warn("market chart fetch failed",
			applogger.String("kind", string(outcome.Err.Kind)),
			applogger.String("detail", outcome.Err.Detail),
			applogger.Duration("duration_ms", elapsed),
		)
	}
	return outcome
}

func (c *Client) fetch(ctx context.Context, log *applogger.Logger, seriesID string, windowDays int) models.FetchOutcome {
	state := newRetryState(c.cfg.MaxAttempts, c.cfg.BackoffBase, c.cfg.BackoffCap)

	for {
		attempt := state.begin()

		raw, ferr := c.attempt(ctx, seriesID, windowDays)
		if c.metrics != nil {
			label := "ok"
			if ferr != nil {
				label = string(ferr.Kind)
			}
			c.metrics.RecordFetchAttempt(label)
		}
		if ferr == nil {
			series, nerr := normalize.Series(raw)
			if nerr != nil {
				return models.FailureFrom(nerr)
			}
			return models.Success(series)
		}

		wait, retry := state.next(ferr.Kind)
		if !retry {
			if ferr.Kind.Retryable() {
				ferr.Detail = fmt.Sprintf("%s after %d attempts", ferr.Detail, attempt)
			}
			return models.FailureFrom(ferr)
		}

		log.Debug("retrying market chart",
			applogger.Int("attempt", attempt),
			applogger.String("kind", string(ferr.Kind)),
			applogger.Duration("backoff_ms", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return models.FailureFrom(classifyTransport(err))
		}
	}
}

// attempt performs a single request and classifies its result.
func (c *Client) attempt(ctx context.Context, seriesID string, windowDays int) ([]normalize.RawSample, *models.FetchError) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransport(err)
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	resp, err := c.http.Do(actx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/coins/" + xhttp.PathEscape(seriesID) + "/market_chart",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"days":        {strconv.Itoa(windowDays)},
			"precision":   {"full"},
		},
	})
	if err != nil {
		return nil, classifyTransport(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, models.NewFetchError(models.KindRateLimited, "rate limited by provider")
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NewFetchError(models.KindNotFound, "coin not found: %s", seriesID)
	case !resp.OK():
		return nil, models.NewFetchError(models.KindMalformed, "HTTP %d: %s", resp.StatusCode, snippet(resp.Body))
	}

	return decodeMarketChart(resp.Body)
}

type marketChart struct {
	Prices json.RawMessage `json:"prices"`
}

// decodeMarketChart extracts [timestampMillis, price] pairs from the body.
func decodeMarketChart(body []byte) ([]normalize.RawSample, *models.FetchError) {
	var mc marketChart
	if err := json.Unmarshal(body, &mc); err != nil {
		return nil, models.NewFetchError(models.KindMalformed, "decode body: %v", err)
	}
	if len(mc.Prices) == 0 || bytes.Equal(bytes.TrimSpace(mc.Prices), []byte("null")) {
		return nil, models.NewFetchError(models.KindMalformed, "missing 'prices' data in response")
	}

	dec := json.NewDecoder(bytes.NewReader(mc.Prices))
	dec.UseNumber()
	var pairs [][]interface{}
	if err := dec.Decode(&pairs); err != nil {
		return nil, models.NewFetchError(models.KindMalformed, "decode prices: %v", err)
	}
	if len(pairs) == 0 {
		return nil, models.NewFetchError(models.KindEmpty, "no price data available for this timeframe")
	}

	out := make([]normalize.RawSample, 0, len(pairs))
	for i, p := range pairs {
		if len(p) < 2 {
			return nil, models.NewFetchError(models.KindMalformed, "price pair %d has %d elements", i, len(p))
		}
		ts, ok := timestampOf(p[0])
		if !ok {
			return nil, models.NewFetchError(models.KindMalformed, "price pair %d has invalid timestamp", i)
		}
		var price json.Number
		if n, ok := p[1].(json.Number); ok {
			price = n
		}
		out = append(out, normalize.RawSample{TimestampMillis: ts, Price: price})
	}
	return out, nil
}

func timestampOf(v interface{}) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// classifyTransport maps a transport error to Timeout or NetworkFailure.
func classifyTransport(err error) *models.FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewFetchError(models.KindTimeout, "request timeout: %v", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.NewFetchError(models.KindTimeout, "request timeout: %v", err)
	}
	return models.NewFetchError(models.KindNetworkFailure, "network error: %v", err)
}

// snippet returns at most 200 bytes of b without splitting a rune.
func snippet(b []byte) string {
	const max = 200
	if len(b) <= max {
		return string(b)
	}
	end := max
	for end > 0 && !utf8.RuneStart(b[end]) {
		end--
	}
	return string(b[:end])
}

var _ drepo.PriceFetcher = (*Client)(nil)
