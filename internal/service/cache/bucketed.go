package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"CoinPull/internal/domain/models"
	drepo "CoinPull/internal/domain/repository"
	applogger "CoinPull/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultWindow   = 900 * time.Second
	DefaultCapacity = 64
)

// Key identifies one memoized fetch.
type Key struct {
	SeriesID   string
	WindowDays int
	Bucket     int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%d", k.SeriesID, k.WindowDays, k.Bucket)
}

type entry struct {
	key   Key
	value models.FetchOutcome
	order uint64
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Shared    uint64
	Evictions uint64
}

// Option configures BucketedCache.
type Option func(*BucketedCache)

// WithWindow sets the bucket width.
func WithWindow(d time.Duration) Option {
	return func(c *BucketedCache) {
		if d >= time.Second {
			c.windowSeconds = int64(d / time.Second)
		}
	}
}

// WithCapacity sets the maximum number of distinct keys.
func WithCapacity(n int) Option {
	return func(c *BucketedCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *BucketedCache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *BucketedCache) { c.logger = l }
}

// BucketedCache memoizes fetch outcomes per (series, window, time bucket).
// Failures are stored like successes and replayed until the bucket advances.
// When full, the oldest inserted entry is evicted regardless of access.
type BucketedCache struct {
	fetcher       drepo.PriceFetcher
	windowSeconds int64
	capacity      int

	mu      sync.Mutex
	entries map[Key]*list.Element
	order   *list.List // front = oldest insertion
	seq     uint64
	stats   Stats

	flights singleflight.Group

	metrics drepo.Metrics
	logger  *applogger.Logger
}

// NewBucketedCache creates an empty cache in front of fetcher.
func NewBucketedCache(fetcher drepo.PriceFetcher, opts ...Option) *BucketedCache {
	c := &BucketedCache{
		fetcher:       fetcher,
		windowSeconds: int64(DefaultWindow / time.Second),
		capacity:      DefaultCapacity,
		entries:       make(map[Key]*list.Element),
		order:         list.New(),
		logger:        applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BucketOf returns floor(now / window) in Unix seconds.
func (c *BucketedCache) BucketOf(now time.Time) int64 {
	secs := now.Unix()
	b := secs / c.windowSeconds
	if secs%c.windowSeconds != 0 && secs < 0 {
		b--
	}
	return b
}

// Window returns the bucket width.
func (c *BucketedCache) Window() time.Duration {
	return time.Duration(c.windowSeconds) * time.Second
}

// Get returns the outcome for the key derived from now, calling the fetcher
// at most once per key. Concurrent callers of an unresolved key share the
// single in-flight fetch. The fetch does not inherit ctx's cancellation: a
// caller going away must not be stored as an upstream failure for the bucket.
func (c *BucketedCache) Get(ctx context.Context, seriesID string, windowDays int, now time.Time) models.FetchOutcome {
	key := Key{SeriesID: seriesID, WindowDays: windowDays, Bucket: c.BucketOf(now)}

	if out, ok := c.lookup(key); ok {
		c.recordLookup("hit")
		return out
	}

	fctx := context.WithoutCancel(ctx)
	v, _, shared := c.flights.Do(key.String(), func() (interface{}, error) {
		// a flight for this key may have finished between lookup and Do
		if out, ok := c.lookup(key); ok {
			return out, nil
		}
		out := c.fetcher.Fetch(fctx, seriesID, windowDays)
		c.insert(key, out)
		return out, nil
	})

	if shared {
		c.recordLookup("shared")
	} else {
		c.recordLookup("miss")
	}
	return v.(models.FetchOutcome)
}

// Peek returns a stored outcome without fetching.
func (c *BucketedCache) Peek(key Key) (models.FetchOutcome, bool) {
	return c.lookup(key)
}

// Len returns the number of stored keys.
func (c *BucketedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *BucketedCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

func (c *BucketedCache) lookup(key Key) (models.FetchOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return models.FetchOutcome{}, false
	}
	return el.Value.(*entry).value, true
}

func (c *BucketedCache) insert(key Key, out models.FetchOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		e := c.order.Remove(oldest).(*entry)
		delete(c.entries, e.key)
		c.stats.Evictions++
		if c.metrics != nil {
			c.metrics.RecordCacheEviction()
		}
		c.logger.Debug("cache entry evicted",
			applogger.String("key", e.key.String()),
			applogger.Int64("order", int64(e.order)),
		)
	}

	c.seq++
	c.entries[key] = c.order.PushBack(&entry{key: key, value: out, order: c.seq})
	if c.metrics != nil {
		c.metrics.RecordCacheSize(len(c.entries))
	}
}

func (c *BucketedCache) recordLookup(result string) {
	c.mu.Lock()
	switch result {
	case "hit":
		c.stats.Hits++
	case "shared":
		c.stats.Shared++
	default:
		c.stats.Misses++
	}
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(result)
	}
}

var _ drepo.SeriesCache = (*BucketedCache)(nil)
