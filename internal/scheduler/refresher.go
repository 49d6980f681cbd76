package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinPull/internal/domain/models"
	domrepo "CoinPull/internal/domain/repository"
	applogger "CoinPull/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RunResult counts the outcomes of one warm-up pass.
type RunResult struct {
	OK     int
	Failed int
}

// Refresher warms the bucketed cache for every coin and window on a cron
// schedule, so dashboard requests land on an already resolved bucket.
type Refresher struct {
	cron    *cron.Cron
	cache   domrepo.SeriesCache
	coins   []string
	windows []int
	logger  *applogger.Logger
	now     func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures Refresher.
type Option func(*Refresher)

func WithLogger(l *applogger.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

func NewRefresher(cache domrepo.SeriesCache, coins []models.Coin, windows []int, opts ...Option) *Refresher {
	ids := make([]string, 0, len(coins))
	for _, c := range coins {
		ids = append(ids, c.ID)
	}
	r := &Refresher{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cache:   cache,
		coins:   ids,
		windows: append([]int(nil), windows...),
		logger:  applogger.NewNop(),
		now:     time.Now,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the warm-up job under a cron spec such as "@every 15m".
func (r *Refresher) Register(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler. Jobs stop early once ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()
	r.cron.Start()
	r.logger.Info("refresher started",
		applogger.Int("coins", len(r.coins)),
		applogger.Int("windows", len(r.windows)),
	)
}

// Stop stops the scheduler and waits for a running pass to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.logger.Info("refresher stopped")
}

// RunNow performs one warm-up pass immediately.
func (r *Refresher) RunNow(ctx context.Context) RunResult {
	start := time.Now()
	now := r.now()
	var res RunResult
	for _, coin := range r.coins {
		for _, days := range r.windows {
			if ctx.Err() != nil {
				return res
			}
			out := r.cache.Get(ctx, coin, days, now)
			if out.OK() {
				res.OK++
				continue
			}
			res.Failed++
			r.logger.Warn("refresh failed",
				applogger.String("coin", coin),
				applogger.Int("days", days),
				applogger.String("kind", string(out.Err.Kind)),
			)
		}
	}
	r.logger.Info("refresh pass done",
		applogger.Int64("bucket", r.cache.BucketOf(now)),
		applogger.Int("ok", res.OK),
		applogger.Int("failed", res.Failed),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res
}

func (r *Refresher) tick() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	r.RunNow(ctx)
}
