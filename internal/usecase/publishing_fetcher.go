package usecase

import (
	"context"
	"time"

	"CoinPull/internal/domain/models"
	domrepo "CoinPull/internal/domain/repository"
	applogger "CoinPull/pkg/logger"
)

const defaultPublishTimeout = 2 * time.Second

// PublishingFetcher hands every fresh outcome to the snapshot sinks.
// Sink errors are logged and never change the outcome.
type PublishingFetcher struct {
	next    domrepo.PriceFetcher
	sinks   []domrepo.SnapshotPublisher
	logger  *applogger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewPublishingFetcher(next domrepo.PriceFetcher, logger *applogger.Logger, sinks ...domrepo.SnapshotPublisher) *PublishingFetcher {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &PublishingFetcher{
		next:    next,
		sinks:   sinks,
		logger:  logger,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}
}

func (f *PublishingFetcher) Fetch(ctx context.Context, seriesID string, windowDays int) models.FetchOutcome {
	out := f.next.Fetch(ctx, seriesID, windowDays)
	if len(f.sinks) == 0 {
		return out
	}

	snap := domrepo.Snapshot{
		SeriesID:   seriesID,
		WindowDays: windowDays,
		FetchedAt:  f.now(),
		Outcome:    out,
	}
	// publish even when the caller already went away
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()
	for _, sink := range f.sinks {
		if err := sink.PublishSnapshot(pctx, snap); err != nil {
			f.logger.Warn("snapshot publish failed",
				applogger.String("coin", seriesID),
				applogger.Int("days", windowDays),
				applogger.Error(err),
			)
		}
	}
	return out
}

// Close closes every sink, returning the first error.
func (f *PublishingFetcher) Close() error {
	var first error
	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ domrepo.PriceFetcher = (*PublishingFetcher)(nil)
