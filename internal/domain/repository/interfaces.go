package repository

import (
	"context"
	"time"

	"CoinPull/internal/domain/models"
)

// PriceFetcher performs one logical price-history fetch, retries included.
type PriceFetcher interface {
	Fetch(ctx context.Context, seriesID string, windowDays int) models.FetchOutcome
}

// SeriesCache returns the outcome for a series in the bucket containing now.
type SeriesCache interface {
	Get(ctx context.Context, seriesID string, windowDays int, now time.Time) models.FetchOutcome
	BucketOf(now time.Time) int64
}

// SnapshotPublisher receives every freshly fetched outcome.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap Snapshot) error
	Close() error
}

// Snapshot is a fetched outcome with its request parameters.
type Snapshot struct {
	SeriesID   string
	WindowDays int
	FetchedAt  time.Time
	Outcome    models.FetchOutcome
}

type Metrics interface {
	RecordFetchAttempt(result string)
	RecordFetchOutcome(kind string, seconds float64)
	RecordCacheLookup(result string)
	RecordCacheEviction()
	RecordCacheSize(n int)
	RecordLastPrice(seriesID string, price float64)
}
