package repository

import (
	"context"
	"time"

	"CoinPull/internal/domain/models"
	drepo "CoinPull/internal/domain/repository"
	pkgcache "CoinPull/pkg/cache"
)

// SnapshotRecord is the stored form of the latest successful series.
type SnapshotRecord struct {
	Coin      string              `json:"coin"`
	Days      int                 `json:"days"`
	FetchedAt time.Time           `json:"fetched_at"`
	Series    []models.PricePoint `json:"series"`
}

// SnapshotKey returns the store key for a coin and window, without the store prefix.
func SnapshotKey(coin string, days int) string {
	return pkgcache.GenerateKeyWithParams("snapshot", coin, days)
}

// RedisSnapshotStore keeps the latest successful series per coin and window.
// Failed outcomes are skipped so the last good snapshot stays readable.
type RedisSnapshotStore struct {
	store pkgcache.Service
	ttl   time.Duration
}

// NewRedisSnapshotStore creates a store whose entries expire after ttl.
func NewRedisSnapshotStore(store pkgcache.Service, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{store: store, ttl: ttl}
}

func (r *RedisSnapshotStore) PublishSnapshot(ctx context.Context, snap drepo.Snapshot) error {
	if !snap.Outcome.OK() {
		return nil
	}
	rec := SnapshotRecord{
		Coin:      snap.SeriesID,
		Days:      snap.WindowDays,
		FetchedAt: snap.FetchedAt.UTC(),
		Series:    snap.Outcome.Series.Points(),
	}
	return r.store.Set(ctx, SnapshotKey(snap.SeriesID, snap.WindowDays), rec, r.ttl)
}

// Latest returns the stored snapshot or pkgcache.ErrCacheMiss.
func (r *RedisSnapshotStore) Latest(ctx context.Context, coin string, days int) (SnapshotRecord, error) {
	var rec SnapshotRecord
	err := r.store.Get(ctx, SnapshotKey(coin, days), &rec)
	return rec, err
}

func (r *RedisSnapshotStore) Close() error {
	return r.store.Close()
}

var _ drepo.SnapshotPublisher = (*RedisSnapshotStore)(nil)
