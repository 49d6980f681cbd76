package usecase

import (
	"context"
	"errors"
	"testing"

	"CoinPull/internal/domain/models"
	domrepo "CoinPull/internal/domain/repository"
)

type staticFetcher struct {
	out models.FetchOutcome
}

func (f staticFetcher) Fetch(context.Context, string, int) models.FetchOutcome { return f.out }

type recordingSink struct {
	snaps  []domrepo.Snapshot
	err    error
	closed bool
	ctxErr error
}

func (s *recordingSink) PublishSnapshot(ctx context.Context, snap domrepo.Snapshot) error {
	s.snaps = append(s.snaps, snap)
	s.ctxErr = ctx.Err()
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.err
}

func TestPublishingFetcherForwardsOutcome(t *testing.T) {
	want := models.Success(series("1", "2"))
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("redis down")}
	f := NewPublishingFetcher(staticFetcher{out: want}, nil, broken, ok)

	got := f.Fetch(context.Background(), "bitcoin", 30)
	if !got.OK() || got.Series.Len() != 2 {
		t.Fatalf("outcome altered: %+v", got)
	}
	for i, s := range []*recordingSink{broken, ok} {
		if len(s.snaps) != 1 || s.snaps[0].SeriesID != "bitcoin" || s.snaps[0].WindowDays != 30 {
			t.Errorf("sink %d got %+v", i, s.snaps)
		}
	}
}

func TestPublishingFetcherPublishesFailures(t *testing.T) {
	sink := &recordingSink{}
	f := NewPublishingFetcher(staticFetcher{out: models.Failure(models.KindRateLimited, "rate limited after 3 attempts")}, nil, sink)

	got := f.Fetch(context.Background(), "bitcoin", 1)
	if !errors.Is(got.Err, models.ErrRateLimited) {
		t.Fatalf("err = %v", got.Err)
	}
	if len(sink.snaps) != 1 || sink.snaps[0].Outcome.OK() {
		t.Errorf("snaps = %+v", sink.snaps)
	}
}

func TestPublishingFetcherIgnoresCallerCancel(t *testing.T) {
	sink := &recordingSink{}
	f := NewPublishingFetcher(staticFetcher{out: models.Success(series("1"))}, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Fetch(ctx, "bitcoin", 1)
	if sink.ctxErr != nil {
		t.Errorf("sink saw cancelled context: %v", sink.ctxErr)
	}
}

func TestPublishingFetcherClose(t *testing.T) {
	a := &recordingSink{err: errors.New("first")}
	b := &recordingSink{}
	f := NewPublishingFetcher(staticFetcher{}, nil, a, b)

	if err := f.Close(); err == nil || err.Error() != "first" {
		t.Errorf("err = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("not every sink closed")
	}
}
