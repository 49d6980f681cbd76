package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinPull/internal/domain/models"
	domrepo "CoinPull/internal/domain/repository"
	xutil "CoinPull/pkg/util"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TickerUseCase serves cached price series with their KPI summary.
type TickerUseCase struct {
	cache  domrepo.SeriesCache
	coins  []models.Coin
	window time.Duration
	now    func() time.Time
}

func NewTickerUseCase(cache domrepo.SeriesCache, coins []models.Coin, window time.Duration) *TickerUseCase {
	cp := make([]models.Coin, len(coins))
	copy(cp, coins)
	return &TickerUseCase{cache: cache, coins: cp, window: window, now: time.Now}
}

// WithClock overrides the clock used to pick the bucket.
func (uc *TickerUseCase) WithClock(now func() time.Time) *TickerUseCase {
	uc.now = now
	return uc
}

// Coins returns the configured coin options.
func (uc *TickerUseCase) Coins() []models.Coin {
	cp := make([]models.Coin, len(uc.coins))
	copy(cp, uc.coins)
	return cp
}

// GetTicker returns the series for coin over the last days. The error is a
// *models.FetchError when the fetch itself failed.
func (uc *TickerUseCase) GetTicker(ctx context.Context, coin string, days int) (*models.Ticker, error) {
	if coin == "" {
		return nil, fmt.Errorf("coin required")
	}
	if days < 1 {
		return nil, fmt.Errorf("days must be >= 1, got %d", days)
	}

	now := uc.now()
	out := uc.cache.Get(ctx, coin, days, now)
	series, err := out.Result()
	if err != nil {
		return nil, err
	}

	bucket := uc.cache.BucketOf(now)
	_, next := xutil.BucketBounds(bucket, uc.window)

	return &models.Ticker{
		Summary: Summarize(series, coin, models.SymbolFor(uc.coins, coin), days, bucket, next, now),
		Series:  series,
	}, nil
}

// Summarize computes the KPI row for a non-empty series.
func Summarize(s models.Series, coin, symbol string, days int, bucket int64, nextRefresh, now time.Time) models.TickerSummary {
	first, last := s.First(), s.Last()
	sum := models.TickerSummary{
		Coin:        coin,
		Symbol:      symbol,
		Days:        days,
		Window:      xutil.WindowLabel(days),
		Points:      s.Len(),
		FirstPrice:  first.Price,
		LastPrice:   last.Price,
		From:        first.Timestamp,
		To:          last.Timestamp,
		Bucket:      bucket,
		NextRefresh: nextRefresh,
		ServedAt:    now.UTC(),
	}
	if s.Len() > 1 && first.Price.IsPositive() {
		pct := last.Price.Sub(first.Price).Div(first.Price).Mul(hundred).Round(2)
		sum.ChangePct = &pct
	}
	return sum
}
