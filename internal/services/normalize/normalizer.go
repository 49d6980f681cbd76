package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"CoinPull/internal/domain/models"

	"github.com/shopspring/decimal"
)

// RawSample is one [timestampMillis, price] pair as received from the provider.
// Price keeps the raw JSON token; "", "null" or a non-numeric token mean no price.
type RawSample struct {
	TimestampMillis int64
	Price           json.Number
}

// Series turns raw samples into a clean, time-ordered series.
// Samples with a missing, non-numeric, zero or negative price are dropped.
// Ties on timestamp keep their input order.
func Series(raw []RawSample) (models.Series, *models.FetchError) {
	points := make([]models.PricePoint, 0, len(raw))
	for _, r := range raw {
		price, ok := parsePrice(r.Price)
		if !ok {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: time.UnixMilli(r.TimestampMillis).UTC(),
			Price:     price,
		})
	}

	if len(points) == 0 {
		return models.Series{}, models.NewFetchError(models.KindEmpty, "no valid price data after filtering")
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return models.NewSeries(points), nil
}

func parsePrice(n json.Number) (decimal.Decimal, bool) {
	s := strings.TrimSpace(n.String())
	if s == "" || s == "null" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, false
	}
	return d, true
}
