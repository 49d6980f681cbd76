package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single observation of an asset's USD price.
type PricePoint struct {
	Timestamp time.Time       `json:"time"`
	Price     decimal.Decimal `json:"price"`
}

// Series is an ordered, non-empty sequence of price points.
// The zero value is an empty series and is never returned as a successful fetch.
type Series struct {
	points []PricePoint
}

// NewSeries copies points into a Series. Callers are responsible for ordering.
func NewSeries(points []PricePoint) Series {
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return Series{points: cp}
}

func (s Series) Len() int { return len(s.points) }

func (s Series) IsEmpty() bool { return len(s.points) == 0 }

// At returns the i-th point; it panics on out of range like a slice index.
func (s Series) At(i int) PricePoint { return s.points[i] }

func (s Series) First() PricePoint { return s.points[0] }

func (s Series) Last() PricePoint { return s.points[len(s.points)-1] }

// Points returns a copy of the underlying points.
func (s Series) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

func (s Series) MarshalJSON() ([]byte, error) {
	if s.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.points)
}
