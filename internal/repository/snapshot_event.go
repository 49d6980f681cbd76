package repository

import (
	"time"

	"CoinPull/internal/domain/models"
	drepo "CoinPull/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventTypePriceSnapshot = "price_snapshot"

// SnapshotEvent is the wire form of a fetched outcome.
type SnapshotEvent struct {
	Type       string              `json:"type"`
	EventID    string              `json:"event_id"`
	Coin       string              `json:"coin"`
	Days       int                 `json:"days"`
	FetchedAt  time.Time           `json:"fetched_at"`
	OK         bool                `json:"ok"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	Detail     string              `json:"detail,omitempty"`
	Points     int                 `json:"points"`
	FirstPrice *decimal.Decimal    `json:"first_price,omitempty"`
	LastPrice  *decimal.Decimal    `json:"last_price,omitempty"`
	Series     []models.PricePoint `json:"series,omitempty"`
}

// NewSnapshotEvent builds an event for snap. Failed outcomes carry only their kind and detail.
func NewSnapshotEvent(snap drepo.Snapshot) SnapshotEvent {
	ev := SnapshotEvent{
		Type:      EventTypePriceSnapshot,
		EventID:   uuid.NewString(),
		Coin:      snap.SeriesID,
		Days:      snap.WindowDays,
		FetchedAt: snap.FetchedAt.UTC(),
		OK:        snap.Outcome.OK(),
	}
	if !ev.OK {
		ev.ErrorKind = string(snap.Outcome.Err.Kind)
		ev.Detail = snap.Outcome.Err.Detail
		return ev
	}
	s := snap.Outcome.Series
	first, last := s.First().Price, s.Last().Price
	ev.Points = s.Len()
	ev.FirstPrice = &first
	ev.LastPrice = &last
	ev.Series = s.Points()
	return ev
}
