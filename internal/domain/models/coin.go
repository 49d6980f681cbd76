package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coin is a selectable asset on the dashboard.
type Coin struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// SymbolFor returns the display symbol for a coin id, falling back to the
// first four upper-cased characters of the id.
func SymbolFor(coins []Coin, id string) string {
	for _, c := range coins {
		if c.ID == id && c.Symbol != "" {
			return c.Symbol
		}
	}
	s := strings.ToUpper(id)
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

// TickerSummary is the KPI row shown above the chart.
type TickerSummary struct {
	Coin        string           `json:"coin"`
	Symbol      string           `json:"symbol"`
	Days        int              `json:"days"`
	Window      string           `json:"window"`
	Points      int              `json:"points"`
	FirstPrice  decimal.Decimal  `json:"first_price"`
	LastPrice   decimal.Decimal  `json:"last_price"`
	ChangePct   *decimal.Decimal `json:"change_pct,omitempty"`
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	Bucket      int64            `json:"bucket"`
	NextRefresh time.Time        `json:"next_refresh"`
	ServedAt    time.Time        `json:"served_at"`
}

// Ticker is a series with its summary.
type Ticker struct {
	Summary TickerSummary `json:"summary"`
	Series  Series        `json:"series"`
}

// TickerRequest is the HTTP request for a coin's series.
type TickerRequest struct {
	Coin string `param:"coin" validate:"required,max=64"`
	Days int    `query:"days" default:"1" validate:"gte=1,lte=365"`
}
