package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is the current quote for a symbol.
type Ticker struct {
	Pair Pair
	Last decimal.Decimal
	Ask  decimal.Decimal
	// Percentage24h is the 24h change in percent, e.g. -7.0.
	Percentage24h decimal.Decimal
	Time          time.Time
}

// AskOrLast returns the ask, falling back to the last trade price.
func (t Ticker) AskOrLast() decimal.Decimal {
	if t.Ask.IsPositive() {
		return t.Ask
	}
	return t.Last
}

// ClosePoint is one daily close.
type ClosePoint struct {
	Time  time.Time
	Close decimal.Decimal
}

// SymbolStatistic is the persisted volatility estimate for a symbol.
type SymbolStatistic struct {
	Symbol string
	// StdDev of daily returns as a fraction (0.03 = 3%).
	StdDev    decimal.Decimal
	UpdatedOn time.Time
	Comments  string
}

// Fresh reports whether the statistic is younger than maxAge.
func (s SymbolStatistic) Fresh(now time.Time, maxAge time.Duration) bool {
	return !s.UpdatedOn.IsZero() && now.Sub(s.UpdatedOn) < maxAge
}
