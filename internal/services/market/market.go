// Package market serves current tickers and daily close series per symbol.
package market

import (
	"context"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// MaxLookbackDays bounds the daily close series requested from a venue.
const MaxLookbackDays = 1000

// Provider is a venue market data source.
type Provider interface {
	Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error)
	// CloseSeries returns up to days daily closes ordered oldest first.
	CloseSeries(ctx context.Context, pair domain.Pair, days int) ([]domain.ClosePoint, error)
}

func boundDays(days int) int {
	if days <= 0 || days > MaxLookbackDays {
		return MaxLookbackDays
	}
	return days
}
