// Package trader places quote-sized market buys and reads balances.
package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// Executor turns buy intents into recorded orders.
type Executor interface {
	PlaceBuy(ctx context.Context, intent domain.BuyIntent) (domain.Order, error)
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Venue is a spot exchange account.
type Venue interface {
	// MarketBuy spends cost units of the quote currency on the base currency.
	MarketBuy(ctx context.Context, pair domain.Pair, cost decimal.Decimal, clientOrderID string) (Fill, error)
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Fill is what the venue reported for an executed market buy. Zero Price or
// Cost means the venue did not report it.
type Fill struct {
	VenueOrderID string
	Time         time.Time
	Price        decimal.Decimal
	Amount       decimal.Decimal
	Cost         decimal.Decimal
}
