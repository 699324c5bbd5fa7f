package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Strategy names the evaluator that produced an order.
type Strategy string

const (
	StrategyAveraging Strategy = "averaging"
	StrategyDip       Strategy = "dip"
)

// ParseStrategy accepts the canonical names plus the "dca" alias.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "averaging", "dca":
		return StrategyAveraging, nil
	case "dip", "dips":
		return StrategyDip, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Side of an order. Only buys exist in this domain.
type Side string

const SideBuy Side = "buy"

// costTolerance is the relative slack allowed between cost and price*amount.
var costTolerance = decimal.New(1, -6)

// Order is one executed (or simulated) buy. Orders are immutable once recorded.
type Order struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"ts"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Cost      decimal.Decimal `json:"cost"`
	Strategy  Strategy        `json:"strategy"`
	Dummy     bool            `json:"dummy"`
}

// NewOrder builds an order from a fill, deriving amount from cost and price.
func NewOrder(id string, ts time.Time, accountID string, pair Pair, strategy Strategy, price, cost decimal.Decimal, dummy bool) (Order, error) {
	if !price.IsPositive() {
		return Order{}, fmt.Errorf("order price must be positive, got %s", price.String())
	}

	o := Order{
		ID:        id,
		Timestamp: ts,
		AccountID: accountID,
		Symbol:    pair.String(),
		Side:      SideBuy,
		Price:     price,
		Amount:    cost.DivRound(price, 12),
		Cost:      cost,
		Strategy:  strategy,
		Dummy:     dummy,
	}

	return o, o.Validate()
}

// Validate checks the order invariants.
func (o Order) Validate() error {
	switch {
	case o.ID == "":
		return errors.New("order id is required")
	case o.AccountID == "":
		return errors.New("order account is required")
	case o.Symbol == "":
		return errors.New("order symbol is required")
	case o.Timestamp.IsZero():
		return errors.New("order timestamp is required")
	case o.Side != SideBuy:
		return fmt.Errorf("unsupported order side %q", o.Side)
	case o.Strategy != StrategyAveraging && o.Strategy != StrategyDip:
		return fmt.Errorf("unsupported order strategy %q", o.Strategy)
	case !o.Price.IsPositive() || !o.Amount.IsPositive() || !o.Cost.IsPositive():
		return fmt.Errorf("order price, amount and cost must be positive (price=%s amount=%s cost=%s)",
			o.Price.String(), o.Amount.String(), o.Cost.String())
	}

	diff := o.Price.Mul(o.Amount).Sub(o.Cost).Abs()
	if diff.GreaterThan(o.Cost.Mul(costTolerance)) {
		return fmt.Errorf("order cost %s does not match price %s * amount %s",
			o.Cost.String(), o.Price.String(), o.Amount.String())
	}

	return nil
}

// Pair parses the order symbol.
func (o Order) Pair() (Pair, error) {
	return ParsePair(o.Symbol)
}

// Series returns the ledger series the order belongs to.
func (o Order) Series() SeriesKey {
	return SeriesKey{AccountID: o.AccountID, Symbol: o.Symbol, Strategy: o.Strategy, Dummy: o.Dummy}
}

// SeriesKey identifies one (account, symbol, strategy, dummy) order history.
type SeriesKey struct {
	AccountID string
	Symbol    string
	Strategy  Strategy
	Dummy     bool
}

// NewSeriesKey normalizes the symbol so lookups match recorded orders.
func NewSeriesKey(accountID string, pair Pair, strategy Strategy, dummy bool) SeriesKey {
	return SeriesKey{AccountID: accountID, Symbol: pair.String(), Strategy: strategy, Dummy: dummy}
}

func (k SeriesKey) String() string {
	mode := "real"
	if k.Dummy {
		mode = "dummy"
	}
	return fmt.Sprintf("%s_%s_%s_%s", k.AccountID, k.Symbol, k.Strategy, mode)
}

// BuyIntent is what an evaluator asks the execution adapter to do.
type BuyIntent struct {
	AccountID string
	Pair      Pair
	Strategy  Strategy
	Cost      decimal.Decimal
	PriceHint decimal.Decimal
	Dummy     bool
}
