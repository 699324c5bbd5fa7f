package trader

import (
	"context"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

const bybitAccountType = "UNIFIED"

type BybitVenue struct {
	client *bybit.Client
}

func NewBybitVenue(client *bybit.Client) *BybitVenue {
	return &BybitVenue{client: client}
}

// MarketBuy places a spot market buy. Bybit sizes spot market buys in the
// quote currency and does not report the fill in the response.
func (v *BybitVenue) MarketBuy(_ context.Context, pair domain.Pair, cost decimal.Decimal, clientOrderID string) (Fill, error) {
	resp, err := v.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(pair.Symbol()),
		Side:        bybit.SideBuy,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         cost.String(),
		OrderLinkID: &clientOrderID,
	})
	if err != nil {
		return Fill{}, errors.Wrapf(clients.ClassifyBybitError(err), "bybit buy %s", pair)
	}

	return Fill{VenueOrderID: resp.Result.OrderID, Time: time.Now().UTC()}, nil
}

func (v *BybitVenue) Balance(_ context.Context, currency string) (decimal.Decimal, error) {
	res, err := v.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5(bybitAccountType), nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(clients.ClassifyBybitError(err), "failed to get bybit wallet balance")
	}
	if len(res.Result.List) == 0 {
		return decimal.Zero, nil
	}

	for _, c := range res.Result.List[0].Coin {
		if string(c.Coin) == currency {
			free, err := decimal.NewFromString(c.WalletBalance)
			if err != nil {
				return decimal.Zero, errors.Wrapf(err, "failed to parse %s balance", currency)
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}
