package trader

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

type BinanceVenue struct {
	client *binance.Client
}

func NewBinanceVenue(client *binance.Client) *BinanceVenue {
	return &BinanceVenue{client: client}
}

func (v *BinanceVenue) MarketBuy(ctx context.Context, pair domain.Pair, cost decimal.Decimal, clientOrderID string) (Fill, error) {
	resp, err := v.client.NewCreateOrderService().Symbol(pair.Symbol()).
		Side(binance.SideTypeBuy).Type(binance.OrderTypeMarket).
		QuoteOrderQty(cost.String()).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return Fill{}, errors.Wrapf(clients.ClassifyBinanceError(err), "binance buy %s", pair)
	}

	fill := Fill{
		VenueOrderID: strconv.FormatInt(resp.OrderID, 10),
		Time:         time.UnixMilli(resp.TransactTime).UTC(),
	}

	executed, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return fill, nil
	}
	spent, err := decimal.NewFromString(resp.CummulativeQuoteQuantity)
	if err != nil || !executed.IsPositive() {
		return fill, nil
	}

	fill.Amount = executed
	fill.Cost = spent
	fill.Price = spent.DivRound(executed, 12)
	return fill, nil
}

func (v *BinanceVenue) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(clients.ClassifyBinanceError(err), "failed to get binance account balance")
	}

	for _, balance := range account.Balances {
		if balance.Asset == currency {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrapf(err, "failed to parse %s balance", currency)
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}
