package market

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

type BinanceProvider struct {
	client *binance.Client
}

func NewBinanceProvider(client *binance.Client) *BinanceProvider {
	return &BinanceProvider{client: client}
}

func (p *BinanceProvider) Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error) {
	stats, err := p.client.NewListPriceChangeStatsService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(clients.ClassifyBinanceError(err), "binance ticker %s", pair)
	}
	if len(stats) == 0 {
		return domain.Ticker{}, errors.Errorf("binance API returned empty ticker for %s", pair)
	}

	return parseTicker(pair, stats[0].LastPrice, stats[0].AskPrice, stats[0].PriceChangePercent, decimal.NewFromInt(1))
}

func (p *BinanceProvider) CloseSeries(ctx context.Context, pair domain.Pair, days int) ([]domain.ClosePoint, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval("1d").
		Limit(boundDays(days)).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(clients.ClassifyBinanceError(err), "binance klines %s", pair)
	}

	points := make([]domain.ClosePoint, 0, len(klines))
	for i, k := range klines {
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		points = append(points, domain.ClosePoint{
			Time:  time.UnixMilli(k.OpenTime).UTC(),
			Close: closePrice,
		})
	}

	return points, nil
}

// parseTicker builds a ticker from venue strings. scale converts the venue's
// 24h change into percent.
func parseTicker(pair domain.Pair, last, ask, change string, scale decimal.Decimal) (domain.Ticker, error) {
	lastPrice, err := decimal.NewFromString(last)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(err, "failed to parse last price for %s", pair)
	}

	// an empty book leaves ask unset, AskOrLast covers it
	askPrice, err := decimal.NewFromString(ask)
	if err != nil {
		askPrice = decimal.Zero
	}

	pct, err := decimal.NewFromString(change)
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(err, "failed to parse 24h change for %s", pair)
	}

	return domain.Ticker{
		Pair:          pair,
		Last:          lastPrice,
		Ask:           askPrice,
		Percentage24h: pct.Mul(scale),
		Time:          time.Now().UTC(),
	}, nil
}
