package market

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// Bybit reports the 24h change as a ratio.
var bybitPercentScale = decimal.NewFromInt(100)

type BybitProvider struct {
	client *bybit.Client
}

func NewBybitProvider(client *bybit.Client) *BybitProvider {
	return &BybitProvider{client: client}
}

func (p *BybitProvider) Ticker(_ context.Context, pair domain.Pair) (domain.Ticker, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.Ticker{}, errors.Wrapf(clients.ClassifyBybitError(err), "bybit ticker %s", pair)
	}
	if result == nil || result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return domain.Ticker{}, errors.Errorf("bybit API returned empty ticker for %s", pair)
	}

	t := result.Result.Spot.List[0]
	return parseTicker(pair, t.LastPrice, t.Ask1Price, t.Price24HPcnt, bybitPercentScale)
}

func (p *BybitProvider) CloseSeries(_ context.Context, pair domain.Pair, days int) ([]domain.ClosePoint, error) {
	limit := boundDays(days)

	result, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		Interval: bybit.Interval("D"),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(clients.ClassifyBybitError(err), "bybit klines %s", pair)
	}
	if result == nil {
		return nil, errors.Errorf("empty result from Bybit API for %s", pair)
	}

	raw := make([]bybitCandle, 0, len(result.Result.List))
	for _, k := range result.Result.List {
		raw = append(raw, bybitCandle{start: k.StartTime, close: k.Close})
	}

	return bybitCloses(raw)
}

type bybitCandle struct {
	start string
	close string
}

// bybitCloses converts the newest-first kline list into an oldest-first series.
func bybitCloses(raw []bybitCandle) ([]domain.ClosePoint, error) {
	points := make([]domain.ClosePoint, 0, len(raw))
	for i, k := range raw {
		ms, err := strconv.ParseInt(k.start, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		points = append(points, domain.ClosePoint{Time: time.UnixMilli(ms).UTC(), Close: closePrice})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
