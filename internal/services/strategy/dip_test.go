package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	marketmocks "github.com/vadiminshakov/dipbuyer/mocks/market"
	tradermocks "github.com/vadiminshakov/dipbuyer/mocks/trader"
)

func dipConfig(minDrop int64, unit domain.DropUnit) domain.DipConfig {
	return domain.DipConfig{
		Pair:                       btcusdt,
		OrderCost:                  decimal.NewFromInt(50),
		MinDrop:                    decimal.NewFromInt(minDrop),
		Unit:                       unit,
		MinAdditionalDropPct:       decimal.NewFromInt(3),
		AdditionalDropCostIncrease: decimal.NewFromInt(10),
		Active:                     true,
	}
}

func ticker(last, ask int64, change string) domain.Ticker {
	return domain.Ticker{
		Pair:          btcusdt,
		Last:          decimal.NewFromInt(last),
		Ask:           decimal.NewFromInt(ask),
		Percentage24h: decimal.RequireFromString(change),
	}
}

func TestDip_InitialDropFires(t *testing.T) {
	f := newFixture(t)
	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(27900, 27901, "-7.0"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, costIs("50")).Return(filled(f.clock.Now)).Once()

	out, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)
	require.Equal(t, domain.CheckOrderPlaced, out.Result)
	require.Equal(t, "Buying 50 USDT of BTC @ 27900. Drop in last 24h is -7.00%", out.Message)
	require.Equal(t, "27900", out.Order.Price.String())
}

func TestDip_StdDevThresholdNotReached(t *testing.T) {
	f := newFixture(t)
	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(100, 100, "-5.0"), nil).Once()

	stats := staticStats{"BTC/USDT": decimal.RequireFromString("0.03")}
	dip := NewDip(f.deps)

	threshold, err := dip.Threshold(dipConfig(2, domain.DropUnitStdDev), stats)
	require.NoError(t, err)
	require.Equal(t, "6", threshold.String())

	out, err := dip.Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, dipConfig(2, domain.DropUnitStdDev), stats)
	require.NoError(t, err)
	require.Equal(t, domain.CheckNoAction, out.Result)
	require.Equal(t, domain.CheckNoAction, f.checks.last().check.Result)
	require.Empty(t, f.notifier.messages)
}

func TestDip_MissingStatisticSkipsSymbol(t *testing.T) {
	f := newFixture(t)
	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	_, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, dipConfig(2, domain.DropUnitStdDev), staticStats{})
	require.ErrorIs(t, err, domain.ErrMissingStatistic)
	require.Empty(t, f.checks.calls)
}

func TestDip_EscalationAfterPreviousBuy(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StrategyDip, 2*time.Hour, 100, 50, false)

	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	// the 24h change qualifies, but the initial check already bought today
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(95, 96, "-10"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, mock.MatchedBy(func(i domain.BuyIntent) bool {
		return i.Cost.Equal(decimal.NewFromInt(60)) && i.PriceHint.Equal(decimal.NewFromInt(96))
	})).Return(filled(f.clock.Now)).Once()

	out, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)
	require.Equal(t, domain.CheckOrderPlaced, out.Result)
	require.Equal(t, "Buying 60 USDT of BTC @ 96. Current price is -4.00% from the previous buy order", out.Message)
}

func TestDip_EscalationKeepsGrowing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StrategyDip, 3*time.Hour, 100, 50, false)

	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)
	venue := Venue{Account: alice(), Market: market, Trader: trader}
	dip := NewDip(f.deps)

	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(96, 96, "-1"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, costIs("60")).Return(filled(f.clock.Now)).Once()
	_, err := dip.Evaluate(context.Background(), venue, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(92, 92, "-1"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, costIs("70")).Return(filled(f.clock.Now)).Once()
	out, err := dip.Evaluate(context.Background(), venue, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)
	require.Equal(t, "70", out.Order.Cost.String())
}

func TestDip_InitialSkipsEscalation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StrategyDip, 25*time.Hour, 100, 50, false)

	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	// both checks would fire, only the initial one may
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(90, 90, "-7"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, costIs("50")).Return(filled(f.clock.Now)).Once()

	out, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)
	require.Contains(t, out.Message, "Drop in last 24h is -7.00%")
}

func TestDip_AtMostOneInitialBuyPerDay(t *testing.T) {
	f := newFixture(t)
	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)
	venue := Venue{Account: alice(), Market: market, Trader: trader}
	dip := NewDip(f.deps)

	// price keeps the 24h drop without falling below the first buy
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(100, 100, "-8"), nil)
	trader.On("PlaceBuy", mock.Anything, mock.Anything).Return(filled(f.clock.Now))

	for i := 0; i < 5; i++ {
		_, err := dip.Evaluate(context.Background(), venue, dipConfig(5, domain.DropUnitPercent), nil)
		require.NoError(t, err)
		f.clock.Advance(4 * time.Hour)
	}
	trader.AssertNumberOfCalls(t, "PlaceBuy", 1)

	// 24h after the first buy
	f.clock.Advance(4 * time.Hour)
	_, err := dip.Evaluate(context.Background(), venue, dipConfig(5, domain.DropUnitPercent), nil)
	require.NoError(t, err)
	trader.AssertNumberOfCalls(t, "PlaceBuy", 2)
}

func TestDip_DummyAndRealAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StrategyDip, time.Hour, 100, 50, false)

	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(100, 100, "-7"), nil).Once()
	trader.On("PlaceBuy", mock.Anything, mock.MatchedBy(func(i domain.BuyIntent) bool { return i.Dummy })).
		Return(filled(f.clock.Now)).Once()

	cfg := dipConfig(5, domain.DropUnitPercent)
	cfg.Dummy = true
	out, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, domain.CheckOrderPlaced, out.Result)
	require.True(t, out.Order.Dummy)
}

func TestDip_CoolDownSkipsBothChecks(t *testing.T) {
	f := newFixture(t)
	market := marketmocks.NewProvider(t)
	trader := tradermocks.NewExecutor(t)

	cfg := dipConfig(5, domain.DropUnitPercent)
	cfg.LastCheck = domain.LastCheck{At: f.clock.now.Add(-10 * time.Minute), Result: domain.CheckInsufficientFunds}

	out, err := NewDip(f.deps).Evaluate(context.Background(),
		Venue{Account: alice(), Market: market, Trader: trader}, cfg, nil)
	require.NoError(t, err)
	require.Empty(t, out.Result)
	require.Empty(t, f.checks.calls)
}

func TestSignedPercent(t *testing.T) {
	require.Equal(t, "-7.00", signedPercent(decimal.RequireFromString("-7")))
	require.Equal(t, "+1.25", signedPercent(decimal.RequireFromString("1.249")))
	require.Equal(t, "+0.00", signedPercent(decimal.Zero))
}
