package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/services/trader"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
	marketmocks "github.com/vadiminshakov/dipbuyer/mocks/market"
	"go.uber.org/zap"
)

// dryRunVenue fills through a dry-run router with no exchange behind it.
func dryRunVenue(t *testing.T, f *fixture) (Venue, *marketmocks.Provider) {
	t.Helper()
	market := marketmocks.NewProvider(t)
	router := trader.NewRouter(nil, nil, zap.NewNop(), trader.WithDryRun(true), trader.WithClock(f.clock.Now))
	return Venue{Account: alice(), Market: market, Trader: router}, market
}

func TestAveraging_DryRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.deps.DryRun = true
	venue, market := dryRunVenue(t, f)
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(40000, 40000, "0"), nil)

	avg := NewAveraging(f.deps)
	cfg := averagingConfig(false)
	for i := 0; i < 3; i++ {
		_, err := avg.Evaluate(context.Background(), venue, cfg)
		require.NoError(t, err)
		f.clock.Advance(5 * time.Minute)
	}

	placed := f.ledger.Orders(orders.Filter{AccountID: "alice", Strategy: domain.StrategyAveraging})
	require.Len(t, placed, 1)
	require.True(t, placed[0].Dummy)
	require.Equal(t, 7, avg.DueIn("alice", cfg, f.clock.Now()))

	// bookkeeping lands on the real config row
	require.False(t, f.checks.calls[0].dummy)
	require.Equal(t, domain.CheckOrderPlaced, f.checks.calls[0].check.Result)
	require.Len(t, f.notifier.messages, 1)
	require.Contains(t, f.notifier.messages[0], simulationSuffix)
}

func TestDip_DryRunAtMostOneInitialBuyPerDay(t *testing.T) {
	f := newFixture(t)
	f.deps.DryRun = true
	venue, market := dryRunVenue(t, f)
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(100, 100, "-7"), nil)

	dip := NewDip(f.deps)
	cfg := dipConfig(5, domain.DropUnitPercent)
	for i := 0; i < 5; i++ {
		_, err := dip.Evaluate(context.Background(), venue, cfg, nil)
		require.NoError(t, err)
		f.clock.Advance(4 * time.Hour)
	}
	require.Len(t, f.ledger.Orders(orders.Filter{Strategy: domain.StrategyDip}), 1)

	f.clock.Advance(4 * time.Hour)
	_, err := dip.Evaluate(context.Background(), venue, cfg, nil)
	require.NoError(t, err)

	placed := f.ledger.Orders(orders.Filter{Strategy: domain.StrategyDip})
	require.Len(t, placed, 2)
	for _, o := range placed {
		require.True(t, o.Dummy)
	}
}

func TestDryRun_RealIntentNeverReachesVenue(t *testing.T) {
	f := newFixture(t)
	venue, market := dryRunVenue(t, f)
	market.On("Ticker", mock.Anything, btcusdt).Return(ticker(40000, 40000, "0"), nil).Once()

	// evaluator not told about dry run
	_, err := NewAveraging(f.deps).Evaluate(context.Background(), venue, averagingConfig(false))
	require.ErrorIs(t, err, trader.ErrDryRun)
	require.Empty(t, f.ledger.Orders(orders.Filter{}))
}
