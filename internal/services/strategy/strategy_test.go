package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
	"github.com/vadiminshakov/dipbuyer/pkg/id"
	"go.uber.org/zap"
)

var btcusdt = domain.Pair{From: "BTC", To: "USDT"}

type checkCall struct {
	accountID string
	pair      domain.Pair
	strategy  domain.Strategy
	dummy     bool
	check     domain.LastCheck
}

type fakeChecks struct {
	mu    sync.Mutex
	calls []checkCall
}

func (f *fakeChecks) RecordCheck(_ context.Context, accountID string, pair domain.Pair, strategy domain.Strategy, dummy bool, check domain.LastCheck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, checkCall{accountID, pair, strategy, dummy, check})
	return nil
}

func (f *fakeChecks) last() checkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ domain.Account, message string) {
	f.messages = append(f.messages, message)
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	ledger   *orders.WALStore
	checks   *fakeChecks
	notifier *fakeNotifier
	clock    *clock
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger, err := orders.NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	f := &fixture{
		ledger:   ledger,
		checks:   &fakeChecks{},
		notifier: &fakeNotifier{},
		clock:    &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.deps = Deps{
		Ledger:   ledger,
		Checks:   f.checks,
		Notifier: f.notifier,
		Logger:   zap.NewNop(),
		Now:      f.clock.Now,
	}
	return f
}

// seed appends a past order to the ledger.
func (f *fixture) seed(t *testing.T, strategy domain.Strategy, ago time.Duration, price, cost int64, dummy bool) domain.Order {
	t.Helper()
	ts := f.clock.now.Add(-ago)
	order, err := domain.NewOrder(id.NewAt(ts), ts, "alice", btcusdt, strategy,
		decimal.NewFromInt(price), decimal.NewFromInt(cost), dummy)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Append(order))
	return order
}

// filled returns a PlaceBuy result that fills the intent at its price hint.
func filled(at func() time.Time) func(context.Context, domain.BuyIntent) (domain.Order, error) {
	return func(_ context.Context, intent domain.BuyIntent) (domain.Order, error) {
		ts := at()
		return domain.NewOrder(id.NewAt(ts), ts, intent.AccountID, intent.Pair, intent.Strategy,
			intent.PriceHint, intent.Cost, intent.Dummy)
	}
}

func costIs(cost string) interface{} {
	expected := decimal.RequireFromString(cost)
	return mock.MatchedBy(func(intent domain.BuyIntent) bool {
		return intent.Cost.Equal(expected)
	})
}

type staticStats map[string]decimal.Decimal

func (s staticStats) Get(symbol string) (decimal.Decimal, bool) {
	v, ok := s[symbol]
	return v, ok
}

func alice() domain.Account {
	return domain.Account{ID: "alice", Active: true, Platform: domain.PlatformBinance}
}
