// Package strategy evaluates averaging and dip configs and places the
// resulting buys.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"go.uber.org/zap"
)

const insufficientFundsMessage = "Insufficient funds. Trying again in %d minutes..."

type ledger interface {
	Append(order domain.Order) error
	Latest(key domain.SeriesKey) (domain.Order, bool)
	ElapsedSinceLatest(key domain.SeriesKey, now time.Time) (time.Duration, bool)
}

type bookkeeper interface {
	RecordCheck(ctx context.Context, accountID string, pair domain.Pair, strategy domain.Strategy, dummy bool, check domain.LastCheck) error
}

type tickerSource interface {
	Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error)
}

type executor interface {
	PlaceBuy(ctx context.Context, intent domain.BuyIntent) (domain.Order, error)
}

type notifier interface {
	Notify(ctx context.Context, account domain.Account, message string)
}

// Venue is the market data and execution bound to one account.
type Venue struct {
	Account domain.Account
	Market  tickerSource
	Trader  executor
}

// Outcome is what one evaluation did. An empty Result means the config was
// skipped without bookkeeping.
type Outcome struct {
	Result  domain.CheckResult
	Order   *domain.Order
	Message string
	// DueIn is the number of whole days until an averaging config is due.
	DueIn int
}

// Deps are shared by both evaluators.
type Deps struct {
	Ledger   ledger
	Checks   bookkeeper
	Notifier notifier
	Logger   *zap.Logger
	// CoolDown after an insufficient funds outcome, DefaultCoolDown when zero.
	CoolDown time.Duration
	// DryRun turns every buy into a simulation recorded in the dummy series.
	DryRun bool
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.CoolDown <= 0 {
		d.CoolDown = domain.DefaultCoolDown
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// simulated reports whether orders of a config with the given flag are
// filled locally. The same answer picks the ledger series the config reads.
func (d Deps) simulated(dummy bool) bool {
	return dummy || d.DryRun
}

// execute places the intent and records its consequences. message is the
// notification sent when the order is placed. cfgDummy identifies the config
// row that gets the bookkeeping.
func (d Deps) execute(ctx context.Context, v Venue, intent domain.BuyIntent, cfgDummy bool, message string, now time.Time) (Outcome, error) {
	logger := d.Logger.With(
		zap.String("account", v.Account.ID),
		zap.String("symbol", intent.Pair.String()),
		zap.String("strategy", string(intent.Strategy)),
		zap.Bool("dummy", intent.Dummy))

	order, err := v.Trader.PlaceBuy(ctx, intent)
	if errors.Is(err, domain.ErrInsufficientFunds) {
		logger.Info("insufficient funds", zap.String("cost", intent.Cost.String()), zap.Error(err))
		d.record(ctx, logger, v.Account.ID, intent, cfgDummy, domain.LastCheck{At: now, Result: domain.CheckInsufficientFunds})

		msg := fmt.Sprintf(insufficientFundsMessage, int(d.CoolDown.Minutes()))
		d.notify(ctx, v.Account, msg)
		return Outcome{Result: domain.CheckInsufficientFunds, Message: msg}, nil
	}
	if err != nil {
		return Outcome{}, errors.Wrap(err, "place buy")
	}

	if err := d.Ledger.Append(order); err != nil {
		logger.Error("order placed but not recorded", zap.String("order_id", order.ID), zap.Error(err))
		return Outcome{}, errors.Wrapf(err, "record order %s", order.ID)
	}

	logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("price", order.Price.String()),
		zap.String("cost", order.Cost.String()))

	d.record(ctx, logger, v.Account.ID, intent, cfgDummy, domain.LastCheck{At: now, Result: domain.CheckOrderPlaced})
	d.notify(ctx, v.Account, message)

	return Outcome{Result: domain.CheckOrderPlaced, Order: &order, Message: message}, nil
}

func (d Deps) record(ctx context.Context, logger *zap.Logger, accountID string, intent domain.BuyIntent, cfgDummy bool, check domain.LastCheck) {
	if d.Checks == nil {
		return
	}
	if err := d.Checks.RecordCheck(ctx, accountID, intent.Pair, intent.Strategy, cfgDummy, check); err != nil {
		logger.Error("failed to record check", zap.String("result", string(check.Result)), zap.Error(err))
	}
}

func (d Deps) notify(ctx context.Context, account domain.Account, message string) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(ctx, account, message)
}

// signedPercent formats like %+.2f.
func signedPercent(pct decimal.Decimal) string {
	rounded := pct.Round(2)
	if rounded.Sign() >= 0 {
		return "+" + rounded.StringFixed(2)
	}
	return rounded.StringFixed(2)
}
