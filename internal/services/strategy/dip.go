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

const (
	dipMessage        = "Buying %s %s of %s @ %s. Drop in last 24h is %s%%"
	escalationMessage = "Buying %s %s of %s @ %s. Current price is %s%% from the previous buy order"
	initialDipWindow  = 24 * time.Hour
	percentMultiplier = 100
)

// Volatility resolves the std-dev of daily returns per symbol.
type Volatility interface {
	Get(symbol string) (decimal.Decimal, bool)
}

// Dip buys when the 24h change falls below a threshold, then keeps buying
// larger amounts while the price falls further below the previous dip buy.
type Dip struct {
	deps Deps
}

func NewDip(deps Deps) *Dip {
	return &Dip{deps: deps.withDefaults()}
}

func (d *Dip) Evaluate(ctx context.Context, v Venue, cfg domain.DipConfig, stats Volatility) (Outcome, error) {
	symbol := cfg.Pair.String()
	simulated := d.deps.simulated(cfg.Dummy)
	logger := d.deps.Logger.With(zap.String("account", v.Account.ID), zap.String("symbol", symbol), zap.Bool("dummy", simulated))

	minDrop, err := d.Threshold(cfg, stats)
	if err != nil {
		return Outcome{}, err
	}

	now := d.deps.Now()
	if cfg.LastCheck.CoolingDown(now, d.deps.CoolDown) {
		logger.Debug("cooling down after insufficient funds")
		return Outcome{}, nil
	}

	ticker, err := v.Market.Ticker(ctx, cfg.Pair)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "get ticker")
	}

	key := domain.NewSeriesKey(v.Account.ID, cfg.Pair, domain.StrategyDip, simulated)
	last, hasLast := d.deps.Ledger.Latest(key)

	boughtRecently := hasLast && now.Sub(last.Timestamp) < initialDipWindow
	if !boughtRecently && ticker.Percentage24h.LessThan(minDrop.Neg()) {
		intent := domain.BuyIntent{
			AccountID: v.Account.ID,
			Pair:      cfg.Pair,
			Strategy:  domain.StrategyDip,
			Cost:      cfg.OrderCost,
			PriceHint: ticker.Last,
			Dummy:     simulated,
		}
		msg := fmt.Sprintf(dipMessage, cfg.OrderCost.String(), cfg.Pair.To, cfg.Pair.From,
			ticker.Last.String(), signedPercent(ticker.Percentage24h))

		logger.Info("initial dip",
			zap.String("change_24h", ticker.Percentage24h.String()),
			zap.String("min_drop_pct", minDrop.String()))
		return d.deps.execute(ctx, v, intent, cfg.Dummy, msg, now)
	}

	if hasLast && last.Price.IsPositive() {
		ask := ticker.AskOrLast()
		change := ask.Div(last.Price).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(percentMultiplier))

		if change.LessThan(cfg.MinAdditionalDropPct.Neg()) {
			cost := last.Cost.Add(cfg.AdditionalDropCostIncrease)
			intent := domain.BuyIntent{
				AccountID: v.Account.ID,
				Pair:      cfg.Pair,
				Strategy:  domain.StrategyDip,
				Cost:      cost,
				PriceHint: ask,
				Dummy:     simulated,
			}
			msg := fmt.Sprintf(escalationMessage, cost.String(), cfg.Pair.To, cfg.Pair.From,
				ask.String(), change.StringFixed(2))

			logger.Info("additional dip",
				zap.String("previous_price", last.Price.String()),
				zap.String("ask", ask.String()),
				zap.String("change", change.StringFixed(2)))
			return d.deps.execute(ctx, v, intent, cfg.Dummy, msg, now)
		}
	}

	if d.deps.Checks != nil {
		check := domain.LastCheck{At: now, Result: domain.CheckNoAction}
		if err := d.deps.Checks.RecordCheck(ctx, v.Account.ID, cfg.Pair, domain.StrategyDip, cfg.Dummy, check); err != nil {
			logger.Error("failed to record check", zap.Error(err))
		}
	}

	return Outcome{Result: domain.CheckNoAction}, nil
}

// Threshold is the resolved initial drop threshold in percent.
func (d *Dip) Threshold(cfg domain.DipConfig, stats Volatility) (decimal.Decimal, error) {
	std, ok := decimal.Zero, false
	if stats != nil {
		std, ok = stats.Get(cfg.Pair.String())
	}
	return cfg.MinDropPct(std, ok)
}
