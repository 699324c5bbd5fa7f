package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"go.uber.org/zap"
)

const (
	averagingMessage = "Periodic buys: buying %s of %s @ %s"
	simulationSuffix = ". (Running in simulation mode, balance was not affected)"

	day = 24 * time.Hour
)

// Averaging buys a fixed cost every frequency_days.
type Averaging struct {
	deps Deps
}

func NewAveraging(deps Deps) *Averaging {
	return &Averaging{deps: deps.withDefaults()}
}

func (a *Averaging) Evaluate(ctx context.Context, v Venue, cfg domain.AveragingConfig) (Outcome, error) {
	now := a.deps.Now()

	if cfg.LastCheck.CoolingDown(now, a.deps.CoolDown) {
		a.deps.Logger.Debug("cooling down after insufficient funds",
			zap.String("account", v.Account.ID), zap.String("symbol", cfg.Pair.String()))
		return Outcome{}, nil
	}

	if dueIn := a.DueIn(v.Account.ID, cfg, now); dueIn > 0 {
		return Outcome{DueIn: dueIn}, nil
	}

	ticker, err := v.Market.Ticker(ctx, cfg.Pair)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "get ticker")
	}

	intent := domain.BuyIntent{
		AccountID: v.Account.ID,
		Pair:      cfg.Pair,
		Strategy:  domain.StrategyAveraging,
		Cost:      cfg.OrderCost,
		PriceHint: ticker.Last,
		Dummy:     a.deps.simulated(cfg.Dummy),
	}

	msg := fmt.Sprintf(averagingMessage, cfg.OrderCost.String(), cfg.Pair.String(), ticker.Last.String())
	if intent.Dummy {
		msg += simulationSuffix
	}

	return a.deps.execute(ctx, v, intent, cfg.Dummy, msg, now)
}

// DueIn returns the whole days left until the config is due, 0 when due now.
func (a *Averaging) DueIn(accountID string, cfg domain.AveragingConfig, now time.Time) int {
	key := domain.NewSeriesKey(accountID, cfg.Pair, domain.StrategyAveraging, a.deps.simulated(cfg.Dummy))
	elapsed, ok := a.deps.Ledger.ElapsedSinceLatest(key, now)
	if !ok || elapsed >= cfg.Frequency() {
		return 0
	}

	return cfg.FrequencyDays - int(elapsed/day)
}
