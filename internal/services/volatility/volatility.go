// Package volatility estimates per-symbol volatility from daily closes.
package volatility

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/services/market"
	"go.uber.org/zap"
)

const (
	DefaultLookbackDays    = market.MaxLookbackDays
	DefaultRefreshInterval = 24 * time.Hour

	minCloses = 3
)

var errTooFewCloses = errors.New("not enough daily closes")

// Store persists statistics between runs.
type Store interface {
	SymbolStatistic(ctx context.Context, symbol string) (domain.SymbolStatistic, bool, error)
	SaveSymbolStatistic(ctx context.Context, stat domain.SymbolStatistic) error
}

// Statistics maps a symbol to the standard deviation of its daily returns.
// It is never modified after construction.
type Statistics struct {
	bySymbol map[string]decimal.Decimal
}

func NewStatistics(values map[string]decimal.Decimal) Statistics {
	copied := make(map[string]decimal.Decimal, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Statistics{bySymbol: copied}
}

// Get returns the std-dev for symbol ("BTC/USDT").
func (s Statistics) Get(symbol string) (decimal.Decimal, bool) {
	v, ok := s.bySymbol[symbol]
	return v, ok
}

func (s Statistics) Len() int {
	return len(s.bySymbol)
}

type Estimator struct {
	provider market.Provider
	store    Store
	logger   *zap.Logger
	lookback int
	refresh  time.Duration
	now      func() time.Time
}

type Option func(*Estimator)

func WithLookbackDays(days int) Option {
	return func(e *Estimator) {
		if days > 0 && days <= market.MaxLookbackDays {
			e.lookback = days
		}
	}
}

func WithRefreshInterval(d time.Duration) Option {
	return func(e *Estimator) {
		if d > 0 {
			e.refresh = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

// NewEstimator creates an estimator. store may be nil, then every call fetches.
func NewEstimator(provider market.Provider, store Store, logger *zap.Logger, opts ...Option) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Estimator{
		provider: provider,
		store:    store,
		logger:   logger,
		lookback: DefaultLookbackDays,
		refresh:  DefaultRefreshInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Estimate returns statistics for pairs, reusing persisted values younger
// than the refresh interval. Failed symbols are logged and omitted.
func (e *Estimator) Estimate(ctx context.Context, pairs []domain.Pair) Statistics {
	return e.estimate(ctx, pairs, false)
}

// Refresh recomputes statistics for pairs ignoring persisted values.
func (e *Estimator) Refresh(ctx context.Context, pairs []domain.Pair) Statistics {
	return e.estimate(ctx, pairs, true)
}

func (e *Estimator) estimate(ctx context.Context, pairs []domain.Pair, force bool) Statistics {
	values := make(map[string]decimal.Decimal, len(pairs))

	for _, pair := range pairs {
		symbol := pair.String()
		if _, done := values[symbol]; done {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if !force {
			if stat, ok := e.cached(ctx, symbol); ok {
				values[symbol] = stat.StdDev
				continue
			}
		}

		std, err := e.compute(ctx, pair)
		if err != nil {
			e.logger.Warn("volatility unavailable, symbol omitted",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		values[symbol] = std

		if e.store != nil {
			stat := domain.SymbolStatistic{
				Symbol:    symbol,
				StdDev:    std,
				UpdatedOn: e.now().UTC(),
				Comments:  fmt.Sprintf("std-dev of daily returns over %d days", e.lookback),
			}
			if err := e.store.SaveSymbolStatistic(ctx, stat); err != nil {
				e.logger.Error("failed to save symbol statistic", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}

	return NewStatistics(values)
}

func (e *Estimator) cached(ctx context.Context, symbol string) (domain.SymbolStatistic, bool) {
	if e.store == nil {
		return domain.SymbolStatistic{}, false
	}

	stat, ok, err := e.store.SymbolStatistic(ctx, symbol)
	if err != nil {
		e.logger.Warn("failed to load symbol statistic", zap.String("symbol", symbol), zap.Error(err))
		return domain.SymbolStatistic{}, false
	}
	if !ok || !stat.Fresh(e.now(), e.refresh) {
		return domain.SymbolStatistic{}, false
	}

	return stat, true
}

func (e *Estimator) compute(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	closes, err := e.provider.CloseSeries(ctx, pair, e.lookback)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "fetch daily closes")
	}

	std, err := StdDevOfReturns(closes)
	if err != nil {
		return decimal.Zero, err
	}

	e.logger.Debug("volatility computed",
		zap.String("symbol", pair.String()),
		zap.Int("closes", len(closes)),
		zap.String("std_dev", std.String()))

	return std, nil
}

// StdDevOfReturns is the sample standard deviation (n-1) of day-over-day
// returns, as a fraction.
func StdDevOfReturns(closes []domain.ClosePoint) (decimal.Decimal, error) {
	if len(closes) < minCloses {
		return decimal.Zero, errors.Wrapf(errTooFewCloses, "got %d, need %d", len(closes), minCloses)
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1].Close
		if !prev.IsPositive() {
			return decimal.Zero, errors.Errorf("non-positive close at index %d", i-1)
		}
		r, _ := closes[i].Close.Div(prev).Sub(decimal.NewFromInt(1)).Float64()
		returns = append(returns, r)
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		sumSq += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sumSq / float64(len(returns)-1))

	return decimal.NewFromFloat(std).Round(10), nil
}
