package trader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/pkg/id"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
	"go.uber.org/zap"
)

// ErrDryRun is returned for a real intent while dry run is on.
var ErrDryRun = errors.New("real order requested in dry run")

// Router sends real intents to the venue and fills dummy intents locally.
type Router struct {
	venue  Venue
	retry  *retrier.Retrier
	logger *zap.Logger
	dryRun bool
	now    func() time.Time
}

type RouterOption func(*Router)

// WithDryRun makes the router refuse every real intent.
func WithDryRun(dryRun bool) RouterOption {
	return func(r *Router) {
		r.dryRun = dryRun
	}
}

// WithClock overrides the time source that stamps recorded orders.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

func NewRouter(venue Venue, retry *retrier.Retrier, logger *zap.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry == nil {
		retry = retrier.New(retrier.WithMaxRetries(0))
	}

	r := &Router{
		venue:  venue,
		retry:  retry,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Router) PlaceBuy(ctx context.Context, intent domain.BuyIntent) (domain.Order, error) {
	if !intent.Cost.IsPositive() {
		return domain.Order{}, errors.Errorf("order cost must be positive, got %s", intent.Cost)
	}

	if intent.Dummy {
		return r.fillDummy(intent)
	}
	if r.dryRun {
		return domain.Order{}, errors.Wrapf(ErrDryRun, "%s %s for %s", intent.Strategy, intent.Pair, intent.AccountID)
	}

	return r.placeReal(ctx, intent)
}

func (r *Router) fillDummy(intent domain.BuyIntent) (domain.Order, error) {
	if !intent.PriceHint.IsPositive() {
		return domain.Order{}, errors.Errorf("dummy order for %s needs a positive price", intent.Pair)
	}

	ts := r.now().UTC()
	order, err := domain.NewOrder(id.NewAt(ts), ts, intent.AccountID, intent.Pair, intent.Strategy,
		intent.PriceHint, intent.Cost, true)
	if err != nil {
		return domain.Order{}, err
	}

	r.logger.Debug("dummy order filled",
		zap.String("account", intent.AccountID),
		zap.String("symbol", order.Symbol),
		zap.String("price", order.Price.String()),
		zap.String("cost", order.Cost.String()))

	return order, nil
}

func (r *Router) placeReal(ctx context.Context, intent domain.BuyIntent) (domain.Order, error) {
	available, err := r.Balance(ctx, intent.Pair.To)
	if err != nil {
		return domain.Order{}, err
	}
	if available.LessThan(intent.Cost) {
		return domain.Order{}, domain.InsufficientFunds("%s balance %s is below order cost %s",
			intent.Pair.To, available, intent.Cost)
	}

	// the same client order id is reused across retries so the venue rejects duplicates
	clientOrderID := uuid.NewString()
	fill, err := retrier.DoWithData(r.retry, ctx, func(ctx context.Context) (Fill, error) {
		return r.venue.MarketBuy(ctx, intent.Pair, intent.Cost, clientOrderID)
	})
	if err != nil {
		return domain.Order{}, err
	}

	price, cost := fill.Price, fill.Cost
	if !price.IsPositive() {
		price = intent.PriceHint
	}
	if !cost.IsPositive() {
		cost = intent.Cost
	}
	// the local clock keeps the series monotonic when the venue clock lags
	ts := r.now().UTC()

	order, err := domain.NewOrder(id.NewAt(ts), ts, intent.AccountID, intent.Pair, intent.Strategy, price, cost, false)
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "venue order %s", fill.VenueOrderID)
	}

	r.logger.Info("order executed",
		zap.String("account", intent.AccountID),
		zap.String("symbol", order.Symbol),
		zap.String("venue_order_id", fill.VenueOrderID),
		zap.String("client_order_id", clientOrderID),
		zap.Time("venue_time", fill.Time),
		zap.String("price", order.Price.String()),
		zap.String("cost", order.Cost.String()))

	return order, nil
}

func (r *Router) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return retrier.DoWithData(r.retry, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return r.venue.Balance(ctx, currency)
	})
}
