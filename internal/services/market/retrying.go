package market

import (
	"context"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
)

// Retrying retries network failures of the wrapped provider. The retrier is
// expected to be configured with domain.IsNetwork as its predicate.
type Retrying struct {
	next  Provider
	retry *retrier.Retrier
}

func NewRetrying(next Provider, retry *retrier.Retrier) *Retrying {
	return &Retrying{next: next, retry: retry}
}

func (r *Retrying) Ticker(ctx context.Context, pair domain.Pair) (domain.Ticker, error) {
	return retrier.DoWithData(r.retry, ctx, func(ctx context.Context) (domain.Ticker, error) {
		return r.next.Ticker(ctx, pair)
	})
}

func (r *Retrying) CloseSeries(ctx context.Context, pair domain.Pair, days int) ([]domain.ClosePoint, error) {
	return retrier.DoWithData(r.retry, ctx, func(ctx context.Context) ([]domain.ClosePoint, error) {
		return r.next.CloseSeries(ctx, pair, days)
	})
}
