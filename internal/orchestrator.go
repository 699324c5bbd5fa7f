package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/events"
	"github.com/vadiminshakov/dipbuyer/internal/services/strategy"
	"github.com/vadiminshakov/dipbuyer/internal/services/volatility"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type accountStore interface {
	ActiveAccounts(ctx context.Context) ([]domain.Account, []error, error)
	TouchLastContact(ctx context.Context, accountID string, at time.Time) error
}

type statisticsEstimator interface {
	Estimate(ctx context.Context, pairs []domain.Pair) volatility.Statistics
}

type notifier interface {
	Notify(ctx context.Context, account domain.Account, message string)
}

// EventSink receives an event for every evaluation that did something.
type EventSink interface {
	Publish(ctx context.Context, ev events.CheckEvent)
}

// BroadcastSink adapts an in-process broadcaster to EventSink.
type BroadcastSink struct {
	*events.Broadcaster
}

func (s BroadcastSink) Publish(_ context.Context, ev events.CheckEvent) {
	s.Broadcaster.Publish(ev)
}

type OrchestratorConfig struct {
	PollInterval        time.Duration
	MaxParallelAccounts int
	SummaryOnStart      bool
}

// Orchestrator runs every active account through its strategy configs on a
// fixed poll interval.
type Orchestrator struct {
	store     accountStore
	estimator statisticsEstimator
	averaging *strategy.Averaging
	dip       *strategy.Dip
	services  ServiceFactory
	notifier  notifier
	sinks     []EventSink
	logger    *zap.Logger
	cfg       OrchestratorConfig
	now       func() time.Time

	summarySent bool
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	store accountStore,
	estimator statisticsEstimator,
	averaging *strategy.Averaging,
	dip *strategy.Dip,
	services ServiceFactory,
	notifier notifier,
	logger *zap.Logger,
	sinks ...EventSink,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallelAccounts < 1 {
		cfg.MaxParallelAccounts = 1
	}

	return &Orchestrator{
		store:     store,
		estimator: estimator,
		averaging: averaging,
		dip:       dip,
		services:  services,
		notifier:  notifier,
		sinks:     sinks,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes a cycle immediately and then on every poll tick until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	o.logger.Info("starting polling loop", zap.Duration("poll_interval", o.cfg.PollInterval))

	for {
		if err := o.RunCycle(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error("cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			o.logger.Info("context done, stopping polling loop")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle evaluates every active account once. Failures of a single
// account or config are logged and do not stop the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	accounts, rejected, err := o.store.ActiveAccounts(ctx)
	if err != nil {
		return errors.Wrap(err, "load active accounts")
	}
	for _, r := range rejected {
		o.logger.Warn("strategy config excluded", zap.Error(r))
	}

	stats := o.estimator.Estimate(ctx, StdDevPairs(accounts))
	sendSummary := o.cfg.SummaryOnStart && !o.summarySent

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxParallelAccounts)

	for _, account := range accounts {
		if ctx.Err() != nil {
			o.logger.Info("shutdown requested, skipping remaining accounts")
			break
		}

		// a started account finishes even if shutdown is requested meanwhile
		accountCtx := context.WithoutCancel(ctx)
		g.Go(func() error {
			o.runAccount(accountCtx, account, stats, sendSummary)
			return nil
		})
	}
	_ = g.Wait()

	if sendSummary {
		o.summarySent = true
	}

	return nil
}

func (o *Orchestrator) runAccount(ctx context.Context, account domain.Account, stats volatility.Statistics, sendSummary bool) {
	logger := o.logger.With(zap.String("account", account.ID))

	if err := o.store.TouchLastContact(ctx, account.ID, o.now().UTC()); err != nil {
		logger.Warn("failed to update last contact", zap.Error(err))
	}

	services, err := o.services(account)
	if err != nil {
		logger.Error("failed to create venue services", zap.Error(err))
		return
	}
	venue := strategy.Venue{Account: account, Market: services.Market, Trader: services.Trader}

	if sendSummary && o.notifier != nil {
		o.notifier.Notify(ctx, account, o.summary(ctx, account, services, stats))
	}

	for _, cfg := range account.Averaging {
		if !cfg.Active {
			continue
		}
		out, err := o.averaging.Evaluate(ctx, venue, cfg)
		o.handle(ctx, logger, account, cfg.Pair, domain.StrategyAveraging, cfg.Dummy, out, err)
	}

	for _, cfg := range account.Dips {
		if !cfg.Active {
			continue
		}
		out, err := o.dip.Evaluate(ctx, venue, cfg, stats)
		o.handle(ctx, logger, account, cfg.Pair, domain.StrategyDip, cfg.Dummy, out, err)
	}
}

func (o *Orchestrator) handle(ctx context.Context, logger *zap.Logger, account domain.Account, pair domain.Pair,
	s domain.Strategy, dummy bool, out strategy.Outcome, err error) {
	fields := []zap.Field{
		zap.String("symbol", pair.String()),
		zap.String("strategy", string(s)),
		zap.Bool("dummy", dummy),
	}

	switch {
	case errors.Is(err, domain.ErrMissingStatistic):
		logger.Warn("no volatility statistic, symbol skipped this cycle", fields...)
		return
	case err != nil:
		logger.Error("strategy evaluation failed", append(fields, zap.Error(err))...)
		return
	case out.Result == "":
		return
	}

	ev := events.NewCheckEvent(o.now(), account.ID, pair, s, dummy, out.Result, out.Order, out.Message)
	for _, sink := range o.sinks {
		sink.Publish(ctx, ev)
	}
}

// StdDevPairs lists the distinct symbols of active dip configs measured in
// standard deviations.
func StdDevPairs(accounts []domain.Account) []domain.Pair {
	seen := make(map[domain.Pair]struct{})
	var pairs []domain.Pair
	for _, a := range accounts {
		for _, d := range a.Dips {
			if !d.Active || d.Unit != domain.DropUnitStdDev {
				continue
			}
			if _, ok := seen[d.Pair]; ok {
				continue
			}
			seen[d.Pair] = struct{}{}
			pairs = append(pairs, d.Pair)
		}
	}
	return pairs
}
