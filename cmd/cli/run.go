package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/dipbuyer/config"
	"github.com/vadiminshakov/dipbuyer/internal"
	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/events"
	"github.com/vadiminshakov/dipbuyer/internal/services/notify"
	"github.com/vadiminshakov/dipbuyer/internal/services/strategy"
	"github.com/vadiminshakov/dipbuyer/internal/services/volatility"
	"github.com/vadiminshakov/dipbuyer/internal/web"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const eventBuffer = 64

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		once   bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll all active accounts and place buys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.DryRun = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "record every order as a simulation")

	return cmd
}

func run(ctx context.Context, cfg config.Config, once bool) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := openAccounts(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	newRetrier := func() *retrier.Retrier { return retrier.New(cfg.Retry.Options()...) }

	estimator, err := newEstimator(cfg, store, logger, newRetrier())
	if err != nil {
		return err
	}

	dispatcher := newDispatcher(cfg, logger)

	deps := strategy.Deps{
		Ledger:   ledger,
		Checks:   store,
		Notifier: dispatcher,
		Logger:   logger,
		CoolDown: cfg.CoolDown,
		DryRun:   cfg.DryRun,
	}

	broadcaster := events.NewBroadcaster(eventBuffer)
	sinks := []internal.EventSink{internal.BroadcastSink{Broadcaster: broadcaster}}
	if cfg.Notify.Kafka.Enabled() {
		publisher := notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic), logger)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	services := internal.NewServiceProvider(newRetrier, cfg.DryRun, logger)
	orchestrator := internal.NewOrchestrator(
		internal.OrchestratorConfig{
			PollInterval:        cfg.PollInterval,
			MaxParallelAccounts: cfg.MaxParallelAccounts,
			SummaryOnStart:      cfg.Notify.SummaryOnStart,
		},
		store,
		estimator,
		strategy.NewAveraging(deps),
		strategy.NewDip(deps),
		services.Services,
		dispatcher,
		logger,
		sinks...,
	)

	logger.Info("dipbuyer started",
		zap.String("version", version),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("data_dir", cfg.DataDir))

	if once {
		return orchestrator.RunCycle(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Web.Addr != "" {
		server := web.NewServer(cfg.Web.Addr, ledger, broadcaster, logger)
		g.Go(func() error {
			if len(cfg.Web.TLSDomains) > 0 {
				return server.StartWithAutoTLS(gctx, cfg.Web.TLSDomains, cfg.Web.CertCache)
			}
			return server.Start(gctx)
		})
	}

	g.Go(func() error {
		if err := orchestrator.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func newEstimator(cfg config.Config, store volatility.Store, logger *zap.Logger, retry *retrier.Retrier) (*volatility.Estimator, error) {
	public, err := internal.NewPublicMarket(cfg.Volatility.Platform, retry)
	if err != nil {
		return nil, errors.Wrap(err, "volatility market data")
	}

	return volatility.NewEstimator(public, store, logger,
		volatility.WithLookbackDays(cfg.Volatility.LookbackDays),
		volatility.WithRefreshInterval(cfg.Volatility.RefreshInterval),
	), nil
}

func newDispatcher(cfg config.Config, logger *zap.Logger) *notify.Dispatcher {
	channels := []notify.Channel{
		notify.NewTelegram(clients.NewTelegramClient(cfg.Notify.TelegramAPIURL), notify.DefaultTelegramRetrier()),
	}

	smtp := cfg.Notify.SMTP
	if smtp.Host != "" {
		channels = append(channels, notify.NewEmail(notify.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		}))
	}

	return notify.NewDispatcher(logger, channels...)
}
