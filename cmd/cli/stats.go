package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vadiminshakov/dipbuyer/internal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
	"go.uber.org/zap"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Volatility statistics used by std-dev dip configs",
	}
	cmd.AddCommand(newStatsListCmd(opts), newStatsRefreshCmd(opts))
	return cmd
}

func newStatsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := openAccounts(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.SymbolStatistics(cmd.Context())
			if err != nil {
				return err
			}

			var rows [][]string
			for _, s := range stats {
				rows = append(rows, []string{s.Symbol, s.StdDev.String(), formatTime(s.UpdatedOn)})
			}
			printTable(cmd.OutOrStdout(), []string{"SYMBOL", "STD DEV", "UPDATED"}, rows)
			return nil
		},
	}
}

func newStatsRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [SYMBOL...]",
		Short: "Recompute statistics now",
		Long: `Recompute the standard deviation of daily returns for the given symbols,
or for every symbol used by an active std-dev dip config when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
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

			var pairs []domain.Pair
			for _, arg := range args {
				pair, err := domain.ParsePair(arg)
				if err != nil {
					return err
				}
				pairs = append(pairs, pair)
			}
			if len(pairs) == 0 {
				active, rejected, err := store.ActiveAccounts(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range rejected {
					logger.Warn("strategy config excluded", zap.Error(r))
				}
				pairs = internal.StdDevPairs(active)
			}

			estimator, err := newEstimator(cfg, store, logger, retrier.New(cfg.Retry.Options()...))
			if err != nil {
				return err
			}

			stats := estimator.Refresh(cmd.Context(), pairs)
			for _, p := range pairs {
				if sd, ok := stats.Get(p.String()); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.String(), sd.String())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: unavailable\n", p.String())
				}
			}
			return nil
		},
	}
}
