package cli

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
)

func newOrdersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect the order ledger",
	}
	cmd.AddCommand(newOrdersListCmd(opts))
	return cmd
}

type orderFlags struct {
	account  string
	symbol   string
	strategy string
	dummy    string
	since    string
}

func (f orderFlags) filter() (orders.Filter, error) {
	filter := orders.Filter{AccountID: f.account}

	if f.symbol != "" {
		pair, err := domain.ParsePair(f.symbol)
		if err != nil {
			return filter, err
		}
		filter.Symbol = pair.String()
	}
	if f.strategy != "" {
		s, err := domain.ParseStrategy(f.strategy)
		if err != nil {
			return filter, err
		}
		filter.Strategy = s
	}
	if f.dummy != "" {
		dummy, err := strconv.ParseBool(f.dummy)
		if err != nil {
			return filter, errors.Wrap(err, "--dummy")
		}
		filter.Dummy = &dummy
	}
	if f.since != "" {
		since, err := parseSince(f.since, time.Now())
		if err != nil {
			return filter, err
		}
		filter.Since = since
	}
	return filter, nil
}

// parseSince accepts an RFC3339 timestamp, a date or a duration back from now.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	return time.Time{}, errors.Errorf("--since %q: expected RFC3339 time, YYYY-MM-DD or a duration like 72h", raw)
}

func newOrdersListCmd(opts *rootOptions) *cobra.Command {
	var flags orderFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded orders, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ledger, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer ledger.Close()

			var rows [][]string
			for _, o := range ledger.Orders(filter) {
				rows = append(rows, []string{
					formatTime(o.Timestamp),
					o.AccountID,
					o.Symbol,
					string(o.Strategy),
					o.Price.String(),
					o.Amount.String(),
					o.Cost.String(),
					strconv.FormatBool(o.Dummy),
				})
			}
			printTable(cmd.OutOrStdout(),
				[]string{"TIME", "ACCOUNT", "SYMBOL", "STRATEGY", "PRICE", "AMOUNT", "COST", "DUMMY"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.account, "account", "", "account id")
	cmd.Flags().StringVar(&flags.symbol, "symbol", "", "symbol, e.g. BTC/USDT")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "averaging or dip")
	cmd.Flags().StringVar(&flags.dummy, "dummy", "", "true for simulated orders, false for real ones")
	cmd.Flags().StringVar(&flags.since, "since", "", "RFC3339 time, date or duration back from now")

	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
