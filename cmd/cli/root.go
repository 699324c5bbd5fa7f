// Package cli holds the dipbuyer commands.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/dipbuyer/config"
	"github.com/vadiminshakov/dipbuyer/internal/storage/accounts"
	"github.com/vadiminshakov/dipbuyer/internal/storage/orders"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X .../cmd/cli.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

// New builds the command tree.
func New() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "dipbuyer",
		Short:        "Periodic and dip buying for exchange accounts",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to the yaml config (defaults and DIPBUYER_* variables apply without it)")

	cmd.AddCommand(
		newRunCmd(opts),
		newAccountsCmd(opts),
		newOrdersCmd(opts),
		newStatsCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zcfg.Level = level

	return zcfg.Build()
}

func openAccounts(cfg config.Config) (*accounts.Store, error) {
	store, err := accounts.NewSQLite(cfg.DatabasePath())
	if err != nil {
		return nil, errors.Wrap(err, "open account store")
	}
	return store, nil
}

func openLedger(cfg config.Config) (*orders.WALStore, error) {
	ledger, err := orders.NewWALStore(cfg.LedgerDir())
	if err != nil {
		return nil, errors.Wrap(err, "open order ledger")
	}
	return ledger, nil
}
