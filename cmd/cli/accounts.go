package cli

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/dipbuyer/config"
	"github.com/vadiminshakov/dipbuyer/internal/setup"
)

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts and their strategy configs",
	}

	cmd.AddCommand(
		newAccountsListCmd(opts),
		newAccountsImportCmd(opts),
		newAccountsAddCmd(opts),
	)

	return cmd
}

func newAccountsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their configs",
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

			list, rejected, err := store.Accounts(cmd.Context())
			if err != nil {
				return err
			}

			var rows [][]string
			for _, a := range list {
				rows = append(rows, []string{
					a.ID,
					a.DisplayName(),
					string(a.Platform),
					strconv.FormatBool(a.Active),
					strconv.Itoa(len(a.Averaging)),
					strconv.Itoa(len(a.Dips)),
					formatTime(a.LastContact),
				})
			}
			printTable(cmd.OutOrStdout(),
				[]string{"ID", "NAME", "PLATFORM", "ACTIVE", "PERIODIC", "DIPS", "LAST CONTACT"}, rows)

			for _, r := range rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid config: %v\n", r)
			}
			return nil
		},
	}
}

func newAccountsImportCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import accounts from a yaml file",
		Long: `Create or update accounts and their strategy configs from a yaml file.
The whole file is validated before anything is written.

Example:
  dipbuyer accounts import --file accounts.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			imports, err := config.LoadAccounts(file)
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			store, err := openAccounts(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, imp := range imports {
				if err := setup.Save(cmd.Context(), store, imp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d periodic, %d dip configs\n",
					imp.Account.ID, len(imp.Averaging), len(imp.Dips))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the accounts file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newAccountsAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add an account interactively",
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

			return errors.Wrap(setup.RunTUI(cmd.Context(), store), "account wizard")
		},
	}
}
