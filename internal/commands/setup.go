package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/setup"
	"github.com/cleared-dev/ofxsync/internal/syncer"
)

func newSetupCommand(opts *globalOptions) *cobra.Command {
	var (
		budgets []string
		noSync  bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register YNAB budgets and accounts and create their statement directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, opts, true)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := e.ctx
			sum, err := setup.Run(ctx, setup.Options{TransactionDir: e.cfg.TransactionDir, Budgets: budgets}, e.client, e.store, e.log())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range sum.CreatedDirs {
				fmt.Fprintf(out, "Created %s\n", d)
			}
			green.Fprintf(out, "Registered %d budgets, %d accounts\n", len(sum.Budgets), len(sum.Accounts))

			if noSync {
				return nil
			}
			results, err := syncer.New(e.client, e.store, e.cfg.Import.SyncWorkers, e.log()).Sync(ctx)
			if err != nil {
				return err
			}
			printSync(out, results)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&budgets, "budget", nil, "only set up the named budget (repeatable)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "skip recording existing YNAB transactions")

	return cmd
}
