package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/syncer"
)

func newSyncCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Record the transactions already in YNAB so they are never imported again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, opts, true)
			if err != nil {
				return err
			}
			defer e.close()

			results, err := syncer.New(e.client, e.store, e.cfg.Import.SyncWorkers, e.log()).Sync(e.ctx)
			if err != nil {
				return err
			}
			printSync(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func printSync(w io.Writer, results []syncer.AccountSummary) {
	for _, r := range results {
		fmt.Fprintf(w, "  %s: %d fetched, %d new, %d on record\n", r.Account.Name, r.Fetched, r.Recorded, r.Total)
	}
	green.Fprintf(w, "Synced %d accounts\n", len(results))
}
