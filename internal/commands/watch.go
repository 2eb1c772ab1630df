package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/importer"
	"github.com/cleared-dev/ofxsync/internal/watch"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var scanFirst bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the transaction directory and import new statement files as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, opts, true)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := e.importService()
			reg := svc.Registry()
			out := cmd.OutOrStdout()

			if scanFirst {
				files, err := reg.Scan(e.cfg.TransactionDir)
				if err != nil {
					return err
				}
				for _, f := range files {
					rep, _ := svc.ImportFile(ctx, f.Path)
					printReport(out, rep)
				}
			}

			w, err := watch.New(e.cfg.TransactionDir, watch.Options{
				Debounce: e.cfg.Watch.Debounce,
				Match:    func(p string) bool { return reg.ForPath(p) != nil },
				Skip:     []string{importer.ProcessedDir},
			}, e.log())
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(out, "Watching %s\n", e.cfg.TransactionDir)
			err = w.Run(ctx, func(ctx context.Context, path string) {
				rep, _ := svc.ImportFile(ctx, path)
				printReport(out, rep)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&scanFirst, "scan", false, "import files already present before watching")

	return cmd
}
