package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import statement files into the budget and account their directory names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, len(args))
			for i, a := range args {
				abs, err := filepath.Abs(a)
				if err != nil {
					return fmt.Errorf("resolving %s: %w", a, err)
				}
				paths[i] = abs
			}

			e, err := loadEnv(cmd, opts, true)
			if err != nil {
				return err
			}
			defer e.close()

			reps, err := e.importService().ImportFiles(e.ctx, paths)
			printReports(cmd.OutOrStdout(), reps)
			return err
		},
	}
}

func newScanCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Import every statement file under the transaction directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd, opts, true)
			if err != nil {
				return err
			}
			defer e.close()

			svc := e.importService()
			files, err := svc.Registry().Scan(e.cfg.TransactionDir)
			if err != nil {
				return err
			}
			paths := make([]string, len(files))
			for i, f := range files {
				paths[i] = f.Path
			}

			reps, err := svc.ImportFiles(e.ctx, paths)
			printReports(cmd.OutOrStdout(), reps)
			return err
		},
	}
}
