package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:     "ofxsync",
		Short:   "Import OFX/QFX bank statements into YNAB exactly once",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.ofxsync/ofxsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(
		newInitCommand(&opts),
		newSetupCommand(&opts),
		newSyncCommand(&opts),
		newImportCommand(&opts),
		newScanCommand(&opts),
		newWatchCommand(&opts),
		newParseCommand(),
	)

	return rootCmd
}
