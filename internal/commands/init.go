package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/config"
	"github.com/cleared-dev/ofxsync/internal/ledgerstore"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	var (
		token string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init <transaction-dir>",
		Short: "Write a default config and create the local ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			path, err := opts.path()
			if err != nil {
				return err
			}
			if err := runInit(path, dir, token, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ofxsync config at %s (statements in %s)\n", path, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "YNAB personal access token to store in the token file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(cfgPath, transactionDir, token string, force bool) error {
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("config %s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default(filepath.Dir(cfgPath))
	cfg.TransactionDir = transactionDir
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(transactionDir, 0o755); err != nil {
		return fmt.Errorf("creating transaction dir: %w", err)
	}

	if token = strings.TrimSpace(token); token != "" {
		if err := os.WriteFile(cfg.API.TokenFile, []byte(token+"\n"), 0o600); err != nil {
			return fmt.Errorf("writing token file: %w", err)
		}
	}

	store, err := ledgerstore.Open(cfg.Database)
	if err != nil {
		return err
	}
	return store.Close()
}
