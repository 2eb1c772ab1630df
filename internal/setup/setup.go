// Package setup registers the remote budgets and accounts locally and
// creates the statement directory tree they map to.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ofxsync/internal/model"
	"github.com/cleared-dev/ofxsync/internal/ynab"
)

// Remote lists budgets and accounts.
type Remote interface {
	ListBudgets(ctx context.Context) ([]ynab.Budget, error)
	ListAccounts(ctx context.Context, budget uuid.UUID) ([]ynab.Account, error)
}

// Store records budgets and accounts.
type Store interface {
	UpsertBudget(ctx context.Context, id uuid.UUID, name string) (model.Budget, error)
	UpsertAccount(ctx context.Context, budgetID int64, id uuid.UUID, name string) (model.Account, error)
}

// Options selects what to set up.
type Options struct {
	TransactionDir string
	Budgets        []string // names to include; empty means all
}

// Summary lists what was registered.
type Summary struct {
	Budgets     []model.Budget
	Accounts    []model.Account
	CreatedDirs []string
}

// Run fetches budgets and their open accounts, records them in store and
// creates <TransactionDir>/<budget>/<account> for each.
func Run(ctx context.Context, opts Options, remote Remote, store Store, log zerolog.Logger) (Summary, error) {
	info, err := os.Stat(opts.TransactionDir)
	if err != nil {
		return Summary{}, fmt.Errorf("transaction directory: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("transaction directory %s is not a directory", opts.TransactionDir)
	}

	budgets, err := remote.ListBudgets(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing budgets: %w", err)
	}

	var sum Summary
	for _, rb := range budgets {
		if !selected(opts.Budgets, rb.Name) {
			continue
		}
		if err := validName(rb.Name); err != nil {
			log.Warn().Str("budget", rb.Name).Err(err).Msg("skipping budget")
			continue
		}
		accounts, err := remote.ListAccounts(ctx, rb.ID)
		if err != nil {
			return sum, fmt.Errorf("listing accounts of %s: %w", rb.Name, err)
		}

		b, err := store.UpsertBudget(ctx, rb.ID, rb.Name)
		if err != nil {
			return sum, err
		}
		sum.Budgets = append(sum.Budgets, b)
		budgetDir := filepath.Join(opts.TransactionDir, rb.Name)
		if err := mkdir(budgetDir, &sum); err != nil {
			return sum, err
		}

		registered := 0
		for _, ra := range accounts {
			if ra.Closed || ra.Deleted {
				continue
			}
			if err := validName(ra.Name); err != nil {
				log.Warn().Str("budget", rb.Name).Str("account", ra.Name).Err(err).Msg("skipping account")
				continue
			}
			a, err := store.UpsertAccount(ctx, b.ID, ra.ID, ra.Name)
			if err != nil {
				return sum, err
			}
			sum.Accounts = append(sum.Accounts, a)
			registered++
			if err := mkdir(filepath.Join(budgetDir, ra.Name), &sum); err != nil {
				return sum, err
			}
		}
		log.Info().Str("budget", rb.Name).Int("accounts", registered).Msg("budget registered")
	}
	return sum, nil
}

func selected(names []string, name string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// validName rejects names that cannot be a single directory level.
func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".", name == "..":
		return fmt.Errorf("name %q is not usable as a directory", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}

func mkdir(path string, sum *Summary) error {
	err := os.Mkdir(path, 0o755)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	sum.CreatedDirs = append(sum.CreatedDirs, path)
	return nil
}
