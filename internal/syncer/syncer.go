// Package syncer records the transactions already present in the remote
// ledger so later imports do not submit them again.
package syncer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/ofxsync/internal/id"
	"github.com/cleared-dev/ofxsync/internal/ledgerstore"
	"github.com/cleared-dev/ofxsync/internal/model"
)

// Remote lists the transactions of a remote account.
type Remote interface {
	ListByAccount(ctx context.Context, budget, account uuid.UUID) ([]model.Transaction, error)
}

// Store is the local ledger the remote history is copied into.
type Store interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Budget(ctx context.Context, id int64) (model.Budget, error)
	InsertManyIfAbsent(ctx context.Context, recs []ledgerstore.Record) (int, error)
	Count(ctx context.Context, accountID int64) (int, error)
}

// AccountSummary is the sync outcome of one account.
type AccountSummary struct {
	Account  model.Account
	Fetched  int
	Deleted  int
	Recorded int // rows new to the local store
	Imported int // live transactions that carry a file import ID
	Total    int // rows on record for the account after the sync
}

// Syncer copies remote history into the local store.
type Syncer struct {
	remote  Remote
	store   Store
	workers int
	log     zerolog.Logger
}

// New returns a Syncer fetching at most workers accounts at a time.
func New(remote Remote, store Store, workers int, log zerolog.Logger) *Syncer {
	if workers < 1 {
		workers = 1
	}
	return &Syncer{remote: remote, store: store, workers: workers, log: log}
}

// Sync fetches every known account and records its live transactions. The
// first failing account cancels the rest.
func (s *Syncer) Sync(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	budgets := make(map[int64]model.Budget)
	for _, a := range accounts {
		if _, ok := budgets[a.BudgetID]; ok {
			continue
		}
		b, err := s.store.Budget(ctx, a.BudgetID)
		if err != nil {
			return nil, fmt.Errorf("account %s: loading budget: %w", a.Name, err)
		}
		budgets[a.BudgetID] = b
	}

	results := make([]AccountSummary, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, a := range accounts {
		g.Go(func() error {
			sum, err := s.syncAccount(gctx, budgets[a.BudgetID], a)
			if err != nil {
				return fmt.Errorf("syncing account %s: %w", a.Name, err)
			}
			results[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Syncer) syncAccount(ctx context.Context, budget model.Budget, account model.Account) (AccountSummary, error) {
	txns, err := s.remote.ListByAccount(ctx, budget.UUID, account.UUID)
	if err != nil {
		return AccountSummary{}, err
	}

	sum := AccountSummary{Account: account, Fetched: len(txns)}
	recs := make([]ledgerstore.Record, 0, len(txns))
	for _, t := range txns {
		if t.Deleted {
			sum.Deleted++
			continue
		}
		if _, _, err := id.ParseImportID(t.ImportID); err == nil {
			sum.Imported++
		}
		recs = append(recs, ledgerstore.Record{AccountID: account.ID, Milli: t.Amount, Date: t.Date})
	}

	n, err := s.store.InsertManyIfAbsent(ctx, recs)
	if err != nil {
		return AccountSummary{}, err
	}
	sum.Recorded = n
	if sum.Total, err = s.store.Count(ctx, account.ID); err != nil {
		return AccountSummary{}, err
	}
	s.log.Info().
		Str("budget", budget.Name).
		Str("account", account.Name).
		Int("fetched", sum.Fetched).
		Int("recorded", n).
		Int("imported", sum.Imported).
		Int("total", sum.Total).
		Msg("synced account")
	return sum, nil
}
