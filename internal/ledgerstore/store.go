// Package ledgerstore is the local record of budgets, accounts and the
// transactions already delivered to the remote ledger.
//
// A transaction is identified by (account, milliunit amount, posted date).
// Rows are only ever inserted; InsertIfAbsent is the sole synchronization
// point between concurrent imports.
package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cleared-dev/ofxsync/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// PersistenceError reports a failure of the local database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("ledger store: %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

const schema = `
CREATE TABLE IF NOT EXISTS budget (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS account (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	budget_id INTEGER NOT NULL REFERENCES budget(id),
	uuid      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_account_budget_name ON account(budget_id, name);
CREATE TABLE IF NOT EXISTS transaction_import (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id  INTEGER NOT NULL REFERENCES account(id),
	amount      INTEGER NOT NULL,
	date_posted TEXT NOT NULL,
	UNIQUE(account_id, amount, date_posted)
);
`

// Store is a sqlite-backed ledger store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path + "?" + url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	// sqlite allows one writer; a single connection keeps writers queued in
	// the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, wrap("create schema", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBudget records a remote budget, renaming it if it already exists,
// and returns its local row.
func (s *Store) UpsertBudget(ctx context.Context, id uuid.UUID, name string) (model.Budget, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budget(uuid, name) VALUES (?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name`,
		id.String(), name)
	if err != nil {
		return model.Budget{}, wrap("upsert budget", err)
	}
	return s.scanBudget(ctx, "upsert budget", `SELECT id, uuid, name FROM budget WHERE uuid = ?`, id.String())
}

// Budget returns the budget with local row id.
func (s *Store) Budget(ctx context.Context, id int64) (model.Budget, error) {
	return s.scanBudget(ctx, "get budget", `SELECT id, uuid, name FROM budget WHERE id = ?`, id)
}

// BudgetByName returns the budget named name.
func (s *Store) BudgetByName(ctx context.Context, name string) (model.Budget, error) {
	return s.scanBudget(ctx, "get budget by name", `SELECT id, uuid, name FROM budget WHERE name = ? ORDER BY id LIMIT 1`, name)
}

func (s *Store) scanBudget(ctx context.Context, op, query string, args ...any) (model.Budget, error) {
	var (
		b   model.Budget
		raw string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &raw, &b.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Budget{}, ErrNotFound
	}
	if err != nil {
		return model.Budget{}, wrap(op, err)
	}
	if b.UUID, err = uuid.Parse(raw); err != nil {
		return model.Budget{}, wrap(op, err)
	}
	return b, nil
}

// UpsertAccount records a remote account of budget budgetID, renaming it if
// it already exists, and returns its local row.
func (s *Store) UpsertAccount(ctx context.Context, budgetID int64, id uuid.UUID, name string) (model.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account(budget_id, uuid, name) VALUES (?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET name = excluded.name`,
		budgetID, id.String(), name)
	if err != nil {
		return model.Account{}, wrap("upsert account", err)
	}
	return s.scanAccount(ctx, "upsert account",
		`SELECT id, budget_id, uuid, name FROM account WHERE uuid = ?`, id.String())
}

// AccountByName returns the account named name within budget budgetID.
func (s *Store) AccountByName(ctx context.Context, budgetID int64, name string) (model.Account, error) {
	return s.scanAccount(ctx, "get account by name",
		`SELECT id, budget_id, uuid, name FROM account WHERE budget_id = ? AND name = ? ORDER BY id LIMIT 1`,
		budgetID, name)
}

func (s *Store) scanAccount(ctx context.Context, op, query string, args ...any) (model.Account, error) {
	var (
		a   model.Account
		raw string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.BudgetID, &raw, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, wrap(op, err)
	}
	if a.UUID, err = uuid.Parse(raw); err != nil {
		return model.Account{}, wrap(op, err)
	}
	return a, nil
}

// Accounts returns every known account ordered by row id.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, budget_id, uuid, name FROM account ORDER BY id`)
	if err != nil {
		return nil, wrap("list accounts", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var (
			a   model.Account
			raw string
		)
		if err := rows.Scan(&a.ID, &a.BudgetID, &raw, &a.Name); err != nil {
			return nil, wrap("list accounts", err)
		}
		if a.UUID, err = uuid.Parse(raw); err != nil {
			return nil, wrap("list accounts", err)
		}
		out = append(out, a)
	}
	return out, wrap("list accounts", rows.Err())
}

// Exists reports whether the transaction is already recorded.
func (s *Store) Exists(ctx context.Context, accountID, milli int64, date civil.Date) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM transaction_import WHERE account_id = ? AND amount = ? AND date_posted = ?`,
		accountID, milli, date.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("exists", err)
	}
	return true, nil
}

// InsertIfAbsent records the transaction and reports whether a new row was
// written. An existing row is not an error.
func (s *Store) InsertIfAbsent(ctx context.Context, accountID, milli int64, date civil.Date) (bool, error) {
	res, err := s.db.ExecContext(ctx, insertIfAbsent, accountID, milli, date.String())
	if err != nil {
		return false, wrap("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("insert", err)
	}
	return n == 1, nil
}

// Record is one delivered transaction.
type Record struct {
	AccountID int64
	Milli     int64
	Date      civil.Date
}

// InsertManyIfAbsent records all rows in one database transaction and
// returns how many were new.
func (s *Store) InsertManyIfAbsent(ctx context.Context, recs []Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrap("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertIfAbsent)
	if err != nil {
		return 0, wrap("prepare insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range recs {
		res, err := stmt.ExecContext(ctx, r.AccountID, r.Milli, r.Date.String())
		if err != nil {
			return 0, wrap("insert", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, wrap("insert", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap("commit", err)
	}
	return inserted, nil
}

// Count returns the number of recorded transactions of an account.
func (s *Store) Count(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_import WHERE account_id = ?`, accountID).Scan(&n)
	return n, wrap("count", err)
}

const insertIfAbsent = `INSERT INTO transaction_import(account_id, amount, date_posted) VALUES (?, ?, ?)
	ON CONFLICT(account_id, amount, date_posted) DO NOTHING`
