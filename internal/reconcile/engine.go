// Package reconcile delivers parsed statement transactions to the remote
// ledger exactly once.
//
// Each transaction is tagged with a deterministic import id. Transactions
// the remote accepts are committed to the local ledger store; those it
// reports as duplicates get the next free occurrence and are resubmitted,
// for at most a fixed number of rounds.
package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ofxsync/internal/id"
	"github.com/cleared-dev/ofxsync/internal/model"
)

// DefaultMaxRounds bounds the number of submissions per file.
const DefaultMaxRounds = 10

// Remote creates transactions in the remote ledger.
type Remote interface {
	Submit(ctx context.Context, budget uuid.UUID, txns []model.NewTransaction) (model.SubmitResult, error)
}

// Store is the local record of delivered transactions.
type Store interface {
	Exists(ctx context.Context, accountID, milli int64, date civil.Date) (bool, error)
	InsertIfAbsent(ctx context.Context, accountID, milli int64, date civil.Date) (bool, error)
}

// Config holds the engine settings.
type Config struct {
	Namespace    string
	MaxRounds    int
	Cleared      model.ClearedStatus
	RetryBackoff time.Duration
}

// Target is the budget and account a file is imported into.
type Target struct {
	Budget  model.Budget
	Account model.Account
}

// Engine reconciles files against one remote ledger and local store.
type Engine struct {
	ids     id.Builder
	cfg     Config
	remote  Remote
	store   Store
	log     zerolog.Logger
	onState func(State)
}

// New returns an engine. Zero config fields take their defaults.
func New(cfg Config, remote Remote, store Store, log zerolog.Logger) *Engine {
	if cfg.Namespace == "" {
		cfg.Namespace = id.DefaultNamespace
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Cleared == "" {
		cfg.Cleared = model.Cleared
	}
	return &Engine{
		ids:    id.NewBuilder(cfg.Namespace),
		cfg:    cfg,
		remote: remote,
		store:  store,
		log:    log,
	}
}

// Delivered is a transaction the remote accepted.
type Delivered struct {
	Index         int // position in the input slice
	ImportID      string
	TransactionID string
}

// Unresolved is a transaction left undelivered when reconciliation stopped.
type Unresolved struct {
	Index       int
	Transaction model.RawTransaction
	ImportID    string // last import id submitted
}

// Result summarizes one reconciliation.
type Result struct {
	State      State
	Rounds     int
	Skipped    int // already in the local store
	Delivered  []Delivered
	Unresolved []Unresolved
	// Attempts lists, per input index, every import id submitted for it.
	Attempts map[int][]string
}

// IncompleteError reports transactions that could not be delivered within
// the round limit.
type IncompleteError struct {
	Rounds     int
	Unresolved []Unresolved
	Err        error // last transient error, if any
}

func (e *IncompleteError) Error() string {
	ids := make([]string, len(e.Unresolved))
	for i, u := range e.Unresolved {
		ids[i] = u.ImportID
	}
	msg := fmt.Sprintf("import incomplete after %d rounds: %d unresolved (%s)",
		e.Rounds, len(e.Unresolved), strings.Join(ids, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IncompleteError) Unwrap() error { return e.Err }

// pending is a transaction waiting for the remote to accept it.
type pending struct {
	index int
	raw   model.RawTransaction
	key   id.Key
}

// run is the state of one Reconcile call.
type run struct {
	target  Target
	taken   id.Set
	batch   []pending
	retry   []pending
	last    model.SubmitResult
	lastErr error
	result  Result
}

// Reconcile delivers txns to target. It returns the result together with
// an *IncompleteError when transactions remain undelivered, or with the
// error that aborted the file.
func (e *Engine) Reconcile(ctx context.Context, target Target, txns []model.RawTransaction) (Result, error) {
	r := &run{
		target: target,
		taken:  id.Set{},
		result: Result{Attempts: map[int][]string{}},
	}
	log := e.log.With().
		Str("budget", target.Budget.Name).
		Str("account", target.Account.Name).
		Logger()

	state := Collecting
	for !state.Terminal() {
		e.enter(state)
		next, err := e.step(ctx, log, state, r, txns)
		if err != nil {
			r.result.State = state
			return r.result, err
		}
		state = next
	}
	e.enter(state)
	r.result.State = state

	if state == Failed {
		for _, p := range r.batch {
			r.result.Unresolved = append(r.result.Unresolved, Unresolved{
				Index:       p.index,
				Transaction: p.raw,
				ImportID:    e.ids.ImportID(p.key),
			})
		}
		log.Warn().Int("rounds", r.result.Rounds).Int("unresolved", len(r.result.Unresolved)).Msg("import incomplete")
		return r.result, &IncompleteError{Rounds: r.result.Rounds, Unresolved: r.result.Unresolved, Err: r.lastErr}
	}
	log.Info().
		Int("rounds", r.result.Rounds).
		Int("created", len(r.result.Delivered)).
		Int("skipped", r.result.Skipped).
		Msg("import done")
	return r.result, nil
}

func (e *Engine) enter(s State) {
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) step(ctx context.Context, log zerolog.Logger, state State, r *run, txns []model.RawTransaction) (State, error) {
	switch state {
	case Collecting:
		if err := e.collect(ctx, log, r, txns); err != nil {
			return state, err
		}
		if len(r.batch) == 0 {
			return Done, nil
		}
		return Submitting, nil

	case Submitting:
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if r.result.Rounds >= e.cfg.MaxRounds {
			return Failed, nil
		}
		r.result.Rounds++
		res, err := e.submit(ctx, r)
		if err != nil {
			var temp interface{ Temporary() bool }
			if errors.As(err, &temp) && temp.Temporary() {
				log.Warn().Err(err).Int("round", r.result.Rounds).Msg("transient submit failure")
				r.lastErr = err
				if err := sleep(ctx, e.cfg.RetryBackoff); err != nil {
					return state, err
				}
				return Submitting, nil
			}
			return state, fmt.Errorf("submitting round %d: %w", r.result.Rounds, err)
		}
		r.last = res
		r.lastErr = nil
		return AwaitingRemoteResult, nil

	case AwaitingRemoteResult:
		log.Info().
			Int("round", r.result.Rounds).
			Int("submitted", len(r.batch)).
			Int("created", len(r.last.Created)).
			Int("duplicates", len(r.last.DuplicateImportIDs)).
			Msg("round result")
		if len(r.last.Created) > 0 {
			return Committing, nil
		}
		return e.afterCommit(r)

	case Committing:
		if err := e.commit(ctx, r); err != nil {
			return state, err
		}
		return e.afterCommit(r)

	case Retrying:
		for _, p := range r.retry {
			p.key = e.ids.NextAfter(p.key, r.taken)
			r.taken.Add(e.ids.ImportID(p.key))
			r.batch = append(r.batch, p)
		}
		r.retry = nil
		slices.SortFunc(r.batch, byIndex)
		return Submitting, nil
	}
	return state, fmt.Errorf("reconcile: no transition from state %s", state)
}

// collect skips transactions already recorded locally and assigns import
// ids to the rest in input order.
func (e *Engine) collect(ctx context.Context, log zerolog.Logger, r *run, txns []model.RawTransaction) error {
	for i, t := range txns {
		milli := id.MinorUnits(t.Amount)
		seen, err := e.store.Exists(ctx, r.target.Account.ID, milli, t.Posted)
		if err != nil {
			return err
		}
		if seen {
			r.result.Skipped++
			log.Debug().
				Str("date", t.Posted.String()).
				Int64("amount", milli).
				Msg("already imported, skipping")
			continue
		}
		k := e.ids.Assign(t.Posted, milli, r.taken)
		r.taken.Add(e.ids.ImportID(k))
		r.batch = append(r.batch, pending{index: i, raw: t, key: k})
	}
	return nil
}

func (e *Engine) submit(ctx context.Context, r *run) (model.SubmitResult, error) {
	out := make([]model.NewTransaction, len(r.batch))
	for i, p := range r.batch {
		importID := e.ids.ImportID(p.key)
		out[i] = model.NewTransaction{
			AccountID: r.target.Account.UUID,
			Date:      p.key.Date,
			Amount:    p.key.Milli,
			PayeeName: p.raw.Payee,
			Memo:      p.raw.Memo,
			Cleared:   e.cfg.Cleared,
			ImportID:  importID,
		}
		r.result.Attempts[p.index] = append(r.result.Attempts[p.index], importID)
	}
	return e.remote.Submit(ctx, r.target.Budget.UUID, out)
}

// commit records every created transaction in the local store.
func (e *Engine) commit(ctx context.Context, r *run) error {
	byID := make(map[string]pending, len(r.batch))
	for _, p := range r.batch {
		byID[e.ids.ImportID(p.key)] = p
	}
	for _, c := range r.last.Created {
		p, ok := byID[c.ImportID]
		if !ok {
			return fmt.Errorf("remote created transaction %s with unknown import id %q", c.ID, c.ImportID)
		}
		if _, err := e.store.InsertIfAbsent(ctx, r.target.Account.ID, p.key.Milli, p.key.Date); err != nil {
			return err
		}
		r.result.Delivered = append(r.result.Delivered, Delivered{
			Index:         p.index,
			ImportID:      c.ImportID,
			TransactionID: c.ID,
		})
	}
	return nil
}

// afterCommit queues the duplicates of the last round for another one.
// Transactions the remote neither created nor reported stay in the batch
// and are submitted again unchanged.
func (e *Engine) afterCommit(r *run) (State, error) {
	created := make(map[string]bool, len(r.last.Created))
	for _, c := range r.last.Created {
		created[c.ImportID] = true
	}
	dups := make(map[string]bool, len(r.last.DuplicateImportIDs))
	for _, d := range r.last.DuplicateImportIDs {
		dups[d] = true
	}

	var keep []pending
	for _, p := range r.batch {
		importID := e.ids.ImportID(p.key)
		switch {
		case created[importID]:
		case dups[importID]:
			r.retry = append(r.retry, p)
		default:
			keep = append(keep, p)
		}
	}
	r.batch = keep

	switch {
	case len(r.retry) > 0 && r.result.Rounds >= e.cfg.MaxRounds:
		r.batch = append(r.batch, r.retry...)
		r.retry = nil
		slices.SortFunc(r.batch, byIndex)
		return Failed, nil
	case len(r.retry) > 0:
		return Retrying, nil
	case len(r.batch) > 0:
		return Submitting, nil
	}
	return Done, nil
}

func byIndex(a, b pending) int { return cmp.Compare(a.index, b.index) }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
