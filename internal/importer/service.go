package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ofxsync/internal/importlog"
	"github.com/cleared-dev/ofxsync/internal/ledgerstore"
	"github.com/cleared-dev/ofxsync/internal/model"
	"github.com/cleared-dev/ofxsync/internal/ofx"
	"github.com/cleared-dev/ofxsync/internal/reconcile"
)

// ErrUnsupported is returned for files no registered parser handles.
var ErrUnsupported = errors.New("unsupported file type")

// Directory looks up budgets and accounts known locally.
type Directory interface {
	BudgetByName(ctx context.Context, name string) (model.Budget, error)
	AccountByName(ctx context.Context, budgetID int64, name string) (model.Account, error)
}

// Reconciler delivers parsed transactions to the remote ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, target reconcile.Target, txns []model.RawTransaction) (reconcile.Result, error)
}

// Options configures a Service.
type Options struct {
	BaseDir       string
	ImportLog     string // empty disables the import log
	MoveProcessed bool
}

// Service imports statement files one at a time.
type Service struct {
	opts     Options
	registry *Registry
	dir      Directory
	rec      Reconciler
	log      zerolog.Logger
	now      func() time.Time
}

// New returns an import service.
func New(opts Options, registry *Registry, dir Directory, rec Reconciler, log zerolog.Logger) *Service {
	return &Service{
		opts:     opts,
		registry: registry,
		dir:      dir,
		rec:      rec,
		log:      log,
		now:      time.Now,
	}
}

// Registry returns the parsers the service accepts.
func (s *Service) Registry() *Registry { return s.registry }

// Report describes the outcome of one file import.
type Report struct {
	File    string
	Budget  string
	Account string
	Parsed  int
	Skipped int
	Created int
	Rounds  int
	Status  importlog.Status
	Moved   string // new location when the file was moved to processed/
}

// ImportFile parses path and reconciles its transactions into the budget
// and account named by its location. A file that fails to parse or resolve
// is left in place and never reaches the network.
func (s *Service) ImportFile(ctx context.Context, path string) (Report, error) {
	rep := Report{File: path}
	parser := s.registry.ForPath(path)
	if parser == nil {
		return rep, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	log := s.log.With().Str("file", path).Logger()

	err := s.importFile(ctx, log, parser, path, &rep)
	rep.Status = statusOf(err)
	if err != nil {
		log.Error().Err(err).Str("status", string(rep.Status)).Msg("import failed")
	}

	if err == nil && s.opts.MoveProcessed {
		moved, mvErr := MarkProcessed(path)
		if mvErr != nil {
			log.Warn().Err(mvErr).Msg("could not move imported file")
		} else {
			rep.Moved = moved
		}
	}

	if logErr := s.appendLog(rep, err); logErr != nil {
		log.Warn().Err(logErr).Msg("could not write import log")
	}
	return rep, err
}

func (s *Service) importFile(ctx context.Context, log zerolog.Logger, parser Parser, path string, rep *Report) error {
	budgetName, accountName, err := ResolvePath(s.opts.BaseDir, path)
	if err != nil {
		return err
	}
	rep.Budget, rep.Account = budgetName, accountName

	target, err := s.target(ctx, path, budgetName, accountName)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	txns, err := parser.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	rep.Parsed = len(txns)
	log.Info().Int("transactions", len(txns)).Str("budget", budgetName).Str("account", accountName).Msg("parsed")

	res, err := s.rec.Reconcile(ctx, target, txns)
	rep.Skipped = res.Skipped
	rep.Created = len(res.Delivered)
	rep.Rounds = res.Rounds
	return err
}

func (s *Service) target(ctx context.Context, path, budgetName, accountName string) (reconcile.Target, error) {
	budget, err := s.dir.BudgetByName(ctx, budgetName)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return reconcile.Target{}, &PathResolutionError{Path: path, Reason: fmt.Sprintf("unknown budget %q", budgetName)}
	}
	if err != nil {
		return reconcile.Target{}, err
	}
	account, err := s.dir.AccountByName(ctx, budget.ID, accountName)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		return reconcile.Target{}, &PathResolutionError{Path: path, Reason: fmt.Sprintf("unknown account %q in budget %q", accountName, budgetName)}
	}
	if err != nil {
		return reconcile.Target{}, err
	}
	return reconcile.Target{Budget: budget, Account: account}, nil
}

// ImportFiles imports paths in order, one file to completion before the
// next. It keeps going after a failed file and returns every error joined.
func (s *Service) ImportFiles(ctx context.Context, paths []string) ([]Report, error) {
	var (
		reports []Report
		errs    []error
	)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rep, err := s.ImportFile(ctx, p)
		reports = append(reports, rep)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func (s *Service) appendLog(rep Report, err error) error {
	if s.opts.ImportLog == "" {
		return nil
	}
	file := rep.File
	if rel, relErr := filepath.Rel(s.opts.BaseDir, rep.File); relErr == nil && !strings.HasPrefix(rel, "..") {
		file = rel
	}
	entry := importlog.Entry{
		Timestamp: s.now().UTC(),
		File:      file,
		Budget:    rep.Budget,
		Account:   rep.Account,
		Parsed:    rep.Parsed,
		Skipped:   rep.Skipped,
		Created:   rep.Created,
		Rounds:    rep.Rounds,
		Status:    rep.Status,
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	return importlog.Append(s.opts.ImportLog, []importlog.Entry{entry})
}

func statusOf(err error) importlog.Status {
	var (
		formatErr     *ofx.FormatError
		pathErr       *PathResolutionError
		incompleteErr *reconcile.IncompleteError
	)
	switch {
	case err == nil:
		return importlog.StatusDone
	case errors.As(err, &formatErr):
		return importlog.StatusFormatError
	case errors.As(err, &pathErr):
		return importlog.StatusPathError
	case errors.As(err, &incompleteErr):
		return importlog.StatusIncomplete
	}
	return importlog.StatusError
}
