package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/buildinfo"
	"github.com/cleared-dev/ofxsync/internal/config"
	"github.com/cleared-dev/ofxsync/internal/importer"
	"github.com/cleared-dev/ofxsync/internal/ledgerstore"
	"github.com/cleared-dev/ofxsync/internal/logger"
	"github.com/cleared-dev/ofxsync/internal/model"
	"github.com/cleared-dev/ofxsync/internal/reconcile"
	"github.com/cleared-dev/ofxsync/internal/ynab"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
}

func (o *globalOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.DefaultPath()
}

// env is what a command needs to talk to the local store and the remote.
// ctx carries the command's logger.
type env struct {
	cfg    *config.Config
	ctx    context.Context
	store  *ledgerstore.Store
	client *ynab.Client
}

// loadEnv reads and validates the config, then opens the store and, with
// remote set, the API client. Callers must call close.
func loadEnv(cmd *cobra.Command, opts *globalOptions, remote bool) (*env, error) {
	path, err := opts.path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	log, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	log = logger.WithFields(log, map[string]interface{}{"command": cmd.Name()})
	cmd.SetContext(logger.WithContext(ctxOf(cmd), log))

	e := &env{cfg: cfg, ctx: cmd.Context()}
	if remote {
		tok, err := cfg.Token()
		if err != nil {
			return nil, err
		}
		e.client, err = ynab.New(ynab.Options{
			BaseURL:   cfg.API.BaseURL,
			Token:     tok,
			Timeout:   cfg.API.Timeout,
			UserAgent: buildinfo.UserAgent(),
		})
		if err != nil {
			return nil, err
		}
	}

	e.store, err = ledgerstore.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		log := e.log()
		log.Warn().Err(err).Msg("closing ledger store")
	}
}

func (e *env) log() zerolog.Logger {
	return logger.FromContext(e.ctx)
}

func newLogger(w io.Writer, cfg *config.Config) (zerolog.Logger, error) {
	return logger.NewFromOptions(w, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

func (e *env) engine() *reconcile.Engine {
	return reconcile.New(reconcile.Config{
		Namespace:    e.cfg.Import.Namespace,
		MaxRounds:    e.cfg.Import.MaxRounds,
		Cleared:      model.ClearedStatus(e.cfg.Import.Cleared),
		RetryBackoff: e.cfg.Import.RetryBackoff,
	}, e.client, e.store, e.log())
}

func (e *env) importService() *importer.Service {
	return importer.New(importer.Options{
		BaseDir:       e.cfg.TransactionDir,
		ImportLog:     e.cfg.ImportLog,
		MoveProcessed: e.cfg.Import.MoveProcessed,
	}, importer.DefaultRegistry(), e.store, e.engine(), e.log())
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
