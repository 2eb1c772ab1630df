package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TokenEnv overrides the token file when set.
const TokenEnv = "OFXSYNC_TOKEN"

// Config represents the top-level ofxsync.yaml configuration.
type Config struct {
	TransactionDir string       `yaml:"transaction_dir"`
	Database       string       `yaml:"database"`
	ImportLog      string       `yaml:"import_log,omitempty"`
	API            APIConfig    `yaml:"api"`
	Import         ImportConfig `yaml:"import"`
	Watch          WatchConfig  `yaml:"watch"`
	Log            LogConfig    `yaml:"log"`
}

// APIConfig locates the remote budgeting API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	TokenFile string        `yaml:"token_file"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ImportConfig controls reconciliation.
type ImportConfig struct {
	Namespace     string `yaml:"namespace"`
	MaxRounds     int    `yaml:"max_rounds"`
	Cleared       string `yaml:"cleared"`
	MoveProcessed bool   `yaml:"move_processed"`
	SyncWorkers   int    `yaml:"sync_workers"`

	// RetryBackoff is the pause before resubmitting after a transient
	// network failure.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// Load reads an ofxsync.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default(filepath.Dir(path))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with state files kept under home.
func Default(home string) *Config {
	return &Config{
		Database:  filepath.Join(home, "ledger.sqlite"),
		ImportLog: filepath.Join(home, "import-log.csv"),
		API: APIConfig{
			BaseURL:   "https://api.ynab.com/v1",
			TokenFile: filepath.Join(home, "token"),
			Timeout:   30 * time.Second,
		},
		Import: ImportConfig{
			Namespace:    "YNAB",
			MaxRounds:    10,
			Cleared:      "cleared",
			SyncWorkers:  4,
			RetryBackoff: time.Second,
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns ~/.ofxsync/ofxsync.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".ofxsync", "ofxsync.yaml"), nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.TransactionDir == "" {
		errs = append(errs, errors.New("transaction_dir is required"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if strings.TrimSpace(c.Import.Namespace) == "" || strings.Contains(c.Import.Namespace, ":") {
		errs = append(errs, fmt.Errorf("import.namespace %q must be non-empty and contain no ':'", c.Import.Namespace))
	}
	if c.Import.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("import.max_rounds must be at least 1, got %d", c.Import.MaxRounds))
	}
	switch c.Import.Cleared {
	case "cleared", "uncleared", "reconciled":
	default:
		errs = append(errs, fmt.Errorf("import.cleared %q must be cleared, uncleared or reconciled", c.Import.Cleared))
	}
	if c.Import.SyncWorkers < 1 {
		errs = append(errs, fmt.Errorf("import.sync_workers must be at least 1, got %d", c.Import.SyncWorkers))
	}
	if c.Import.RetryBackoff < 0 {
		errs = append(errs, errors.New("import.retry_backoff must not be negative"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	return errors.Join(errs...)
}

// Token returns the API bearer token from the environment or token file.
func (c *Config) Token() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}
	if c.API.TokenFile == "" {
		return "", fmt.Errorf("no API token: set %s or api.token_file", TokenEnv)
	}
	data, err := os.ReadFile(c.API.TokenFile)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", c.API.TokenFile)
	}
	return tok, nil
}
