package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.TransactionDir = filepath.Join(dir, "statements")
	cfg.Import.MoveProcessed = true

	path := filepath.Join(dir, "ofxsync.yaml")
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.TransactionDir, got.TransactionDir)
	assert.Equal(t, cfg.Database, got.Database)
	assert.Equal(t, cfg.ImportLog, got.ImportLog)
	assert.Equal(t, cfg.API, got.API)
	assert.Equal(t, cfg.Import, got.Import)
	assert.Equal(t, cfg.Watch.Debounce, got.Watch.Debounce)
	assert.Equal(t, cfg.Log, got.Log)
}

func TestDefaults(t *testing.T) {
	cfg := Default("/home/me/.ofxsync")

	assert.Equal(t, "/home/me/.ofxsync/ledger.sqlite", cfg.Database)
	assert.Equal(t, "/home/me/.ofxsync/import-log.csv", cfg.ImportLog)
	assert.Equal(t, "/home/me/.ofxsync/token", cfg.API.TokenFile)
	assert.Equal(t, "https://api.ynab.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "YNAB", cfg.Import.Namespace)
	assert.Equal(t, 10, cfg.Import.MaxRounds)
	assert.Equal(t, "cleared", cfg.Import.Cleared)
	assert.False(t, cfg.Import.MoveProcessed)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Empty(t, cfg.TransactionDir)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ofxsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transaction_dir: /data/ofx\nimport:\n  max_rounds: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/ofx", cfg.TransactionDir)
	assert.Equal(t, 3, cfg.Import.MaxRounds)
	assert.Equal(t, "YNAB", cfg.Import.Namespace)
	assert.Equal(t, filepath.Join(dir, "ledger.sqlite"), cfg.Database)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ofxsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import: [1, 2"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("/state")
	cfg.TransactionDir = "/data/ofx"
	path := filepath.Join(t.TempDir(), "ofxsync.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "transaction_dir: /data/ofx")
	assert.Contains(t, contents, "namespace: YNAB")
	assert.Contains(t, contents, "max_rounds: 10")
	assert.Contains(t, contents, "base_url: https://api.ynab.com/v1")
}

func TestValidate(t *testing.T) {
	cfg := Default("/state")
	cfg.TransactionDir = "/data"
	require.NoError(t, cfg.Validate())

	cfg.TransactionDir = ""
	cfg.Import.Namespace = "A:B"
	cfg.Import.MaxRounds = 0
	cfg.Import.Cleared = "maybe"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction_dir is required")
	assert.Contains(t, err.Error(), "import.namespace")
	assert.Contains(t, err.Error(), "max_rounds")
	assert.Contains(t, err.Error(), "import.cleared")
}

func TestToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()
	cfg := Default(dir)

	_, err := cfg.Token()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(cfg.API.TokenFile, []byte("  secret\n"), 0o600))
	tok, err := cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	t.Setenv(TokenEnv, "from-env")
	tok, err = cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestTokenEmptyFile(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := Default(t.TempDir())
	require.NoError(t, os.WriteFile(cfg.API.TokenFile, []byte("\n"), 0o600))
	_, err := cfg.Token()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
