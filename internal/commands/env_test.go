package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ofxsync/internal/config"
	"github.com/cleared-dev/ofxsync/internal/logger"
)

func TestLoadEnv_LoggerInContext(t *testing.T) {
	home := t.TempDir()
	txDir := filepath.Join(home, "ofx")
	require.NoError(t, os.Mkdir(txDir, 0o755))

	cfg := config.Default(home)
	cfg.TransactionDir = txDir
	cfg.Log.Format = "json"
	cfgPath := filepath.Join(home, "ofxsync.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	var stderr bytes.Buffer
	cmd := &cobra.Command{Use: "scan"}
	cmd.SetErr(&stderr)

	e, err := loadEnv(cmd, &globalOptions{configPath: cfgPath}, false)
	require.NoError(t, err)
	defer e.close()

	log := logger.FromContext(cmd.Context())
	log.Info().Msg("from command context")

	out := stderr.String()
	assert.Contains(t, out, "from command context")
	assert.Contains(t, out, `"command":"scan"`)

	stderr.Reset()
	envLog := e.log()
	envLog.Info().Msg("from env")
	assert.Contains(t, stderr.String(), `"command":"scan"`)
}
