package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 32, cfg.Webstore.PageSize)
	require.Equal(t, 10, cfg.Webstore.MaxPages)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, "csv", cfg.Output.Format)
	require.Equal(t, "local", cfg.Storage.Provider)
	require.False(t, cfg.DB.Enabled)
	require.Contains(t, cfg.Webstore.Endpoint, "batchexecute")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := []byte(`
webstore:
  categories: ["lifestyle", "developer_tools"]
  max_pages: 2
http:
  max_retries: 5
output:
  format: json
`)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"lifestyle", "developer_tools"}, cfg.Webstore.Categories)
	require.Equal(t, 2, cfg.Webstore.MaxPages)
	require.Equal(t, 5, cfg.HTTP.MaxRetries)
	require.Equal(t, "json", cfg.Output.Format)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Webstore.PageSize = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Output.Format = "xml"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Webstore.DelayMinMs = 500
	cfg.Webstore.DelayMaxMs = 100
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Provider = "gcs"
	require.Error(t, cfg.Validate(), "gcs without bucket must fail")

	cfg = base()
	cfg.DB.Enabled = true
	require.Error(t, cfg.Validate(), "db enabled without dsn must fail")
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
