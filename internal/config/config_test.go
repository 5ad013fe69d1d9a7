package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactreport/internal/apperr"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultGraphURL, cfg.GraphBaseURL)
	assert.Equal(t, DefaultAuthority, cfg.AuthorityHost)
	assert.Equal(t, dir, cfg.Dir)
	assert.True(t, cfg.OpenBrowser)
	assert.Equal(t, filepath.Join(dir, "contactreport.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(dir, "contactreport.db"), cfg.DBPath())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	yml := `
tenant_id: contoso
client_id: app-1111
redirect_port: 8000
download_dir: /tmp/out
http_timeout: 30s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "contoso", cfg.TenantID)
	assert.Equal(t, "app-1111", cfg.ClientID)
	assert.Equal(t, 8000, cfg.RedirectPort)
	assert.Equal(t, "/tmp/out", cfg.DownloadDir)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, DefaultGraphURL, cfg.GraphBaseURL, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("tenant_id: [unterminated"), 0o600))
	_, err := Load(dir)
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"CONTACTREPORT_TENANT_ID":     "fabrikam",
		"CONTACTREPORT_CLIENT_ID":     "abc",
		"CONTACTREPORT_REDIRECT_PORT": "9001",
		"CONTACTREPORT_OPEN_BROWSER":  "false",
		"CONTACTREPORT_HTTP_TIMEOUT":  "5s",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	cfg.TenantID = "from-file"
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "fabrikam", cfg.TenantID)
	assert.Equal(t, "abc", cfg.ClientID)
	assert.Equal(t, 9001, cfg.RedirectPort)
	assert.False(t, cfg.OpenBrowser)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "CONTACTREPORT_REDIRECT_PORT" {
			return "eighty", true
		}
		return "", false
	}
	require.Error(t, Default().applyEnv(lookup))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotConfigured))
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "client_id")

	cfg.TenantID, cfg.ClientID = "t", "c"
	require.NoError(t, cfg.Validate())

	cfg.RedirectPort = 70000
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrNotConfigured)
}
