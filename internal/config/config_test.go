package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "riskroute.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	p := writeYAML(t, `
port: 9000
liveCacheTtl: 2m
tomTomApiKey: from-file
allowOrigins: ["https://a.example"]
depot: {name: North, lat: 28.1, lon: -82.5}
`)
	t.Setenv("TOMTOM_API_KEY", "from-env")
	t.Setenv("ALLOW_ORIGINS", "https://b.example, https://c.example")
	t.Setenv("DB_MIGRATE", "false")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 2*time.Minute, cfg.LiveCacheTTL)
	assert.Equal(t, "from-env", cfg.TomTomAPIKey)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.AllowOrigins)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, "North", cfg.Depot.Name)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout, "unset keys keep defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PORT", "0")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("PORT", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeYAML(t, "depot: {lat: 123}\n"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "logLevel: loud\n"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "dispatchWebhookUrl: not a url\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAuthModeNeedsSecret(t *testing.T) {
	t.Setenv("AUTH_MODE", "hmac")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("AUTH_HMAC_SECRET", "s3cret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hmac", cfg.AuthMode)
}
