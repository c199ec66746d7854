package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	t.Setenv("CONFIG_FILE", p)
}

func TestLoadDefaultsAndFile(t *testing.T) {
	writeConfig(t, `
auth:
  jwt_secret: test-secret
app:
  timezone: Asia/Kolkata
database:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/amc
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.HTTPPort)
	assert.Equal(t, 20, cfg.Listing.DefaultPageSize)
	assert.Equal(t, 500, cfg.Listing.ExportLimit)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Positive(t, cfg.Auth.TokenTTL)
}

func TestLoadRejectsPlaceholderSecret(t *testing.T) {
	writeConfig(t, `
server:
  http_port: "9090"
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	writeConfig(t, `
auth:
  jwt_secret: s
app:
  timezone: Mars/Olympus
`)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.timezone")
}
