package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "photonix_session", cfg.Session.CookieName)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9000},
		"database": {"driver": "postgres", "host": "db", "user": "photonix", "password": "secret", "db_name": "photos"}
	}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres://photonix:secret@db:5432/photos?sslmode=disable", cfg.Database.GetDatabaseURL())
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: dev
server:
  read_timeout: 5s
import:
  input_dirs: [/photos_to_import]
  workers: 0
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"/photos_to_import"}, cfg.Import.InputDirs)
	assert.Equal(t, 1, cfg.Import.Workers)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("DATABASE_DSN", "/tmp/photonix.db")
	t.Setenv("SESSION_SECRET", "s3cr3t")
	t.Setenv("POSTGRES_HOST", "pg")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/photonix.db", cfg.Database.GetDatabaseURL())
	assert.Equal(t, "s3cr3t", cfg.Session.Secret)
	assert.Equal(t, "pg", cfg.Database.Host)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database": {"driver": "mysql"}}`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestGetServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8888}
	assert.Equal(t, "127.0.0.1:8888", s.GetServerAddr())
}
