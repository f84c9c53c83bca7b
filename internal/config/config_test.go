package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
store:
  driver: postgres
db:
  host: localhost
  port: 5432
jwt:
  secret: "${TODO_CFG_JWT}"
csrf:
  secret: csrf-secret
tasks:
  due_today_mode: calendar_day
  timezone: UTC
`

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	dir := writeConfig(t, map[string]string{
		"base.yaml": baseYAML,
		"test.yaml": "store:\n  driver: sqlite\n  sqlite_path: \":memory:\"\n",
	})
	t.Setenv("TODO_CFG_JWT", "jwt-secret")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("DB_HOST", "db.example")
	t.Setenv("SERVER_PORT", ":9999")

	cfg, err := Load("test", dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.SQLitePath)
	assert.Equal(t, "db.example", cfg.DB.Host)
	assert.Equal(t, ":9999", cfg.Server.Port)
	assert.Equal(t, "jwt-secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "calendar_day", cfg.Tasks.DueTodayMode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_RequiresSecrets(t *testing.T) {
	dir := writeConfig(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("TODO_CFG_JWT", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("local", dir)
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Store.Driver = "sqlite"
		c.JWT.Secret = "a"
		c.CSRF.Secret = "b"
		c.Tasks.Timezone = "UTC"
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Store.Driver = "mongo"
	assert.Error(t, c.Validate())

	c = valid()
	c.Tasks.Timezone = "Mars/Olympus"
	assert.Error(t, c.Validate())

	c = valid()
	c.Tasks.DueTodayMode = "weekly"
	assert.Error(t, c.Validate())
}
