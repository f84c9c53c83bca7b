package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig_MergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":3000"
db:
  host: localhost
  port: 5432
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	raw, err := LoadConfig("production", dir)
	require.NoError(t, err)

	var out struct {
		Server ServerConfig `yaml:"server"`
		DB     DBConfig     `yaml:"db"`
	}
	require.NoError(t, Decode(raw, &out))

	assert.Equal(t, ":3000", out.Server.Port)
	assert.Equal(t, "db.internal", out.DB.Host)
	assert.Equal(t, 5432, out.DB.Port)
}

func TestLoadConfig_MissingEnvFileFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":8080\"\n")

	raw, err := LoadConfig("staging", dir)
	require.NoError(t, err)

	var out struct {
		Server ServerConfig `yaml:"server"`
	}
	require.NoError(t, Decode(raw, &out))
	assert.Equal(t, ":8080", out.Server.Port)
}

func TestLoadConfig_MissingBaseFails(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestLoadConfig_SubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
jwt:
  secret: "${TODO_TEST_JWT}"
csrf:
  secret: "${TODO_TEST_CSRF}"
`)
	writeFile(t, dir, "secrets.env", "# secrets\nTODO_TEST_JWT=\"from-file\"\nTODO_TEST_CSRF=file-csrf\n")
	t.Setenv("TODO_TEST_CSRF", "from-env")

	raw, err := LoadConfig("local", dir)
	require.NoError(t, err)

	var out struct {
		JWT  JWTConfig  `yaml:"jwt"`
		CSRF CSRFConfig `yaml:"csrf"`
	}
	require.NoError(t, Decode(raw, &out))
	assert.Equal(t, "from-file", out.JWT.Secret)
	assert.Equal(t, "from-env", out.CSRF.Secret)
}

func TestMergeMaps_NestedOverride(t *testing.T) {
	dst := map[string]interface{}{
		"a": map[string]interface{}{"x": 1, "y": 2},
		"b": "keep",
	}
	src := map[string]interface{}{
		"a": map[string]interface{}{"y": 3},
	}

	got := mergeMaps(dst, src)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 3}, got["a"])
	assert.Equal(t, "keep", got["b"])
}
