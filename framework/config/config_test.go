package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/h3ravel/framework/config"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "H3ravel"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"App.Dist", cfg.App.Dist, ".h3ravel/serve"},
		{"DB.Driver", cfg.DB.Driver, "sqlite"},
		{"DB.Host", cfg.DB.Host, "127.0.0.1"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Cache.Driver", cfg.Cache.Driver, "memory"},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Hash.Rounds)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DATABASE", "mydb")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CACHE_TTL", "30")

	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "mydb", cfg.DB.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoad_GoEnvFallback(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("GO_ENV", "testing")

	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "testing", cfg.App.Env)
}

func TestLoadEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FROM_FILE=file\nALREADY_SET=file\n"), 0o600))
	t.Setenv("ALREADY_SET", "process")
	t.Setenv("FROM_FILE", "")
	os.Unsetenv("FROM_FILE")

	config.LoadEnv(path)

	assert.Equal(t, "file", os.Getenv("FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("ALREADY_SET"))
}

func TestLoad_AppDebug(t *testing.T) {
	t.Setenv("APP_DEBUG", "true")
	if !config.Load().App.Debug {
		t.Error("expected App.Debug to be true")
	}
	t.Setenv("APP_DEBUG", "false")
	if config.Load().App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── Get / GetInt / GetBool / Env ─────────────────────────────────────────────

func TestGet(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	assert.Equal(t, "hello", config.Get("CUSTOM_KEY", "default"))
	assert.Equal(t, "fallback", config.Get("H3RAVEL_MISSING_KEY", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, config.GetInt("SOME_INT", 0))

	t.Setenv("SOME_INT", "notanint")
	assert.Equal(t, 99, config.GetInt("SOME_INT", 99))
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		assert.True(t, config.GetBool("BOOL_KEY", false), val)
	}

	t.Setenv("BOOL_KEY", "false")
	assert.False(t, config.GetBool("BOOL_KEY", true))

	t.Setenv("BOOL_KEY", "notabool")
	assert.True(t, config.GetBool("BOOL_KEY", true))
}

func TestEnv_Required(t *testing.T) {
	t.Setenv("PRESENT", "yes")
	v, err := config.Env("PRESENT")
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	_, err = config.Env("H3RAVEL_ABSENT")
	require.ErrorIs(t, err, config.ErrMissingConfig)

	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "H3RAVEL_ABSENT", cfgErr.Key)
}

// ── .env writing ─────────────────────────────────────────────────────────────

func TestSetEnvValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=Demo\n"), 0o600))
	t.Setenv("APP_KEY", "")

	require.NoError(t, config.SetEnvValue(path, "APP_KEY", "base64:abc"))

	vals, err := config.ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Demo", vals["APP_NAME"])
	assert.Equal(t, "base64:abc", vals["APP_KEY"])
	assert.Equal(t, "base64:abc", os.Getenv("APP_KEY"))
}

func TestReadEnvFile_Missing(t *testing.T) {
	vals, err := config.ReadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Empty(t, vals)
}
