package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and unsets every PDVD_* variable for the test
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, key := range []string{"PDVD_BASE_URL", "PDVD_TIMEOUT", "PDVD_WAIT_TIMEOUT", "PDVD_SESSION_FILE", "PDVD_LOG_LEVEL", "PDVD_LOG_FILE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultWaitTimeout, cfg.WaitTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, ".pdvd", "session.yaml"), cfg.SessionFile)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "base_url: https://pdvd.example.com/api/v1\ntimeout: 3s\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://pdvd.example.com/api/v1", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("PDVD_BASE_URL", "http://127.0.0.1:9000/api/v1")
	t.Setenv("PDVD_TIMEOUT", "250ms")

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api/v1", cfg.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolate(t)
	t.Setenv("PDVD_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDVD_TIMEOUT")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{BaseURL: "localhost:8080", LogLevel: "loud"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "invalid base url")
	assert.Contains(t, msg, "timeout must be > 0")
	assert.Contains(t, msg, "wait timeout must be > 0")
	assert.Contains(t, msg, "session file")
	assert.Contains(t, msg, "invalid log level")
}

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.BaseURL = "https://pdvd.example.com/api/v1"
	cfg.Timeout = 5 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.BaseURL, loaded.BaseURL)
	assert.Equal(t, cfg.Timeout, loaded.Timeout)
}
