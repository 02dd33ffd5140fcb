// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.SSHConnectTimeout)
	assert.Equal(t, 3*time.Second, cfg.VPNStopGrace)
	assert.Equal(t, "openvpn", cfg.VPNBinary)
	assert.Equal(t, 5000, cfg.ProbeDefaultTimeoutMs)
	assert.Equal(t, 60000, cfg.ProbeMaxTimeoutMs)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.env")
	content := "API_PORT=9090\nAUTH_ENABLED=true\nVPN_STOP_GRACE=5s\nPROBE_DEFAULT_TIMEOUT_MS=2500\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.APIPort)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, 5*time.Second, cfg.VPNStopGrace)
	assert.Equal(t, 2500, cfg.ProbeDefaultTimeoutMs)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.env")
	require.NoError(t, os.WriteFile(path, []byte("API_PORT=9090\n"), 0o600))
	t.Setenv("API_PORT", "7070")
	t.Setenv("SSH_CONNECT_TIMEOUT", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.APIPort)
	assert.Equal(t, 10*time.Second, cfg.SSHConnectTimeout)
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: " http://a.example/ ,, https://b.example:8443,* "}
	assert.Equal(t, []string{"http://a.example", "https://b.example:8443", "*"}, cfg.Origins())

	assert.Empty(t, Config{}.Origins())
}
