package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSecretFromEnv(t *testing.T) {
	t.Setenv(clientSecretEnv, "")
	t.Setenv(fallbackClientSecretEnv, "")
	assert.Empty(t, ClientSecret())

	t.Setenv(fallbackClientSecretEnv, "fallback-secret")
	assert.Equal(t, "fallback-secret", ClientSecret())

	// The primary variable wins over the fallback.
	t.Setenv(clientSecretEnv, "primary-secret")
	assert.Equal(t, "primary-secret", ClientSecret())
}

func TestClientSecretTrimsWhitespace(t *testing.T) {
	t.Setenv(clientSecretEnv, "  padded-secret\n")
	t.Setenv(fallbackClientSecretEnv, "")
	assert.Equal(t, "padded-secret", ClientSecret())
}

func TestLoadFromOverriddenDirectory(t *testing.T) {
	dir := t.TempDir()
	raw := `{"dataDir": "/somewhere/else", "msaClientID": "custom-client", "callbackPort": 9000}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "custom-client", cfg.MSAClientID)
	assert.Equal(t, 9000, cfg.CallbackPort)
	// The directory we loaded from wins over the dataDir in the file.
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DefaultMSAClientID, cfg.MSAClientID)
	assert.Equal(t, DefaultCallbackPort, cfg.CallbackPort)
}
