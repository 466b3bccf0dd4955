// Package config handles launcher configuration and paths.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the launcher configuration
type Config struct {
	// Paths
	DataDir string `json:"dataDir"`

	// Auth
	MSAClientID  string `json:"msaClientID"`
	CallbackPort int    `json:"callbackPort"`
}

const (
	// DefaultMSAClientID is the Azure application id of the launcher's public
	// client registration.
	DefaultMSAClientID = "f7770de8-077a-46ea-9604-908154eee29b"

	// DefaultCallbackPort is the loopback port registered as a redirect target
	// for the CLI sign-in flow.
	DefaultCallbackPort = 8114

	clientSecretEnv         = "MSA_CLIENT_SECRET"
	fallbackClientSecretEnv = "DECENT_MSA_CLIENT_SECRET"
)

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:      getDefaultDataDir(),
		MSAClientID:  DefaultMSAClientID,
		CallbackPort: DefaultCallbackPort,
	}
}

// Load reads config from disk
func Load() (*Config, error) {
	return LoadFrom(getDefaultDataDir())
}

// LoadFrom reads config rooted at dataDir instead of the default data
// directory. The given directory wins over any dataDir recorded in the file.
func LoadFrom(dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	configPath := filepath.Join(dataDir, "config.json")
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	// Fallback to defaults if the config file had empty or missing fields
	if cfg.MSAClientID == "" {
		cfg.MSAClientID = DefaultMSAClientID
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}

	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	configPath := filepath.Join(c.DataDir, "config.json")
	return os.WriteFile(configPath, data, 0644)
}

// ClientSecret returns the optional client secret supplied through the
// environment. The launcher is a public client, so this is normally empty;
// the override exists for registrations configured as confidential clients.
func ClientSecret() string {
	for _, key := range []string{clientSecretEnv, fallbackClientSecretEnv} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getDefaultDataDir() string {
	// Check for portable mode first
	exe, _ := os.Executable()
	portablePath := filepath.Join(filepath.Dir(exe), "data")
	if _, err := os.Stat(portablePath); err == nil {
		return portablePath
	}

	// Use XDG/platform-specific directories
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "decent-client")
	}

	home, _ := os.UserHomeDir()
	switch {
	case os.Getenv("APPDATA") != "": // Windows
		return filepath.Join(os.Getenv("APPDATA"), "decent-client")
	default: // Linux/macOS
		return filepath.Join(home, ".local", "share", "decent-client")
	}
}
