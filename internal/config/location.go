package config

import (
	"os"
	"path/filepath"
)

// ConfigEnvVar overrides the config file location.
const ConfigEnvVar = "TSPLIT_CONFIG"

// GetConfigPath returns the configuration file path. It first checks the
// TSPLIT_CONFIG environment variable, then falls back to
// ~/.thief-autosplitter/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnvVar); configPath != "" {
		return configPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".thief-autosplitter", "config"), nil
}

// EnsureConfigDir ensures that the configuration directory exists.
func EnsureConfigDir() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}
