package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - RGIT_CONFIG_PATH: config file location (default: ~/.config/rgit.toml)
//   - RGIT_HOME: base directory for rgit data (default: ~/.local/share/rgit)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("RGIT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "rgit.toml"), nil
}

// getBaseDir returns the base directory for rgit data, checking RGIT_HOME first,
// then falling back to the XDG default ~/.local/share/rgit.
func getBaseDir() (string, error) {
	if path := os.Getenv("RGIT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "rgit"), nil
}
