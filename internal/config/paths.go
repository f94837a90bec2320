package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName   = "fauxmo"
	stateFile = "state.yaml"
)

// GetConfigDir returns the OS-appropriate directory fauxmo keeps its own
// files in (the persisted device state).
//   - Linux: $XDG_CONFIG_HOME/fauxmo or $HOME/.config/fauxmo
//   - macOS: $HOME/.config/fauxmo
//   - Windows: %LOCALAPPDATA%\fauxmo
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// DefaultStatePath returns where device state is persisted when the config
// does not name a state_file.
func DefaultStatePath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFile), nil
}

// SearchPaths lists the directories searched for config.json (or
// config.yaml) when no path is given, in order.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".fauxmo"))
	}
	return append(paths, "/etc/fauxmo")
}
