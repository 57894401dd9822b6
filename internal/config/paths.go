package config

import (
	"os"
	"path/filepath"
)

const appName = "netwatch"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "NETWATCH_CONFIG"

// xdgDir resolves an XDG base directory: the env variable when set and
// absolute, otherwise the fallback under the user's home.
func xdgDir(env string, fallback ...string) (string, error) {
	if base := os.Getenv(env); filepath.IsAbs(base) {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/netwatch or ~/.config/netwatch.
func GetConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns $XDG_DATA_HOME/netwatch or ~/.local/share/netwatch.
func GetDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// GetConfigPath returns the config file, honouring NETWATCH_CONFIG.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// GetLogPath returns the default log file used while the TUI owns the
// terminal.
func GetLogPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}

// EnsureDirs creates the config and data directories.
func EnsureDirs() error {
	for _, fn := range []func() (string, error){GetConfigDir, GetDataDir} {
		dir, err := fn()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return nil
}
