// Package paths resolves the configuration, data, and migrations directories
// used by the yorm command.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user directories.
const appName = "yorm"

// CWD-relative data directory used when nothing else is configured.
const DefaultDataDirName = ".yorm-db"

// DefaultMigrationsDirName is the migrations directory inside the config
// directory.
const DefaultMigrationsDirName = "migrations"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "YORM_CONFIG_DIR"
	EnvDataDir   = "YORM_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/yorm, or ~/fallback.../yorm when env is unset. Outside
// Linux it returns os.UserConfigDir()/yorm.
func xdgDir(env string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/yorm (fallback ~/.config/yorm)
// macOS:   ~/Library/Application Support/yorm
// Windows: %APPDATA%/yorm
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/yorm (fallback ~/.local/share/yorm)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > YORM_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml data_dir > YORM_DATA_DIR >
// $(CWD)/.yorm-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveMigrationsDir applies flag > config.yaml migrations_dir >
// <configDir>/migrations. Relative config values are taken relative to
// configDir.
func ResolveMigrationsDir(flag, configValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		if filepath.IsAbs(configValue) {
			return configValue, nil
		}
		return filepath.Join(configDir, configValue), nil
	}
	return filepath.Join(configDir, DefaultMigrationsDirName), nil
}
