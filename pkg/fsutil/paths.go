package fsutil

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "gmm"

	// DatabaseFile is the file name of the persistent store.
	DatabaseFile = "gmm.db"

	// ConfigFile is the file name of the YAML configuration.
	ConfigFile = "config.yaml"
)

// GetDataDir returns the application data directory.
// On Linux: $XDG_DATA_HOME/gmm
// On macOS: ~/Library/Application Support/gmm
// On Windows: %LOCALAPPDATA%\gmm
func GetDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// GetConfigDir returns the application configuration directory.
func GetConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// GetDownloadsDir returns the default directory trainers are installed into.
func GetDownloadsDir() string {
	return filepath.Join(GetDataDir(), "downloads")
}

// GetDatabasePath returns the default location of the store file.
func GetDatabasePath() string {
	return filepath.Join(GetDataDir(), DatabaseFile)
}

// GetConfigPath returns the default location of the configuration file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFile)
}
