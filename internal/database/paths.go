package database

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppDirName      = ".itinerary-planner"
	DataFileName    = "trips.json"
	CacheDirName    = "cache"
	TravelCacheFile = "travel.json"
	SQLiteFileName  = "itinerary.db"
	ConfigFileName  = "config.yaml"
)

// GetAppDir returns ~/.itinerary-planner, creating it if needed
func GetAppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, AppDirName)
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}

	return appDir, nil
}

// ResolveDataDir returns dir when set (creating it), else the app directory
func ResolveDataDir(dir string) (string, error) {
	if dir == "" {
		return GetAppDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// DataFilePath returns <dataDir>/trips.json
func DataFilePath(dataDir string) string {
	return filepath.Join(dataDir, DataFileName)
}

// SQLitePath returns <dataDir>/itinerary.db
func SQLitePath(dataDir string) string {
	return filepath.Join(dataDir, SQLiteFileName)
}

// TravelCachePath returns <dataDir>/cache/travel.json, creating the cache directory if needed
func TravelCachePath(dataDir string) (string, error) {
	cacheDir := filepath.Join(dataDir, CacheDirName)
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(cacheDir, TravelCacheFile), nil
}

// DefaultConfigPath returns ~/.itinerary-planner/config.yaml without creating anything
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, AppDirName, ConfigFileName)
}
