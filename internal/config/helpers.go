package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// DownloadDir returns the absolute path to the download directory
func (c *ConfigHelpers) DownloadDir() (string, error) {
	return filepath.Abs(c.config.DownloadDir)
}

// CacheDir returns the absolute path to the remote asset cache, or "" when
// the cache is disabled.
func (c *ConfigHelpers) CacheDir() (string, error) {
	if c.config.CacheDir == "" {
		return "", nil
	}
	return filepath.Abs(c.config.CacheDir)
}

// ReportDir returns the absolute path to the report directory, or "" when
// reports are disabled.
func (c *ConfigHelpers) ReportDir() (string, error) {
	if c.config.ReportDir == "" {
		return "", nil
	}
	return filepath.Abs(c.config.ReportDir)
}

// GitWorkDir returns the absolute path to the repository the downloads are committed to
func (c *ConfigHelpers) GitWorkDir() (string, error) {
	return filepath.Abs(c.config.Git.WorkDir)
}

// CreateDownloadDir ensures the download directory exists
func (c *ConfigHelpers) CreateDownloadDir() (string, error) {
	dir, err := c.DownloadDir()
	if err != nil {
		return "", fmt.Errorf("resolving download directory: %w", err)
	}
	return dir, createDirIfNotExists(dir)
}

// CreateCacheDir ensures the cache directory exists when the cache is enabled
func (c *ConfigHelpers) CreateCacheDir() (string, error) {
	dir, err := c.CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	if dir == "" {
		return "", nil
	}
	return dir, createDirIfNotExists(dir)
}

// Helper function to create directories
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
