package config

import (
	"os"
	"path/filepath"
)

// File names and defaults shared by the loader and the CLI.
const (
	ConfigFileName    = "config.yaml"
	DotEnvFileName    = ".env"
	ChecksumsFileName = ".checksums"
	ConfigEnvVar      = "KOMMOBOT_CONFIG"

	DefaultMaxBodySize = 102400 // 100 KB
)

// Discover finds a config file by checking standard locations.
// Priority order: $KOMMOBOT_CONFIG, ./config.yaml, ~/.config/kommobot/config.yaml,
// /etc/kommobot/config.yaml. It returns "" when none exists, which selects
// env-only mode.
func Discover() string {
	// 1. Check environment variable
	if path := os.Getenv(ConfigEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// 2. Working directory
	if fileExists(ConfigFileName) {
		return ConfigFileName
	}

	// 3. Check user config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "kommobot", ConfigFileName)
		if fileExists(userConfig) {
			return userConfig
		}
	}

	// 4. Check system config directory
	systemConfig := filepath.Join("/etc", "kommobot", ConfigFileName)
	if fileExists(systemConfig) {
		return systemConfig
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
