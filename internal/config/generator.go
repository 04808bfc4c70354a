package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// SupportedFormats lists the config file formats we support
var SupportedFormats = []string{"yaml", "toml", "json"}

// GenerateConfig writes cfg (or the defaults when cfg is nil) to the user
// config directory in the given format.
func GenerateConfig(cfg *Config, format string) (string, error) {
	configDir, err := UserConfigDir(AppName)
	if err != nil {
		return "", err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, fmt.Sprintf("config.%s", format))

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := WriteConfig(cfg, configPath, format); err != nil {
		return "", err
	}
	return configPath, nil
}

// WriteConfig writes cfg (or the defaults when cfg is nil) to path,
// replacing any existing file.
func WriteConfig(cfg *Config, path, format string) error {
	if !isValidFormat(format) {
		return fmt.Errorf("unsupported format %q, supported: %v", format, SupportedFormats)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	v := NewViperFromConfig(cfg)
	v.SetConfigType(format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateConfigIfNotExists creates a default config file if one doesn't exist
// Returns the path to the config file (existing or newly created) and whether it was created
func GenerateConfigIfNotExists(format string) (string, bool, error) {
	configDir, err := UserConfigDir(AppName)
	if err != nil {
		return "", false, err
	}

	// Check for existing config files in any format
	for _, ext := range SupportedFormats {
		path := filepath.Join(configDir, fmt.Sprintf("config.%s", ext))
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}

	// No config exists, generate one
	path, err := GenerateConfig(nil, format)
	if err != nil {
		return "", false, err
	}

	return path, true, nil
}

func isValidFormat(format string) bool {
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}
