package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName is used for config search paths and the environment prefix.
const AppName = "vantage"

// configSearchPaths returns the paths to search for config files in order of precedence
// (later paths have higher priority in Viper)
func configSearchPaths(appName string) []string {
	paths := []string{}

	// System-wide (lowest priority)
	paths = append(paths, filepath.Join("/etc", appName))

	// User-specific
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	// Current directory (highest priority for files)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}

	return paths
}

// UserConfigDir returns the user-specific config directory for the app
func UserConfigDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// newViper creates and configures a new Viper instance for the given app
func newViper(appName string) *viper.Viper {
	v := viper.New()

	// Config file settings
	// The type follows the file extension so TOML and JSON files load too.
	v.SetConfigName("config")

	// Add search paths
	for _, path := range configSearchPaths(appName) {
		v.AddConfigPath(path)
	}

	// Environment variable settings
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads the vantage configuration. An empty cfgFile searches the
// default paths; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := newViper(AppName)
	setViperDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults + env vars
	}

	return unmarshal(v)
}

// LoadViper loads the configuration from an already populated viper
// instance, such as one with command line flags bound to it.
func LoadViper(v *viper.Viper) (*Config, error) {
	setViperDefaults(v, DefaultConfig())
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Breakpoints have no viper default: a map default would be merged
	// key by key with the file's table instead of being replaced by it.
	if len(cfg.Breakpoints) == 0 {
		cfg.Breakpoints = DefaultBreakpoints()
	}

	return &cfg, nil
}

// setViperDefaults sets default values in Viper from a config struct
func setViperDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.output", c.Log.Output)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age_days", c.Log.MaxAgeDays)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.color", c.Output.Color)
	v.SetDefault("unit", c.Unit)
	v.SetDefault("strategy", c.Strategy)
	v.SetDefault("debounce.enabled", c.Debounce.Enabled)
	v.SetDefault("debounce.delay", c.Debounce.Delay)
	v.SetDefault("track_width", c.TrackWidth)
	// SSH defaults
	v.SetDefault("ssh.host", c.SSH.Host)
	v.SetDefault("ssh.port", c.SSH.Port)
	v.SetDefault("ssh.host_key_path", c.SSH.HostKeyPath)
	v.SetDefault("ssh.idle_timeout", c.SSH.IdleTimeout)
	v.SetDefault("ssh.max_timeout", c.SSH.MaxTimeout)
	v.SetDefault("ssh.rate_limit", c.SSH.RateLimit)
	v.SetDefault("ssh.rate_burst", c.SSH.RateBurst)
	// Metrics defaults
	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.addr", c.Metrics.Addr)
	v.SetDefault("metrics.path", c.Metrics.Path)
}

// ConfigFileUsed returns the config file path that was loaded, if any
func ConfigFileUsed(appName string) string {
	v := newViper(appName)
	_ = v.ReadInConfig()
	return v.ConfigFileUsed()
}

// NewViperFromConfig creates a viper instance populated with values from a config struct
func NewViperFromConfig(c *Config) *viper.Viper {
	v := viper.New()

	v.Set("log.level", c.Log.Level)
	v.Set("log.format", c.Log.Format)
	v.Set("log.output", c.Log.Output)
	v.Set("log.file_path", c.Log.FilePath)
	v.Set("output.format", c.Output.Format)
	v.Set("output.color", c.Output.Color)
	v.Set("breakpoints", c.Breakpoints)
	v.Set("unit", c.Unit)
	v.Set("strategy", c.Strategy)
	if c.DefaultBreakpoint != "" {
		v.Set("default_breakpoint", c.DefaultBreakpoint)
	}
	if c.GuessedWidth != 0 {
		v.Set("guessed_width", c.GuessedWidth)
	}
	if c.DefaultWidth != 0 {
		v.Set("default_width", c.DefaultWidth)
	}
	v.Set("debounce.enabled", c.Debounce.Enabled)
	v.Set("debounce.delay", c.Debounce.Delay.String())
	v.Set("track_width", c.TrackWidth)
	// SSH settings
	v.Set("ssh.host", c.SSH.Host)
	v.Set("ssh.port", c.SSH.Port)
	v.Set("ssh.host_key_path", c.SSH.HostKeyPath)
	v.Set("ssh.authorized_keys_path", c.SSH.AuthorizedKeysPath)
	v.Set("ssh.idle_timeout", c.SSH.IdleTimeout.String())
	v.Set("ssh.max_timeout", c.SSH.MaxTimeout.String())
	v.Set("ssh.rate_limit", c.SSH.RateLimit)
	v.Set("ssh.rate_burst", c.SSH.RateBurst)
	// Metrics settings
	v.Set("metrics.enabled", c.Metrics.Enabled)
	v.Set("metrics.addr", c.Metrics.Addr)
	v.Set("metrics.path", c.Metrics.Path)

	return v
}
