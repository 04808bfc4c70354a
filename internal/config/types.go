// Package config provides configuration loading and management for vantage.
package config

import (
	"time"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level        string `mapstructure:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `mapstructure:"format" yaml:"format"`               // text, json, pretty
	Output       string `mapstructure:"output" yaml:"output"`               // stdout, stderr, or file path
	FilePath     string `mapstructure:"file_path" yaml:"file_path"`         // path to log file (in addition to output)
	MaxSizeMB    int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`     // max size in MB before rotation
	MaxBackups   int    `mapstructure:"max_backups" yaml:"max_backups"`     // max number of old log files to keep
	MaxAgeDays   int    `mapstructure:"max_age_days" yaml:"max_age_days"`   // max days to retain old log files
	EnableCaller bool   `mapstructure:"enable_caller" yaml:"enable_caller"` // include source file/line in logs
	NoColor      bool   `mapstructure:"no_color" yaml:"no_color"`           // disable colored output (pretty format only)
}

// DebounceConfig controls coalescing of resize bursts (continuous strategy only)
type DebounceConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Delay   time.Duration `mapstructure:"delay" yaml:"delay"`
}

// OutputConfig holds output formatting options for the CLI
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // table, json, yaml
	Color  bool   `mapstructure:"color" yaml:"color"`
}

// SSHConfig holds the SSH server configuration used by "vantage serve"
type SSHConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	HostKeyPath        string        `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string        `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"` // empty accepts any key
	IdleTimeout        time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxTimeout         time.Duration `mapstructure:"max_timeout" yaml:"max_timeout"`

	// Per remote host session rate limiting
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // sessions per second
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Config is the vantage configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Breakpoints maps breakpoint names to thresholds in Unit.
	Breakpoints map[string]float64 `mapstructure:"breakpoints" yaml:"breakpoints"`
	Unit        string             `mapstructure:"unit" yaml:"unit"`         // px or em
	Strategy    string             `mapstructure:"strategy" yaml:"strategy"` // continuous or discrete

	// DefaultBreakpoint is the discrete fallback name; empty means the smallest.
	DefaultBreakpoint string `mapstructure:"default_breakpoint" yaml:"default_breakpoint"`

	// Width hints used by the continuous strategy when nothing can be measured.
	GuessedWidth float64 `mapstructure:"guessed_width" yaml:"guessed_width"`
	DefaultWidth float64 `mapstructure:"default_width" yaml:"default_width"`

	Debounce DebounceConfig `mapstructure:"debounce" yaml:"debounce"`

	// TrackWidth publishes every width change, not only breakpoint changes.
	TrackWidth bool `mapstructure:"track_width" yaml:"track_width"`

	SSH     SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultBreakpoints is the table used when none is configured.
func DefaultBreakpoints() map[string]float64 {
	return map[string]float64{
		"mobile":  0,
		"tablet":  80,
		"desktop": 120,
	}
}

// DefaultConfig returns sensible defaults for vantage
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:        "info",
			Format:       "text",
			Output:       "stderr",
			FilePath:     "",
			MaxSizeMB:    100,
			MaxBackups:   3,
			MaxAgeDays:   28,
			EnableCaller: false,
		},
		Output: OutputConfig{
			Format: "table",
			Color:  true,
		},
		Breakpoints: DefaultBreakpoints(),
		Unit:        "px",
		Strategy:    "continuous",
		Debounce: DebounceConfig{
			Enabled: true,
			Delay:   50 * time.Millisecond,
		},
		SSH: SSHConfig{
			Host:        "0.0.0.0",
			Port:        23234,
			HostKeyPath: ".ssh/vantage_ed25519",
			IdleTimeout: 10 * time.Minute,
			MaxTimeout:  time.Hour,
			RateLimit:   1,
			RateBurst:   5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
			Path:    "/metrics",
		},
	}
}
