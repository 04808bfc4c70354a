// Package cmd implements the vantage command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"vantage/internal/breakpoint"
	"vantage/internal/config"
	"vantage/internal/logger"
	"vantage/internal/tracker"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is the path to the config file (set via --config flag)
	cfgFile string

	// cfg holds the loaded configuration
	cfg *config.Config

	// log is the logger instance
	log *logger.Logger

	// cmdStartTime tracks when command execution started
	cmdStartTime time.Time

	// cmdCtx carries the logger and the session context of the command
	cmdCtx context.Context

	// Global flags
	outputFormat    string
	breakpointsFlag string
	unitFlag        string
	strategyFlag    string
	logLevelFlag    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vantage",
	Short: "vantage resolves named breakpoints from a viewport width",
	Long: `vantage maps a measured viewport width onto a table of named
breakpoints such as mobile, tablet and desktop.

It resolves single widths, prints the boundary media queries between
breakpoints, evaluates visibility conditions, follows the local terminal
live, and serves the same live view over SSH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Allow flags before or after subcommand
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if cmd.Name() != "init" {
			ensureConfig()
		}

		if err := loadConfig(cmd); err != nil {
			return err
		}

		var err error
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		sc := logger.NewCommandContext(cmd)
		cmdCtx = logger.WithSessionContext(context.Background(), sc)
		cmdCtx = logger.WithLogger(cmdCtx, log)

		cmdStartTime = time.Now()

		log.Debug("command started",
			"command", sc.Origin,
			"args", args,
			"session_id", sc.ID,
			"user", sc.User,
			"config", config.ConfigFileUsed(config.AppName),
		)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log == nil {
			return nil
		}

		log.Debug("command completed",
			"command", cmd.CommandPath(),
			"duration_ms", time.Since(cmdStartTime).Milliseconds(),
		)
		return log.Close()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// ExitError ends the process with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		closeLog()
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	closeLog()
	os.Exit(1)
}

// closeLog flushes the logger when PersistentPostRunE did not run.
func closeLog() {
	if log != nil {
		log.Close()
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vantage/config.yaml)")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format (json, yaml, table, quiet)")
	flags.StringVarP(&breakpointsFlag, "breakpoints", "b", "", `breakpoint table, e.g. "mobile=0,tablet=80,desktop=120"`)
	flags.StringVar(&unitFlag, "unit", "", "threshold unit (px, em)")
	flags.StringVar(&strategyFlag, "strategy", "", "detection strategy (continuous, discrete)")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("output.format", flags.Lookup("output"))
	viper.BindPFlag("unit", flags.Lookup("unit"))
	viper.BindPFlag("strategy", flags.Lookup("strategy"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

// ensureConfig writes a default config file on first run
func ensureConfig() {
	if cfgFile != "" || os.Getenv("VANTAGE_NO_INIT") != "" {
		return
	}
	path, created, err := config.GenerateConfigIfNotExists("yaml")
	if err == nil && created {
		fmt.Fprintf(os.Stderr, "Created default config at: %s\n", path)
		fmt.Fprintf(os.Stderr, "Run 'vantage init' to customize your breakpoints.\n")
	}
}

// loadConfig loads the configuration and applies flag overrides
func loadConfig(cmd *cobra.Command) error {
	var err error
	if cmd.Name() == "init" && cfgFile != "" && !fileExists(cfgFile) {
		// init creates the file --config names
		cfg, err = config.LoadViper(viper.New())
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return applyOverrides(cmd, cfg)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// applyOverrides applies the global flags that were set to c. Reloaded
// configurations go through it too so flags keep winning.
func applyOverrides(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		c.Output.Format = viper.GetString("output.format")
	}
	if flags.Changed("unit") {
		c.Unit = viper.GetString("unit")
	}
	if flags.Changed("strategy") {
		c.Strategy = viper.GetString("strategy")
	}
	if flags.Changed("log-level") {
		c.Log.Level = viper.GetString("log.level")
	}
	if flags.Changed("breakpoints") {
		table, err := breakpoint.ParseTable(breakpointsFlag)
		if err != nil {
			return fmt.Errorf("invalid --breakpoints: %w", err)
		}
		c.Breakpoints = table
	}
	return nil
}

// trackerOptions returns the tracker options of the loaded configuration.
func trackerOptions() (tracker.Options, error) {
	opts, err := tracker.OptionsFromConfig(cfg)
	if err != nil {
		return tracker.Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return tracker.Options{}, err
	}
	return opts, nil
}

// sessionOptions tags tracker sessions with the logger and session
// context carried by the command context.
func sessionOptions() []tracker.Option {
	if cmdCtx == nil {
		return []tracker.Option{tracker.WithLogger(log)}
	}
	opts := []tracker.Option{tracker.WithLogger(logger.LoggerFrom(cmdCtx))}
	if sc := logger.SessionContextFrom(cmdCtx); sc != nil {
		opts = append(opts, tracker.WithSessionContext(sc))
	}
	return opts
}

// OutputFormat returns the current output format (json, yaml, table, quiet)
func OutputFormat() string {
	if cfg != nil {
		return cfg.Output.Format
	}
	return outputFormat
}
