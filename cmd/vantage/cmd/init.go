package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vantage/internal/breakpoint"
	"vantage/internal/config"
	"vantage/internal/tracker"
	"vantage/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	initForce    bool
	initDefaults bool
	initFormat   string
)

// initCmd writes a configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a configuration file, asking for the breakpoint table, the
unit and the strategy.

If a configuration file already exists, this will not overwrite it
unless --force is specified.

Examples:
  vantage init
  vantage init --defaults --format toml
  vantage init --config ./vantage.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing configuration")
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write the current settings without asking")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", fmt.Sprintf("file format %v", config.SupportedFormats))
}

func runInit(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter()

	path, err := initPath()
	if err != nil {
		return err
	}
	if fileExists(path) && !initForce {
		return fmt.Errorf("config file already exists at %s; use --force to overwrite", path)
	}

	c := *cfg
	if !initDefaults {
		ok, err := runInitForm(&c)
		if err != nil {
			return err
		}
		if !ok {
			out.WriteSuccess("Cancelled.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.WriteConfig(&c, path, initFormat); err != nil {
		return err
	}

	log.Info("config written", "path", path, "breakpoints", len(c.Breakpoints))
	if out.Quiet() {
		return nil
	}

	status := tui.NewStatusIndicator(nil)
	kv := tui.NewKeyValue(nil)
	out.WriteSuccess(status.Success("Configuration saved!"))
	out.WriteSuccess(kv.RenderList(map[string]string{
		"Path":        path,
		"Breakpoints": formatTable(c.Breakpoints),
		"Unit":        c.Unit,
		"Strategy":    c.Strategy,
	}, []string{"Path", "Breakpoints", "Unit", "Strategy"}))
	return nil
}

// initPath is --config when given, else config.<format> in the user
// config directory.
func initPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := config.UserConfigDir(config.AppName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config."+initFormat), nil
}

// runInitForm edits c interactively. ok is false when the user aborted.
func runInitForm(c *config.Config) (ok bool, err error) {
	theme := tui.DefaultTheme()

	table := formatTable(c.Breakpoints)
	debounceDelay := c.Debounce.Delay.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Breakpoints").
				Description("Names and thresholds, smallest first"),

			huh.NewInput().
				Title("Table").
				Description(`e.g. "mobile=0,tablet=80,desktop=120"`).
				Value(&table).
				Validate(func(s string) error {
					t, err := breakpoint.ParseTable(s)
					if err != nil {
						return err
					}
					c.Breakpoints = t
					return nil
				}),

			huh.NewSelect[string]().
				Title("Unit").
				Options(
					huh.NewOption("Pixels / cells (px)", string(breakpoint.UnitPx)),
					huh.NewOption("Ems (em)", string(breakpoint.UnitEm)),
				).
				Value(&c.Unit),
		),

		huh.NewGroup(
			huh.NewNote().
				Title("Detection"),

			huh.NewSelect[string]().
				Title("Strategy").
				Options(
					huh.NewOption("Continuous (read the width)", string(tracker.StrategyContinuous)),
					huh.NewOption("Discrete (boundary media queries)", string(tracker.StrategyDiscrete)),
				).
				Value(&c.Strategy),

			huh.NewConfirm().
				Title("Debounce resize bursts").
				Value(&c.Debounce.Enabled),

			huh.NewInput().
				Title("Debounce delay").
				Value(&debounceDelay).
				Validate(func(s string) error {
					_, err := parseDelay(s)
					return err
				}),
		),

		huh.NewGroup(
			huh.NewNote().
				Title("Output"),

			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("Table", "table"),
					huh.NewOption("JSON", "json"),
					huh.NewOption("YAML", "yaml"),
					huh.NewOption("Quiet", "quiet"),
				).
				Value(&c.Output.Format),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warning", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&c.Log.Level),
		),
	).WithTheme(theme.HuhTheme())

	fmt.Println(theme.Title.Render("vantage configuration"))
	fmt.Println()

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}

	delay, err := parseDelay(debounceDelay)
	if err != nil {
		return false, err
	}
	c.Debounce.Delay = delay
	return true, nil
}

// formatTable renders t in the form ParseTable reads, smallest first.
func formatTable(t map[string]float64) string {
	sorted := breakpoint.SortOrder(t, breakpoint.Ascending)
	pairs := make([]string, len(sorted))
	for i, b := range sorted {
		pairs[i] = b.Name + "=" + strconv.FormatFloat(b.Threshold, 'f', -1, 64)
	}
	return strings.Join(pairs, ",")
}

func parseDelay(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid delay %q: must not be negative", s)
	}
	return d, nil
}
