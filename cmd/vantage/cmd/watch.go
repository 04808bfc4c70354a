package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"vantage/internal/config"
	"vantage/internal/logger"
	"vantage/internal/tracker"
	"vantage/internal/tui"
	"vantage/internal/viewport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	watchTheme string
	watchPlain bool
	watchTitle string
)

// watchCmd follows the breakpoint of the local terminal
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the breakpoint of the terminal live",
	Long: `Follow the breakpoint of the current terminal as it is resized.

By default an interactive view shows the resolved breakpoint, a ruler of
all thresholds and the boundary queries. With --plain one line is written
per change instead, as JSON when the output format is json.

Changes to the config file are applied while watching.

Examples:
  vantage watch
  vantage watch --theme nord --min tablet
  vantage watch --plain -o json | jq .currentBreakpoint`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchTheme, "theme", "", fmt.Sprintf("color theme %v", tui.Presets()))
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print one line per change instead of the interactive view")
	watchCmd.Flags().StringVar(&watchTitle, "title", "vantage", "title of the interactive view")
	addConditionFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := trackerOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchPlain {
		return watchPlainLines(ctx, cmd, opts, stdout)
	}
	return watchInteractive(ctx, cmd, opts)
}

func watchInteractive(ctx context.Context, cmd *cobra.Command, opts tracker.Options) error {
	theme, err := tui.ThemeByName(watchTheme)
	if err != nil {
		return err
	}

	size := viewport.NewStdoutTerminal().Size()
	options := []tui.Option{
		tui.WithTitle(watchTitle),
		tui.WithTheme(theme),
		tui.WithInitialSize(int(size.Width), int(size.Height)),
		tui.WithTrackerOptions(sessionOptions()...),
	}
	rule, ok, err := ruleFromFlags()
	if err != nil {
		return err
	}
	if ok {
		options = append(options, tui.WithRule(rule))
	}

	model, err := tui.New(opts, options...)
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	stopReload := watchConfig(cmd, model.Session(), func(err error) {
		p.Send(tui.ErrorMsg{Err: err})
	})
	defer stopReload()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return logger.WrapError(err, "interactive view failed")
	}
	return nil
}

// watchPlainLines follows the terminal with the continuous strategy and
// writes a line per published result. A media matcher is not available
// for a real terminal.
func watchPlainLines(ctx context.Context, cmd *cobra.Command, opts tracker.Options, out io.Writer) error {
	if opts.Strategy == tracker.StrategyDiscrete {
		log.Info("plain watch reads the terminal width, using the continuous strategy")
	}
	opts.Strategy = tracker.StrategyContinuous

	term := viewport.NewStdoutTerminal()
	defer term.Close()
	if !term.IsTerminal() {
		log.Warn("stdout is not a terminal, resize events will not be seen")
	}

	session, err := tracker.NewSession(opts, tracker.Platform{Viewport: term}, sessionOptions()...)
	if err != nil {
		return err
	}
	defer session.Close()

	stopReload := watchConfig(cmd, session, func(err error) {
		log.Error("config reload rejected", logger.WithError(err))
	})
	defer stopReload()

	results, unsubscribe := session.Watch()
	defer unsubscribe()

	write := lineWriter(OutputFormat(), out)
	if err := write(session.Current()); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-results:
			if err := write(r); err != nil {
				return err
			}
		}
	}
}

// lineWriter returns a function that writes one result per line.
func lineWriter(format string, out io.Writer) func(tracker.Result) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		return func(r tracker.Result) error {
			return enc.Encode(r)
		}
	}
	return func(r tracker.Result) error {
		if w, ok := r.Width(); ok && format != "quiet" {
			_, err := fmt.Fprintf(out, "%s\t%g\n", r.Current, w)
			return err
		}
		_, err := fmt.Fprintln(out, r.Current)
		return err
	}
}

// watchConfig applies changes of the config file to session. The
// session keeps its strategy and width tracking, which the interactive
// view lets the user toggle. It returns a function that stops watching.
func watchConfig(cmd *cobra.Command, session *tracker.Session, onError func(error)) func() {
	w, err := config.NewWatcher(cfgFile)
	if err != nil {
		log.Debug("config file not watched", logger.WithError(err))
		return func() {}
	}

	w.OnError(onError)
	w.OnChange(func(c *config.Config) {
		if err := applyOverrides(cmd, c); err != nil {
			onError(err)
			return
		}
		opts, err := tracker.OptionsFromConfig(c)
		if err != nil {
			onError(err)
			return
		}
		current := session.Options()
		opts.Strategy = current.Strategy
		opts.TrackWidth = current.TrackWidth

		if err := session.Update(opts); err != nil {
			onError(err)
			return
		}
		log.Info("config reloaded", "file", w.File(), "breakpoints", len(opts.Breakpoints))
	})
	w.Start()

	return w.Stop
}
