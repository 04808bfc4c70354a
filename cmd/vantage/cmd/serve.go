package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vantage/internal/config"
	"vantage/internal/logger"
	"vantage/internal/metrics"
	"vantage/internal/ssh"
	"vantage/internal/tracker"
	"vantage/internal/tui"

	"github.com/spf13/cobra"
)

var (
	serveHost        string
	servePort        int
	serveTheme       string
	serveMetricsAddr string
)

// shutdownTimeout bounds the graceful shutdown of the servers.
const shutdownTimeout = 10 * time.Second

// serveCmd serves the live view over SSH
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live breakpoint view over SSH",
	Long: `Serve the live breakpoint view over SSH. Every connection gets its
own session that follows the client's terminal size.

  ssh -p 23234 localhost          interactive view
  ssh -p 23234 localhost stream   one JSON result per change

Changes to the config file are applied to all open sessions. Prometheus
metrics are served when metrics are enabled.

Examples:
  vantage serve
  vantage serve --port 2222 --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides ssh.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides ssh.port)")
	serveCmd.Flags().StringVar(&serveTheme, "theme", "", fmt.Sprintf("color theme %v", tui.Presets()))
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "serve metrics on this address (enables metrics)")
	addConditionFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.SSH.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.SSH.Port = servePort
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = serveMetricsAddr
	}

	opts, err := trackerOptions()
	if err != nil {
		return err
	}
	theme, err := tui.ThemeByName(serveTheme)
	if err != nil {
		return err
	}

	serverOptions := []ssh.ServerOption{
		ssh.WithLogger(log),
		ssh.WithTheme(theme),
	}
	rule, ok, err := ruleFromFlags()
	if err != nil {
		return err
	}
	if ok {
		serverOptions = append(serverOptions, ssh.WithRule(rule))
	}

	ctx, stop := signal.NotifyContext(cmdCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metricsServer, err = m.Start(cfg.Metrics.Addr, cfg.Metrics.Path)
		if err != nil {
			return err
		}
		defer stopMetrics(metricsServer)
		log.Info("metrics server started", "addr", metricsServer.Addr(), "path", cfg.Metrics.Path)
		serverOptions = append(serverOptions, ssh.WithMetrics(m))
	}

	server, err := ssh.NewServer(cfg.SSH, opts, serverOptions...)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}

	stopReload := reloadServer(cmd, server)
	defer stopReload()

	log.Info("serving", "addr", server.Addr(), "breakpoints", len(opts.Breakpoints), "strategy", opts.Strategy)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn("SSH server shutdown", logger.WithError(err))
	}
	return nil
}

func stopMetrics(s *metrics.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Stop(ctx); err != nil {
		log.Warn("metrics server shutdown", logger.WithError(err))
	}
}

// reloadServer applies changes of the config file to every session of
// server. Only breakpoint options are reloaded; listen addresses and
// keys need a restart.
func reloadServer(cmd *cobra.Command, server *ssh.Server) func() {
	w, err := config.NewWatcher(cfgFile)
	if err != nil {
		log.Debug("config file not watched", logger.WithError(err))
		return func() {}
	}

	w.OnError(func(err error) {
		log.Error("config reload failed", logger.WithError(err))
	})
	w.OnChange(func(c *config.Config) {
		if err := applyOverrides(cmd, c); err != nil {
			log.Error("config reload rejected", logger.WithError(err))
			return
		}
		opts, err := tracker.OptionsFromConfig(c)
		if err == nil {
			err = server.SetOptions(opts)
		}
		if err != nil {
			log.Error("config reload rejected", logger.WithError(err))
			return
		}
		log.Info("config reloaded", "file", w.File(), "sessions", server.SessionCount())
	})
	w.Start()

	return w.Stop
}
