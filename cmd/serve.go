package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samsaffron/line-llm/internal/backend"
	"github.com/samsaffron/line-llm/internal/config"
	"github.com/samsaffron/line-llm/internal/metrics"
	"github.com/samsaffron/line-llm/internal/serve"
	"github.com/samsaffron/line-llm/internal/session"
	"github.com/spf13/cobra"
)

var (
	serveHost  string
	servePort  int
	serveSetup bool
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LINE webhook server",
	Long: `Run an HTTP server that receives LINE Messaging API webhooks and answers
them through the configured backend (Dify or OpenAI).

Endpoints:
  POST /callback   (line.webhook_path)
  GET  /healthz
  GET  /metrics

Use --setup to enter the channel and backend credentials interactively.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	AddListenFlags(serveCmd, &serveHost, &servePort)
	AddDebugFlag(serveCmd, &serveDebug)
	serveCmd.Flags().BoolVar(&serveSetup, "setup", false, "Run the setup wizard before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	platform := serve.NewLinePlatform(cfg)
	if serveSetup || platform.NeedsSetup() {
		if err := platform.RunSetup(); err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
		// Pick up what the wizard saved, including env expansion.
		if cfg, err = loadConfig(); err != nil {
			return err
		}
	}

	if err := applyServeOverrides(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	store, err := session.NewStore(cfg.Store, logger.With("component", "store"))
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer store.Close()

	be, err := backend.New(cfg.Backend)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.NewObserver("", reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return platform.Run(ctx, cfg, serve.Settings{
		Backend:  be,
		Store:    store,
		Metrics:  observer,
		Gatherer: reg,
		Logger:   logger,
	})
}

// applyServeOverrides applies the flags that were explicitly set.
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		if servePort <= 0 || servePort > 65535 {
			return fmt.Errorf("invalid --port %d (must be 1-65535)", servePort)
		}
		cfg.Server.Port = servePort
	}
	if serveDebug {
		cfg.Log.Level = "debug"
	}
	return nil
}
