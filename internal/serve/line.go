package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samsaffron/line-llm/internal/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// LinePlatform implements Platform for the LINE Messaging API webhook.
type LinePlatform struct {
	cfg config.Config
	in  io.Reader
	out io.Writer
}

// NewLinePlatform creates a LinePlatform; the setup wizard reads stdin.
func NewLinePlatform(cfg *config.Config) *LinePlatform {
	return &LinePlatform{cfg: *cfg, in: os.Stdin, out: os.Stdout}
}

func (p *LinePlatform) Name() string { return "line" }

// NeedsSetup returns true when the channel credentials are missing.
func (p *LinePlatform) NeedsSetup() bool {
	return strings.TrimSpace(p.cfg.Line.ChannelSecret) == "" ||
		strings.TrimSpace(p.cfg.Line.ChannelAccessToken) == ""
}

// RunSetup runs an interactive wizard that collects and persists channel
// and backend credentials.
func (p *LinePlatform) RunSetup() error {
	scanner := bufio.NewScanner(p.in)
	ask := func(prompt string) (string, error) {
		fmt.Fprint(p.out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("no input received")
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "LINE Channel Setup")
	fmt.Fprintln(p.out, "==================")
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "1. LINE Developers console → your Messaging API channel")
	secret, err := ask("   Channel secret (Basic settings): ")
	if err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("channel secret is required")
	}
	token, err := ask("   Channel access token (Messaging API tab): ")
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("channel access token is required")
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "2. Conversational backend")
	kind, err := ask("   Backend (dify/openai) [dify]: ")
	if err != nil {
		return err
	}
	kind = strings.ToLower(kind)
	if kind == "" {
		kind = config.BackendDify
	}
	if kind != config.BackendDify && kind != config.BackendOpenAI {
		return fmt.Errorf("unknown backend %q: must be dify or openai", kind)
	}

	var baseURL string
	if kind == config.BackendDify {
		baseURL, err = ask(fmt.Sprintf("   Dify API base URL [%s]: ", config.DefaultDifyBaseURL))
		if err != nil {
			return err
		}
		if baseURL == "" {
			baseURL = config.DefaultDifyBaseURL
		}
	}
	apiKey, err := ask("   API key: ")
	if err != nil {
		return err
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := config.SetServeLineConfig(secret, token); err != nil {
		return fmt.Errorf("save line config: %w", err)
	}
	if err := config.SetServeBackendConfig(kind, baseURL, apiKey); err != nil {
		return fmt.Errorf("save backend config: %w", err)
	}

	// Update in-memory config so Run() can proceed immediately after setup.
	p.cfg.Line.ChannelSecret = secret
	p.cfg.Line.ChannelAccessToken = token
	p.cfg.Backend.Kind = kind
	p.cfg.Backend.APIKey = apiKey
	if baseURL != "" {
		p.cfg.Backend.BaseURL = baseURL
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "LINE configuration saved.")
	return nil
}

// Run serves the webhook until ctx is cancelled, then shuts down gracefully.
func (p *LinePlatform) Run(ctx context.Context, cfg *config.Config, settings Settings) error {
	if cfg == nil {
		cfg = &p.cfg
	}
	if settings.Backend == nil {
		return fmt.Errorf("line platform requires a backend")
	}
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings.Logger = logger.With("component", "line")

	dispatcher := NewDispatcher(DispatcherConfigFrom(cfg), settings)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewMux(cfg.Line.WebhookPath, dispatcher, settings.Gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	settings.Logger.Info("listening",
		"addr", ln.Addr().String(),
		"webhook", cfg.Line.WebhookPath,
		"backend", settings.Backend.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		settings.Logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// NewMux routes the webhook, health and metrics endpoints. A nil gatherer
// exposes the default Prometheus registry.
func NewMux(webhookPath string, webhook http.Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	if webhookPath == "" {
		webhookPath = config.DefaultWebhookPath
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle(webhookPath, webhook)
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
