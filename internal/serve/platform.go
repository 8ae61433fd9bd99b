package serve

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samsaffron/line-llm/internal/backend"
	"github.com/samsaffron/line-llm/internal/config"
	"github.com/samsaffron/line-llm/internal/metrics"
	"github.com/samsaffron/line-llm/internal/session"
)

// Settings holds per-platform runtime dependencies derived from CLI flags and config.
type Settings struct {
	Backend  backend.Backend
	Store    session.Store
	Metrics  *metrics.Observer
	Gatherer prometheus.Gatherer // source for /metrics; nil uses the default registry
	Logger   *slog.Logger
}

// Platform is the interface implemented by each messaging platform adapter.
type Platform interface {
	// Name returns the platform identifier (e.g. "line").
	Name() string
	// NeedsSetup returns true when required configuration is missing.
	NeedsSetup() bool
	// RunSetup runs an interactive wizard to collect and persist configuration.
	RunSetup() error
	// Run serves the platform until ctx is cancelled.
	Run(ctx context.Context, cfg *config.Config, settings Settings) error
}
