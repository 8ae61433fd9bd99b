package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samsaffron/line-llm/internal/config"
	"github.com/samsaffron/line-llm/internal/metrics"
)

func TestMuxHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := metrics.NewObserver("test", reg)
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	obs.Request(http.StatusOK)

	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "hook")
	})
	mux := NewMux("/hooks/line", webhook, reg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil || health["status"] != "ok" {
		t.Errorf("healthz body = %q (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST healthz status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `test_webhook_requests_total{code="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/line", nil))
	if rec.Body.String() != "hook" {
		t.Errorf("webhook path not routed: %q", rec.Body.String())
	}
}

func TestLinePlatformNeedsSetup(t *testing.T) {
	cfg := config.Defaults()
	p := NewLinePlatform(cfg)
	if !p.NeedsSetup() {
		t.Error("expected setup without credentials")
	}
	cfg.Line.ChannelSecret = "s"
	cfg.Line.ChannelAccessToken = "t"
	if NewLinePlatform(cfg).NeedsSetup() {
		t.Error("expected no setup with credentials")
	}
	if p.Name() != "line" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestLinePlatformRunSetup(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	p := NewLinePlatform(config.Defaults())
	p.in = strings.NewReader("secret-1\ntoken-1\n\n\ndify-key\n")
	var out bytes.Buffer
	p.out = &out

	if err := p.RunSetup(); err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if p.NeedsSetup() {
		t.Error("platform should be configured after setup")
	}
	if !strings.Contains(out.String(), "LINE configuration saved.") {
		t.Errorf("output = %q", out.String())
	}

	for key, want := range map[string]string{
		"line.channel_secret":       "secret-1",
		"line.channel_access_token": "token-1",
		"backend.kind":              config.BackendDify,
		"backend.base_url":          config.DefaultDifyBaseURL,
		"backend.api_key":           "dify-key",
	} {
		got, err := config.GetValue(key)
		if err != nil {
			t.Fatalf("GetValue(%s): %v", key, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestLinePlatformRunSetupRejectsInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no input", ""},
		{"empty secret", "\n"},
		{"unknown backend", "s\nt\nclaude\n"},
		{"missing api key", "s\nt\nopenai\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())
			p := NewLinePlatform(config.Defaults())
			p.in = strings.NewReader(tt.input)
			p.out = &bytes.Buffer{}
			if err := p.RunSetup(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLinePlatformRunStops(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Port = 0
	cfg.Line.ChannelSecret = testSecret
	cfg.Line.ChannelAccessToken = testToken

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewLinePlatform(cfg).Run(ctx, cfg, Settings{
			Backend:  &fakeBackend{},
			Gatherer: prometheus.NewRegistry(),
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestLinePlatformRunRequiresBackend(t *testing.T) {
	cfg := config.Defaults()
	if err := NewLinePlatform(cfg).Run(context.Background(), cfg, Settings{}); err == nil {
		t.Error("expected error without backend")
	}
}
