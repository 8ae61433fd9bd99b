// Package metrics exports webhook, rendering and backend metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// Render paths recorded by Observer.Render.
const (
	RenderFlex     = "flex"
	RenderImages   = "images"
	RenderText     = "text"
	RenderFallback = "fallback"
)

// Observer records dispatcher activity. A nil *Observer discards everything.
type Observer struct {
	requests        *promclient.CounterVec
	events          *promclient.CounterVec
	renders         *promclient.CounterVec
	renderFailures  *promclient.CounterVec
	backendDuration *promclient.HistogramVec
	backendErrors   *promclient.CounterVec
}

// NewObserver registers the line-llm collectors on reg (default registerer if nil).
// Registering twice on the same registry reuses the existing collectors.
func NewObserver(namespace string, reg promclient.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = "line_llm"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	o := &Observer{}
	var err error
	if o.requests, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_requests_total",
		Help:      "Webhook requests by HTTP status code.",
	}, []string{"code"})); err != nil {
		return nil, err
	}
	if o.events, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook events by kind and outcome.",
	}, []string{"kind", "outcome"})); err != nil {
		return nil, err
	}
	if o.renders, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "replies_rendered_total",
		Help:      "Replies by render path (flex, images, text, fallback).",
	}, []string{"path"})); err != nil {
		return nil, err
	}
	if o.renderFailures, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "render_failures_total",
		Help:      "Rich rendering failures that fell back to plain text.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if o.backendDuration, err = register(reg, promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_duration_seconds",
		Help:      "Latency of backend and LINE API calls.",
		Buckets:   promclient.DefBuckets,
	}, []string{"operation"})); err != nil {
		return nil, err
	}
	if o.backendErrors, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "backend_errors_total",
		Help:      "Failed backend and LINE API calls.",
	}, []string{"operation"})); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg, returning the already registered collector when
// an identical one exists.
func register[T promclient.Collector](reg promclient.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are promclient.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// Request counts one webhook response.
func (o *Observer) Request(code int) {
	if o == nil {
		return
	}
	o.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Event counts one webhook event, e.g. ("text", "replied") or ("image", "fetch_failed").
func (o *Observer) Event(kind, outcome string) {
	if o == nil {
		return
	}
	o.events.WithLabelValues(kind, outcome).Inc()
}

// Render counts the path used to build a reply.
func (o *Observer) Render(path string) {
	if o == nil {
		return
	}
	o.renders.WithLabelValues(path).Inc()
}

// RenderFailure counts a rich render that was abandoned.
func (o *Observer) RenderFailure(reason string) {
	if o == nil {
		return
	}
	o.renderFailures.WithLabelValues(reason).Inc()
}

// BackendCall records latency and failure of an outbound call
// (chat, upload, fetch_content, reply).
func (o *Observer) BackendCall(operation string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.backendDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		o.backendErrors.WithLabelValues(operation).Inc()
	}
}
