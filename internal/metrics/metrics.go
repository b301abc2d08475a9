// Package metrics exposes FinGenie counters and histograms through a
// Prometheus registry fed by an OpenTelemetry meter.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "fingenie"

// Service owns the meter provider and the instruments used across the app.
type Service struct {
	registry *prom.Registry
	provider *sdkmetric.MeterProvider

	runs          metric.Int64Counter
	stepDuration  metric.Float64Histogram
	retrievals    metric.Float64Histogram
	sessions      metric.Int64Counter
	connections   metric.Int64UpDownCounter
	humanWait     metric.Float64Histogram
	policyResults metric.Int64Counter
}

// New creates a Service backed by a fresh Prometheus registry.
func New() (*Service, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	s := &Service{registry: registry, provider: provider}
	if err := s.init(provider.Meter(meterName)); err != nil {
		return nil, err
	}
	return s, nil
}

// NewNoop returns a Service whose instruments discard everything.
func NewNoop() *Service {
	s := &Service{}
	_ = s.init(noop.NewMeterProvider().Meter(meterName))
	return s
}

func (s *Service) init(m metric.Meter) error {
	var err error
	if s.runs, err = m.Int64Counter("fingenie_runs_total",
		metric.WithDescription("Advisory runs by final status")); err != nil {
		return err
	}
	if s.stepDuration, err = m.Float64Histogram("fingenie_step_duration_seconds",
		metric.WithDescription("Flow step duration"), metric.WithUnit("s")); err != nil {
		return err
	}
	if s.retrievals, err = m.Float64Histogram("fingenie_retrieval_duration_seconds",
		metric.WithDescription("Knowledge store retrieval latency"), metric.WithUnit("s")); err != nil {
		return err
	}
	if s.sessions, err = m.Int64Counter("fingenie_sessions_total",
		metric.WithDescription("Conversation sessions by terminal state")); err != nil {
		return err
	}
	if s.connections, err = m.Int64UpDownCounter("fingenie_ws_connections",
		metric.WithDescription("Open WebSocket connections")); err != nil {
		return err
	}
	if s.humanWait, err = m.Float64Histogram("fingenie_human_wait_seconds",
		metric.WithDescription("Time spent waiting for human replies"), metric.WithUnit("s")); err != nil {
		return err
	}
	if s.policyResults, err = m.Int64Counter("fingenie_policy_decisions_total",
		metric.WithDescription("Approval policy decisions")); err != nil {
		return err
	}
	return nil
}

// Handler serves the registry in the Prometheus text format.
func (s *Service) Handler() http.Handler {
	if s.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}

func (s *Service) RunFinished(ctx context.Context, status string) {
	s.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (s *Service) StepFinished(ctx context.Context, step string, d time.Duration, err error) {
	s.stepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("failed", err != nil),
	))
}

func (s *Service) Retrieved(ctx context.Context, hits int, d time.Duration, err error) {
	s.retrievals.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.Int("hits", hits),
		attribute.Bool("failed", err != nil),
	))
}

func (s *Service) SessionFinished(ctx context.Context, step, state string) {
	s.sessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("state", state),
	))
}

func (s *Service) ConnectionOpened(ctx context.Context) { s.connections.Add(ctx, 1) }

func (s *Service) ConnectionClosed(ctx context.Context) { s.connections.Add(ctx, -1) }

func (s *Service) HumanReplied(ctx context.Context, d time.Duration) {
	s.humanWait.Record(ctx, d.Seconds())
}

func (s *Service) PolicyDecided(ctx context.Context, decision string) {
	s.policyResults.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}
