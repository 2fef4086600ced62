// Package telemetry wires OpenTelemetry metrics (exported to Prometheus)
// and tracing for the service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hollandstar/sportteams"

type Config struct {
	ServiceName    string
	Version        string
	MetricsEnabled bool

	// TracingExporter is "stdout" or "none".
	TracingExporter string

	// TraceWriter receives stdout spans. Defaults to os.Stdout.
	TraceWriter io.Writer
}

// Provider owns the meter and tracer providers for the process.
type Provider struct {
	Metrics *Metrics

	meterProvider  metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	registry       *prometheus.Registry
	shutdowns      []func(context.Context) error
}

func New(cfg Config) (*Provider, error) {
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	)
	p := &Provider{}

	// 1. Metrics: OTel instruments read by the Prometheus exporter.
	if cfg.MetricsEnabled {
		p.registry = prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		p.meterProvider = mp
		p.shutdowns = append(p.shutdowns, mp.Shutdown)
	} else {
		p.meterProvider = metricnoop.NewMeterProvider()
	}

	metrics, err := NewMetrics(p.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	p.Metrics = metrics

	// 2. Tracing
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	switch cfg.TracingExporter {
	case "stdout":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown tracing exporter: %q", cfg.TracingExporter)
	}
	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	p.shutdowns = append(p.shutdowns, p.tracerProvider.Shutdown)

	return p, nil
}

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(instrumentationName)
}

// Handler serves the Prometheus scrape endpoint. It returns nil when metrics
// are disabled.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes pending spans and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdowns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
