// Package telemetry wires the OpenTelemetry metric SDK to a Prometheus
// registry and exposes the instruments the rest of the application records.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/agenthands/cogniscan"

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
}

// Telemetry owns the meter provider and the scrape handler backed by its own
// registry, so several instances can coexist in one process.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	Metrics  *Metrics
}

// Init builds the metric pipeline. A disabled config yields a Telemetry whose
// Metrics is nil and whose handler answers 404.
func Init(cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{handler: http.NotFoundHandler()}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	metrics, err := NewMetrics(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return &Telemetry{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Metrics:  metrics,
	}, nil
}

func (t *Telemetry) Handler() http.Handler { return t.handler }

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
