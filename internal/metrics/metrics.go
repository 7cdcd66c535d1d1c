// Package metrics installs the global OpenTelemetry meter provider and
// serves the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/omniroute/internal/logger"
)

const defaultPromPort = "2223"

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config, registry *prometheus.Registry) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	for _, provider := range cfg.Provider {
		switch provider.Provider {
		case PrometheusProvider:
			promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
			if err != nil {
				return nil, fmt.Errorf("prometheus exporter: %w", err)
			}

			readers = append(readers, promExporter)
		case OtelCollector:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(provider.Endpoint),
				otlpmetricgrpc.WithHeaders(provider.Headers),
			}

			if provider.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("otlp metric exporter: %w", err)
			}

			var readerOpts []sdkmetric.PeriodicReaderOption
			if provider.Interval > 0 {
				readerOpts = append(readerOpts, sdkmetric.WithInterval(provider.Interval))
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(exp, readerOpts...))
		default:
			return nil, fmt.Errorf("unknown metric provider %q", provider.Provider)
		}
	}

	return readers, nil
}

var _ MetricProvider = (*MeterProvider)(nil)

// MeterProvider wraps the SDK meter provider with the registry its
// Prometheus readers export into.
type MeterProvider struct {
	*sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewMetricProvider builds the readers, installs the provider globally and
// returns it. Without readers the provider records nothing.
func NewMetricProvider(options ...OptionFn) (*MeterProvider, error) {
	var cfg Config

	for _, opt := range options {
		cfg = opt(cfg)
	}

	registry := prometheus.NewRegistry()
	readers, err := getReaders(context.Background(), cfg, registry)
	if err != nil {
		return nil, err
	}

	metricsOps := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
	}
	for _, reader := range readers {
		metricsOps = append(metricsOps, sdkmetric.WithReader(reader))
	}

	meterProvider := sdkmetric.NewMeterProvider(metricsOps...)

	otel.SetMeterProvider(meterProvider)

	return &MeterProvider{MeterProvider: meterProvider, registry: registry}, nil
}

// Handler serves the Prometheus text format for this provider's registry.
func (p *MeterProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// PromServer serves /metrics on its own port.
type PromServer struct {
	http   *http.Server
	logger logger.LoggerInterface
}

// ServePrometheusMetrics starts the scrape endpoint in the background.
func ServePrometheusMetrics(p *MeterProvider, log logger.LoggerInterface, opt ...PromOptionFn) *PromServer {
	var cfg PromServerConfig
	port := defaultPromPort

	for _, o := range opt {
		cfg = o(cfg)
	}

	if cfg.port != "" {
		port = cfg.port
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	s := &PromServer{
		http: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}

	go func() {
		log.Info(context.Background(), "serving metrics", "port", port)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	return s
}

// Stop shuts the scrape endpoint down.
func (s *PromServer) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
