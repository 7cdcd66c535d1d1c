package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/internal/ratelimit"
)

const (
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxConnsPerHost       = 16
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	instrumentationName = "github.com/fd1az/omniroute/internal/httpclient"
)

// Client builds requests against one provider.
type Client interface {
	NewRequest(opts ...RequestOption) Request
	Provider() string
}

// InstrumentedClient wraps http.Client with OTEL instrumentation.
type InstrumentedClient struct {
	client         *http.Client
	requests       metric.Int64Counter
	latency        metric.Float64Histogram
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	defaultHeaders map[string]string
	limiter        *ratelimit.Limiter
	errorHandler   ResponseErrorHandler
	traceBodies    bool
}

var _ Client = (*InstrumentedClient)(nil)

// New creates an instrumented client.
func New(opts ...ClientOption) (*InstrumentedClient, error) {
	options := NewClientOptions(opts...)

	httpClient := options.client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if options.roundTripper != nil {
		httpClient.Transport = options.roundTripper
	} else if httpClient.Transport == nil {
		httpClient.Transport = &http.Transport{
			DialContext:           (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}
	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}
	httpClient.Transport = otelhttp.NewTransport(
		httpClient.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)))

	requests, err := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Outbound HTTP requests by provider and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	latency, err := meter.Float64Histogram("http_client_request_latency_ms",
		metric.WithDescription("Outbound HTTP request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &InstrumentedClient{
		client:         httpClient,
		requests:       requests,
		latency:        latency,
		providerName:   providerName,
		tracer:         tracer,
		baseURL:        options.baseURL,
		defaultHeaders: options.headers,
		limiter:        options.limiter,
		errorHandler:   options.errorHandler,
		traceBodies:    options.traceBodies,
	}, nil
}

// NewRequest starts a request builder.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)
	handler := reqOpts.responseErrorHandler
	if handler == nil {
		handler = c.errorHandler
	}
	return &requestBuilder{
		c:            c,
		headers:      copyHeaders(c.defaultHeaders),
		errorHandler: handler,
		labels:       reqOpts.labels,
	}
}

// Provider is the name used in metrics and spans.
func (c *InstrumentedClient) Provider() string {
	return c.providerName
}

func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
