package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
)

const meterName = "github.com/fd1az/omniroute/business/routing"

type dispatcherMetrics struct {
	quotesTotal       metric.Int64Counter
	quoteLatency      metric.Float64Histogram
	candidateFailures metric.Int64Counter
	feePasses         metric.Int64Histogram
}

func newDispatcherMetrics() (*dispatcherMetrics, error) {
	meter := otel.Meter(meterName)
	m := &dispatcherMetrics{}
	var err error

	m.quotesTotal, err = meter.Int64Counter(
		"routing_quotes_total",
		metric.WithDescription("Quotes served, by strategy and outcome code"),
	)
	if err != nil {
		return nil, err
	}

	m.quoteLatency, err = meter.Float64Histogram(
		"routing_quote_latency_ms",
		metric.WithDescription("End to end quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.candidateFailures, err = meter.Int64Counter(
		"routing_candidate_failures_total",
		metric.WithDescription("Race candidates that failed, by candidate and code"),
	)
	if err != nil {
		return nil, err
	}

	m.feePasses, err = meter.Int64Histogram(
		"routing_fee_passes",
		metric.WithDescription("Fee evaluation passes per composed route"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *dispatcherMetrics) recordQuote(ctx context.Context, strategy domain.Strategy, elapsed time.Duration, err error) {
	code := "OK"
	if err != nil {
		code = string(apperror.GetCode(err))
	}
	m.quotesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.String("code", code),
	))
	m.quoteLatency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
	))
}

func (m *dispatcherMetrics) observer(ctx context.Context) func(string, time.Duration, error) {
	return func(candidate string, _ time.Duration, err error) {
		if err == nil {
			return
		}
		m.candidateFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("candidate", candidate),
			attribute.String("code", string(apperror.ClassifyProvider(err))),
		))
	}
}
