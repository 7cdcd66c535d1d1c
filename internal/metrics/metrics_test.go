package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetricProvider_Prometheus(t *testing.T) {
	p, err := NewMetricProvider(
		WithServiceName("omniroute-test"),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	counter, err := p.Meter("test").Int64Counter("quotes_total")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), "quotes_total") {
		t.Errorf("metrics output missing quotes_total:\n%s", body)
	}
}

func TestNewMetricProvider_UnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(WithProviderConfig(ProviderCfg{Provider: "statsd"}))
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
