package apm

import (
	"context"
	"io"
	"reflect"
	"testing"

	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{name: "empty", in: "", want: map[string]string{}},
		{name: "single", in: "x-api-key=abc", want: map[string]string{"x-api-key": "abc"}},
		{name: "multiple_with_spaces", in: "a=1, b = 2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "skips_malformed", in: "a=1,broken,=x", want: map[string]string{"a": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseHeaders(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseHeaders(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewTraceProvider(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)

	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		wantErr bool
	}{
		{name: "disabled", cfg: config.TelemetryConfig{Enabled: false, Exporter: "zipkin"}},
		{name: "none", cfg: config.TelemetryConfig{Enabled: true, Exporter: "none"}},
		{name: "unknown", cfg: config.TelemetryConfig{Enabled: true, Exporter: "jaeger"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTraceProvider(context.Background(), tt.cfg, log)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := tp.Stop(); err != nil {
				t.Errorf("Stop: %v", err)
			}
		})
	}
}
