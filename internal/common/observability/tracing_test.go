// internal/common/observability/tracing_test.go
package observability

import (
	"bytes"
	"context"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"rehmat-agent/internal/common/config"
)

func TestTracingOptions_StdoutExportsSessionSpans(t *testing.T) {
	var buf bytes.Buffer
	opts, err := TracingOptions(context.Background(), "rehmat-agent", config.TracingConfig{Exporter: ExporterStdout, SampleRatio: 1}, &buf)
	require.NoError(t, err)

	o := New("rehmat-agent-test", promclient.NewRegistry(), opts...)
	_, span := o.StartSpan(context.Background(), "order-session",
		attribute.String("room", "rehmat-call-1"),
		attribute.String("participant.kind", "sip"),
	)
	span.End()
	o.Shutdown()

	out := buf.String()
	assert.Contains(t, out, "order-session")
	assert.Contains(t, out, "rehmat-call-1")
	assert.Contains(t, out, "participant.kind")
}

func TestTracingOptions_ZeroRatioDropsSpans(t *testing.T) {
	var buf bytes.Buffer
	opts, err := TracingOptions(context.Background(), "rehmat-agent", config.TracingConfig{Exporter: ExporterStdout, SampleRatio: 0}, &buf)
	require.NoError(t, err)

	o := New("rehmat-agent-test", promclient.NewRegistry(), opts...)
	_, span := o.StartSpan(context.Background(), "order-session")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	o.Shutdown()

	assert.Empty(t, buf.String())
}

func TestTracingOptions_Exporters(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TracingConfig
		wantOpts int
		wantErr  bool
	}{
		{"none", config.TracingConfig{Exporter: ExporterNone, SampleRatio: 1}, 2, false},
		{"empty means none", config.TracingConfig{SampleRatio: 1}, 2, false},
		{"stdout", config.TracingConfig{Exporter: ExporterStdout, SampleRatio: 1}, 3, false},
		{"otlp", config.TracingConfig{Exporter: ExporterOTLP, Endpoint: "localhost:4318", Insecure: true, SampleRatio: 1}, 3, false},
		{"unknown", config.TracingConfig{Exporter: "zipkin"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := TracingOptions(context.Background(), "rehmat-agent", tt.cfg, &bytes.Buffer{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tt.wantOpts)
		})
	}
}
