package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewSweepMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewSweepMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestSweepMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.SweepMetrics
	assert.NotPanics(t, func() {
		m.ClientSwept(context.Background(), "batch", "ok")
		m.Halt(context.Background(), "failed")
		m.BatchFinished(context.Background(), time.Second)
	})
}

func TestSweepMetrics_Noop(t *testing.T) {
	m, err := telemetry.NewSweepMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.Deactivated(context.Background()) })
}

func TestSweepMetrics_Recorded(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := telemetry.NewSweepMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.Exhausted(ctx, "sentences")
	m.Exhausted(ctx, "sentences")
	m.Exhausted(ctx, "time")
	m.IntervalsClosed(ctx, 3)
	m.IntervalsClosed(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			data, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				key := md.Name
				if v, ok := dp.Attributes.Value(attribute.Key("quota")); ok {
					key += "/" + v.AsString()
				}
				sums[key] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), sums["sweep_exhausted_total/sentences"])
	assert.Equal(t, int64(1), sums["sweep_exhausted_total/time"])
	assert.Equal(t, int64(3), sums["usage_intervals_closed_total"])
}

func TestStartSpan_RecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	// StartSpan uses the global provider; route it to the recorder for this test.
	restore := setGlobalTracer(tp)
	defer restore()

	_, span := telemetry.StartSpan(context.Background(), "sweep", "client", telemetry.AttrClientID.String("c-1"))
	telemetry.RecordError(span, errors.New("store timeout"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "sweep.client", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1)
}
