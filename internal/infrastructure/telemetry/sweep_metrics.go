package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SweepMetrics counts what quota sweeps observe and change.
// A nil *SweepMetrics records nothing.
type SweepMetrics struct {
	clientsSwept    *Counter
	exhausted       *Counter
	deactivations   *Counter
	halts           *Counter
	intervalsClosed *Counter
	warnings        *Counter
	usageEvents     *Counter
	batchDuration   *Histogram
}

// NewSweepMetrics registers the sweep instruments on meter
func NewSweepMetrics(meter metric.Meter) (*SweepMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &SweepMetrics{}
	var err error
	if m.clientsSwept, err = NewCounter(meter, "sweep_clients_total", "Clients evaluated by a sweep", "{client}"); err != nil {
		return nil, err
	}
	if m.exhausted, err = NewCounter(meter, "sweep_exhausted_total", "Clients found exhausted, by first quota hit", "{client}"); err != nil {
		return nil, err
	}
	if m.deactivations, err = NewCounter(meter, "subscription_deactivations_total", "Subscriptions flipped to inactive", "{subscription}"); err != nil {
		return nil, err
	}
	if m.halts, err = NewCounter(meter, "job_halts_total", "Job halt attempts by outcome", "{job}"); err != nil {
		return nil, err
	}
	if m.intervalsClosed, err = NewCounter(meter, "usage_intervals_closed_total", "Usage intervals closed", "{interval}"); err != nil {
		return nil, err
	}
	if m.warnings, err = NewCounter(meter, "consistency_warnings_total", "Operations skipped on consistency warnings", "{warning}"); err != nil {
		return nil, err
	}
	if m.usageEvents, err = NewCounter(meter, "usage_events_total", "Usage events by outcome", "{event}"); err != nil {
		return nil, err
	}
	if m.batchDuration, err = NewHistogram(meter, "sweep_batch_duration_seconds", "Duration of a full batch sweep", "s", SweepDurationBuckets); err != nil {
		return nil, err
	}
	return m, nil
}

// ClientSwept records one client evaluation and its outcome label
func (m *SweepMetrics) ClientSwept(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.clientsSwept.Inc(ctx, AttrSweepMode.String(mode), AttrOutcome.String(outcome))
}

// Exhausted records the quota that made a client exhausted
func (m *SweepMetrics) Exhausted(ctx context.Context, quota string) {
	if m == nil {
		return
	}
	m.exhausted.Inc(ctx, AttrQuota.String(quota))
}

// Deactivated records a subscription flip
func (m *SweepMetrics) Deactivated(ctx context.Context) {
	if m == nil {
		return
	}
	m.deactivations.Inc(ctx)
}

// Halt records one halt attempt
func (m *SweepMetrics) Halt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.halts.Inc(ctx, AttrHaltOutcome.String(outcome))
}

// IntervalsClosed records closed intervals
func (m *SweepMetrics) IntervalsClosed(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.intervalsClosed.Add(ctx, int64(n))
}

// ConsistencyWarning records a skipped operation
func (m *SweepMetrics) ConsistencyWarning(ctx context.Context, where string) {
	if m == nil {
		return
	}
	m.warnings.Inc(ctx, attribute.String("where", where))
}

// UsageEvent records the outcome of a usage event
func (m *SweepMetrics) UsageEvent(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.usageEvents.Inc(ctx, AttrOutcome.String(outcome))
}

// BatchFinished records the duration of a SweepAll run
func (m *SweepMetrics) BatchFinished(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.RecordDuration(ctx, d)
}
