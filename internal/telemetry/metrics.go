package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the counters recorded by the session and secrets components.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rotations     metric.Int64Counter
	reuseDetected metric.Int64Counter
	revocations   metric.Int64Counter
	renewals      metric.Int64Counter
}

// NewMetrics registers the counters on meter. A nil meter uses a no-op meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("journal-identity")
	}
	m := &Metrics{}
	var err error
	if m.rotations, err = meter.Int64Counter("session.rotations",
		metric.WithDescription("Successful refresh token rotations")); err != nil {
		return nil, err
	}
	if m.reuseDetected, err = meter.Int64Counter("session.reuse_detected",
		metric.WithDescription("Refresh attempts rejected as token reuse")); err != nil {
		return nil, err
	}
	if m.revocations, err = meter.Int64Counter("session.revocations",
		metric.WithDescription("Sessions revoked, by reason")); err != nil {
		return nil, err
	}
	if m.renewals, err = meter.Int64Counter("secrets.renewals",
		metric.WithDescription("Secret provider lease renewal attempts, by outcome")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordRotation(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

func (m *Metrics) RecordReuse(ctx context.Context) {
	if m == nil {
		return
	}
	m.reuseDetected.Add(ctx, 1)
}

func (m *Metrics) RecordRevocation(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.revocations.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordRenewal(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.renewals.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
