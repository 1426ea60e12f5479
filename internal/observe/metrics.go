// Package observe records capture and upload metrics through the
// OpenTelemetry metrics API and exposes them for Prometheus scraping.
package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
)

const meterName = "github.com/parth-siprahub/Patient-frontdesk-UI"

// Metrics holds the metric instruments for capture sessions and uploads.
type Metrics struct {
	// Transitions counts state changes. Attributes: from, to.
	Transitions metric.Int64Counter

	// Failures counts sessions that ended in failed. Attribute: reason.
	Failures metric.Int64Counter

	// RecordingDuration tracks the recorded seconds of finished artifacts.
	RecordingDuration metric.Float64Histogram

	// ArtifactSize tracks the encoded size of finished artifacts.
	ArtifactSize metric.Int64Histogram

	// ActiveSessions is the number of sessions holding a microphone.
	ActiveSessions metric.Int64UpDownCounter

	// Uploads counts submissions. Attribute: status (ok, error).
	Uploads metric.Int64Counter
}

var (
	durationBuckets = []float64{1, 5, 10, 20, 30, 60, 120, 300, 600}
	sizeBuckets     = []float64{16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20, 16 << 20}
)

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var errs [6]error

	met.Transitions, errs[0] = m.Int64Counter("intake.capture.transitions",
		metric.WithDescription("Recording session state changes by from and to state."),
	)
	met.Failures, errs[1] = m.Int64Counter("intake.capture.failures",
		metric.WithDescription("Recording sessions that failed, by reason."),
	)
	met.RecordingDuration, errs[2] = m.Float64Histogram("intake.capture.duration",
		metric.WithDescription("Recorded length of finished artifacts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	met.ArtifactSize, errs[3] = m.Int64Histogram("intake.capture.artifact_size",
		metric.WithDescription("Encoded size of finished artifacts."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	)
	met.ActiveSessions, errs[4] = m.Int64UpDownCounter("intake.capture.active_sessions",
		metric.WithDescription("Recording sessions currently holding a microphone."),
	)
	met.Uploads, errs[5] = m.Int64Counter("intake.upload.requests",
		metric.WithDescription("Symptom submissions by status."),
	)

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return met, nil
}

// ObserveTransition records a session state change.
func (m *Metrics) ObserveTransition(t capture.Transition) {
	ctx := context.Background()
	m.Transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(t.From)),
		attribute.String("to", string(t.To)),
	))

	switch {
	case !t.From.Active() && t.To.Active():
		m.ActiveSessions.Add(ctx, 1)
	case t.From.Active() && !t.To.Active():
		m.ActiveSessions.Add(ctx, -1)
	}

	switch t.To {
	case capture.StateFailed:
		m.Failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(t.Reason))))
	case capture.StateStopped:
		if t.Reason != "" {
			m.Failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(t.Reason))))
		}
		m.RecordingDuration.Record(ctx, float64(t.Elapsed))
		if t.Artifact != nil {
			m.ArtifactSize.Record(ctx, int64(t.Artifact.Size))
		}
	}
}

// ObserveSubmit records a submission outcome.
func (m *Metrics) ObserveSubmit(e intake.SubmitEvent) {
	status := "ok"
	if e.Err != nil {
		status = "error"
	}
	m.Uploads.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}
