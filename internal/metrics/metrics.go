// Package metrics holds the OTel instruments for annotation operations.
// Instruments come from the global meter provider, so everything is a no-op
// until the OTel provider is configured.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/vannot/vannot/internal/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Recorder counts codec and merge operations per video container.
type Recorder struct {
	encoded   metric.Int64Counter
	decoded   metric.Int64Counter
	merged    metric.Int64Counter
	saved     metric.Int64Counter
	parseErrs metric.Int64Counter
}

// NewRecorder creates the instrument set. Uses the global OTel meter
// (no-op if not configured).
func NewRecorder() (*Recorder, error) {
	m := meter()
	r := &Recorder{}

	var err error

	r.encoded, err = m.Int64Counter(
		"annotation.objects.encoded",
		metric.WithDescription("Total objects written into VTT containers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoded counter: %w", err)
	}

	r.decoded, err = m.Int64Counter(
		"annotation.objects.decoded",
		metric.WithDescription("Total objects read from VTT containers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decoded counter: %w", err)
	}

	r.merged, err = m.Int64Counter(
		"annotation.objects.merged",
		metric.WithDescription("Total objects merged into working lists"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating merged counter: %w", err)
	}

	r.saved, err = m.Int64Counter(
		"annotation.containers.saved",
		metric.WithDescription("Total container save operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating saved counter: %w", err)
	}

	r.parseErrs, err = m.Int64Counter(
		"annotation.parse.errors",
		metric.WithDescription("Total malformed containers or object blocks skipped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parse error counter: %w", err)
	}

	return r, nil
}

func videoAttr(videoID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("video", videoID))
}

// Encoded records n objects encoded for a video.
func (r *Recorder) Encoded(ctx context.Context, videoID string, n int) {
	r.encoded.Add(ctx, int64(n), videoAttr(videoID))
}

// Decoded records n objects decoded for a video.
func (r *Recorder) Decoded(ctx context.Context, videoID string, n int) {
	r.decoded.Add(ctx, int64(n), videoAttr(videoID))
}

// Merged records n objects merged for a video.
func (r *Recorder) Merged(ctx context.Context, videoID string, n int) {
	r.merged.Add(ctx, int64(n), videoAttr(videoID))
}

// Saved records one container save for a video.
func (r *Recorder) Saved(ctx context.Context, videoID string) {
	r.saved.Add(ctx, 1, videoAttr(videoID))
}

// ParseError records one skipped container or object block.
func (r *Recorder) ParseError(ctx context.Context, videoID string) {
	r.parseErrs.Add(ctx, 1, videoAttr(videoID))
}
