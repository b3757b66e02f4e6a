package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal     = "clonepulse.runs.total"
	metricRunDuration   = "clonepulse.run.duration.seconds"
	metricRecordsMerged = "clonepulse.records.merged.total"
	metricRowsSkipped   = "clonepulse.rows.skipped.total"
	metricErrorsTotal   = "clonepulse.errors.total"

	attrOp     = "op"
	attrStatus = "status"
	attrReason = "reason"

	statusError = "error"
)

// durationBucketBoundaries covers 10ms to 60s: a run is one API call plus
// local file work.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// PipelineMetrics holds the OTel instruments shared by the fetch and report runs.
type PipelineMetrics struct {
	runsTotal     metric.Int64Counter
	runDuration   metric.Float64Histogram
	recordsMerged metric.Int64Counter
	rowsSkipped   metric.Int64Counter
	errorsTotal   metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	merged, err := mt.Int64Counter(metricRecordsMerged,
		metric.WithDescription("Daily records merged into the dataset"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsMerged, err)
	}

	skipped, err := mt.Int64Counter(metricRowsSkipped,
		metric.WithDescription("Upstream rows skipped during validation"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRowsSkipped, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed runs"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	return &PipelineMetrics{
		runsTotal:     runs,
		runDuration:   duration,
		recordsMerged: merged,
		rowsSkipped:   skipped,
		errorsTotal:   errTotal,
	}, nil
}

// RecordRun records a completed run with its operation, status, and duration.
func (pm *PipelineMetrics) RecordRun(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	pm.runsTotal.Add(ctx, 1, attrs)
	pm.runDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusError {
		pm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// AddMerged increments the merged-records counter.
func (pm *PipelineMetrics) AddMerged(ctx context.Context, n int64) {
	pm.recordsMerged.Add(ctx, n)
}

// AddSkipped increments the skipped-rows counter with the skip reason.
func (pm *PipelineMetrics) AddSkipped(ctx context.Context, n int64, reason string) {
	pm.rowsSkipped.Add(ctx, n, metric.WithAttributes(attribute.String(attrReason, reason)))
}
