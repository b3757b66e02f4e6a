// Package ingest orchestrates one fetch run: pull the clone traffic
// snapshot, validate and merge it into the dataset, refresh the record
// marker, and emit the badge artifacts.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/clonepulse/clonepulse/internal/badge"
	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/github"
	"github.com/clonepulse/clonepulse/internal/observability"
)

// ErrFutureTimestamp reports an upstream row dated after the current run.
// The traffic endpoint returns a trailing window, so a future date means
// upstream data is wrong and merging it would poison the day keys.
var ErrFutureTimestamp = errors.New("timestamp is in the future")

var errNegativeValue = errors.New("negative value")

// Config assembles a Pipeline's collaborators. Source and Store are
// required; everything else has a working default.
type Config struct {
	Source   github.Source
	Store    *dataset.Store
	BadgeDir string
	Logger   *slog.Logger
	Metrics  *observability.PipelineMetrics
	Tracer   trace.Tracer
	Now      func() time.Time
}

// Pipeline runs the ingestion flow against one repository.
type Pipeline struct {
	source   github.Source
	store    *dataset.Store
	badgeDir string
	logger   *slog.Logger
	metrics  *observability.PipelineMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// New constructs a Pipeline, filling optional collaborators with no-op or
// default implementations.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Tracer == nil {
		cfg.Tracer = nooptrace.NewTracerProvider().Tracer("clonepulse")
	}

	if cfg.Metrics == nil {
		// The no-op meter never fails to create instruments.
		cfg.Metrics, _ = observability.NewPipelineMetrics(
			noopmetric.NewMeterProvider().Meter("clonepulse"))
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Pipeline{
		source:   cfg.Source,
		store:    cfg.Store,
		badgeDir: cfg.BadgeDir,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
	}
}

// Result summarizes a completed ingestion run.
type Result struct {
	Fetched      int
	Merged       int
	Skipped      int
	Days         int
	TotalClones  int
	UniqueClones int

	// Marker is the current record annotation, nil when the history is
	// empty.
	Marker *dataset.Annotation
}

// Run executes one ingestion pass for user/repo. A run that fails before
// the snapshot is saved leaves the dataset and badges untouched.
func (p *Pipeline) Run(ctx context.Context, user, repo string) (*Result, error) {
	start := p.now()

	ctx, span := p.tracer.Start(ctx, "ingest.run", trace.WithAttributes(
		attribute.String("github.owner", user),
		attribute.String("github.repo", repo),
	))
	defer span.End()

	result, err := p.run(ctx, user, repo)

	status := "ok"
	if err != nil {
		status = "error"

		span.SetStatus(codes.Error, err.Error())
	}

	p.metrics.RecordRun(ctx, string(observability.ModeFetch), status, p.now().Sub(start))

	return result, err
}

func (p *Pipeline) run(ctx context.Context, user, repo string) (*Result, error) {
	snapshot, err := p.fetch(ctx, user, repo)
	if err != nil {
		return nil, err
	}

	incoming, skipped, err := p.validateRows(ctx, snapshot.Clones)
	if err != nil {
		return nil, err
	}

	ds, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	ds.Daily = dataset.MergeDaily(ds.Daily, incoming)
	ds.RecomputeTotals()
	ds.Annotations = dataset.UpdateRecordMarker(ds.Daily, ds.Annotations)

	if err := p.store.Save(ds); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	if err := badge.WriteAll(p.badgeDir, ds.TotalClones); err != nil {
		return nil, err
	}

	p.metrics.AddMerged(ctx, int64(len(incoming)))

	result := &Result{
		Fetched:      len(snapshot.Clones),
		Merged:       len(incoming),
		Skipped:      skipped,
		Days:         len(ds.Daily),
		TotalClones:  ds.TotalClones,
		UniqueClones: ds.UniqueClones,
		Marker:       currentMarker(ds.Annotations),
	}

	p.logger.Info("ingestion run complete",
		"fetched", result.Fetched,
		"merged", result.Merged,
		"skipped", result.Skipped,
		"days", result.Days,
		"total_clones", result.TotalClones,
		"unique_clones", result.UniqueClones)

	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context, user, repo string) (*github.TrafficSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.fetch")
	defer span.End()

	snapshot, err := p.source.FetchClones(ctx, user, repo)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("fetch clones for %s/%s: %w", user, repo, err)
	}

	return snapshot, nil
}

// validateRows turns raw upstream rows into normalized daily records.
// Malformed rows are skipped one by one; a future-dated row aborts the run.
func (p *Pipeline) validateRows(ctx context.Context, rows []github.RawClone) ([]dataset.DailyRecord, int, error) {
	now := p.now()
	records := make([]dataset.DailyRecord, 0, len(rows))
	skipped := 0

	for i, row := range rows {
		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			p.skipRow(ctx, i, "timestamp", row.Timestamp)

			skipped++

			continue
		}

		if ts.After(now) {
			return nil, 0, fmt.Errorf("row %d: %w: %s",
				i, ErrFutureTimestamp, ts.Format(time.RFC3339))
		}

		count, err := parseNonNegative(row.Count)
		if err != nil {
			p.skipRow(ctx, i, "count", row.Count)

			skipped++

			continue
		}

		uniques, err := parseNonNegative(row.Uniques)
		if err != nil {
			p.skipRow(ctx, i, "uniques", row.Uniques)

			skipped++

			continue
		}

		records = append(records, dataset.DailyRecord{
			Timestamp: dataset.DayOf(ts),
			Count:     count,
			Uniques:   uniques,
		})
	}

	return records, skipped, nil
}

func (p *Pipeline) skipRow(ctx context.Context, index int, field string, raw json.RawMessage) {
	p.logger.Warn("skipping invalid entry",
		"row", index, "field", field, "value", string(raw))
	p.metrics.AddSkipped(ctx, 1, field)
}

func currentMarker(anns []dataset.Annotation) *dataset.Annotation {
	for i := range anns {
		if anns[i].IsRecordMarker() {
			return &anns[i]
		}
	}

	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}

	return time.Parse(time.RFC3339, s)
}

func parseNonNegative(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, errNegativeValue
	}

	return n, nil
}
