// Package report turns the persisted daily history into the weekly
// dashboard: aggregate, select a window, filter annotations, render.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/clonepulse/clonepulse/internal/dashboard"
	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/observability"
	"github.com/clonepulse/clonepulse/internal/weekly"
)

// Config assembles a Pipeline's collaborators. Store and Output are
// required; everything else has a working default.
type Config struct {
	Store   *dataset.Store
	Output  string
	Logger  *slog.Logger
	Metrics *observability.PipelineMetrics
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Pipeline runs the reporting flow against the persisted dataset.
type Pipeline struct {
	store    *dataset.Store
	renderer *dashboard.Renderer
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
		store:    cfg.Store,
		renderer: dashboard.NewRenderer(cfg.Output, cfg.Logger),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
	}
}

// Result summarizes a completed reporting run. Window and Annotations are
// only meaningful when the chart was drawn.
type Result struct {
	Output      string
	Window      weekly.Window
	Annotations []dataset.Annotation

	// Placeholder holds the message rendered instead of the chart, empty
	// when the chart was drawn.
	Placeholder string
}

// Charted reports whether the run produced the chart rather than a
// placeholder page.
func (r *Result) Charted() bool {
	return r.Placeholder == ""
}

// Run executes one reporting pass. Every non-failed run writes exactly one
// output file: the chart, or a placeholder explaining why there is none.
func (p *Pipeline) Run(ctx context.Context, opts weekly.Options) (*Result, error) {
	start := p.now()

	ctx, span := p.tracer.Start(ctx, "report.run", trace.WithAttributes(
		attribute.String("report.year", opts.Year),
		attribute.String("report.start", opts.Start),
		attribute.Int("report.weeks", opts.Weeks),
	))
	defer span.End()

	result, err := p.run(ctx, opts)

	status := "ok"
	if err != nil {
		status = "error"

		span.SetStatus(codes.Error, err.Error())
	}

	p.metrics.RecordRun(ctx, string(observability.ModeReport), status, p.now().Sub(start))

	return result, err
}

func (p *Pipeline) run(ctx context.Context, opts weekly.Options) (*Result, error) {
	ds, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	now := p.now()

	buckets, err := weekly.Aggregate(ds.Daily, now)
	if err != nil {
		return nil, err
	}

	if len(buckets) == 0 {
		if len(ds.Daily) < weekly.MinDailyRecords {
			p.logger.Info("not enough data for a dashboard", "days", len(ds.Daily))
		} else {
			p.logger.Info("no completed week in the history yet", "days", len(ds.Daily))
		}

		return p.placeholder(ctx, dashboard.InsufficientDataMessage)
	}

	w, err := weekly.SelectWindow(buckets, opts, now)
	if err != nil {
		return nil, err
	}

	if w.Empty() {
		return p.placeholder(ctx, emptyMessage(w.Reason, opts.Year))
	}

	anns := weekly.FilterAnnotations(ds.Annotations, w, now, p.logger)

	renderErr := p.render(ctx, func() error {
		return p.renderer.WriteChart(w, anns)
	})
	if renderErr != nil {
		return nil, renderErr
	}

	return &Result{
		Output:      p.renderer.Output(),
		Window:      w,
		Annotations: anns,
	}, nil
}

func (p *Pipeline) placeholder(ctx context.Context, message string) (*Result, error) {
	renderErr := p.render(ctx, func() error {
		return p.renderer.WritePlaceholder(message)
	})
	if renderErr != nil {
		return nil, renderErr
	}

	return &Result{
		Output:      p.renderer.Output(),
		Placeholder: message,
	}, nil
}

func (p *Pipeline) render(ctx context.Context, write func() error) error {
	_, span := p.tracer.Start(ctx, "report.render")
	defer span.End()

	err := write()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

// emptyMessage picks the placeholder text for an empty window.
func emptyMessage(reason weekly.EmptyReason, year string) string {
	if reason == weekly.EmptyYearFilter {
		return dashboard.NoDataForYearMessage(year)
	}

	return dashboard.EmptyWindowMessage
}
