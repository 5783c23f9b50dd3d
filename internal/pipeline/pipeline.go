// Package pipeline runs a validation end to end: load pages from a source,
// enrich them with event counts and collected values, validate them on a
// bounded worker pool, then hand the merged report to an output and the
// history tracker.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hejijunhao/tagcheck/internal/engine"
	"github.com/hejijunhao/tagcheck/internal/engine/aggregate"
	"github.com/hejijunhao/tagcheck/internal/history"
	"github.com/hejijunhao/tagcheck/internal/logging"
	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/output"
	"github.com/hejijunhao/tagcheck/internal/source"
)

const defaultWorkers = 4

// Recorder stores a finished report.
type Recorder interface {
	Record(ctx context.Context, report model.Report, at time.Time) (history.Run, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCounts fetches event counts for pages that carry none.
func WithCounts(c source.CountProvider) Option {
	return func(p *Pipeline) { p.counts = c }
}

// WithActual fetches collected values for pages that carry none.
func WithActual(a source.ActualProvider) Option {
	return func(p *Pipeline) { p.actual = a }
}

// WithRecorder records every report after it is written.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithWorkers bounds how many pages are enriched and validated at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMinOccurrences sets the rule-suggestion threshold.
func WithMinOccurrences(n int) Option {
	return func(p *Pipeline) { p.minOccurrences = n }
}

// WithClock overrides the time recorded with each run.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline connects a source, the engine, and an output.
type Pipeline struct {
	source         source.Source
	engine         *engine.Engine
	output         output.Output
	counts         source.CountProvider
	actual         source.ActualProvider
	recorder       Recorder
	workers        int
	minOccurrences int
	now            func() time.Time
	log            *slog.Logger

	degraded atomic.Int64
}

// New creates a Pipeline from the given components.
func New(src source.Source, eng *engine.Engine, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:         src,
		engine:         eng,
		output:         out,
		workers:        defaultWorkers,
		minOccurrences: aggregate.DefaultMinOccurrences,
		now:            time.Now,
		log:            logging.New("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run validates every page the source yields, writes the report and records
// it. The report is returned even when recording fails.
func (p *Pipeline) Run(ctx context.Context, cfg source.Config) (model.Report, error) {
	pages, err := p.source.Pages(ctx, cfg)
	if err != nil {
		return model.Report{}, fmt.Errorf("pipeline load: %w", err)
	}

	report, err := p.Validate(ctx, pages)
	if err != nil {
		return model.Report{}, err
	}

	if err := p.output.Write(ctx, report); err != nil {
		return report, fmt.Errorf("pipeline output: %w", err)
	}

	if p.recorder != nil {
		run, err := p.recorder.Record(ctx, report, p.now())
		if err != nil {
			return report, fmt.Errorf("pipeline history: %w", err)
		}
		p.log.Info("run recorded", "run_id", run.ID, "suggestions", run.Suggestions)
	}
	return report, nil
}

// Validate enriches and validates pages concurrently and merges the
// per-page aggregates into one report. Event results keep page order.
func (p *Pipeline) Validate(ctx context.Context, pages []model.PageInput) (model.Report, error) {
	enriched := make([]model.PageInput, len(pages))
	partial := make([]*aggregate.Aggregator, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page = p.enrich(gctx, page)
			a := p.newAggregator()
			for _, r := range p.engine.ValidatePage(page) {
				a.Add(r)
			}
			enriched[i] = page
			partial[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Report{}, fmt.Errorf("pipeline validate: %w", err)
	}

	total := p.newAggregator()
	for _, a := range partial {
		total.Merge(a)
	}
	report := total.Report()
	report.Coverage = p.engine.Coverage(enriched)

	p.log.Info("validation complete",
		"pages", len(pages),
		"params", report.TotalParams,
		"accuracy", report.OverallAccuracy,
		"suggestions", len(report.Improvements),
	)
	return report, nil
}

// Degraded returns how many enrichment lookups have failed. Pages whose
// lookup failed are still validated with what they carry.
func (p *Pipeline) Degraded() int64 {
	return p.degraded.Load()
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if n := p.degraded.Load(); n > 0 {
		p.log.Warn("some pages were validated without enrichment", "failed_lookups", n)
	}
	return p.output.Close()
}

func (p *Pipeline) newAggregator() *aggregate.Aggregator {
	return aggregate.New(p.engine.Vocabulary(), aggregate.WithMinOccurrences(p.minOccurrences))
}

func (p *Pipeline) enrich(ctx context.Context, page model.PageInput) model.PageInput {
	if p.counts != nil && len(page.EventCounts) == 0 {
		counts, total, err := p.counts.Counts(ctx, page)
		if err != nil {
			p.degraded.Add(1)
			p.log.Warn("event counts unavailable", "page", page.URL, "error", err)
		} else {
			page.EventCounts = counts
			page.TotalEventCount = total
		}
	}
	if p.actual != nil && !page.HasActual() {
		actual, err := p.actual.Actual(ctx, page)
		if err != nil {
			p.degraded.Add(1)
			p.log.Warn("collected values unavailable", "page", page.URL, "error", err)
		} else {
			page = source.ApplyActual(page, actual)
		}
	}
	return page
}
