// Package analyzer ties a RowSource to the classification pipeline: it
// fetches cash-flow tables, classifies them and reports what was dropped.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/internal/datasource"
	"github.com/seenimoa/cfpattern/pkg/models"
)

// Observer is notified after every analysis attempt; a is nil when err is
// set. AnalyzeMany calls it from several goroutines.
type Observer func(target string, a *models.Analysis, err error)

// Config configures an Analyzer.
type Config struct {
	Source      datasource.RowSource
	ParsePolicy cashflow.ParsePolicy
	Concurrency int // batch fan-out limit, default 4
	Logger      zerolog.Logger
	Observer    Observer
}

// Analyzer fetches and classifies cash-flow tables.
type Analyzer struct {
	source      datasource.RowSource
	opts        cashflow.ExtractOptions
	concurrency int
	log         zerolog.Logger
	observer    Observer
	now         func() time.Time
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	n := cfg.Concurrency
	if n < 1 {
		n = 4
	}
	return &Analyzer{
		source:      cfg.Source,
		opts:        cashflow.ExtractOptions{ParsePolicy: cfg.ParsePolicy},
		concurrency: n,
		log:         cfg.Logger,
		observer:    cfg.Observer,
		now:         time.Now,
	}
}

// SetObserver replaces the observer. Not safe to call during analysis.
func (a *Analyzer) SetObserver(o Observer) { a.observer = o }

// Analyze fetches target from the source and classifies it.
func (a *Analyzer) Analyze(ctx context.Context, target string) (*models.Analysis, error) {
	if a.source == nil {
		return nil, errors.New("analyzer: no row source configured")
	}
	table, err := a.source.FetchRows(ctx, target)
	if err != nil {
		a.log.Error().Err(err).Str("target", target).Msg("fetch failed")
		a.notify(target, nil, err)
		return nil, err
	}
	return a.analyze(target, table, a.opts)
}

// AnalyzeTable classifies rows that were obtained elsewhere, e.g. a CSV file.
func (a *Analyzer) AnalyzeTable(table *models.Table) (*models.Analysis, error) {
	return a.analyze(table.Source, table, a.opts)
}

// AnalyzeTableWith is AnalyzeTable with per-call extraction options. An empty
// ParsePolicy falls back to the analyzer's own.
func (a *Analyzer) AnalyzeTableWith(table *models.Table, opts cashflow.ExtractOptions) (*models.Analysis, error) {
	if opts.ParsePolicy == "" {
		opts.ParsePolicy = a.opts.ParsePolicy
	}
	return a.analyze(table.Source, table, opts)
}

func (a *Analyzer) analyze(target string, table *models.Table, opts cashflow.ExtractOptions) (*models.Analysis, error) {
	runID := uuid.NewString()
	log := a.log.With().Str("run_id", runID).Str("target", target).Logger()

	result, err := cashflow.Analyze(table.Rows, opts)
	if err != nil {
		log.Error().Err(err).Int("rows", len(table.Rows)).Msg("analysis failed")
		a.notify(target, nil, err)
		return nil, err
	}

	result.RunID = runID
	result.Source = table.Source
	result.Title = table.Title
	result.FetchedAt = a.now()

	ev := log.Info().Int("records", len(result.Entries))
	if result.Dropped > 0 {
		ev = ev.Int("dropped_rows", result.Dropped)
	}
	if result.Substituted > 0 {
		ev = ev.Int("substituted_amounts", result.Substituted)
	}
	if latest, ok := result.LatestEntry(); ok {
		ev = ev.Str("latest_period", latest.Record.Period).
			Str("latest_category", string(latest.Classification.Category))
	}
	ev.Msg("analysis complete")

	a.notify(target, result, nil)
	return result, nil
}

func (a *Analyzer) notify(target string, result *models.Analysis, err error) {
	if a.observer != nil {
		a.observer(target, result, err)
	}
}

// BatchResult is the outcome for one target of AnalyzeMany.
type BatchResult struct {
	Target   string           `json:"target"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Err      error            `json:"-"`
}

// AnalyzeMany analyzes targets concurrently, at most Concurrency at a time.
// A failing target does not cancel the others; its error is kept in its
// BatchResult. Results are in input order. The returned error is non-nil
// only when ctx is cancelled.
func (a *Analyzer) AnalyzeMany(ctx context.Context, targets []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, target := range targets {
		i, target := i, target
		results[i].Target = target
		g.Go(func() error {
			res, err := a.Analyze(gctx, target)
			results[i].Analysis = res
			results[i].Err = err
			return nil // non-fatal
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
