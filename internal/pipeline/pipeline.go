/*
Package pipeline runs one scan: fetch the delivery page, resolve its table,
normalize and rank the rows, then score each selected row.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shanehull/dlvscan/internal/ai"
	"github.com/shanehull/dlvscan/internal/metrics"
	"github.com/shanehull/dlvscan/internal/rank"
	"github.com/shanehull/dlvscan/internal/score"
	"github.com/shanehull/dlvscan/internal/table"
	"github.com/shanehull/dlvscan/internal/types"
)

// Stages that can abort a run.
const (
	StageAcquisition   = "acquisition"
	StageSchema        = "schema"
	StageNormalization = "normalization"
)

// StageError names the stage that aborted a run. The typed error of that
// stage stays reachable through errors.As.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Reason returns the stage name of a failed run, or "internal" for anything else.
func Reason(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "internal"
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*types.RawDocument, error)
}

// Enricher adds commentary to a pick. Failures are logged and the pick is kept.
type Enricher interface {
	Annotate(ctx context.Context, in ai.StockInput) (*ai.Commentary, error)
}

type Config struct {
	URL       string
	Threshold float64
	MaxRows   int
	Workers   int
}

type Runner struct {
	cfg      Config
	fetcher  Fetcher
	scorer   *score.Scorer
	enricher Enricher
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Runner)

func WithEnricher(e Enricher) Option {
	return func(r *Runner) {
		r.enricher = e
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func New(cfg Config, f Fetcher, s *score.Scorer, opts ...Option) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	r := &Runner{
		cfg:     cfg,
		fetcher: f,
		scorer:  s,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every stage in order and aborts at the first fatal error.
// A selection with no rows is a valid report.
func (r *Runner) Run(ctx context.Context) (report *types.Report, err error) {
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	started := r.now()
	defer func() {
		r.metrics.ObserveRun(started, r.now(), err == nil)
	}()

	doc, err := r.fetcher.Fetch(ctx, r.cfg.URL)
	if err != nil {
		return nil, &StageError{Stage: StageAcquisition, Err: err}
	}

	res, err := table.Resolve(ctx, doc)
	if err != nil {
		return nil, &StageError{Stage: StageSchema, Err: err}
	}
	r.metrics.SetConfidence(res.Confidence)
	logger.Info().
		Int("table", res.Table.Index).
		Int("candidates", res.Candidates).
		Str("confidence", string(res.Confidence)).
		Str("delivery_column", res.Match.DeliveryPct).
		Str("company_column", res.Match.Company).
		Str("price_column", res.Match.Price).
		Msg("Resolved delivery table")

	rows, stats, err := table.Normalize(res)
	if err != nil {
		return nil, &StageError{Stage: StageNormalization, Err: err}
	}
	r.metrics.RecordRows(stats)
	if dropped := stats.DroppedParse + stats.DroppedRange; dropped > 0 {
		logger.Warn().
			Int("dropped_parse", stats.DroppedParse).
			Int("dropped_range", stats.DroppedRange).
			Msg("Dropped rows during normalization")
	}

	sel := rank.Select(rows, r.cfg.Threshold, r.cfg.MaxRows)
	r.metrics.SetSelected(len(sel))
	logger.Info().
		Int("rows", len(rows)).
		Int("selected", len(sel)).
		Float64("threshold", r.cfg.Threshold).
		Msg("Selected high delivery rows")

	generatedAt := r.now()

	return &types.Report{
		RunID:       runID,
		GeneratedAt: generatedAt,
		SourceURL:   r.cfg.URL,
		Threshold:   r.cfg.Threshold,
		MaxRows:     r.cfg.MaxRows,
		Confidence:  res.Confidence,
		Schema:      res.Match,
		Stats:       stats,
		Picks:       r.analyse(ctx, sel, generatedAt),
	}, nil
}

// analyse scores the selection on a bounded worker pool. Each worker writes its
// own slot, so picks come back in selection order.
func (r *Runner) analyse(ctx context.Context, sel types.RankedSelection, date time.Time) []types.Pick {
	picks := make([]types.Pick, len(sel))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i, row := range sel {
		g.Go(func() error {
			pick := types.Pick{
				Rank:     i + 1,
				Row:      row,
				Analysis: r.scorer.Score(row),
			}
			pick.Commentary = r.enrich(ctx, pick, date)
			picks[i] = pick
			return nil
		})
	}
	_ = g.Wait()

	return picks
}

func (r *Runner) enrich(ctx context.Context, pick types.Pick, date time.Time) *ai.Commentary {
	if r.enricher == nil || ctx.Err() != nil {
		return nil
	}

	in := ai.StockInput{
		Company:     pick.Row.Company,
		Price:       pick.Row.Price,
		DeliveryPct: pick.Row.DeliveryPct,
		Date:        date,
	}
	if pick.Analysis.Sufficient {
		in.UpsideTargetPrice = pick.Analysis.UpsideTargetPrice
		in.StopLossPrice = pick.Analysis.StopLossPrice
	}

	c, err := r.enricher.Annotate(ctx, in)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str(types.FieldCompany, pick.Row.Company).Msg("Warning: commentary failed")
		return nil
	}
	return c
}
