// Package orchestrator drives the validation pipeline: validation,
// enrichment, quality assurance, and directory management, over a batch
// of records with bounded concurrency.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caretide/provdir/internal/directory"
	"github.com/caretide/provdir/internal/enrich"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/qa"
	"github.com/caretide/provdir/internal/validate"
)

// Progress is invoked after each record reaches its terminal outcome.
// Callbacks arrive from worker goroutines; implementations must be
// safe for concurrent use.
type Progress func(done, total int, outcome model.RecordOutcome)

// Orchestrator runs the four-stage pipeline over record batches.
type Orchestrator struct {
	validator *validate.Agent
	enricher  *enrich.Agent
	assessor  *qa.Agent
	director  *directory.Agent

	maxConcurrency int
	progress       Progress
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithMaxConcurrency bounds how many records are in flight at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn Progress) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// New creates an orchestrator over the four pipeline agents.
func New(validator *validate.Agent, enricher *enrich.Agent, assessor *qa.Agent, director *directory.Agent, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		validator:      validator,
		enricher:       enricher,
		assessor:       assessor,
		director:       director,
		maxConcurrency: 10,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every record and returns the aggregated report. Each
// record reaches exactly one terminal disposition: a record whose
// pipeline fails unexpectedly is degraded to urgent rather than lost.
// Results keep the input order regardless of completion order. On
// cancellation, records not yet started are marked urgent with a
// processing_failure discrepancy and the report's Cancelled flag is set.
func (o *Orchestrator) Run(ctx context.Context, providers []model.Provider) (*model.RunReport, error) {
	report := &model.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]model.RecordOutcome, len(providers)),
	}

	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("run started",
		zap.Int("records", len(providers)),
		zap.Int("max_concurrency", o.maxConcurrency))

	var done atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(o.maxConcurrency)

	for i, p := range providers {
		if ctx.Err() != nil {
			report.Cancelled = true
			report.Outcomes[i] = cancelledOutcome(p, ctx.Err())
			continue
		}
		g.Go(func() error {
			outcome := o.processRecord(ctx, p)
			report.Outcomes[i] = outcome

			n := int(done.Add(1))
			if o.progress != nil {
				o.progress(n, len(providers), outcome)
			}
			return nil
		})
	}

	// Worker errors are absorbed into outcomes; Wait only synchronizes.
	_ = g.Wait()

	if ctx.Err() != nil {
		report.Cancelled = true
	}

	report.CompletedAt = time.Now().UTC()
	report.Tally()

	log.Info("run complete",
		zap.Int("total", report.Total),
		zap.Int("auto_updated", report.AutoUpdated),
		zap.Int("needs_review", report.NeedsReview),
		zap.Int("urgent", report.Urgent),
		zap.Bool("cancelled", report.Cancelled),
		zap.Float64("avg_confidence", report.AverageConfidence))

	return report, nil
}

// processRecord runs one record through all four stages. Panics and
// stage errors degrade the record to urgent; they never escape to the
// run level.
func (o *Orchestrator) processRecord(ctx context.Context, p model.Provider) (outcome model.RecordOutcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("record processing panicked",
				zap.String("provider_id", p.ID),
				zap.Any("panic", r))
			outcome = failedOutcome(p, eris.Errorf("panic: %v", r))
		}
	}()

	report, observations, err := o.validator.Validate(ctx, p)
	if err != nil {
		return failedOutcome(p, err)
	}

	enrichment := o.enricher.Enrich(p, observations)
	assessment := o.assessor.Assess(p, report, enrichment)

	return o.director.Apply(ctx, p, assessment, enrichment)
}

// failedOutcome forces a record that could not complete the pipeline
// into the urgent band.
func failedOutcome(p model.Provider, err error) model.RecordOutcome {
	return model.RecordOutcome{
		ProviderID:  p.ID,
		NPI:         p.NPI,
		Name:        p.FullName(),
		Score:       0,
		Disposition: model.DispositionUrgent,
		Discrepancies: []model.Discrepancy{{
			Field:      "record",
			Kind:       model.KindProcessingFailure,
			Priority:   model.PriorityForKind(model.KindProcessingFailure),
			Detail:     err.Error(),
			DetectedAt: time.Now().UTC(),
		}},
		Err: err.Error(),
	}
}

func cancelledOutcome(p model.Provider, err error) model.RecordOutcome {
	out := failedOutcome(p, eris.Wrap(err, "run cancelled before record started"))
	return out
}
