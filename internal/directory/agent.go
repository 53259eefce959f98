// Package directory implements the directory management agent, the
// terminal stage of the pipeline. It routes each assessed record to
// exactly one outcome: write the update, open a review ticket, or open
// an urgent ticket and notify.
package directory

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/notify"
	"github.com/caretide/provdir/internal/qa"
	"github.com/caretide/provdir/internal/store"
)

// Agent applies dispositions to the directory.
type Agent struct {
	store    store.Store
	notifier notify.Notifier
}

// NewAgent creates a directory management agent.
func NewAgent(st store.Store, notifier notify.Notifier) *Agent {
	return &Agent{store: st, notifier: notifier}
}

// Apply carries one assessed record to its terminal outcome.
//
// Auto-update writes the merged record; a failed write downgrades the
// record to needs-review with a write_failure discrepancy instead of
// failing the run. Needs-review and urgent open tickets; urgent also
// notifies, best-effort.
func (a *Agent) Apply(ctx context.Context, p model.Provider, assessment qa.Assessment, enrichment *model.EnrichmentResult) model.RecordOutcome {
	outcome := model.RecordOutcome{
		ProviderID:    p.ID,
		NPI:           p.NPI,
		Name:          p.FullName(),
		Score:         assessment.Score.Value,
		Disposition:   assessment.Score.Disposition,
		Discrepancies: assessment.Discrepancies,
	}

	if outcome.Disposition == model.DispositionAutoUpdate {
		updated := merge(p, enrichment)
		if err := a.store.UpsertProvider(ctx, updated); err != nil {
			zap.L().Error("directory write failed, downgrading to review",
				zap.String("provider_id", p.ID),
				zap.Error(err))

			outcome.Disposition = model.DispositionNeedsReview
			outcome.Discrepancies = append(outcome.Discrepancies, model.Discrepancy{
				Field:      "record",
				Kind:       model.KindWriteFailure,
				Priority:   model.PriorityForKind(model.KindWriteFailure),
				Detail:     err.Error(),
				DetectedAt: time.Now().UTC(),
			})
			outcome.Err = err.Error()
		} else {
			outcome.Updated = true
			zap.L().Info("record auto-updated",
				zap.String("provider_id", p.ID),
				zap.Float64("score", assessment.Score.Value))
			return outcome
		}
	}

	// Needs-review and urgent paths, including downgraded writes.
	priority := ticketPriority(outcome)
	score := assessment.Score
	score.Disposition = outcome.Disposition

	ticket := model.NewReviewTicket(p, score, outcome.Discrepancies, priority)
	if err := a.store.CreateTicket(ctx, ticket); err != nil {
		zap.L().Error("ticket creation failed",
			zap.String("provider_id", p.ID),
			zap.Error(err))
		outcome.Err = err.Error()
		return outcome
	}
	outcome.TicketID = ticket.ID

	if outcome.Disposition == model.DispositionUrgent && a.notifier != nil {
		n := notify.Notification{
			ProviderID:  p.ID,
			NPI:         p.NPI,
			Name:        p.FullName(),
			Score:       score.Value,
			Disposition: string(outcome.Disposition),
			TicketID:    ticket.ID,
			Priority:    priority,
			Timestamp:   time.Now().UTC(),
		}
		if err := a.notifier.Send(ctx, n); err != nil {
			// Notification failure never alters the outcome.
			zap.L().Error("urgent notification failed",
				zap.String("provider_id", p.ID),
				zap.Error(err))
		}
	}

	return outcome
}

// ticketPriority derives a ticket's priority: urgent records are always
// high, otherwise the worst discrepancy wins, defaulting to medium.
func ticketPriority(outcome model.RecordOutcome) model.Priority {
	if outcome.Disposition == model.DispositionUrgent {
		return model.PriorityHigh
	}
	priority := model.PriorityMedium
	for _, d := range outcome.Discrepancies {
		if d.Priority == model.PriorityHigh {
			return model.PriorityHigh
		}
	}
	return priority
}

// merge folds enrichment into the record and stamps it validated. The
// merge is additive: only fields the record was missing are filled.
func merge(p model.Provider, enrichment *model.EnrichmentResult) model.Provider {
	now := time.Now().UTC()
	p.LastValidated = &now
	p.UpdatedAt = now

	if enrichment == nil {
		return p
	}
	for field, enriched := range enrichment.Fields {
		switch field {
		case model.FieldPracticeName:
			if p.PracticeName == "" {
				p.PracticeName = enriched.Value
			}
		case model.FieldAffiliations:
			if len(p.Affiliations) == 0 {
				p.Affiliations = splitList(enriched.Value)
			}
		case model.FieldEducation:
			if len(p.Education) == 0 {
				p.Education = splitList(enriched.Value)
			}
		case model.FieldCertifications:
			if len(p.Certifications) == 0 {
				p.Certifications = splitList(enriched.Value)
			}
		}
	}
	return p
}

func splitList(value string) []string {
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
