// Package qa implements the quality assurance agent. It owns the
// confidence calculator and turns a record's validation and enrichment
// evidence into a scored assessment with its discrepancies.
package qa

import (
	"time"

	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/confidence"
	"github.com/caretide/provdir/internal/model"
)

// Assessment is the QA agent's verdict on one record.
type Assessment struct {
	ProviderID    string                `json:"provider_id"`
	Score         model.ConfidenceScore `json:"score"`
	Discrepancies []model.Discrepancy   `json:"discrepancies,omitempty"`
	AssessedAt    time.Time             `json:"assessed_at"`
}

// Agent scores validated records and extracts their discrepancies.
type Agent struct {
	calc *confidence.Calculator
}

// NewAgent creates a QA agent with the given calculator.
func NewAgent(calc *confidence.Calculator) *Agent {
	return &Agent{calc: calc}
}

// Assess scores the record and records a discrepancy for every conflicting
// field. Discrepancies are extracted regardless of disposition; an
// auto-update record can still carry them for audit.
func (a *Agent) Assess(p model.Provider, report *model.ValidationReport, enrichment *model.EnrichmentResult) Assessment {
	now := time.Now().UTC()

	assessment := Assessment{
		ProviderID: p.ID,
		Score:      a.calc.Score(report, enrichment),
		AssessedAt: now,
	}

	if report != nil {
		for _, field := range model.ValidatedFields {
			fv := report.Field(field)
			if fv.Agreement != model.AgreementConflicting {
				continue
			}
			kind := model.KindForField(field)
			assessment.Discrepancies = append(assessment.Discrepancies, model.Discrepancy{
				Field:        field,
				Kind:         kind,
				Priority:     model.PriorityForKind(kind),
				Detail:       "sources disagree on " + field,
				Observations: fv.Observations,
				DetectedAt:   now,
			})
		}
	}

	zap.L().Debug("record assessed",
		zap.String("provider_id", p.ID),
		zap.Float64("score", assessment.Score.Value),
		zap.String("disposition", string(assessment.Score.Disposition)),
		zap.Int("discrepancies", len(assessment.Discrepancies)))

	return assessment
}
