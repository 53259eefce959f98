// Package enrich implements the information enrichment agent. Enrichment
// is strictly additive: it fills fields the directory record is missing
// and never touches a field that already has a value.
package enrich

import (
	"time"

	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/normalize"
)

// Agent fills missing record fields from source observations.
type Agent struct{}

// NewAgent creates an enrichment agent.
func NewAgent() *Agent {
	return &Agent{}
}

// Enrich derives newly discovered fields from the observations the
// validation pass collected. The first source to answer a field wins;
// a later source answering differently is kept as conflict metadata, not
// applied. Fields the record already carries are skipped entirely.
func (a *Agent) Enrich(p model.Provider, observations []model.FieldObservation) *model.EnrichmentResult {
	result := &model.EnrichmentResult{
		ProviderID: p.ID,
		Fields:     make(map[string]model.EnrichedField),
		EnrichedAt: time.Now().UTC(),
	}

	byField := make(map[string][]model.FieldObservation)
	for _, o := range observations {
		byField[o.Field] = append(byField[o.Field], o)
	}

	for _, field := range model.EnrichmentFields {
		if recordHas(p, field) {
			continue
		}
		for _, o := range byField[field] {
			if o.Value == "" {
				continue
			}
			kept, ok := result.Fields[field]
			if !ok {
				result.Fields[field] = model.EnrichedField{Value: o.Value, Source: o.Source}
				continue
			}
			if !normalize.Equal(field, kept.Value, o.Value) {
				result.Conflicts = append(result.Conflicts, model.EnrichmentConflict{
					Field:    field,
					Kept:     kept,
					Rejected: model.EnrichedField{Value: o.Value, Source: o.Source},
				})
			}
		}
	}

	if len(result.Fields) > 0 {
		zap.L().Debug("record enriched",
			zap.String("provider_id", p.ID),
			zap.Int("fields", len(result.Fields)),
			zap.Int("conflicts", len(result.Conflicts)))
	}

	return result
}

// recordHas reports whether the record already carries a value for an
// enrichment field.
func recordHas(p model.Provider, field string) bool {
	switch field {
	case model.FieldPracticeName:
		return p.PracticeName != ""
	case model.FieldAffiliations:
		return len(p.Affiliations) > 0
	case model.FieldEducation:
		return len(p.Education) > 0
	case model.FieldCertifications:
		return len(p.Certifications) > 0
	default:
		return true
	}
}
