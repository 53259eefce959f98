package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretide/provdir/internal/confidence"
	"github.com/caretide/provdir/internal/model"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	cfg := confidence.DefaultConfig()
	require.NoError(t, cfg.Validate())
	return NewAgent(confidence.NewCalculator(cfg))
}

func reportWith(agreements map[string]model.Agreement) *model.ValidationReport {
	fields := make(map[string]model.FieldValidation, len(agreements))
	for field, agreement := range agreements {
		fields[field] = model.FieldValidation{
			Field:     field,
			Agreement: agreement,
			Observations: []model.FieldObservation{
				{Field: field, Source: model.SourceInput, Value: "recorded"},
				{Field: field, Source: model.SourceRegistry, Value: "observed"},
			},
		}
	}
	return &model.ValidationReport{ProviderID: "p-1", Fields: fields}
}

func TestAssessCleanRecord(t *testing.T) {
	report := reportWith(map[string]model.Agreement{
		model.FieldName:      model.AgreementConcordant,
		model.FieldAddress:   model.AgreementConcordant,
		model.FieldPhone:     model.AgreementConcordant,
		model.FieldSpecialty: model.AgreementConcordant,
	})

	got := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, report, nil)

	assert.Equal(t, "p-1", got.ProviderID)
	assert.Equal(t, float64(100), got.Score.Value)
	assert.Equal(t, model.DispositionAutoUpdate, got.Score.Disposition)
	assert.Empty(t, got.Discrepancies)
}

func TestAssessExtractsEveryConflict(t *testing.T) {
	report := reportWith(map[string]model.Agreement{
		model.FieldName:      model.AgreementConcordant,
		model.FieldAddress:   model.AgreementConflicting,
		model.FieldPhone:     model.AgreementConflicting,
		model.FieldSpecialty: model.AgreementUnverified,
	})

	got := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, report, nil)

	require.Len(t, got.Discrepancies, 2)
	byKind := map[model.DiscrepancyKind]model.Discrepancy{}
	for _, d := range got.Discrepancies {
		byKind[d.Kind] = d
	}

	addr := byKind[model.KindAddressMismatch]
	assert.Equal(t, model.FieldAddress, addr.Field)
	assert.Equal(t, model.PriorityHigh, addr.Priority)
	assert.Len(t, addr.Observations, 2)

	phone := byKind[model.KindPhoneMismatch]
	assert.Equal(t, model.PriorityHigh, phone.Priority)
}

func TestAssessConflictsSurviveHighScore(t *testing.T) {
	// One conflicting light field still clears the auto-update threshold;
	// the discrepancy must be reported anyway.
	report := reportWith(map[string]model.Agreement{
		model.FieldName:      model.AgreementConcordant,
		model.FieldAddress:   model.AgreementConcordant,
		model.FieldPhone:     model.AgreementConcordant,
		model.FieldSpecialty: model.AgreementConflicting,
	})

	got := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, report, nil)

	assert.Equal(t, model.DispositionAutoUpdate, got.Score.Disposition)
	require.Len(t, got.Discrepancies, 1)
	assert.Equal(t, model.KindSpecialtyMismatch, got.Discrepancies[0].Kind)
	assert.Equal(t, model.PriorityMedium, got.Discrepancies[0].Priority)
}

func TestAssessNilReport(t *testing.T) {
	got := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, nil, nil)

	assert.Equal(t, float64(0), got.Score.Value)
	assert.Equal(t, model.DispositionUrgent, got.Score.Disposition)
	assert.Empty(t, got.Discrepancies)
}

func TestAssessEnrichmentBonusFlowsThrough(t *testing.T) {
	report := reportWith(map[string]model.Agreement{
		model.FieldName:      model.AgreementConcordant,
		model.FieldAddress:   model.AgreementConcordant,
		model.FieldPhone:     model.AgreementConcordant,
		model.FieldSpecialty: model.AgreementUnverified,
	})
	enrichment := &model.EnrichmentResult{
		ProviderID: "p-1",
		Fields: map[string]model.EnrichedField{
			model.FieldCertifications: {Value: "Cardiovascular Disease", Source: model.SourceRegistry},
		},
	}

	bare := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, report, nil)
	enriched := newTestAgent(t).Assess(model.Provider{ID: "p-1"}, report, enrichment)

	assert.Greater(t, enriched.Score.Value, bare.Score.Value)
}
