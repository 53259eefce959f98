package confidence

import (
	"math"
	"sort"

	"github.com/caretide/provdir/internal/model"
)

// Calculator turns field-level evidence into a confidence score. It is a
// pure function of its inputs: identical (report, enrichment) pairs always
// yield identical scores.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator with the given weight table. The
// config must already be validated.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Score computes the weighted confidence score and its disposition.
//
// Each weighted field contributes weight * factor, where the factor is 1
// for concordant, ConflictFactor for conflicting, and UnverifiedFactor for
// unverified. The total is normalized by the weight sum onto [0,100], then
// the enrichment bonus is added and the result clamped.
func (c *Calculator) Score(report *model.ValidationReport, enrichment *model.EnrichmentResult) model.ConfidenceScore {
	breakdown := make(map[string]float64, len(c.cfg.FieldWeights))

	// Iterate fields in sorted order so the breakdown builds the same way
	// every time; float addition here is order-sensitive.
	fields := make([]string, 0, len(c.cfg.FieldWeights))
	for field := range c.cfg.FieldWeights {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var total float64
	for _, field := range fields {
		weight := c.cfg.FieldWeights[field]

		agreement := model.AgreementUnverified
		if report != nil {
			agreement = report.Field(field).Agreement
		}

		var factor float64
		switch agreement {
		case model.AgreementConcordant:
			factor = 1
		case model.AgreementConflicting:
			factor = c.cfg.ConflictFactor
		default:
			factor = c.cfg.UnverifiedFactor
		}

		contribution := weight * factor
		breakdown[field] = contribution
		total += contribution
	}

	value := total / c.cfg.WeightSum() * 100

	if enrichment != nil && len(enrichment.Fields) > 0 {
		bonus := math.Min(float64(len(enrichment.Fields))*c.cfg.EnrichmentBonus, c.cfg.EnrichmentBonusCap)
		breakdown["enrichment"] = bonus
		value += bonus
	}

	value = math.Max(0, math.Min(100, value))

	return model.ConfidenceScore{
		Value:       value,
		Breakdown:   breakdown,
		Disposition: c.Disposition(value),
	}
}

// Disposition classifies a score against the configured thresholds. It is
// the only place dispositions are derived.
func (c *Calculator) Disposition(value float64) model.Disposition {
	switch {
	case value >= c.cfg.Thresholds.AutoUpdate:
		return model.DispositionAutoUpdate
	case value >= c.cfg.Thresholds.ReviewLower:
		return model.DispositionNeedsReview
	default:
		return model.DispositionUrgent
	}
}
