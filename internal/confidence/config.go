// Package confidence implements the pure scoring function that turns a
// validation report and enrichment result into a confidence score and a
// threshold-derived disposition.
package confidence

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config is the scoring weight table. Weights and thresholds are
// configuration, not code: tuning them must never require touching the
// calculator.
type Config struct {
	// FieldWeights maps each validated field to its weight. Weights should
	// sum to 100 so a fully concordant record scores at or near 100.
	FieldWeights map[string]float64 `yaml:"field_weights"`

	// ConflictFactor scales a field's weight when sources disagree.
	// 0.5 means a conflicting field earns half credit; negative values
	// penalize below zero contribution.
	ConflictFactor float64 `yaml:"conflict_factor"`

	// UnverifiedFactor scales a field's weight when no source returned an
	// observation. Usually 0.
	UnverifiedFactor float64 `yaml:"unverified_factor"`

	// EnrichmentBonus is added per newly enriched field, capped at
	// EnrichmentBonusCap. The final score is still clamped to [0,100].
	EnrichmentBonus    float64 `yaml:"enrichment_bonus"`
	EnrichmentBonusCap float64 `yaml:"enrichment_bonus_cap"`

	Thresholds Thresholds `yaml:"thresholds"`
}

// Thresholds partition [0,100] into the three dispositions:
// score >= AutoUpdate, ReviewLower <= score < AutoUpdate, score < ReviewLower.
type Thresholds struct {
	AutoUpdate  float64 `yaml:"auto_update"`
	ReviewLower float64 `yaml:"review_lower"`
}

// DefaultConfig returns the built-in weight table. Contact fields carry the
// most weight: a wrong phone or address breaks member access.
func DefaultConfig() Config {
	return Config{
		FieldWeights: map[string]float64{
			"name":      30,
			"address":   25,
			"phone":     25,
			"specialty": 20,
		},
		ConflictFactor:     0.5,
		UnverifiedFactor:   0,
		EnrichmentBonus:    1,
		EnrichmentBonusCap: 5,
		Thresholds: Thresholds{
			AutoUpdate:  80,
			ReviewLower: 60,
		},
	}
}

// LoadConfig reads a weight table from a YAML file, filling unset values
// from the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "confidence: read weights %s", path)
	}

	var wrapper struct {
		Confidence Config `yaml:"confidence"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return cfg, eris.Wrap(err, "confidence: parse weights")
	}

	loaded := wrapper.Confidence
	if len(loaded.FieldWeights) > 0 {
		cfg.FieldWeights = loaded.FieldWeights
	}
	if loaded.ConflictFactor != 0 {
		cfg.ConflictFactor = loaded.ConflictFactor
	}
	if loaded.UnverifiedFactor != 0 {
		cfg.UnverifiedFactor = loaded.UnverifiedFactor
	}
	if loaded.EnrichmentBonus != 0 {
		cfg.EnrichmentBonus = loaded.EnrichmentBonus
	}
	if loaded.EnrichmentBonusCap != 0 {
		cfg.EnrichmentBonusCap = loaded.EnrichmentBonusCap
	}
	if loaded.Thresholds.AutoUpdate != 0 {
		cfg.Thresholds.AutoUpdate = loaded.Thresholds.AutoUpdate
	}
	if loaded.Thresholds.ReviewLower != 0 {
		cfg.Thresholds.ReviewLower = loaded.Thresholds.ReviewLower
	}

	return cfg, cfg.Validate()
}

// WeightSum returns the sum of all field weights.
func (c Config) WeightSum() float64 {
	var sum float64
	for _, w := range c.FieldWeights {
		sum += w
	}
	return sum
}

// Validate checks that the weight table is internally consistent. Invalid
// tables are fatal at startup; the run must not begin.
func (c Config) Validate() error {
	var errs []string

	if len(c.FieldWeights) == 0 {
		errs = append(errs, "field_weights must not be empty")
	}
	for field, w := range c.FieldWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weight for %s must be >= 0", field))
		}
	}

	sum := c.WeightSum()
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	} else if math.Abs(sum-100) > 1 {
		// Tolerance for floating-point; weights are normalized anyway but
		// a table far from 100 is almost certainly a typo.
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.ConflictFactor < -1 || c.ConflictFactor >= 1 {
		errs = append(errs, "conflict_factor must be in [-1, 1)")
	}
	if c.UnverifiedFactor < 0 || c.UnverifiedFactor >= 1 {
		errs = append(errs, "unverified_factor must be in [0, 1)")
	}
	if c.EnrichmentBonus < 0 || c.EnrichmentBonusCap < 0 {
		errs = append(errs, "enrichment bonus values must be >= 0")
	}

	t := c.Thresholds
	if !(0 < t.ReviewLower && t.ReviewLower < t.AutoUpdate && t.AutoUpdate <= 100) {
		errs = append(errs, fmt.Sprintf(
			"thresholds must satisfy 0 < review_lower < auto_update <= 100, got %.1f/%.1f",
			t.ReviewLower, t.AutoUpdate,
		))
	}

	if len(errs) > 0 {
		return eris.Errorf("confidence: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
