package model

import "time"

// Validated field keys. These are the comparable fields the validation
// agent checks against external sources.
const (
	FieldName      = "name"
	FieldAddress   = "address"
	FieldPhone     = "phone"
	FieldSpecialty = "specialty"
)

// Enrichment field keys. These are filled only when the input record is
// missing them.
const (
	FieldPracticeName   = "practice_name"
	FieldAffiliations   = "hospital_affiliations"
	FieldEducation      = "education"
	FieldCertifications = "certifications"
)

// EnrichmentFields lists every field the enrichment agent may fill, in
// stable order.
var EnrichmentFields = []string{
	FieldPracticeName,
	FieldAffiliations,
	FieldEducation,
	FieldCertifications,
}

// ValidatedFields lists every field the validation agent checks, in stable
// order.
var ValidatedFields = []string{
	FieldName,
	FieldAddress,
	FieldPhone,
	FieldSpecialty,
}

// Source identifiers for field observations.
const (
	SourceRegistry = "npi_registry"
	SourcePlaces   = "google_places"
	SourceWebsite  = "practice_website"
	SourceInput    = "directory_input"
)

// FieldObservation is a single (field, source, value) sighting. Immutable
// once recorded.
type FieldObservation struct {
	Field      string    `json:"field"`
	Source     string    `json:"source"`
	Value      string    `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Agreement classifies how sources lined up on one field.
type Agreement string

const (
	// AgreementConcordant means all non-missing observations agree after
	// normalization.
	AgreementConcordant Agreement = "concordant"
	// AgreementConflicting means at least two non-missing observations
	// disagree.
	AgreementConflicting Agreement = "conflicting"
	// AgreementUnverified means no source returned an observation.
	AgreementUnverified Agreement = "unverified"
)

// FieldValidation holds the observations and agreement verdict for one field.
type FieldValidation struct {
	Field        string             `json:"field"`
	Agreement    Agreement          `json:"agreement"`
	Observations []FieldObservation `json:"observations,omitempty"`
}

// ValidationReport is the validation agent's output for one (record, run)
// pair. Consumed read-only by the QA agent.
type ValidationReport struct {
	ProviderID     string                     `json:"provider_id"`
	NPI            string                     `json:"npi"`
	Fields         map[string]FieldValidation `json:"fields"`
	SourcesQueried []string                   `json:"sources_queried"`
	SourceErrors   map[string]string          `json:"source_errors,omitempty"`
	ValidatedAt    time.Time                  `json:"validated_at"`
}

// Field returns the validation entry for a field, or a zero entry marked
// unverified when the field was never checked.
func (r *ValidationReport) Field(name string) FieldValidation {
	if fv, ok := r.Fields[name]; ok {
		return fv
	}
	return FieldValidation{Field: name, Agreement: AgreementUnverified}
}

// EnrichedField is one newly discovered value with its provenance.
type EnrichedField struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// EnrichmentConflict records a second source answering an enrichment field
// differently. The first answer is kept; the conflict is metadata only.
type EnrichmentConflict struct {
	Field    string        `json:"field"`
	Kept     EnrichedField `json:"kept"`
	Rejected EnrichedField `json:"rejected"`
}

// EnrichmentResult maps newly discovered fields to values. Enrichment is
// additive: fields already present on the input record never appear here.
type EnrichmentResult struct {
	ProviderID string                   `json:"provider_id"`
	Fields     map[string]EnrichedField `json:"fields"`
	Conflicts  []EnrichmentConflict     `json:"conflicts,omitempty"`
	EnrichedAt time.Time                `json:"enriched_at"`
}
