package model

import "time"

// DiscrepancyKind identifies what went wrong with a field.
type DiscrepancyKind string

const (
	KindNameMismatch      DiscrepancyKind = "name_mismatch"
	KindAddressMismatch   DiscrepancyKind = "address_mismatch"
	KindPhoneMismatch     DiscrepancyKind = "phone_mismatch"
	KindSpecialtyMismatch DiscrepancyKind = "specialty_mismatch"

	// KindWriteFailure marks a directory write that failed on an
	// auto-update disposition; the record is downgraded to review.
	KindWriteFailure DiscrepancyKind = "write_failure"
	// KindProcessingFailure marks an unexpected per-record pipeline error
	// caught at the orchestrator boundary.
	KindProcessingFailure DiscrepancyKind = "processing_failure"
)

// Priority ranks a discrepancy for review triage.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Discrepancy records a field conflict or failure condition for audit. It
// carries the conflicting observations so reviewers can see both sides.
type Discrepancy struct {
	Field        string             `json:"field"`
	Kind         DiscrepancyKind    `json:"kind"`
	Priority     Priority           `json:"priority"`
	Detail       string             `json:"detail,omitempty"`
	Observations []FieldObservation `json:"observations,omitempty"`
	DetectedAt   time.Time          `json:"detected_at"`
}

// KindForField maps a validated field to its mismatch kind.
func KindForField(field string) DiscrepancyKind {
	switch field {
	case FieldName:
		return KindNameMismatch
	case FieldAddress:
		return KindAddressMismatch
	case FieldPhone:
		return KindPhoneMismatch
	case FieldSpecialty:
		return KindSpecialtyMismatch
	default:
		return DiscrepancyKind(field + "_mismatch")
	}
}

// PriorityForKind assigns triage priority. Contact fields that break
// member access rank highest.
func PriorityForKind(kind DiscrepancyKind) Priority {
	switch kind {
	case KindPhoneMismatch, KindAddressMismatch, KindWriteFailure, KindProcessingFailure:
		return PriorityHigh
	case KindNameMismatch, KindSpecialtyMismatch:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
