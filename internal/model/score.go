package model

// Disposition is the terminal classification of a validated record.
type Disposition string

const (
	DispositionAutoUpdate  Disposition = "auto_update"
	DispositionNeedsReview Disposition = "needs_review"
	DispositionUrgent      Disposition = "urgent"
)

// ConfidenceScore is the calculator's output: a value in [0,100], the
// per-field contributions behind it, and the threshold-derived disposition.
// The disposition is a pure function of Value; nothing else may alter it.
type ConfidenceScore struct {
	Value       float64            `json:"value"`
	Breakdown   map[string]float64 `json:"breakdown,omitempty"`
	Disposition Disposition        `json:"disposition"`
}
