package model

import "time"

// RecordOutcome is the terminal result for one provider in a run.
type RecordOutcome struct {
	ProviderID    string        `json:"provider_id"`
	NPI           string        `json:"npi"`
	Name          string        `json:"name"`
	Score         float64       `json:"score"`
	Disposition   Disposition   `json:"disposition"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
	TicketID      string        `json:"ticket_id,omitempty"`
	Updated       bool          `json:"updated"`
	Err           string        `json:"error,omitempty"`
}

// RunReport aggregates one orchestrated run. Outcomes are ordered by the
// original input order, not completion order. The disposition counts always
// sum to Total: every submitted record reaches exactly one terminal
// disposition, degraded if necessary.
type RunReport struct {
	RunID       string          `json:"run_id"`
	Total       int             `json:"total"`
	AutoUpdated int             `json:"auto_updated"`
	NeedsReview int             `json:"needs_review"`
	Urgent      int             `json:"urgent"`
	Cancelled   bool            `json:"cancelled"`
	Outcomes    []RecordOutcome `json:"outcomes"`

	AverageConfidence float64                 `json:"average_confidence"`
	DiscrepancyCounts map[DiscrepancyKind]int `json:"discrepancy_counts,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Tally recomputes the aggregate counters from the outcome list.
func (r *RunReport) Tally() {
	r.AutoUpdated, r.NeedsReview, r.Urgent = 0, 0, 0
	r.DiscrepancyCounts = make(map[DiscrepancyKind]int)

	var sum float64
	for _, out := range r.Outcomes {
		switch out.Disposition {
		case DispositionAutoUpdate:
			r.AutoUpdated++
		case DispositionNeedsReview:
			r.NeedsReview++
		case DispositionUrgent:
			r.Urgent++
		}
		sum += out.Score
		for _, d := range out.Discrepancies {
			r.DiscrepancyCounts[d.Kind]++
		}
	}

	r.Total = len(r.Outcomes)
	if r.Total > 0 {
		r.AverageConfidence = sum / float64(r.Total)
	}
}
