package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a review ticket.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketResolved TicketStatus = "resolved"
)

// ReviewTicket is created for needs-review and urgent dispositions. It is
// resolved by an external reviewer; the pipeline only opens tickets.
type ReviewTicket struct {
	ID            string        `json:"id"`
	ProviderID    string        `json:"provider_id"`
	NPI           string        `json:"npi"`
	Priority      Priority      `json:"priority"`
	Status        TicketStatus  `json:"status"`
	Score         float64       `json:"score"`
	Disposition   Disposition   `json:"disposition"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy    string        `json:"resolved_by,omitempty"`
}

// NewReviewTicket opens a ticket for a provider with the given evidence.
func NewReviewTicket(p Provider, score ConfidenceScore, discrepancies []Discrepancy, priority Priority) ReviewTicket {
	return ReviewTicket{
		ID:            uuid.New().String(),
		ProviderID:    p.ID,
		NPI:           p.NPI,
		Priority:      priority,
		Status:        TicketOpen,
		Score:         score.Value,
		Disposition:   score.Disposition,
		Discrepancies: discrepancies,
		CreatedAt:     time.Now().UTC(),
	}
}
