// Package store persists directory records, review tickets, and run
// reports. Two backends exist: SQLite for local and single-node use,
// Postgres for shared deployments.
package store

import (
	"context"

	"github.com/caretide/provdir/internal/model"
)

// TicketFilter specifies criteria for listing review tickets.
type TicketFilter struct {
	Status   model.TicketStatus `json:"status,omitempty"`
	Priority model.Priority     `json:"priority,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the validation pipeline.
type Store interface {
	// Providers
	UpsertProvider(ctx context.Context, p model.Provider) error
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
	GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error)
	ListProviders(ctx context.Context, limit, offset int) ([]model.Provider, error)

	// Review tickets
	CreateTicket(ctx context.Context, t model.ReviewTicket) error
	GetTicket(ctx context.Context, id string) (*model.ReviewTicket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]model.ReviewTicket, error)
	ResolveTicket(ctx context.Context, id, resolvedBy, notes string) error

	// Run reports
	SaveRun(ctx context.Context, report *model.RunReport) error
	GetRun(ctx context.Context, runID string) (*model.RunReport, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunReport, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
