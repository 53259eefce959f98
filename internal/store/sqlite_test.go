package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretide/provdir/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storedProvider(npi string) model.Provider {
	p := model.NewProvider(npi)
	p.FirstName = "Jane"
	p.LastName = "Smith"
	p.Specialty = "Cardiology"
	p.Phone = "217-555-0100"
	return p
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := storedProvider("1234567890")
	require.NoError(t, s.UpsertProvider(ctx, p))

	got, err := s.GetProvider(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Jane", got.FirstName)

	byNPI, err := s.GetProviderByNPI(ctx, "1234567890")
	require.NoError(t, err)
	require.NotNil(t, byNPI)
	assert.Equal(t, p.ID, byNPI.ID)
}

func TestSQLiteUpsertReplacesByNPI(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := storedProvider("1234567890")
	require.NoError(t, s.UpsertProvider(ctx, p))

	p.Phone = "217-555-9999"
	require.NoError(t, s.UpsertProvider(ctx, p))

	got, err := s.GetProviderByNPI(ctx, "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "217-555-9999", got.Phone)

	all, err := s.ListProviders(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteGetProviderMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetProvider(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteProviderRequiresIDAndNPI(t *testing.T) {
	s := newTestStore(t)
	err := s.UpsertProvider(context.Background(), model.Provider{ID: "x"})
	require.Error(t, err)
}

func TestSQLiteListProvidersPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, npi := range []string{"1000000001", "1000000002", "1000000003"} {
		require.NoError(t, s.UpsertProvider(ctx, storedProvider(npi)))
	}

	page, err := s.ListProviders(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "1000000001", page[0].NPI)

	rest, err := s.ListProviders(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "1000000003", rest[0].NPI)
}

func TestSQLiteTicketLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := storedProvider("1234567890")
	require.NoError(t, s.UpsertProvider(ctx, p))

	ticket := model.NewReviewTicket(p,
		model.ConfidenceScore{Value: 55, Disposition: model.DispositionUrgent},
		[]model.Discrepancy{{Field: model.FieldPhone, Kind: model.KindPhoneMismatch, Priority: model.PriorityHigh}},
		model.PriorityHigh)
	require.NoError(t, s.CreateTicket(ctx, ticket))

	got, err := s.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, got.Status)
	assert.Equal(t, 55.0, got.Score)
	require.Len(t, got.Discrepancies, 1)

	require.NoError(t, s.ResolveTicket(ctx, ticket.ID, "reviewer@example.com", "confirmed new phone"))

	resolved, err := s.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketResolved, resolved.Status)
	assert.Equal(t, "reviewer@example.com", resolved.ResolvedBy)
	assert.Equal(t, "confirmed new phone", resolved.Notes)
	require.NotNil(t, resolved.ResolvedAt)

	err = s.ResolveTicket(ctx, ticket.ID, "reviewer@example.com", "")
	require.Error(t, err)
}

func TestSQLiteListTicketsFiltered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := storedProvider("1234567890")
	require.NoError(t, s.UpsertProvider(ctx, p))

	high := model.NewReviewTicket(p, model.ConfidenceScore{Value: 40, Disposition: model.DispositionUrgent}, nil, model.PriorityHigh)
	medium := model.NewReviewTicket(p, model.ConfidenceScore{Value: 70, Disposition: model.DispositionNeedsReview}, nil, model.PriorityMedium)
	require.NoError(t, s.CreateTicket(ctx, high))
	require.NoError(t, s.CreateTicket(ctx, medium))
	require.NoError(t, s.ResolveTicket(ctx, medium.ID, "reviewer", ""))

	open, err := s.ListTickets(ctx, TicketFilter{Status: model.TicketOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, high.ID, open[0].ID)

	highs, err := s.ListTickets(ctx, TicketFilter{Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, highs, 1)

	all, err := s.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteResolveMissingTicket(t *testing.T) {
	s := newTestStore(t)
	err := s.ResolveTicket(context.Background(), "nope", "reviewer", "")
	require.Error(t, err)
}

func TestSQLiteRunReportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	report := &model.RunReport{
		RunID: "run-1",
		Outcomes: []model.RecordOutcome{
			{ProviderID: "p-1", Score: 90, Disposition: model.DispositionAutoUpdate, Updated: true},
			{ProviderID: "p-2", Score: 40, Disposition: model.DispositionUrgent},
		},
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
	}
	report.Tally()
	require.NoError(t, s.SaveRun(ctx, report))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.AutoUpdated)
	assert.Equal(t, 1, got.Urgent)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, "p-1", got.Outcomes[0].ProviderID)

	_, err = s.GetRun(ctx, "missing")
	require.Error(t, err)
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, id := range []string{"run-old", "run-new"} {
		report := &model.RunReport{
			RunID:       id,
			StartedAt:   now.Add(time.Duration(i) * time.Hour),
			CompletedAt: now.Add(time.Duration(i)*time.Hour + time.Minute),
		}
		report.Tally()
		require.NoError(t, s.SaveRun(ctx, report))
	}

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
}
