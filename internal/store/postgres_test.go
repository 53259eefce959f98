package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretide/provdir/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_UpsertProvider(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(npi\) DO UPDATE`).
		WithArgs("p-1", "1234567890", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := model.Provider{ID: "p-1", NPI: "1234567890", FirstName: "Jane", LastName: "Smith"}
	require.NoError(t, s.UpsertProvider(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertProvider_Invalid(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	err := s.UpsertProvider(context.Background(), model.Provider{ID: "p-1"})
	require.Error(t, err)
}

func TestPostgresStore_GetProvider_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM providers WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetProvider(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProviderByNPI(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	record, err := json.Marshal(model.Provider{ID: "p-1", NPI: "1234567890", LastName: "Smith"})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM providers WHERE npi = \$1`).
		WithArgs("1234567890").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(record))

	got, err := s.GetProviderByNPI(context.Background(), "1234567890")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smith", got.LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkImportProviders(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"providers"},
		[]string{"id", "npi", "record", "created_at", "updated_at"}).
		WillReturnResult(2)

	n, err := s.BulkImportProviders(context.Background(), []model.Provider{
		{ID: "p-1", NPI: "1000000001"},
		{ID: "p-2", NPI: "1000000002"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTicket(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ticket := model.NewReviewTicket(
		model.Provider{ID: "p-1", NPI: "1234567890"},
		model.ConfidenceScore{Value: 70, Disposition: model.DispositionNeedsReview},
		nil, model.PriorityMedium)

	mock.ExpectExec(`INSERT INTO tickets`).
		WithArgs(ticket.ID, "p-1", "1234567890", "medium", "open", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateTicket(context.Background(), ticket))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveTicket(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	open := model.ReviewTicket{ID: "t-1", ProviderID: "p-1", Status: model.TicketOpen}
	raw, err := json.Marshal(open)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT ticket FROM tickets WHERE id = \$1`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"ticket"}).AddRow(raw))
	mock.ExpectExec(`UPDATE tickets SET status = \$1, ticket = \$2 WHERE id = \$3`).
		WithArgs("resolved", pgxmock.AnyArg(), "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.ResolveTicket(context.Background(), "t-1", "reviewer", "verified"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveTicket_AlreadyResolved(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	done := model.ReviewTicket{ID: "t-1", Status: model.TicketResolved}
	raw, err := json.Marshal(done)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT ticket FROM tickets WHERE id = \$1`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"ticket"}).AddRow(raw))

	err = s.ResolveTicket(context.Background(), "t-1", "reviewer", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already resolved")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAndGetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report := &model.RunReport{
		RunID:       "run-1",
		StartedAt:   time.Now().UTC().Add(-time.Minute),
		CompletedAt: time.Now().UTC(),
	}
	report.Tally()

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRun(context.Background(), report))

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT report FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow(raw))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT report FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
