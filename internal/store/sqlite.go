package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/caretide/provdir/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	npi        TEXT NOT NULL UNIQUE,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	npi         TEXT NOT NULL,
	priority    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	ticket      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	report       TEXT NOT NULL,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_tickets_provider_id ON tickets(provider_id);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_priority ON tickets(priority);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProvider(ctx context.Context, p model.Provider) error {
	if p.ID == "" || p.NPI == "" {
		return eris.New("sqlite: provider needs id and npi")
	}
	record, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provider")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers (id, npi, record, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(npi) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		p.ID, p.NPI, string(record), p.CreatedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert provider %s", p.ID)
}

func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	return s.provider(ctx, `SELECT record FROM providers WHERE id = ?`, id)
}

func (s *SQLiteStore) GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	return s.provider(ctx, `SELECT record FROM providers WHERE npi = ?`, npi)
}

func (s *SQLiteStore) provider(ctx context.Context, query, arg string) (*model.Provider, error) {
	var record string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get provider")
	}

	var p model.Provider
	if err := json.Unmarshal([]byte(record), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal provider")
	}
	return &p, nil
}

func (s *SQLiteStore) ListProviders(ctx context.Context, limit, offset int) ([]model.Provider, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM providers ORDER BY npi LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		var p model.Provider
		if err := json.Unmarshal([]byte(record), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provider")
		}
		providers = append(providers, p)
	}
	return providers, eris.Wrap(rows.Err(), "sqlite: list providers iterate")
}

func (s *SQLiteStore) CreateTicket(ctx context.Context, t model.ReviewTicket) error {
	ticket, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal ticket")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, provider_id, npi, priority, status, ticket, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProviderID, t.NPI, string(t.Priority), string(t.Status), string(ticket), t.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert ticket %s", t.ID)
}

func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*model.ReviewTicket, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT ticket FROM tickets WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("ticket not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get ticket")
	}

	var t model.ReviewTicket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal ticket")
	}
	return &t, nil
}

func (s *SQLiteStore) ListTickets(ctx context.Context, filter TicketFilter) ([]model.ReviewTicket, error) {
	query := `SELECT ticket FROM tickets WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(filter.Priority))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tickets")
	}
	defer rows.Close()

	var tickets []model.ReviewTicket
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ticket")
		}
		var t model.ReviewTicket
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal ticket")
		}
		tickets = append(tickets, t)
	}
	return tickets, eris.Wrap(rows.Err(), "sqlite: list tickets iterate")
}

func (s *SQLiteStore) ResolveTicket(ctx context.Context, id, resolvedBy, notes string) error {
	t, err := s.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == model.TicketResolved {
		return eris.Errorf("ticket already resolved: %s", id)
	}

	now := time.Now().UTC()
	t.Status = model.TicketResolved
	t.ResolvedAt = &now
	t.ResolvedBy = resolvedBy
	if notes != "" {
		t.Notes = notes
	}

	ticket, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal ticket")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, ticket = ? WHERE id = ?`,
		string(model.TicketResolved), string(ticket), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve ticket %s", id)
	}
	return checkRowsAffected(res, "ticket", id)
}

func (s *SQLiteStore) SaveRun(ctx context.Context, report *model.RunReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, report, started_at, completed_at) VALUES (?, ?, ?, ?)`,
		report.RunID, string(raw), report.StartedAt, report.CompletedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", report.RunID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.RunReport, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run report")
	}
	return &report, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var reports []model.RunReport
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		var report model.RunReport
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run report")
		}
		reports = append(reports, report)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
