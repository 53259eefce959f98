package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/caretide/provdir/internal/db"
	"github.com/caretide/provdir/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	npi        TEXT NOT NULL UNIQUE,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	npi         TEXT NOT NULL,
	priority    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	ticket      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	report       JSONB NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_tickets_provider_id ON tickets(provider_id);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_priority ON tickets(priority);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertProvider(ctx context.Context, p model.Provider) error {
	if p.ID == "" || p.NPI == "" {
		return eris.New("postgres: provider needs id and npi")
	}
	record, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provider")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO providers (id, npi, record, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (npi) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		p.ID, p.NPI, record, p.CreatedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert provider %s", p.ID)
}

// BulkImportProviders loads a provider batch over the COPY protocol.
// Intended for initial directory loads into an empty table; it does not
// resolve NPI conflicts.
func (s *PostgresStore) BulkImportProviders(ctx context.Context, providers []model.Provider) (int64, error) {
	rows := make([][]any, 0, len(providers))
	now := time.Now().UTC()
	for _, p := range providers {
		record, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal provider %s", p.ID)
		}
		rows = append(rows, []any{p.ID, p.NPI, record, p.CreatedAt, now})
	}
	return db.CopyFrom(ctx, s.pool, "providers",
		[]string{"id", "npi", "record", "created_at", "updated_at"}, rows)
}

func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	return s.provider(ctx, `SELECT record FROM providers WHERE id = $1`, id)
}

func (s *PostgresStore) GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error) {
	return s.provider(ctx, `SELECT record FROM providers WHERE npi = $1`, npi)
}

func (s *PostgresStore) provider(ctx context.Context, query, arg string) (*model.Provider, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&record)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get provider")
	}

	var p model.Provider
	if err := json.Unmarshal(record, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal provider")
	}
	return &p, nil
}

func (s *PostgresStore) ListProviders(ctx context.Context, limit, offset int) ([]model.Provider, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM providers ORDER BY npi LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list providers")
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		var p model.Provider
		if err := json.Unmarshal(record, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provider")
		}
		providers = append(providers, p)
	}
	return providers, eris.Wrap(rows.Err(), "postgres: list providers iterate")
}

func (s *PostgresStore) CreateTicket(ctx context.Context, t model.ReviewTicket) error {
	ticket, err := json.Marshal(t)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal ticket")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tickets (id, provider_id, npi, priority, status, ticket, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.ProviderID, t.NPI, string(t.Priority), string(t.Status), ticket, t.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert ticket %s", t.ID)
}

func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*model.ReviewTicket, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT ticket FROM tickets WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("ticket not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get ticket")
	}

	var t model.ReviewTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal ticket")
	}
	return &t, nil
}

func (s *PostgresStore) ListTickets(ctx context.Context, filter TicketFilter) ([]model.ReviewTicket, error) {
	query := `SELECT ticket FROM tickets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, argIdx)
		args = append(args, string(filter.Priority))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tickets")
	}
	defer rows.Close()

	var tickets []model.ReviewTicket
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ticket")
		}
		var t model.ReviewTicket
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal ticket")
		}
		tickets = append(tickets, t)
	}
	return tickets, eris.Wrap(rows.Err(), "postgres: list tickets iterate")
}

func (s *PostgresStore) ResolveTicket(ctx context.Context, id, resolvedBy, notes string) error {
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
		return eris.Wrap(err, "postgres: marshal ticket")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tickets SET status = $1, ticket = $2 WHERE id = $3`,
		string(model.TicketResolved), ticket, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve ticket %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ticket not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, report *model.RunReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run report")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, report, started_at, completed_at) VALUES ($1, $2, $3, $4)`,
		report.RunID, raw, report.StartedAt, report.CompletedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", report.RunID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.RunReport, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM runs WHERE id = $1`, runID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}

	var report model.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run report")
	}
	return &report, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT report FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var reports []model.RunReport
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		var report model.RunReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run report")
		}
		reports = append(reports, report)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
