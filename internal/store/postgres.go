package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradewatch/internal/db"
	"github.com/sells-group/tradewatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return MigratePostgres(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertFiling(ctx context.Context, f model.FilingRecord) (int64, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO filings (accession, insider_name, issuer_name, filing_date, source_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (accession) DO NOTHING`,
		f.Accession, f.InsiderName, f.IssuerName, f.FilingDate, f.SourceURL,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert filing %s", f.Accession)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `SELECT id FROM filings WHERE accession = $1`, f.Accession).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(ErrLookup, "postgres: filing %s", f.Accession)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: lookup filing %s", f.Accession)
	}
	return id, nil
}

func (s *PostgresStore) UpsertTrade(ctx context.Context, filingID int64, t model.TradeRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO trades (filing_id, transaction_date, security_title, transaction_type, amount, price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT DO NOTHING`,
		filingID, t.TransactionDate, t.SecurityTitle, t.TransactionType, t.Amount, t.Price,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert trade for filing %d", filingID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) FilingByAccession(ctx context.Context, accession string) (*model.FilingRecord, error) {
	var f model.FilingRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, accession, insider_name, issuer_name, filing_date, source_url
		 FROM filings WHERE accession = $1`,
		accession,
	).Scan(&f.ID, &f.Accession, &f.InsiderName, &f.IssuerName, &f.FilingDate, &f.SourceURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get filing %s", accession)
	}
	return &f, nil
}

func (s *PostgresStore) UpsertEntity(ctx context.Context, e model.Entity) (int64, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entities (name, role, source_url) VALUES ($1, $2, $3)
		 ON CONFLICT (name, role) DO NOTHING`,
		e.Name, e.Role, e.SourceURL,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert entity %s", e.Name)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `SELECT id FROM entities WHERE name = $1 AND role = $2`, e.Name, e.Role).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(ErrLookup, "postgres: entity %s (%s)", e.Name, e.Role)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: lookup entity %s", e.Name)
	}
	return id, nil
}

func (s *PostgresStore) UpsertGovTrade(ctx context.Context, entityID int64, t model.GovTradeRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO gov_trades (entity_id, transaction_date, security_title, transaction_type, amount, price, source_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT DO NOTHING`,
		entityID, t.TransactionDate, t.SecurityTitle, t.TransactionType, t.Amount, t.Price, t.SourceURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert gov trade for entity %d", entityID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Track(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return eris.New("postgres: track: empty name")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tracked_names (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return eris.Wrapf(err, "postgres: track %s", name)
}

func (s *PostgresStore) Untrack(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	_, err := s.pool.Exec(ctx, `DELETE FROM tracked_names WHERE name = $1`, name)
	return eris.Wrapf(err, "postgres: untrack %s", name)
}

func (s *PostgresStore) ListTracked(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM tracked_names ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tracked")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tracked name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const pgListTrades = `
SELECT f.insider_name, f.issuer_name, t.transaction_date, t.security_title, t.transaction_type,
       t.amount, t.price, f.source_url, (tn.name IS NOT NULL) AS is_tracked
FROM trades t
JOIN filings f ON f.id = t.filing_id
LEFT JOIN tracked_names tn ON tn.name = f.insider_name
ORDER BY is_tracked DESC, t.transaction_date DESC, t.id
LIMIT $1`

const pgListGovTrades = `
SELECT e.name, e.role, g.transaction_date, g.security_title, g.transaction_type,
       g.amount, g.price, g.source_url, (tn.name IS NOT NULL) AS is_tracked
FROM gov_trades g
JOIN entities e ON e.id = g.entity_id
LEFT JOIN tracked_names tn ON tn.name = e.name
ORDER BY is_tracked DESC, g.transaction_date DESC, g.id
LIMIT $1`

const pgListTrackedTrades = `
SELECT f.insider_name, f.issuer_name, t.transaction_date, t.security_title, t.transaction_type,
       t.amount, t.price, f.source_url, 'SEC' AS source
FROM trades t
JOIN filings f ON f.id = t.filing_id
JOIN tracked_names tn ON tn.name = f.insider_name
UNION ALL
SELECT e.name, e.role, g.transaction_date, g.security_title, g.transaction_type,
       g.amount, g.price, g.source_url, 'GOV' AS source
FROM gov_trades g
JOIN entities e ON e.id = g.entity_id
JOIN tracked_names tn ON tn.name = e.name
ORDER BY transaction_date DESC`

func (s *PostgresStore) ListTrades(ctx context.Context, limit int) ([]model.TradeView, error) {
	return s.listViews(ctx, model.SourceSEC, pgListTrades, listLimit(limit))
}

func (s *PostgresStore) ListGovTrades(ctx context.Context, limit int) ([]model.TradeView, error) {
	return s.listViews(ctx, model.SourceGov, pgListGovTrades, listLimit(limit))
}

func (s *PostgresStore) listViews(ctx context.Context, source, query string, limit int) ([]model.TradeView, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s trades", source)
	}
	defer rows.Close()

	var views []model.TradeView
	for rows.Next() {
		v := model.TradeView{Source: source}
		if err := rows.Scan(&v.Name, &v.Context, &v.TransactionDate, &v.SecurityTitle, &v.TransactionType,
			&v.Amount, &v.Price, &v.URL, &v.Tracked); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s trade", source)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *PostgresStore) ListTrackedTrades(ctx context.Context) ([]model.TradeView, error) {
	rows, err := s.pool.Query(ctx, pgListTrackedTrades)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tracked trades")
	}
	defer rows.Close()

	var views []model.TradeView
	for rows.Next() {
		v := model.TradeView{Tracked: true}
		if err := rows.Scan(&v.Name, &v.Context, &v.TransactionDate, &v.SecurityTitle, &v.TransactionType,
			&v.Amount, &v.Price, &v.URL, &v.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tracked trade")
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *PostgresStore) StartRun(ctx context.Context, source string) (*model.RunSummary, error) {
	run := &model.RunSummary{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Source, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start run for %s", source)
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.RunSummary) error {
	now := time.Now().UTC()
	run.CompletedAt = &now

	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs
		 SET status = $1, processed = $2, inserted = $3, failed = $4, skipped = $5, error = $6, completed_at = $7
		 WHERE id = $8`,
		string(run.Status), run.Processed, run.Inserted, run.Failed, run.Skipped, errMsg, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, processed, inserted, failed, skipped, error, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var status string
		var errStr *string
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Processed, &r.Inserted, &r.Failed, &r.Skipped,
			&errStr, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if errStr != nil {
			r.Error = *errStr
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
