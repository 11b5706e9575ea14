package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tradewatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// NewSQLite opens a SQLite database at the given path with foreign keys
// enforced and WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: connect")
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range sqlitePragmas {
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}

// SQLite treats NULLs as distinct in unique indexes, so the natural keys
// coalesce amount and price to a text marker no numeric value can equal.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	accession    TEXT NOT NULL UNIQUE,
	insider_name TEXT NOT NULL,
	issuer_name  TEXT NOT NULL,
	filing_date  TEXT NOT NULL,
	source_url   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS trades (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	filing_id        INTEGER NOT NULL REFERENCES filings(id),
	transaction_date TEXT NOT NULL,
	security_title   TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	amount           INTEGER,
	price            REAL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_natural_key ON trades(
	filing_id, transaction_date, security_title, transaction_type,
	IFNULL(amount, 'null'), IFNULL(price, 'null')
);

CREATE TABLE IF NOT EXISTS entities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	role       TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (name, role)
);

CREATE TABLE IF NOT EXISTS gov_trades (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id        INTEGER NOT NULL REFERENCES entities(id),
	transaction_date TEXT NOT NULL,
	security_title   TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	amount           INTEGER,
	price            REAL,
	source_url       TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_gov_trades_natural_key ON gov_trades(
	entity_id, transaction_date, security_title, transaction_type,
	IFNULL(amount, 'null'), IFNULL(price, 'null'), source_url
);

CREATE TABLE IF NOT EXISTS tracked_names (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	processed    INTEGER NOT NULL DEFAULT 0,
	inserted     INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_filings_insider ON filings(insider_name);
CREATE INDEX IF NOT EXISTS idx_trades_transaction_date ON trades(transaction_date);
CREATE INDEX IF NOT EXISTS idx_gov_trades_transaction_date ON gov_trades(transaction_date);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertFiling(ctx context.Context, f model.FilingRecord) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO filings (accession, insider_name, issuer_name, filing_date, source_url)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (accession) DO NOTHING`,
		f.Accession, f.InsiderName, f.IssuerName, f.FilingDate.Format(model.DateLayout), f.SourceURL,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert filing %s", f.Accession)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM filings WHERE accession = ?`, f.Accession).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, eris.Wrapf(ErrLookup, "sqlite: filing %s", f.Accession)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: lookup filing %s", f.Accession)
	}
	return id, nil
}

func (s *SQLiteStore) UpsertTrade(ctx context.Context, filingID int64, t model.TradeRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (filing_id, transaction_date, security_title, transaction_type, amount, price)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		filingID, t.TransactionDate.Format(model.DateLayout), t.SecurityTitle, t.TransactionType,
		nullInt(t.Amount), nullFloat(t.Price),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert trade for filing %d", filingID)
	}
	return inserted(res)
}

func (s *SQLiteStore) FilingByAccession(ctx context.Context, accession string) (*model.FilingRecord, error) {
	var f model.FilingRecord
	var filingDate string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, accession, insider_name, issuer_name, filing_date, source_url
		 FROM filings WHERE accession = ?`,
		accession,
	).Scan(&f.ID, &f.Accession, &f.InsiderName, &f.IssuerName, &filingDate, &f.SourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get filing %s", accession)
	}
	if f.FilingDate, err = time.Parse(model.DateLayout, filingDate); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse filing date %q", filingDate)
	}
	return &f, nil
}

func (s *SQLiteStore) UpsertEntity(ctx context.Context, e model.Entity) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (name, role, source_url) VALUES (?, ?, ?)
		 ON CONFLICT (name, role) DO NOTHING`,
		e.Name, e.Role, e.SourceURL,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert entity %s", e.Name)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM entities WHERE name = ? AND role = ?`, e.Name, e.Role).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, eris.Wrapf(ErrLookup, "sqlite: entity %s (%s)", e.Name, e.Role)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: lookup entity %s", e.Name)
	}
	return id, nil
}

func (s *SQLiteStore) UpsertGovTrade(ctx context.Context, entityID int64, t model.GovTradeRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO gov_trades (entity_id, transaction_date, security_title, transaction_type, amount, price, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		entityID, t.TransactionDate.Format(model.DateLayout), t.SecurityTitle, t.TransactionType,
		nullInt(t.Amount), nullFloat(t.Price), t.SourceURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert gov trade for entity %d", entityID)
	}
	return inserted(res)
}

func (s *SQLiteStore) Track(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return eris.New("sqlite: track: empty name")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tracked_names (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name)
	return eris.Wrapf(err, "sqlite: track %s", name)
}

func (s *SQLiteStore) Untrack(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracked_names WHERE name = ?`, name)
	return eris.Wrapf(err, "sqlite: untrack %s", name)
}

func (s *SQLiteStore) ListTracked(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tracked_names ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tracked")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tracked name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// The listing queries carry a trailing id so rows sharing a date keep insertion order.
const sqliteListTrades = `
SELECT f.insider_name, f.issuer_name, t.transaction_date, t.security_title, t.transaction_type,
       t.amount, t.price, f.source_url, (tn.name IS NOT NULL) AS is_tracked
FROM trades t
JOIN filings f ON f.id = t.filing_id
LEFT JOIN tracked_names tn ON tn.name = f.insider_name
ORDER BY is_tracked DESC, t.transaction_date DESC, t.id
LIMIT ?`

const sqliteListGovTrades = `
SELECT e.name, e.role, g.transaction_date, g.security_title, g.transaction_type,
       g.amount, g.price, g.source_url, (tn.name IS NOT NULL) AS is_tracked
FROM gov_trades g
JOIN entities e ON e.id = g.entity_id
LEFT JOIN tracked_names tn ON tn.name = e.name
ORDER BY is_tracked DESC, g.transaction_date DESC, g.id
LIMIT ?`

const sqliteListTrackedTrades = `
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

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]model.TradeView, error) {
	return s.listViews(ctx, model.SourceSEC, sqliteListTrades, listLimit(limit))
}

func (s *SQLiteStore) ListGovTrades(ctx context.Context, limit int) ([]model.TradeView, error) {
	return s.listViews(ctx, model.SourceGov, sqliteListGovTrades, listLimit(limit))
}

func (s *SQLiteStore) listViews(ctx context.Context, source, query string, limit int) ([]model.TradeView, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s trades", source)
	}
	defer rows.Close()

	var views []model.TradeView
	for rows.Next() {
		v := model.TradeView{Source: source}
		var tracked int64
		if err := scanView(rows, &v, &tracked); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s trade", source)
		}
		v.Tracked = tracked != 0
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *SQLiteStore) ListTrackedTrades(ctx context.Context) ([]model.TradeView, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListTrackedTrades)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tracked trades")
	}
	defer rows.Close()

	var views []model.TradeView
	for rows.Next() {
		v := model.TradeView{Tracked: true}
		if err := scanView(rows, &v, &v.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tracked trade")
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *SQLiteStore) StartRun(ctx context.Context, source string) (*model.RunSummary, error) {
	run := &model.RunSummary{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start run for %s", source)
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.RunSummary) error {
	now := time.Now().UTC()
	run.CompletedAt = &now

	var errMsg sql.NullString
	if run.Error != "" {
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs
		 SET status = ?, processed = ?, inserted = ?, failed = ?, skipped = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Processed, run.Inserted, run.Failed, run.Skipped, errMsg, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, processed, inserted, failed, skipped, error, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var status string
		var errStr sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Processed, &r.Inserted, &r.Failed, &r.Skipped,
			&errStr, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		r.Error = errStr.String
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// helpers

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

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanView reads the shared listing columns; last receives the ninth column
// (tracked flag or source tag).
func scanView(row scannable, v *model.TradeView, last any) error {
	var date string
	var amount sql.NullInt64
	var price sql.NullFloat64
	if err := row.Scan(&v.Name, &v.Context, &date, &v.SecurityTitle, &v.TransactionType,
		&amount, &price, &v.URL, last); err != nil {
		return err
	}
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return eris.Wrapf(err, "parse transaction date %q", date)
	}
	v.TransactionDate = t
	if amount.Valid {
		v.Amount = model.Int64(amount.Int64)
	}
	if price.Valid {
		v.Price = model.Float64(price.Float64)
	}
	return nil
}
