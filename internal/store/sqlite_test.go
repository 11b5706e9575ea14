package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradewatch/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// --- Filings ---

func TestSQLite_UpsertFiling_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id1, err := st.UpsertFiling(ctx, testFiling())
	require.NoError(t, err)

	changed := testFiling()
	changed.InsiderName = "Someone Else"
	id2, err := st.UpsertFiling(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := st.FilingByAccession(ctx, testFiling().Accession)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.InsiderName, "first write wins")
	assert.Equal(t, "2024-03-15", got.FilingDate.Format(model.DateLayout))
}

func TestSQLite_UpsertTrade_UnknownFiling(t *testing.T) {
	st := newTestSQLiteStore(t)

	ok, err := st.UpsertTrade(context.Background(), 999, testTrade())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "FOREIGN KEY")

	views, err := st.ListTrades(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSQLite_UpsertGovTrade_UnknownEntity(t *testing.T) {
	st := newTestSQLiteStore(t)

	ok, err := st.UpsertGovTrade(context.Background(), 999, model.GovTradeRecord{
		TradeRecord: testTrade(),
		SourceURL:   "https://efd/1",
	})
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"/tmp/a.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		sqliteDSN("/tmp/a.db"))
	assert.Equal(t,
		"file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		sqliteDSN("file:a.db?mode=rwc"))
}

func TestSQLite_FilingByAccession_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.FilingByAccession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Migrate_Twice(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

// --- Trades ---

func TestSQLite_UpsertTrade_Dedup(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fid, err := st.UpsertFiling(ctx, testFiling())
	require.NoError(t, err)

	ok, err := st.UpsertTrade(ctx, fid, testTrade())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.UpsertTrade(ctx, fid, testTrade())
	require.NoError(t, err)
	assert.False(t, ok, "same natural key is a no-op")

	other := testTrade()
	other.Amount = model.Int64(101)
	ok, err = st.UpsertTrade(ctx, fid, other)
	require.NoError(t, err)
	assert.True(t, ok, "different amount is a different trade")

	views, err := st.ListTrades(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestSQLite_UpsertTrade_NullsDedupAsEqual(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fid, err := st.UpsertFiling(ctx, testFiling())
	require.NoError(t, err)

	tr := testTrade()
	tr.Price = nil

	ok, err := st.UpsertTrade(ctx, fid, tr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.UpsertTrade(ctx, fid, tr)
	require.NoError(t, err)
	assert.False(t, ok)

	views, err := st.ListTrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Price)
	assert.Equal(t, int64(100), *views[0].Amount)
}

// --- Government trades ---

func TestSQLite_GovTrades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e := model.Entity{Name: "Jane Doe", Role: "Senate PTR", SourceURL: "https://efd/1"}
	eid, err := st.UpsertEntity(ctx, e)
	require.NoError(t, err)

	again, err := st.UpsertEntity(ctx, model.Entity{Name: "Jane Doe", Role: "Senate PTR"})
	require.NoError(t, err)
	assert.Equal(t, eid, again)

	otherRole, err := st.UpsertEntity(ctx, model.Entity{Name: "Jane Doe", Role: "House PTR"})
	require.NoError(t, err)
	assert.NotEqual(t, eid, otherRole)

	gt := model.GovTradeRecord{
		TradeRecord: model.TradeRecord{
			TransactionDate: day("2024-03-14"),
			SecurityTitle:   "Apple Inc. (AAPL)",
			TransactionType: "Purchase",
			Amount:          model.Int64(8000),
		},
		SourceURL: "https://efd/1",
	}
	ok, err := st.UpsertGovTrade(ctx, eid, gt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.UpsertGovTrade(ctx, eid, gt)
	require.NoError(t, err)
	assert.False(t, ok)

	gt.SourceURL = "https://efd/2"
	ok, err = st.UpsertGovTrade(ctx, eid, gt)
	require.NoError(t, err)
	assert.True(t, ok, "source url is part of the key")

	views, err := st.ListGovTrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.SourceGov, views[0].Source)
	assert.Equal(t, "Senate PTR", views[0].Context)
}

// --- Tracking overlay ---

func TestSQLite_TrackUntrack(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Track(ctx, "Jane Doe"))
	require.NoError(t, st.Track(ctx, "Jane Doe"))
	require.NoError(t, st.Track(ctx, "Alan Smith"))

	names, err := st.ListTracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Smith", "Jane Doe"}, names)

	require.NoError(t, st.Untrack(ctx, "Jane Doe"))
	require.NoError(t, st.Untrack(ctx, "Jane Doe"))

	names, err = st.ListTracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alan Smith"}, names)

	assert.Error(t, st.Track(ctx, ""))
}

func TestSQLite_ListTrades_TrackedFirstThenDateDesc(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seed := []struct {
		accession, insider, date string
	}{
		{"a1", "Jane Doe", "2024-01-10"},
		{"a2", "John Roe", "2024-03-01"},
		{"a3", "Jane Doe", "2024-02-20"},
		{"a4", "Ann Lee", "2024-02-01"},
	}
	for _, s := range seed {
		f := testFiling()
		f.Accession = s.accession
		f.InsiderName = s.insider
		fid, err := st.UpsertFiling(ctx, f)
		require.NoError(t, err)

		tr := testTrade()
		tr.TransactionDate = day(s.date)
		_, err = st.UpsertTrade(ctx, fid, tr)
		require.NoError(t, err)
	}
	require.NoError(t, st.Track(ctx, "Jane Doe"))

	views, err := st.ListTrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 4)

	var order []string
	for _, v := range views {
		order = append(order, v.Name+"@"+v.TransactionDate.Format(model.DateLayout))
	}
	assert.Equal(t, []string{
		"Jane Doe@2024-02-20",
		"Jane Doe@2024-01-10",
		"John Roe@2024-03-01",
		"Ann Lee@2024-02-01",
	}, order)
	assert.True(t, views[0].Tracked)
	assert.True(t, views[1].Tracked)
	assert.False(t, views[2].Tracked)

	limited, err := st.ListTrades(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, st.Untrack(ctx, "Jane Doe"))
	views, err = st.ListTrades(ctx, 0)
	require.NoError(t, err)
	order = order[:0]
	for _, v := range views {
		order = append(order, v.Name+"@"+v.TransactionDate.Format(model.DateLayout))
		assert.False(t, v.Tracked)
	}
	assert.Equal(t, []string{
		"John Roe@2024-03-01",
		"Jane Doe@2024-02-20",
		"Ann Lee@2024-02-01",
		"Jane Doe@2024-01-10",
	}, order)
}

func TestSQLite_ListTrackedTrades_MergesSources(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fid, err := st.UpsertFiling(ctx, testFiling())
	require.NoError(t, err)
	_, err = st.UpsertTrade(ctx, fid, testTrade()) // 2024-03-14
	require.NoError(t, err)

	eid, err := st.UpsertEntity(ctx, model.Entity{Name: "Jane Doe", Role: "House PTR"})
	require.NoError(t, err)
	_, err = st.UpsertGovTrade(ctx, eid, model.GovTradeRecord{
		TradeRecord: model.TradeRecord{
			TransactionDate: day("2024-04-01"),
			SecurityTitle:   "Acme Corp Common Stock",
			TransactionType: "Sale",
			Amount:          model.Int64(2500),
		},
		SourceURL: "https://house/1",
	})
	require.NoError(t, err)

	untracked, err := st.UpsertEntity(ctx, model.Entity{Name: "Bob Roe", Role: "House PTR"})
	require.NoError(t, err)
	_, err = st.UpsertGovTrade(ctx, untracked, model.GovTradeRecord{
		TradeRecord: model.TradeRecord{
			TransactionDate: day("2024-05-01"),
			SecurityTitle:   "Beta Inc",
			TransactionType: "Purchase",
			Amount:          model.Int64(5000),
		},
		SourceURL: "https://house/2",
	})
	require.NoError(t, err)

	views, err := st.ListTrackedTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	require.NoError(t, st.Track(ctx, "Jane Doe"))
	views, err = st.ListTrackedTrades(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, model.SourceGov, views[0].Source)
	assert.Equal(t, "2024-04-01", views[0].TransactionDate.Format(model.DateLayout))
	assert.Equal(t, model.SourceSEC, views[1].Source)
	assert.Equal(t, "Acme Corp", views[1].Context)
	for _, v := range views {
		assert.True(t, v.Tracked)
	}
}

// --- Runs ---

func TestSQLite_Runs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.StartRun(ctx, "senate")
	require.NoError(t, err)

	run.Status = model.RunStatusComplete
	run.Processed, run.Inserted, run.Failed, run.Skipped = 4, 3, 1, 0
	require.NoError(t, st.FinishRun(ctx, run))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "senate", runs[0].Source)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 3, runs[0].Inserted)
	assert.Empty(t, runs[0].Error)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestSQLite_FinishRun_Unknown(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), &model.RunSummary{ID: "missing", Status: model.RunStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}
