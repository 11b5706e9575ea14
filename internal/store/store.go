// Package store persists filings, government disclosures and the tracked-name
// overlay. Every write is an insert-if-absent keyed by the record's natural
// key, so re-ingesting a document is a no-op.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradewatch/internal/model"
)

// DefaultListLimit caps dashboard listings when the caller passes no limit.
const DefaultListLimit = 1000

// ErrLookup reports that a filing or entity could not be found right after
// its insert-if-absent. It signals an inconsistent store, not a duplicate.
var ErrLookup = eris.New("store: row missing after upsert")

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Form 4 filings
	UpsertFiling(ctx context.Context, f model.FilingRecord) (int64, error)
	UpsertTrade(ctx context.Context, filingID int64, t model.TradeRecord) (bool, error)
	FilingByAccession(ctx context.Context, accession string) (*model.FilingRecord, error)

	// Government disclosures
	UpsertEntity(ctx context.Context, e model.Entity) (int64, error)
	UpsertGovTrade(ctx context.Context, entityID int64, t model.GovTradeRecord) (bool, error)

	// Tracking overlay
	Track(ctx context.Context, name string) error
	Untrack(ctx context.Context, name string) error
	ListTracked(ctx context.Context) ([]string, error)
	ListTrades(ctx context.Context, limit int) ([]model.TradeView, error)
	ListGovTrades(ctx context.Context, limit int) ([]model.TradeView, error)
	ListTrackedTrades(ctx context.Context) ([]model.TradeView, error)

	// Ingest runs
	StartRun(ctx context.Context, source string) (*model.RunSummary, error)
	FinishRun(ctx context.Context, run *model.RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
