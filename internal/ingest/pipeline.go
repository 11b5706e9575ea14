// Package ingest runs fetched documents through extraction and persistence,
// and drives batch pulls over the source listings.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/extract"
	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/store"
)

const tracerName = "github.com/sells-group/tradewatch/internal/ingest"

// Document is one fetched page handed to the pipeline.
type Document struct {
	SourceID string
	URL      string
	Content  string
	Variant  model.Variant
	// Entity is the official named by the listing, when the document itself
	// may not carry the name.
	Entity *model.Entity
}

// Pipeline extracts canonical records from a document and persists them.
type Pipeline struct {
	store    store.Store
	registry *extract.Registry
	tracer   trace.Tracer
}

// NewPipeline creates a Pipeline writing to st. A nil registry selects every
// built-in extractor.
func NewPipeline(st store.Store, registry *extract.Registry) *Pipeline {
	if registry == nil {
		registry = extract.NewRegistry()
	}
	return &Pipeline{
		store:    st,
		registry: registry,
		tracer:   otel.Tracer(tracerName),
	}
}

// ProcessDocument extracts and persists one document. A document that does
// not match its variant yields an Outcome with NotApplicable set and no
// error. Extraction failures are *extract.ParseError; a filing or entity that
// cannot be read back after its upsert wraps store.ErrLookup.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc Document) (*model.Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.ProcessDocument", trace.WithAttributes(
		attribute.String("variant", string(doc.Variant)),
		attribute.String("source_id", doc.SourceID),
		attribute.String("url", doc.URL),
	))
	defer span.End()

	out, err := p.process(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	span.SetAttributes(
		attribute.Int("trades.extracted", out.TradesExtracted),
		attribute.Int("trades.inserted", out.TradesInserted),
		attribute.Bool("not_applicable", out.NotApplicable),
	)
	return out, nil
}

func (p *Pipeline) process(ctx context.Context, doc Document) (*model.Outcome, error) {
	out := &model.Outcome{Variant: doc.Variant, SourceID: doc.SourceID}

	ex, err := p.registry.Get(doc.Variant)
	if err != nil {
		return out, err
	}
	res, err := ex.Extract(extract.Source{
		ID:      doc.SourceID,
		URL:     doc.URL,
		Content: doc.Content,
		Entity:  doc.Entity,
	})
	if err != nil {
		return out, err
	}
	if res.NotApplicable {
		out.NotApplicable = true
		return out, nil
	}

	out.Confidence = res.Confidence
	out.AccessionSource = res.AccessionSource
	out.Dropped = res.Dropped
	out.TradesExtracted = len(res.Trades)

	log := zap.L().With(zap.String("variant", string(doc.Variant)), zap.String("url", doc.URL))

	switch {
	case res.Filing != nil:
		err = p.persistFiling(ctx, res, out)
	case res.Entity != nil:
		err = p.persistGov(ctx, doc.URL, res, out)
	default:
		err = eris.Errorf("ingest: %s extractor returned neither filing nor entity", doc.Variant)
	}
	if err != nil {
		return out, err
	}

	log.Debug("ingest: document processed",
		zap.Int("extracted", out.TradesExtracted),
		zap.Int("inserted", out.TradesInserted),
		zap.Any("dropped", out.Dropped),
	)
	return out, nil
}

func (p *Pipeline) persistFiling(ctx context.Context, res *extract.Result, out *model.Outcome) error {
	filingID, err := p.store.UpsertFiling(ctx, *res.Filing)
	if err != nil {
		return eris.Wrapf(err, "ingest: upsert filing %s", res.Filing.Accession)
	}
	out.FilingID = filingID
	out.Accession = res.Filing.Accession

	for _, t := range res.Trades {
		if p.dropZero(t, out) {
			continue
		}
		ok, err := p.store.UpsertTrade(ctx, filingID, t)
		if err != nil {
			return eris.Wrapf(err, "ingest: upsert trade for filing %d", filingID)
		}
		if ok {
			out.TradesInserted++
		}
	}
	return nil
}

func (p *Pipeline) persistGov(ctx context.Context, docURL string, res *extract.Result, out *model.Outcome) error {
	entityID, err := p.store.UpsertEntity(ctx, *res.Entity)
	if err != nil {
		return eris.Wrapf(err, "ingest: upsert entity %q", res.Entity.Name)
	}
	out.EntityID = entityID

	for _, t := range res.Trades {
		if p.dropZero(t, out) {
			continue
		}
		ok, err := p.store.UpsertGovTrade(ctx, entityID, model.GovTradeRecord{TradeRecord: t, SourceURL: docURL})
		if err != nil {
			return eris.Wrapf(err, "ingest: upsert gov trade for entity %d", entityID)
		}
		if ok {
			out.TradesInserted++
		}
	}
	return nil
}

// dropZero guards the store against zero-valued trades that slipped past an
// extractor.
func (p *Pipeline) dropZero(t model.TradeRecord, out *model.Outcome) bool {
	if !t.IsZeroValued() {
		return false
	}
	if out.Dropped == nil {
		out.Dropped = make(map[model.DropReason]int)
	}
	out.Dropped[model.DropZeroValue]++
	out.TradesExtracted--
	return true
}
