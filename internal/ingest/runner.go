package ingest

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/extract"
	"github.com/sells-group/tradewatch/internal/feed"
	"github.com/sells-group/tradewatch/internal/fetcher"
	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/store"
)

// Run sources recorded in the ingest run log.
const (
	SourceForm4  = "form4"
	SourceHouse  = "house"
	SourceSenate = "senate"
)

// Sources locates the listing pages the runner walks.
type Sources struct {
	Form4FeedTemplate string // fmt template taking start and count
	Form4PageSize     int
	HouseListURL      string
	SenateResultsURL  string
	SenateBaseURL     string // report links are resolved against this
}

func (s Sources) withDefaults() Sources {
	if s.Form4FeedTemplate == "" {
		s.Form4FeedTemplate = feed.DefaultForm4FeedTemplate
	}
	if s.Form4PageSize <= 0 {
		s.Form4PageSize = 100
	}
	if s.HouseListURL == "" {
		s.HouseListURL = feed.DefaultHouseListURL
	}
	if s.SenateBaseURL == "" {
		s.SenateBaseURL = feed.DefaultSenateBaseURL
	}
	if s.SenateResultsURL == "" {
		s.SenateResultsURL = s.SenateBaseURL + "/search/"
	}
	return s
}

// Runner walks a source listing and feeds each advertised document through
// the pipeline, one at a time. A failed fetch or document is logged and
// counted; the run always continues.
type Runner struct {
	pipeline *Pipeline
	fetcher  fetcher.Fetcher
	store    store.Store
	sources  Sources
}

// NewRunner creates a Runner.
func NewRunner(p *Pipeline, f fetcher.Fetcher, st store.Store, sources Sources) *Runner {
	return &Runner{
		pipeline: p,
		fetcher:  f,
		store:    st,
		sources:  sources.withDefaults(),
	}
}

// batch is the state of one run.
type batch struct {
	run     *model.RunSummary
	visited map[string]struct{}
	log     *zap.Logger
}

// RunForm4 walks the given number of EDGAR current-events feed pages.
func (r *Runner) RunForm4(ctx context.Context, pages int) (*model.RunSummary, error) {
	return r.execute(ctx, SourceForm4, func(b *batch) error {
		for i := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			pageURL := feed.Form4PageURL(r.sources.Form4FeedTemplate, i, r.sources.Form4PageSize)
			page, err := r.fetchListing(ctx, b, pageURL)
			if err != nil {
				continue
			}
			links, err := feed.ParseForm4Feed(page)
			if err != nil {
				b.listingFailed(pageURL, err)
				continue
			}
			b.log.Info("ingest: form4 feed page", zap.Int("page", i+1), zap.Int("links", len(links)))
			for _, l := range links {
				r.processLink(ctx, b, Document{SourceID: l.Href, URL: l.URL, Variant: model.VariantForm4XML})
			}
		}
		return nil
	})
}

// RunHouse processes up to limit disclosures from the House PTR list.
func (r *Runner) RunHouse(ctx context.Context, limit int) (*model.RunSummary, error) {
	return r.execute(ctx, SourceHouse, func(b *batch) error {
		page, err := r.fetchListing(ctx, b, r.sources.HouseListURL)
		if err != nil {
			return nil
		}
		links, err := feed.ParseHouseList(page, limit)
		if err != nil {
			b.listingFailed(r.sources.HouseListURL, err)
			return nil
		}
		for _, l := range links {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.processLink(ctx, b, Document{SourceID: l.Href, URL: l.URL, Variant: model.VariantHouseHTML})
		}
		return nil
	})
}

// RunSenate processes up to limit reports from the eFD results table. The
// listing names the official, so each report is processed with that
// identity.
func (r *Runner) RunSenate(ctx context.Context, limit int) (*model.RunSummary, error) {
	return r.execute(ctx, SourceSenate, func(b *batch) error {
		page, err := r.fetchListing(ctx, b, r.sources.SenateResultsURL)
		if err != nil {
			return nil
		}
		reports, err := feed.ParseSenateResults(page, r.sources.SenateBaseURL, limit)
		if err != nil {
			b.listingFailed(r.sources.SenateResultsURL, err)
			return nil
		}
		for _, rep := range reports {
			if err := ctx.Err(); err != nil {
				return err
			}
			role := rep.Office
			if role == "" {
				role = extract.SenateRole
			}
			r.processLink(ctx, b, Document{
				SourceID: rep.Link.Href,
				URL:      rep.Link.URL,
				Variant:  model.VariantSenateTable,
				Entity:   &model.Entity{Name: rep.Name(), Role: role, SourceURL: r.sources.SenateBaseURL},
			})
		}
		return nil
	})
}

func (r *Runner) execute(ctx context.Context, source string, walk func(*batch) error) (*model.RunSummary, error) {
	run, err := r.store.StartRun(ctx, source)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: start %s run", source)
	}
	b := &batch{
		run:     run,
		visited: make(map[string]struct{}),
		log:     zap.L().With(zap.String("source", source), zap.String("run_id", run.ID)),
	}
	b.log.Info("ingest: run started")

	walkErr := walk(b)
	run.Status = model.RunStatusComplete
	if walkErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = walkErr.Error()
	}

	if err := r.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		b.log.Error("ingest: failed to record run", zap.Error(err))
		if walkErr == nil {
			walkErr = eris.Wrapf(err, "ingest: finish %s run", source)
		}
	}

	b.log.Info("ingest: run finished",
		zap.String("status", string(run.Status)),
		zap.Int("processed", run.Processed),
		zap.Int("inserted", run.Inserted),
		zap.Int("failed", run.Failed),
		zap.Int("skipped", run.Skipped),
	)
	return run, walkErr
}

func (r *Runner) fetchListing(ctx context.Context, b *batch, listURL string) (string, error) {
	page, err := r.fetcher.Fetch(ctx, listURL)
	if err != nil {
		b.listingFailed(listURL, err)
		return "", err
	}
	return page, nil
}

func (b *batch) listingFailed(listURL string, err error) {
	b.run.Failed++
	b.log.Warn("ingest: listing unavailable", zap.String("url", listURL), zap.Error(err))
}

// processLink fetches and processes one document. Each URL is handled at
// most once per run.
func (r *Runner) processLink(ctx context.Context, b *batch, doc Document) {
	if _, seen := b.visited[doc.URL]; seen {
		b.run.Skipped++
		return
	}
	b.visited[doc.URL] = struct{}{}

	log := b.log.With(zap.String("url", doc.URL))

	content, err := r.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		b.run.Failed++
		log.Warn("ingest: fetch failed", zap.Bool("timeout", fetcher.IsTimeout(err)), zap.Error(err))
		return
	}
	doc.Content = content

	b.run.Processed++
	out, err := r.pipeline.ProcessDocument(ctx, doc)
	if err != nil {
		b.run.Failed++
		switch {
		case extract.IsParseFailure(err):
			log.Warn("ingest: document could not be parsed", zap.Error(err))
		case errors.Is(err, store.ErrLookup):
			log.Error("ingest: store inconsistency", zap.Error(err))
		default:
			log.Error("ingest: document failed", zap.Error(err))
		}
		return
	}
	if out.NotApplicable {
		b.run.Skipped++
		log.Debug("ingest: document not applicable")
		return
	}
	b.run.Inserted += out.TradesInserted
}
