package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/fetcher"
	"github.com/sells-group/tradewatch/internal/ingest"
	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/store"
	"github.com/sells-group/tradewatch/internal/telemetry"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull disclosures from a source listing",
	Long:  "Walks a source listing, fetches every advertised document and stores the trades it contains. Failed documents are logged and counted; the run continues.",
}

var pullForm4Cmd = &cobra.Command{
	Use:   "form4",
	Short: "Pull Form 4 filings from the EDGAR current-events feed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pages, _ := cmd.Flags().GetInt("pages")
		if pages <= 0 {
			pages = cfg.Sources.Form4Pages
		}
		return runPull(cmd, func(ctx context.Context, r *ingest.Runner) (*model.RunSummary, error) {
			return r.RunForm4(ctx, pages)
		})
	},
}

var pullHouseCmd = &cobra.Command{
	Use:   "house",
	Short: "Pull House periodic transaction reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Sources.HouseLimit
		}
		return runPull(cmd, func(ctx context.Context, r *ingest.Runner) (*model.RunSummary, error) {
			return r.RunHouse(ctx, limit)
		})
	},
}

var pullSenateCmd = &cobra.Command{
	Use:   "senate",
	Short: "Pull Senate eFD periodic transaction reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Sources.SenateLimit
		}
		return runPull(cmd, func(ctx context.Context, r *ingest.Runner) (*model.RunSummary, error) {
			return r.RunSenate(ctx, limit)
		})
	},
}

func runPull(cmd *cobra.Command, run func(context.Context, *ingest.Runner) (*model.RunSummary, error)) error {
	if err := cfg.Validate("pull"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracer("tradewatch", cfg.Trace.Enabled, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			zap.L().Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	summary, err := run(ctx, newRunner(st))
	if summary != nil {
		if werr := writeJSON(cmd.OutOrStdout(), summary); werr != nil {
			return werr
		}
	}
	return err
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:     cfg.Fetch.MaxRetries,
		InitialBackoff: cfg.Fetch.InitialBackoff,
		HostRate:       cfg.Fetch.HostRateMap(),
	})
}

func newRunner(st store.Store) *ingest.Runner {
	return ingest.NewRunner(ingest.NewPipeline(st, nil), newFetcher(), st, ingest.Sources{
		Form4FeedTemplate: cfg.Sources.Form4FeedTemplate,
		Form4PageSize:     cfg.Sources.Form4PageSize,
		HouseListURL:      cfg.Sources.HouseListURL,
		SenateResultsURL:  cfg.Sources.SenateResultsURL,
		SenateBaseURL:     cfg.Sources.SenateBaseURL,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

func init() {
	pullForm4Cmd.Flags().Int("pages", 0, "feed pages to walk (default from config)")
	pullHouseCmd.Flags().Int("limit", 0, "maximum reports to process (default from config)")
	pullSenateCmd.Flags().Int("limit", 0, "maximum reports to process (default from config)")

	pullCmd.AddCommand(pullForm4Cmd, pullHouseCmd, pullSenateCmd)
	rootCmd.AddCommand(pullCmd)
}
