package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tradewatch/internal/ingest"
	"github.com/sells-group/tradewatch/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Process a saved document",
	Long:  "Runs one locally saved page through extraction and persistence with an explicit variant (form4_xml, house_html, senate_table).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := documentFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, err := ingest.NewPipeline(st, nil).ProcessDocument(ctx, doc)
		if err != nil {
			return eris.Wrapf(err, "ingest %s", args[0])
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

// documentFromFlags reads path and builds the document the flags describe.
// The source id defaults to the file name and the URL to a file:// URL.
func documentFromFlags(cmd *cobra.Command, path string) (ingest.Document, error) {
	variantFlag, _ := cmd.Flags().GetString("variant")
	sourceID, _ := cmd.Flags().GetString("source-id")
	docURL, _ := cmd.Flags().GetString("url")
	name, _ := cmd.Flags().GetString("official")
	role, _ := cmd.Flags().GetString("role")

	variant, err := model.ParseVariant(variantFlag)
	if err != nil {
		return ingest.Document{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ingest.Document{}, eris.Wrapf(err, "read %s", path)
	}

	if sourceID == "" {
		sourceID = filepath.Base(path)
	}
	if docURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return ingest.Document{}, eris.Wrapf(err, "resolve %s", path)
		}
		docURL = "file://" + filepath.ToSlash(abs)
	}

	doc := ingest.Document{
		SourceID: sourceID,
		URL:      docURL,
		Content:  string(content),
		Variant:  variant,
	}
	if name != "" {
		if role == "" {
			return ingest.Document{}, eris.New("--role is required with --official")
		}
		doc.Entity = &model.Entity{Name: name, Role: role, SourceURL: docURL}
	}
	return doc, nil
}

func addIngestFlags(c *cobra.Command) {
	c.Flags().String("variant", "", "document variant: form4_xml, house_html or senate_table")
	c.Flags().String("source-id", "", "caller identifier, e.g. the feed accession (default: file name)")
	c.Flags().String("url", "", "document URL recorded with the trades (default: file URL)")
	c.Flags().String("official", "", "official name when the page does not carry it")
	c.Flags().String("role", "", "official role, required with --official")
}

func init() {
	addIngestFlags(ingestCmd)
	_ = ingestCmd.MarkFlagRequired("variant")
	rootCmd.AddCommand(ingestCmd)
}
