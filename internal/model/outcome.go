package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Variant selects the extractor used for a document. It is chosen by the
// caller from the source identity, never sniffed from content.
type Variant string

const (
	VariantForm4XML    Variant = "form4_xml"
	VariantHouseHTML   Variant = "house_html"
	VariantSenateTable Variant = "senate_table"
)

// ParseVariant converts a CLI/config string into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantForm4XML, VariantHouseHTML, VariantSenateTable:
		return Variant(s), nil
	case "form4", "xml":
		return VariantForm4XML, nil
	case "house":
		return VariantHouseHTML, nil
	case "senate":
		return VariantSenateTable, nil
	default:
		return "", eris.Errorf("unknown variant: %q (valid: form4_xml, house_html, senate_table)", s)
	}
}

// DropReason names why a single trade line was discarded.
type DropReason string

const (
	DropFieldMissing DropReason = "field_missing"
	DropUnknownCode  DropReason = "unknown_code"
	DropZeroValue    DropReason = "zero_value"
)

// AccessionSource records where the persisted accession came from.
type AccessionSource string

const (
	AccessionFromCaller   AccessionSource = "caller"
	AccessionFromEmbedded AccessionSource = "embedded"
)

// Confidence grades how the columns of a heuristic row were attributed.
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"     // structured source, fields read by name or fixed role
	ConfidenceHeuristic Confidence = "heuristic" // every role matched a content rule
	ConfidenceFallback  Confidence = "fallback"  // at least one role fell back to a raw column position
)

// Outcome is the result of processing one document.
type Outcome struct {
	Variant         Variant            `json:"variant"`
	SourceID        string             `json:"source_id"`
	NotApplicable   bool               `json:"not_applicable,omitempty"`
	FilingID        int64              `json:"filing_id,omitempty"`
	EntityID        int64              `json:"entity_id,omitempty"`
	Accession       string             `json:"accession,omitempty"`
	AccessionSource AccessionSource    `json:"accession_source,omitempty"`
	TradesExtracted int                `json:"trades_extracted"`
	TradesInserted  int                `json:"trades_inserted"`
	Dropped         map[DropReason]int `json:"dropped,omitempty"`
	Confidence      Confidence         `json:"confidence,omitempty"`
}

// RunStatus is the state of a batch ingestion run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is one row of the ingestion run log.
type RunSummary struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Status      RunStatus  `json:"status"`
	Processed   int        `json:"processed"`
	Inserted    int        `json:"inserted"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
