// Package extract turns fetched disclosure documents into canonical filing,
// entity and trade records. Each document shape has its own Extractor,
// selected explicitly by the caller through model.Variant.
package extract

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradewatch/internal/model"
)

// Source is one fetched document.
type Source struct {
	// ID is the caller's identifier for the document. For Form 4 filings this
	// is the accession the feed advertised; the extractor may override it.
	ID      string
	URL     string
	Content string
	// Entity optionally identifies the official when the listing page, not
	// the document itself, carries the name (Senate eFD).
	Entity *model.Entity
}

// Result is what one document yielded.
type Result struct {
	// NotApplicable is set when the document does not have the shape of its
	// declared variant. It is a valid, empty outcome.
	NotApplicable bool

	Filing *model.FilingRecord // Form 4 only
	Entity *model.Entity       // government variants only
	Trades []model.TradeRecord

	AccessionSource model.AccessionSource
	Confidence      model.Confidence
	Dropped         map[model.DropReason]int
}

func newResult() *Result {
	return &Result{Dropped: make(map[model.DropReason]int)}
}

func (r *Result) drop(reason model.DropReason) {
	r.Dropped[reason]++
}

// Extractor reduces one document shape to canonical records.
type Extractor interface {
	Variant() model.Variant
	Extract(src Source) (*Result, error)
}

// ParseError reports a document that could not be coerced: malformed XML or
// HTML, an unparseable date or number, or a missing document-level field.
// It aborts extraction of that document only.
type ParseError struct {
	Variant model.Variant
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Variant, e.Field)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Variant, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseFailure reports whether err (or anything it wraps) is a ParseError.
func IsParseFailure(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func parseErr(v model.Variant, field string, err error) error {
	return &ParseError{Variant: v, Field: field, Err: err}
}

// Registry maps variants to their extractors.
type Registry struct {
	extractors map[model.Variant]Extractor
}

// NewRegistry returns a registry holding all known variants.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[model.Variant]Extractor)}
	r.Register(&Form4XML{})
	r.Register(&HouseHTML{})
	r.Register(&SenateTable{})
	return r
}

// Register adds or replaces the extractor for its variant.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Variant()] = e
}

// Get returns the extractor registered for v.
func (r *Registry) Get(v model.Variant) (Extractor, error) {
	e, ok := r.extractors[v]
	if !ok {
		return nil, eris.Errorf("extract: no extractor for variant %q", v)
	}
	return e, nil
}
