package model

import "time"

// DateLayout is the canonical calendar-date format used across the pipeline.
const DateLayout = "2006-01-02"

// FilingRecord is one regulatory ownership filing (Form 4).
type FilingRecord struct {
	ID          int64     `json:"id,omitempty"`
	Accession   string    `json:"accession"`
	InsiderName string    `json:"insider_name"`
	IssuerName  string    `json:"issuer_name"`
	FilingDate  time.Time `json:"filing_date"`
	SourceURL   string    `json:"source_url"`
}

// TradeRecord is one transaction line inside a filing or disclosure.
// Amount and Price are nil when the source left them blank.
type TradeRecord struct {
	TransactionDate time.Time `json:"transaction_date"`
	SecurityTitle   string    `json:"security_title"`
	TransactionType string    `json:"transaction_type"`
	Amount          *int64    `json:"amount,omitempty"`
	Price           *float64  `json:"price,omitempty"`
}

// IsZeroValued reports whether the amount or price is present and exactly zero.
// Such trades carry no information and are never persisted.
func (t TradeRecord) IsZeroValued() bool {
	if t.Amount != nil && *t.Amount == 0 {
		return true
	}
	return t.Price != nil && *t.Price == 0
}

// Entity identifies an insider or government official. Name and Role form
// the natural key.
type Entity struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	SourceURL string `json:"source_url,omitempty"`
}

// GovTradeRecord is a trade reported on a government disclosure system. The
// source URL is part of its natural key.
type GovTradeRecord struct {
	TradeRecord
	SourceURL string `json:"source_url"`
}

// TradeView is a listing row joined with its owner and the tracking overlay.
type TradeView struct {
	Name            string    `json:"name"`
	Context         string    `json:"context"` // issuer for SEC rows, role for government rows
	TransactionDate time.Time `json:"transaction_date"`
	SecurityTitle   string    `json:"security_title"`
	TransactionType string    `json:"transaction_type"`
	Amount          *int64    `json:"amount,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	Tracked         bool      `json:"tracked"`
}

// Listing sources.
const (
	SourceSEC = "SEC"
	SourceGov = "GOV"
)

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
