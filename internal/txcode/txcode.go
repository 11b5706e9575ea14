// Package txcode maps single-letter Form 4 transaction codes to labels.
package txcode

import "strings"

var labels = map[string]string{
	"P": "Purchase",
	"S": "Sale",
	"A": "Award/Grant",
	"D": "Disposition",
	"G": "Gift",
	"F": "Payment of Taxes",
	"M": "Option Exercise",
	"C": "Conversion",
	"W": "Will/Inheritance",
	"X": "Exercise (Same-Day)",
	"O": "Other",
	"E": "Expiration",
	"H": "Non-Market Transfer",
	"I": "Discretionary Transaction",
	"L": "Small Acquisition",
	"R": "Return Transaction",
	"T": "Related Transaction",
	"J": "Other (Unclassified)",
}

// Lookup returns the label for code. Codes outside the table report false.
func Lookup(code string) (string, bool) {
	label, ok := labels[strings.TrimSpace(code)]
	return label, ok
}

// Len returns the number of known codes.
func Len() int { return len(labels) }
