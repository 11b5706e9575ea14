package normalize

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	isoLayout = "2006-01-02"
	usLayout  = "1/2/2006"
)

// ISODate parses the date portion (first 10 characters) of s as YYYY-MM-DD.
// Timestamps such as "2024-03-15T00:00:00" or "2024-03-15-05:00" reduce to their date.
func ISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "normalize: parse iso date %q", s)
	}
	return t, nil
}

// USDate parses an MM/DD/YYYY date; single-digit months and days are accepted.
func USDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(usLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "normalize: parse us date %q", s)
	}
	return t, nil
}

// AnyDate accepts either YYYY-MM-DD or MM/DD/YYYY.
func AnyDate(s string) (time.Time, error) {
	if t, err := USDate(s); err == nil {
		return t, nil
	}
	return ISODate(s)
}
