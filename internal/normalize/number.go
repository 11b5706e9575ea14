// Package normalize reduces currency and number-like strings from disclosure
// documents to signed integers and floats, and parses the date shapes those
// documents use.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Int normalizes raw into an integer, truncating toward zero.
// It returns nil for nil input, empty strings and anything with non-numeric residue.
func Int(raw any) *int64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case int:
		n := int64(v)
		return &n
	case int32:
		n := int64(v)
		return &n
	case int64:
		return &v
	}

	f, ok := parse(raw)
	if !ok || f >= math.MaxInt64 || f <= math.MinInt64 {
		return nil
	}
	n := int64(math.Trunc(f))
	return &n
}

// Float normalizes raw into a float64. It returns nil when raw cannot be parsed.
func Float(raw any) *float64 {
	f, ok := parse(raw)
	if !ok {
		return nil
	}
	return &f
}

// Normalize is a convenience wrapper over Int and Float for callers that pick
// the numeric type at run time. It returns an int64 when asInteger is set and
// a float64 otherwise, or nil on failure. Extractors call Int and Float directly.
func Normalize(raw any, asInteger bool) any {
	if asInteger {
		if n := Int(raw); n != nil {
			return *n
		}
		return nil
	}
	if f := Float(raw); f != nil {
		return *f
	}
	return nil
}

// FormatFloat renders f in the shortest form that parses back to f.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parse(raw any) (float64, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, finite(v)
	case float32:
		return float64(v), finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s = v
	case []byte:
		s = string(v)
	case *string:
		if v == nil {
			return 0, false
		}
		s = *v
	default:
		return 0, false
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))

	neg := false
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RangeMidpoint reduces a dollar range such as "$1,001 - $15,000" to the
// arithmetic midpoint of its bounds, rounded to 2 decimal places.
// It reports false when s is not a two-sided numeric range.
func RangeMidpoint(s string) (float64, bool) {
	lowRaw, highRaw, found := strings.Cut(s, "-")
	if !found {
		return 0, false
	}

	low, err := decimal.NewFromString(stripCurrency(lowRaw))
	if err != nil {
		return 0, false
	}
	high, err := decimal.NewFromString(stripCurrency(highRaw))
	if err != nil {
		return 0, false
	}

	mid := low.Add(high).Div(decimal.NewFromInt(2)).Round(2)
	f, _ := mid.Float64()
	return f, true
}

func stripCurrency(s string) string {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}
