package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"currency", "$1,234.50", ptrF(1234.50)},
		{"plain", "10.50", ptrF(10.5)},
		{"padded", "  42 ", ptrF(42)},
		{"parenthesized", "(500)", ptrF(-500)},
		{"parenthesized currency", "($1,000.25)", ptrF(-1000.25)},
		{"numeric input", 7, ptrF(7)},
		{"float input", 2.5, ptrF(2.5)},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"nil", nil, nil},
		{"residue", "12abc", nil},
		{"na", "N/A", nil},
		{"nan", "NaN", nil},
		{"unsupported type", struct{}{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Float(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *int64
	}{
		{"parenthesized", "(500)", ptrI(-500)},
		{"thousands", "1,500", ptrI(1500)},
		{"truncates", "99.99", ptrI(99)},
		{"truncates toward zero", "(99.99)", ptrI(-99)},
		{"int input", 100, ptrI(100)},
		{"int64 input", int64(1 << 40), ptrI(1 << 40)},
		{"float input", 12.9, ptrI(12)},
		{"empty", "", nil},
		{"nil", nil, nil},
		{"garbage", "--", nil},
		{"overflow", "1e30", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Int(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 1234.50, Normalize("$1,234.50", false))
	assert.Equal(t, int64(-500), Normalize("(500)", true))
	assert.Nil(t, Normalize("", true))
	assert.Nil(t, Normalize("", false))
	assert.Nil(t, Normalize(nil, false))
}

func TestNormalize_IdempotentUnderReparse(t *testing.T) {
	inputs := []string{"$1,234.50", "(500)", "0.125", "$15,000", "($2,001.75)", "7"}
	for _, s := range inputs {
		first := Float(s)
		require.NotNil(t, first, s)
		second := Float(FormatFloat(*first))
		require.NotNil(t, second, s)
		assert.Equal(t, *first, *second, s)
	}
}

func TestRangeMidpoint(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$1,001 - $2,001", 1501.00, true},
		{"$1,001 - $15,000", 8000.50, true},
		{"$15,001 - $50,000", 32500.50, true},
		{"$1,000,001 - $5,000,000", 3000000.50, true},
		{"$1.01 - $1.02", 1.02, true},
		{"$50,000", 0, false},
		{"Over $50,000,000", 0, false},
		{"abc - def", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := RangeMidpoint(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
