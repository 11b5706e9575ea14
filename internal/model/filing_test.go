package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeRecord_IsZeroValued(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trade TradeRecord
		want  bool
	}{
		{"both set", TradeRecord{Amount: Int64(100), Price: Float64(10.5)}, false},
		{"zero amount", TradeRecord{Amount: Int64(0), Price: Float64(10.5)}, true},
		{"zero price", TradeRecord{Amount: Int64(100), Price: Float64(0)}, true},
		{"nil values", TradeRecord{}, false},
		{"nil price", TradeRecord{Amount: Int64(5)}, false},
		{"negative amount", TradeRecord{Amount: Int64(-500)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.trade.IsZeroValued())
		})
	}
}

func TestParseVariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Variant
	}{
		{"form4_xml", VariantForm4XML},
		{"form4", VariantForm4XML},
		{"house_html", VariantHouseHTML},
		{"house", VariantHouseHTML},
		{"senate_table", VariantSenateTable},
		{"senate", VariantSenateTable},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseVariant("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variant")
}
