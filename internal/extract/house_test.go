package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tradewatch/internal/model"
)

func TestHouseHTML_Extract(t *testing.T) {
	res, err := (&HouseHTML{}).Extract(Source{URL: "https://disclosures.house.gov/ptr/1.htm", Content: housePage})
	require.NoError(t, err)
	require.False(t, res.NotApplicable)

	require.NotNil(t, res.Entity)
	assert.Equal(t, "Hon. Jane Q. Public", res.Entity.Name)
	assert.Equal(t, HouseRole, res.Entity.Role)
	assert.Equal(t, "https://disclosures.house.gov/ptr/1.htm", res.Entity.SourceURL)
	assert.Equal(t, model.ConfidenceHeuristic, res.Confidence)

	require.Len(t, res.Trades, 2)

	apple := res.Trades[0]
	assert.Equal(t, "2024-02-01", apple.TransactionDate.Format(model.DateLayout))
	assert.Equal(t, "Apple Inc. Common Stock", apple.SecurityTitle)
	assert.Equal(t, "Purchase", apple.TransactionType)
	require.NotNil(t, apple.Amount)
	assert.Equal(t, int64(8000), *apple.Amount)
	require.NotNil(t, apple.Price)
	assert.InDelta(t, 185.50, *apple.Price, 1e-9)

	etf := res.Trades[1]
	assert.Equal(t, "2024-02-15", etf.TransactionDate.Format(model.DateLayout))
	assert.Equal(t, "Sale", etf.TransactionType)
	assert.Equal(t, int64(2500), *etf.Amount)
	assert.InDelta(t, 240.10, *etf.Price, 1e-9)

	assert.Equal(t, 1, res.Dropped[model.DropFieldMissing])
	assert.Equal(t, 1, res.Dropped[model.DropZeroValue])
}

func TestHouseHTML_CallerEntityWins(t *testing.T) {
	hint := &model.Entity{Name: "Rep. Someone", Role: "House PTR"}
	res, err := (&HouseHTML{}).Extract(Source{Content: housePage, Entity: hint})
	require.NoError(t, err)
	assert.Same(t, hint, res.Entity)
}

func TestHouseHTML_NoTransactionTable(t *testing.T) {
	page := `<html><body><table><tr><th>Filing</th><th>Status</th></tr><tr><td>a</td><td>b</td></tr></table></body></html>`
	res, err := (&HouseHTML{}).Extract(Source{Content: page})
	require.NoError(t, err)
	assert.True(t, res.NotApplicable)
	assert.Empty(t, res.Trades)
}

func TestHouseHTML_PositionalFallback(t *testing.T) {
	page := `<html><body>
<h2>Periodic Transaction Report Statement</h2>
<table>
  <tr><th>Security</th><th>Date</th><th>Code</th><th>Value</th></tr>
  <tr><td>Widget Holdings</td><td>2024-01-05</td><td>P</td><td>5,000</td></tr>
</table></body></html>`

	res, err := (&HouseHTML{}).Extract(Source{Content: page})
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceFallback, res.Confidence)
	assert.Equal(t, "Periodic Transaction Report Statement", res.Entity.Name)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, "Widget Holdings", res.Trades[0].SecurityTitle)
	assert.Equal(t, int64(5000), *res.Trades[0].Amount)
	assert.Nil(t, res.Trades[0].Price)
}

func TestHouseHTML_UnknownOfficial(t *testing.T) {
	page := `<html><body><table>
  <tr><th>Asset</th><th>Date</th><th>Type</th><th>Amount</th></tr>
  <tr><td>Acme Corp</td><td>2024-01-05</td><td>Q</td><td>2,000</td></tr>
</table></body></html>`

	res, err := (&HouseHTML{}).Extract(Source{Content: page})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", res.Entity.Name)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "Trade", res.Trades[0].TransactionType)
}

func TestMapHouseRow(t *testing.T) {
	tests := []struct {
		name   string
		cols   []string
		amount string
		price  string
		code   string
		skip   bool
	}{
		{
			name:   "amount and price",
			cols:   []string{"Acme Common", "2024-01-02", "P", "1,500", "12.25"},
			amount: "1,500", price: "12.25", code: "P",
		},
		{
			name:  "only small values",
			cols:  []string{"Acme Common", "2024-01-02", "S", "500", "12.25"},
			price: "12.25", code: "S",
		},
		{
			name: "no date or title",
			cols: []string{"Bond", "n/a", "P", "100"},
			skip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := mapHouseRow(tt.cols)
			assert.Equal(t, tt.skip, row.skip)
			if tt.skip {
				return
			}
			assert.Equal(t, tt.amount, row.amount)
			assert.Equal(t, tt.price, row.price)
			assert.Equal(t, tt.code, row.code)
		})
	}
}
