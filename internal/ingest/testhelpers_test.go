package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

const form4Doc = `<html><body><pre>
&lt;?xml version="1.0"?&gt;
&lt;ownershipDocument&gt;
  &lt;documentType&gt;4&lt;/documentType&gt;
  &lt;periodOfReport&gt;2024-03-15T00:00:00&lt;/periodOfReport&gt;
  &lt;issuer&gt;&lt;issuerName&gt;Acme Corp&lt;/issuerName&gt;&lt;/issuer&gt;
  &lt;reportingOwner&gt;&lt;reportingOwnerId&gt;&lt;rptOwnerName&gt;Jane Doe&lt;/rptOwnerName&gt;&lt;/reportingOwnerId&gt;&lt;/reportingOwner&gt;
  &lt;nonDerivativeTable&gt;
    &lt;nonDerivativeTransaction&gt;
      &lt;securityTitle&gt;&lt;value&gt;Common Stock&lt;/value&gt;&lt;/securityTitle&gt;
      &lt;transactionDate&gt;&lt;value&gt;2024-03-14T00:00:00&lt;/value&gt;&lt;/transactionDate&gt;
      &lt;transactionCoding&gt;&lt;transactionCode&gt;P&lt;/transactionCode&gt;&lt;/transactionCoding&gt;
      &lt;transactionAmounts&gt;
        &lt;transactionShares&gt;&lt;value&gt;100&lt;/value&gt;&lt;/transactionShares&gt;
        &lt;transactionPricePerShare&gt;&lt;value&gt;10.50&lt;/value&gt;&lt;/transactionPricePerShare&gt;
      &lt;/transactionAmounts&gt;
    &lt;/nonDerivativeTransaction&gt;
  &lt;/nonDerivativeTable&gt;
&lt;/ownershipDocument&gt;
</pre></body></html>`

const houseDoc = `<html><body>
<div class="filer"><span>Name: Hon. Jane Q. Public</span></div>
<table>
  <tr><th>Asset</th><th>Transaction Date</th><th>Type</th><th>Amount</th><th>Price</th></tr>
  <tr><td>Apple Inc. Common Stock</td><td>2024-02-01</td><td>P</td><td>$1,001 - $15,000</td><td>$185.50</td></tr>
  <tr><td>Vanguard Total Market ETF</td><td>02/15/2024</td><td>S</td><td>2,500</td><td>240.10</td></tr>
</table>
</body></html>`

const senateReport = `<html><body>
<table class="table">
  <thead><tr>
    <th>#</th><th>Transaction Date</th><th>Owner</th><th>Ticker</th><th>Asset Name</th><th>Asset Type</th><th>Type</th><th>Amount</th><th>Comment</th>
  </tr></thead>
  <tbody>
    <tr><td>1</td><td>03/14/2024</td><td>Self</td><td>AAPL</td><td>Apple Inc.</td><td>Stock</td><td>Purchase</td><td>$1,001 - $15,000</td><td>--</td></tr>
    <tr><td>2</td><td>03/05/2024</td><td>Spouse</td><td>MSFT</td><td>Microsoft Corporation</td><td>Stock</td><td>Sale (Full)</td><td>$15,001 - $50,000</td><td>--</td></tr>
    <tr><td>3</td><td>03/06/2024</td><td>Self</td><td>--</td><td></td><td>Other</td><td>Exchange</td><td>$1,001 - $15,000</td><td>--</td></tr>
  </tbody>
</table>
</body></html>`
