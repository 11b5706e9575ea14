package extract

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// form4Tx describes one nonDerivativeTransaction for buildForm4.
type form4Tx struct {
	date, title, code, shares, price string
}

// buildForm4 renders a minimal ownershipDocument with the given transactions.
func buildForm4(owner, issuer, period string, txs ...form4Tx) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString("<ownershipDocument>\n")
	b.WriteString("  <schemaVersion>X0508</schemaVersion>\n")
	b.WriteString("  <documentType>4</documentType>\n")
	fmt.Fprintf(&b, "  <periodOfReport>%s</periodOfReport>\n", period)
	fmt.Fprintf(&b, "  <issuer><issuerCik>0000000001</issuerCik><issuerName>%s</issuerName><issuerTradingSymbol>ACME</issuerTradingSymbol></issuer>\n", issuer)
	fmt.Fprintf(&b, "  <reportingOwner><reportingOwnerId><rptOwnerCik>0000000002</rptOwnerCik><rptOwnerName>%s</rptOwnerName></reportingOwnerId></reportingOwner>\n", owner)
	b.WriteString("  <nonDerivativeTable>\n")
	for _, tx := range txs {
		b.WriteString("    <nonDerivativeTransaction>\n")
		fmt.Fprintf(&b, "      <securityTitle><value>%s</value></securityTitle>\n", tx.title)
		fmt.Fprintf(&b, "      <transactionDate><value>%s</value></transactionDate>\n", tx.date)
		fmt.Fprintf(&b, "      <transactionCoding><transactionFormType>4</transactionFormType><transactionCode>%s</transactionCode></transactionCoding>\n", tx.code)
		b.WriteString("      <transactionAmounts>\n")
		fmt.Fprintf(&b, "        <transactionShares><value>%s</value></transactionShares>\n", tx.shares)
		fmt.Fprintf(&b, "        <transactionPricePerShare><value>%s</value></transactionPricePerShare>\n", tx.price)
		b.WriteString("        <transactionAcquiredDisposedCode><value>A</value></transactionAcquiredDisposedCode>\n")
		b.WriteString("      </transactionAmounts>\n")
		b.WriteString("    </nonDerivativeTransaction>\n")
	}
	b.WriteString("  </nonDerivativeTable>\n")
	b.WriteString("</ownershipDocument>")
	return b.String()
}

const housePage = `<html><body>
<h1>Financial Disclosure Report</h1>
<div class="filer"><span>Name: Hon. Jane Q. Public</span></div>
<table id="summary"><tr><th>Filing</th><th>Status</th></tr><tr><td>PTR</td><td>Filed</td></tr></table>
<table id="transactions">
  <tr><th>Asset</th><th>Transaction Date</th><th>Type</th><th>Amount</th><th>Price</th></tr>
  <tr><td>Apple Inc. Common Stock</td><td>2024-02-01</td><td>P</td><td>$1,001 - $15,000</td><td>$185.50</td></tr>
  <tr><td>Vanguard Total Market ETF</td><td>02/15/2024</td><td>S (partial)</td><td>2,500</td><td>240.10</td></tr>
  <tr><td>Municipal Bond</td><td>n/a</td><td>P</td><td>$5,000</td><td></td></tr>
  <tr><td>Microsoft Corp Shares</td><td>2024-03-01</td><td>P</td><td>$0</td><td>0</td></tr>
  <tr><td>short</td><td>row</td></tr>
</table>
</body></html>`

const senatePage = `<html><body>
<h2 class="filedReport">The Honorable Jane Doe (Doe, Jane)</h2>
<table class="table table-striped">
  <thead><tr>
    <th>#</th><th>Transaction Date</th><th>Owner</th><th>Ticker</th><th>Asset Name</th><th>Asset Type</th><th>Type</th><th>Amount</th><th>Comment</th>
  </tr></thead>
  <tbody>
    <tr><td>1</td><td>03/14/2024</td><td>Self</td><td><a href="https://finance.yahoo.com/q?s=AAPL">AAPL</a></td><td>Apple Inc.</td><td>Stock</td><td>Purchase</td><td>$1,001 - $15,000</td><td>--</td></tr>
    <tr><td>2</td><td>3/5/2024</td><td>Spouse</td><td>MSFT</td><td>Microsoft Corporation</td><td>Stock</td><td>Sale (Full)</td><td>$15,001 - $50,000</td><td>--</td></tr>
    <tr><td>3</td><td>03/06/2024</td><td>Self</td><td>--</td><td></td><td>Other</td><td>Exchange</td><td>$1,001 - $15,000</td><td>--</td></tr>
  </tbody>
</table>
</body></html>`
