package extract

import (
	"encoding/xml"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/normalize"
	"github.com/sells-group/tradewatch/internal/txcode"
)

var (
	ownershipDocRe = regexp.MustCompile(`(?s)<\?xml[^>]*\?>.*?</ownershipDocument>`)
	secFileNumRe   = regexp.MustCompile(`SEC FILE NUMBER:\s*([0-9\-]+)`)
)

// ownershipDocument is the subset of the Form 4 XML schema we read.
type ownershipDocument struct {
	XMLName         xml.Name `xml:"ownershipDocument"`
	PeriodOfReport  string   `xml:"periodOfReport"`
	IssuerName      string   `xml:"issuer>issuerName"`
	ReportingOwners []struct {
		Name string `xml:"reportingOwnerId>rptOwnerName"`
	} `xml:"reportingOwner"`
	NonDerivative []form4Transaction `xml:"nonDerivativeTable>nonDerivativeTransaction"`
}

type form4Transaction struct {
	SecurityTitle   string `xml:"securityTitle>value"`
	TransactionDate string `xml:"transactionDate>value"`
	Code            string `xml:"transactionCoding>transactionCode"`
	Shares          string `xml:"transactionAmounts>transactionShares>value"`
	PricePerShare   string `xml:"transactionAmounts>transactionPricePerShare>value"`
}

// Form4XML extracts an SEC Form 4 ownership document embedded in a fetched
// page, possibly HTML-escaped inside surrounding markup.
type Form4XML struct{}

func (e *Form4XML) Variant() model.Variant { return model.VariantForm4XML }

func (e *Form4XML) Extract(src Source) (*Result, error) {
	v := e.Variant()
	log := zap.L().With(zap.String("variant", string(v)), zap.String("source", src.ID))

	// Raw XML keeps its own entities; only an escaped fragment is unescaped.
	content := src.Content
	span := ownershipDocRe.FindString(content)
	if span == "" {
		content = html.UnescapeString(src.Content)
		span = ownershipDocRe.FindString(content)
	}
	if span == "" {
		log.Debug("no ownershipDocument span, not a Form 4")
		return &Result{NotApplicable: true}, nil
	}

	doc, err := decodeOwnershipDocument(span)
	if err != nil {
		return nil, parseErr(v, "xml", err)
	}

	insider := ""
	if len(doc.ReportingOwners) > 0 {
		insider = strings.TrimSpace(doc.ReportingOwners[0].Name)
	}
	issuer := strings.TrimSpace(doc.IssuerName)
	switch {
	case insider == "":
		return nil, parseErr(v, "rptOwnerName", eris.New("missing reporting owner"))
	case issuer == "":
		return nil, parseErr(v, "issuerName", eris.New("missing issuer"))
	}

	filingDate, err := normalize.ISODate(doc.PeriodOfReport)
	if err != nil {
		return nil, parseErr(v, "periodOfReport", err)
	}

	res := newResult()
	res.Confidence = model.ConfidenceExact

	accession := strings.TrimSpace(src.ID)
	res.AccessionSource = model.AccessionFromCaller
	if m := secFileNumRe.FindStringSubmatch(content); m != nil {
		if m[1] != accession {
			log.Info("accession overridden by embedded file number",
				zap.String("caller_accession", accession),
				zap.String("embedded_accession", m[1]),
			)
		}
		accession = m[1]
		res.AccessionSource = model.AccessionFromEmbedded
	}
	if accession == "" {
		return nil, parseErr(v, "accession", eris.New("no caller accession and no embedded file number"))
	}

	res.Filing = &model.FilingRecord{
		Accession:   accession,
		InsiderName: insider,
		IssuerName:  issuer,
		FilingDate:  filingDate,
		SourceURL:   src.URL,
	}

	for i, tx := range doc.NonDerivative {
		trade, reason, err := tx.toTrade()
		if err != nil {
			return nil, parseErr(v, "nonDerivativeTransaction", eris.Wrapf(err, "line %d", i+1))
		}
		if reason != "" {
			log.Debug("dropped transaction line", zap.Int("line", i+1), zap.String("reason", string(reason)))
			res.drop(reason)
			continue
		}
		res.Trades = append(res.Trades, trade)
	}

	return res, nil
}

// toTrade converts one XML transaction. A non-empty reason means the line is
// dropped; an error aborts the whole document.
func (tx form4Transaction) toTrade() (model.TradeRecord, model.DropReason, error) {
	title := strings.TrimSpace(tx.SecurityTitle)
	rawDate := strings.TrimSpace(tx.TransactionDate)
	if title == "" || rawDate == "" {
		return model.TradeRecord{}, model.DropFieldMissing, nil
	}

	date, err := normalize.ISODate(rawDate)
	if err != nil {
		return model.TradeRecord{}, "", err
	}

	label, ok := txcode.Lookup(tx.Code)
	if !ok {
		return model.TradeRecord{}, model.DropUnknownCode, nil
	}

	amount, err := optionalInt(tx.Shares)
	if err != nil {
		return model.TradeRecord{}, "", err
	}
	price, err := optionalFloat(tx.PricePerShare)
	if err != nil {
		return model.TradeRecord{}, "", err
	}

	trade := model.TradeRecord{
		TransactionDate: date,
		SecurityTitle:   title,
		TransactionType: label,
		Amount:          amount,
		Price:           price,
	}
	if trade.IsZeroValued() {
		return model.TradeRecord{}, model.DropZeroValue, nil
	}
	return trade, "", nil
}

// optionalInt treats blank as null and anything else unparseable as an error.
func optionalInt(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	n := normalize.Int(raw)
	if n == nil {
		return nil, eris.Errorf("malformed share amount %q", raw)
	}
	return n, nil
}

func optionalFloat(raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	f := normalize.Float(raw)
	if f == nil {
		return nil, eris.Errorf("malformed price %q", raw)
	}
	return f, nil
}

func decodeOwnershipDocument(span string) (*ownershipDocument, error) {
	dec := xml.NewDecoder(strings.NewReader(span))
	// The span was decoded to UTF-8 by the fetcher; a declared charset is stale.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var doc ownershipDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "decode ownershipDocument")
	}
	return &doc, nil
}
