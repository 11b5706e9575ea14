package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/normalize"
)

// SenateRole is the default role for officials found on Senate eFD reports.
const SenateRole = "Senate PTR"

var senateHonorificRe = regexp.MustCompile(`^\s*(?:The\s+)?Honorable\s+`)

// senateRules resolve the eFD transaction table. "asset type" precedes
// "type" so the looser rule cannot claim it.
var senateRules = []HeaderRule{
	{Role: RoleDate, Keywords: []string{"transaction date", "date"}},
	{Role: RoleOwner, Keywords: []string{"owner"}},
	{Role: RoleTicker, Keywords: []string{"ticker", "symbol"}},
	{Role: RoleAssetType, Keywords: []string{"asset type"}},
	{Role: RoleAsset, Keywords: []string{"asset name", "asset", "security"}},
	{Role: RoleType, Keywords: []string{"type"}},
	{Role: RoleAmount, Keywords: []string{"amount"}},
}

// senateDefaultColumns is the eFD layout used when the table has no header:
// row number, date, owner, ticker, asset name, asset type, type, amount.
var senateDefaultColumns = map[Role]int{
	RoleDate:      1,
	RoleOwner:     2,
	RoleTicker:    3,
	RoleAsset:     4,
	RoleAssetType: 5,
	RoleType:      6,
	RoleAmount:    7,
}

// SenateTable extracts Senate eFD periodic transaction report pages.
type SenateTable struct{}

func (e *SenateTable) Variant() model.Variant { return model.VariantSenateTable }

func (e *SenateTable) Extract(src Source) (*Result, error) {
	v := e.Variant()
	log := zap.L().With(zap.String("variant", string(v)), zap.String("source", src.URL))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src.Content))
	if err != nil {
		return nil, parseErr(v, "html", err)
	}

	table, cols := senateTransactionTable(doc)
	if table == nil {
		log.Debug("no transaction table found")
		return &Result{NotApplicable: true}, nil
	}
	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		return &Result{NotApplicable: true}, nil
	}

	res := newResult()
	res.Confidence = model.ConfidenceExact
	res.Entity = src.Entity
	if res.Entity == nil {
		name := senateOfficialName(doc)
		if name == "" {
			return nil, parseErr(v, "official", eris.New("no official identity on page or from caller"))
		}
		res.Entity = &model.Entity{Name: name, Role: SenateRole, SourceURL: src.URL}
	}

	var rowErr error
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		var record []string
		cells.Each(func(_ int, c *goquery.Selection) {
			record = append(record, strings.TrimSpace(c.Text()))
		})

		rawDate := cell(record, cols[RoleDate])
		asset := cell(record, cols[RoleAsset])
		ttype := cell(record, cols[RoleType])
		if rawDate == "" || asset == "" || ttype == "" {
			log.Debug("dropped row", zap.Int("row", i+1), zap.String("reason", string(model.DropFieldMissing)))
			res.drop(model.DropFieldMissing)
			return true
		}

		date, err := normalize.USDate(rawDate)
		if err != nil {
			rowErr = eris.Wrapf(err, "row %d", i+1)
			return false
		}

		trade := model.TradeRecord{
			TransactionDate: date,
			SecurityTitle:   fmt.Sprintf("%s (%s)", asset, senateTicker(cells, cols[RoleTicker])),
			TransactionType: ttype,
			Amount:          amountOf(cell(record, cols[RoleAmount])),
		}
		if trade.IsZeroValued() {
			res.drop(model.DropZeroValue)
			return true
		}
		res.Trades = append(res.Trades, trade)
		return true
	})
	if rowErr != nil {
		return nil, parseErr(v, "transaction_date", rowErr)
	}

	return res, nil
}

// senateTransactionTable finds the first table whose header resolves date,
// type and amount columns, falling back to the first table with a body and
// the default eFD layout.
func senateTransactionTable(doc *goquery.Document) (*goquery.Selection, map[Role]int) {
	var found *goquery.Selection
	var cols map[Role]int

	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		var headers []string
		t.Find("thead th, thead td").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, th.Text())
		})
		roles := MatchHeaders(headers, senateRules)
		_, hasDate := roles[RoleDate]
		_, hasType := roles[RoleType]
		_, hasAmount := roles[RoleAmount]
		if hasDate && hasType && hasAmount {
			found, cols = t, roles
			return false
		}
		return true
	})
	if found != nil {
		for role := range senateDefaultColumns {
			if _, ok := cols[role]; !ok {
				cols[role] = -1
			}
		}
		return found, cols
	}

	body := doc.Find("tbody").First()
	if body.Length() == 0 {
		return nil, nil
	}
	cols = make(map[Role]int, len(senateDefaultColumns))
	for role, idx := range senateDefaultColumns {
		cols[role] = idx
	}
	return body.Closest("table"), cols
}

// senateTicker reads the ticker from a quote link's query value, the link
// text, or the plain cell text.
func senateTicker(cells *goquery.Selection, idx int) string {
	if idx < 0 || idx >= cells.Length() {
		return "--"
	}
	c := cells.Eq(idx)
	if a := c.Find("a").First(); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok {
			if i := strings.LastIndex(href, "="); i >= 0 && i < len(href)-1 {
				return strings.TrimSpace(href[i+1:])
			}
		}
		if text := strings.TrimSpace(a.Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(c.Text())
}

// senateOfficialName reads "The Honorable Jane Doe (Doe, Jane)" style headings.
func senateOfficialName(doc *goquery.Document) string {
	name := ""
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if !senateHonorificRe.MatchString(text) {
			return true
		}
		text = senateHonorificRe.ReplaceAllString(text, "")
		if i := strings.Index(text, "("); i > 0 {
			text = text[:i]
		}
		name = strings.TrimSpace(text)
		return false
	})
	return name
}
