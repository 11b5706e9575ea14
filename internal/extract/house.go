package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/tradewatch/internal/model"
	"github.com/sells-group/tradewatch/internal/normalize"
	"github.com/sells-group/tradewatch/internal/txcode"
)

// HouseRole is the role recorded for officials found on House PTR pages.
const HouseRole = "House PTR"

var (
	houseDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`)
	houseTitleRe    = regexp.MustCompile(`(?i)(stock|common|inc|corp|etf|shares)`)
	houseNumericRe  = regexp.MustCompile(`[\d,$]+`)
	houseCodeRe     = regexp.MustCompile(`^([A-Z])(\s*\(partial\))?$`)
	houseNameRe     = regexp.MustCompile(`^\s*Name:\s*(.+?)\s*$`)
	houseReporterRe = regexp.MustCompile(`(?i)Reporting Person|Reporting-Owner`)
)

// houseTableRules decide whether a table holds transactions: it needs both a
// date-like and a security-like header.
var houseTableRules = []HeaderRule{
	{Role: RoleDate, Keywords: []string{"transaction", "date"}},
	{Role: RoleTitle, Keywords: []string{"title", "security", "asset"}},
}

// houseAmountThreshold separates share amounts from per-share prices when
// numeric columns are unlabeled.
const houseAmountThreshold = 1000

// HouseHTML extracts House-style periodic transaction report pages. Column
// attribution is heuristic; Result.Confidence says how much of it held.
type HouseHTML struct{}

func (e *HouseHTML) Variant() model.Variant { return model.VariantHouseHTML }

func (e *HouseHTML) Extract(src Source) (*Result, error) {
	v := e.Variant()
	log := zap.L().With(zap.String("variant", string(v)), zap.String("source", src.URL))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src.Content))
	if err != nil {
		return nil, parseErr(v, "html", err)
	}

	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		var headers []string
		t.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, th.Text())
		})
		roles := MatchHeaders(headers, houseTableRules)
		_, hasDate := roles[RoleDate]
		_, hasTitle := roles[RoleTitle]
		if hasDate && hasTitle {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		log.Debug("no transaction table found")
		return &Result{NotApplicable: true}, nil
	}

	res := newResult()
	res.Confidence = model.ConfidenceHeuristic
	res.Entity = src.Entity
	if res.Entity == nil {
		res.Entity = &model.Entity{Name: houseOfficialName(doc), Role: HouseRole, SourceURL: src.URL}
	}

	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(c.Text()))
		})
		if len(cols) < 4 {
			return
		}

		row := mapHouseRow(cols)
		if row.confidence == model.ConfidenceFallback {
			res.Confidence = model.ConfidenceFallback
		}
		trade, reason := row.toTrade()
		if reason != "" {
			log.Debug("dropped row", zap.Int("row", i+1), zap.String("reason", string(reason)))
			res.drop(reason)
			return
		}
		res.Trades = append(res.Trades, trade)
	})

	return res, nil
}

// houseRow is one table row with columns attributed to roles.
type houseRow struct {
	date, title, code, amount, price string
	skip                             bool
	confidence                       model.Confidence
}

// mapHouseRow applies the content rules: a date-shaped cell is the date, a
// cell with security keywords is the title, a single capital letter is the
// code, and numeric cells scanned right to left are an amount when above the
// threshold and a price otherwise.
func mapHouseRow(cols []string) houseRow {
	row := houseRow{confidence: model.ConfidenceHeuristic}

	for _, c := range cols {
		if m := houseDateRe.FindString(c); m != "" {
			row.date = m
			break
		}
	}
	for _, c := range cols {
		if houseTitleRe.MatchString(c) {
			row.title = c
			break
		}
	}
	for _, c := range cols {
		if houseCodeRe.MatchString(c) {
			row.code = c
			break
		}
	}
	for i := len(cols) - 1; i >= 0; i-- {
		c := cols[i]
		if !houseNumericRe.MatchString(c) || houseDateRe.MatchString(c) {
			continue
		}
		val, ok := normalize.RangeMidpoint(c)
		if !ok {
			f := normalize.Float(c)
			if f == nil {
				continue
			}
			val = *f
		}
		if val > houseAmountThreshold {
			row.amount = c
			break
		}
		if row.price == "" {
			row.price = c
		}
	}

	if row.date == "" && row.title == "" {
		row.skip = true
		return row
	}
	if row.title == "" {
		row.title = cols[0]
		row.confidence = model.ConfidenceFallback
	}
	if row.date == "" {
		row.date = cell(cols, 1)
		row.confidence = model.ConfidenceFallback
	}
	return row
}

func (r houseRow) toTrade() (model.TradeRecord, model.DropReason) {
	if r.skip || strings.TrimSpace(r.title) == "" {
		return model.TradeRecord{}, model.DropFieldMissing
	}
	date, err := normalize.AnyDate(r.date)
	if err != nil {
		return model.TradeRecord{}, model.DropFieldMissing
	}

	ttype := "Trade"
	if m := houseCodeRe.FindStringSubmatch(r.code); m != nil {
		if label, ok := txcode.Lookup(m[1]); ok {
			ttype = label
		}
	}

	trade := model.TradeRecord{
		TransactionDate: date,
		SecurityTitle:   r.title,
		TransactionType: ttype,
		Amount:          amountOf(r.amount),
		Price:           normalize.Float(r.price),
	}
	if trade.IsZeroValued() {
		return model.TradeRecord{}, model.DropZeroValue
	}
	return trade, ""
}

// amountOf normalizes an amount cell, reducing dollar ranges to their midpoint first.
func amountOf(raw string) *int64 {
	if mid, ok := normalize.RangeMidpoint(raw); ok {
		return normalize.Int(mid)
	}
	return normalize.Int(raw)
}

// houseOfficialName looks for a "Name:" label, then a report heading, then a
// reporting-person text node.
func houseOfficialName(doc *goquery.Document) string {
	name := ""
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if m := houseNameRe.FindStringSubmatch(s.Text()); m != nil {
			name = m[1]
			return false
		}
		return true
	})
	if name != "" {
		return name
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, "Statement") || strings.Contains(text, "Financial") {
			name = text
			return false
		}
		return true
	})
	if name != "" {
		return name
	}

	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if text := strings.TrimSpace(s.Text()); houseReporterRe.MatchString(text) {
			name = text
			return false
		}
		return true
	})
	if name != "" {
		return name
	}
	return "Unknown"
}
