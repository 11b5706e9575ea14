// Package feed parses the listing pages that point at individual disclosure
// documents: the EDGAR current-events Form 4 feed, the House PTR list and the
// Senate eFD search results.
package feed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tradewatch/internal/normalize"
)

// Default listing locations.
const (
	DefaultForm4FeedTemplate = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcurrent&type=4&start=%d&count=%d"
	DefaultHouseListURL      = "https://clerk.house.gov/public_disc/financial-ptrs"
	DefaultSenateBaseURL     = "https://efdsearch.senate.gov"

	secBaseURL   = "https://www.sec.gov"
	houseBaseURL = "https://clerk.house.gov"
)

// Link is one document advertised by a listing page.
type Link struct {
	// Href is the link exactly as it appears on the page.
	Href string
	// URL is Href resolved to an absolute URL.
	URL string
}

// Form4PageURL returns the feed URL for zero-based page i of size count.
func Form4PageURL(template string, page, count int) string {
	if template == "" {
		template = DefaultForm4FeedTemplate
	}
	return fmt.Sprintf(template, page*count, count)
}

// ParseForm4Feed returns the filing links listed on one page of the EDGAR
// current-events feed. Rows with fewer than five cells are headers or
// spacers. When the second cell carries several links, the second one (the
// XML rendition) is preferred.
func ParseForm4Feed(page string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse form4 feed")
	}

	var links []Link
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 5 {
			return
		}
		anchors := cells.Eq(1).Find("a[href]")
		if anchors.Length() == 0 {
			return
		}
		a := anchors.First()
		if anchors.Length() > 1 {
			a = anchors.Eq(1)
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		abs, err := resolve(secBaseURL, href)
		if err != nil || href == "" {
			return
		}
		links = append(links, Link{Href: href, URL: abs})
	})
	return links, nil
}

// ParseHouseList returns up to limit links from the House PTR list page
// whose href mentions "financial". A limit of zero or less means no limit.
func ParseHouseList(page string, limit int) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse house list")
	}

	var links []Link
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.Contains(strings.ToLower(href), "financial") {
			return true
		}
		abs, err := resolve(houseBaseURL, href)
		if err != nil {
			return true
		}
		links = append(links, Link{Href: href, URL: abs})
		return limit <= 0 || len(links) < limit
	})
	return links, nil
}

// SenateReport is one row of the eFD search results table.
type SenateReport struct {
	FirstName string
	LastName  string
	// Office is the parenthesised part of the office cell when present,
	// e.g. "Smith, John (Senator)" yields "Senator".
	Office    string
	Link      Link
	DateFiled time.Time // zero when the cell could not be parsed
}

// Name returns the official's display name.
func (r SenateReport) Name() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ParseSenateResults returns up to limit reports from the eFD results table.
// Report links are resolved against baseURL.
func ParseSenateResults(page, baseURL string, limit int) ([]SenateReport, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse senate results")
	}
	if baseURL == "" {
		baseURL = DefaultSenateBaseURL
	}

	var reports []SenateReport
	doc.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 5 {
			return true
		}
		href := strings.TrimSpace(cells.Eq(3).Find("a[href]").First().AttrOr("href", ""))
		if href == "" {
			return true
		}
		abs, err := resolve(baseURL, href)
		if err != nil {
			return true
		}
		r := SenateReport{
			FirstName: text(cells.Eq(0)),
			LastName:  text(cells.Eq(1)),
			Office:    officeRole(text(cells.Eq(2))),
			Link:      Link{Href: href, URL: abs},
		}
		if d, err := normalize.AnyDate(text(cells.Eq(4))); err == nil {
			r.DateFiled = d
		}
		reports = append(reports, r)
		return limit <= 0 || len(reports) < limit
	})
	return reports, nil
}

func officeRole(office string) string {
	open := strings.Index(office, "(")
	if open < 0 {
		return office
	}
	rest := office[open+1:]
	if end := strings.Index(rest, ")"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrapf(err, "feed: parse base %q", base)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", eris.Wrapf(err, "feed: parse href %q", href)
	}
	return b.ResolveReference(ref).String(), nil
}
