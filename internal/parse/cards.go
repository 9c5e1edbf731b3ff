package parse

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Card is one search-result entry before its detail page is fetched.
// Fields the markup did not yield are left empty.
type Card struct {
	Title      string
	Company    string
	Location   string
	URL        string // absolute, query stripped
	ID         string // empty when no identity could be found
	DatePosted string
}

// CardRules locate cards and their fields on a listing page.
type CardRules struct {
	// Containers are tried in order; the first selector matching at least
	// one element defines the card set.
	Containers []string
	Title      []Extractor
	Company    []Extractor
	Location   []Extractor
	Date       []Extractor
	Link       []Extractor // yields an href, possibly relative
	// IDFromURL patterns run against the raw href; the first capture group is the ID.
	IDFromURL []*regexp.Regexp
	// ID extractors run when no URL pattern matched; the first digit run is the ID.
	ID []Extractor
}

var digits = regexp.MustCompile(`\d+`)

// ParseCards extracts every card on a listing page. A page with no
// recognizable cards returns an empty slice and no error.
func ParseCards(body string, base *url.URL, rules CardRules) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var containers *goquery.Selection
	for _, sel := range rules.Containers {
		if found := doc.Find(sel); found.Length() > 0 {
			containers = found
			break
		}
	}
	if containers == nil {
		return nil, nil
	}

	cards := make([]Card, 0, containers.Length())
	containers.Each(func(_ int, s *goquery.Selection) {
		href := First(s, rules.Link...)
		c := Card{
			Title:      First(s, rules.Title...),
			Company:    First(s, rules.Company...),
			Location:   First(s, rules.Location...),
			DatePosted: First(s, rules.Date...),
			URL:        absoluteURL(base, href),
			ID:         cardID(s, href, rules),
		}
		cards = append(cards, c)
	})
	return cards, nil
}

func cardID(s *goquery.Selection, href string, rules CardRules) string {
	for _, re := range rules.IDFromURL {
		if m := re.FindStringSubmatch(href); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	if v := First(s, rules.ID...); v != "" {
		if d := digits.FindString(v); d != "" {
			return d
		}
	}
	return ""
}

// absoluteURL resolves href against base and drops query and fragment.
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
