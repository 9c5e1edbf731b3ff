// Package parse extracts cards and detail attributes from listing HTML.
// Every field is located by an ordered list of extractors; the first
// non-empty result wins, so markup variants are handled by appending
// another extractor rather than branching in code.
package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor returns a value found within sel, or "" when absent.
type Extractor func(sel *goquery.Selection) string

// First runs extractors in order and returns the first non-empty result.
func First(sel *goquery.Selection, extractors ...Extractor) string {
	for _, ex := range extractors {
		if v := ex(sel); v != "" {
			return v
		}
	}
	return ""
}

// Text extracts the whitespace-collapsed text of the first matching selector
// that has any text.
func Text(selectors ...string) Extractor {
	return func(sel *goquery.Selection) string {
		for _, s := range selectors {
			if v := Clean(sel.Find(s).First().Text()); v != "" {
				return v
			}
		}
		return ""
	}
}

// Attr extracts attr from the first matching selector that carries it.
// An empty selector reads the attribute from sel itself.
func Attr(attr string, selectors ...string) Extractor {
	return func(sel *goquery.Selection) string {
		for _, s := range selectors {
			target := sel
			if s != "" {
				target = sel.Find(s).First()
			}
			if v, ok := target.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
}

// Block extracts multi-line text from the first matching selector, keeping
// paragraph and list structure as line breaks.
func Block(selectors ...string) Extractor {
	return func(sel *goquery.Selection) string {
		for _, s := range selectors {
			match := sel.Find(s).First()
			if match.Length() == 0 {
				continue
			}
			inner, err := match.Html()
			if err != nil {
				continue
			}
			if v := htmlToText(inner); v != "" {
				return v
			}
		}
		return ""
	}
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
	blockOpen    = regexp.MustCompile(`(?i)<(p|div|br|li|ul|ol|h[1-6]|tr|section)\b[^>]*>`)
	blockClose   = regexp.MustCompile(`(?i)</(p|div|li|ul|ol|h[1-6]|tr|section)>`)
)

// Clean collapses all whitespace to single spaces and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlToText converts an HTML fragment to plain text, turning block
// boundaries into newlines and collapsing runs of blank lines.
func htmlToText(fragment string) string {
	marked := blockOpen.ReplaceAllString(fragment, "\n$0")
	marked = blockClose.ReplaceAllString(marked, "$0\n")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(marked))
	if err != nil {
		return ""
	}

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimSpace(spaceRun.ReplaceAllString(l, " ")))
	}
	text := strings.Join(out, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
