package parse

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Field names a structured attribute of a detail page.
type Field string

const (
	FieldDatePosted     Field = "date_posted"
	FieldEmploymentType Field = "employment_type"
	FieldSeniority      Field = "seniority"
	FieldIndustries     Field = "industries"
	FieldJobFunction    Field = "job_function"
	FieldSalary         Field = "salary"
)

// Detail holds what a detail page yielded. Empty strings mean not found.
type Detail struct {
	Description    string
	DatePosted     string
	EmploymentType string
	Seniority      string
	Industries     string
	JobFunction    string
	Salary         string
	Extra          map[string]string
}

func (d *Detail) get(f Field) string {
	switch f {
	case FieldDatePosted:
		return d.DatePosted
	case FieldEmploymentType:
		return d.EmploymentType
	case FieldSeniority:
		return d.Seniority
	case FieldIndustries:
		return d.Industries
	case FieldJobFunction:
		return d.JobFunction
	case FieldSalary:
		return d.Salary
	}
	return ""
}

// setIfEmpty keeps the first value found for a field.
func (d *Detail) setIfEmpty(f Field, v string) {
	if v == "" || d.get(f) != "" {
		return
	}
	switch f {
	case FieldDatePosted:
		d.DatePosted = v
	case FieldEmploymentType:
		d.EmploymentType = v
	case FieldSeniority:
		d.Seniority = v
	case FieldIndustries:
		d.Industries = v
	case FieldJobFunction:
		d.JobFunction = v
	case FieldSalary:
		d.Salary = v
	}
}

// CriteriaRules read label/value pairs such as "Seniority level: Mid-Senior".
type CriteriaRules struct {
	Item   string           // selector for one label/value pair
	Label  string           // selector for the label within Item
	Value  string           // selector for the value within Item
	Labels map[string]Field // case-insensitive label text to field
}

// DetailRules locate the description and attributes on a detail page.
type DetailRules struct {
	Description []Extractor
	Criteria    *CriteriaRules
	// Fields are consulted after Criteria for anything still empty.
	Fields map[Field][]Extractor
	// ExtraAttr/ExtraPrefix collect every element whose ExtraAttr starts with
	// ExtraPrefix into Detail.Extra, keyed by the attribute suffix.
	ExtraAttr   string
	ExtraPrefix string
	// Readability falls back to article extraction when no description selector matched.
	Readability bool
}

// fieldOrder keeps Fields evaluation deterministic.
var fieldOrder = []Field{FieldDatePosted, FieldEmploymentType, FieldSeniority, FieldIndustries, FieldJobFunction, FieldSalary}

// ParseDetail extracts the description and structured attributes from a
// detail page. Missing markup yields empty fields, never an error; only
// unparseable HTML fails.
func ParseDetail(body, pageURL string, rules DetailRules) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail html: %w", err)
	}
	root := doc.Selection

	var d Detail
	d.Description = First(root, rules.Description...)
	if d.Description == "" && rules.Readability {
		d.Description = readableText(body, pageURL)
	}

	if c := rules.Criteria; c != nil {
		root.Find(c.Item).Each(func(_ int, item *goquery.Selection) {
			label := strings.ToLower(Clean(item.Find(c.Label).Text()))
			value := Clean(item.Find(c.Value).Text())
			for want, field := range c.Labels {
				if label == strings.ToLower(want) {
					d.setIfEmpty(field, value)
				}
			}
		})
	}

	for _, f := range fieldOrder {
		if exs, ok := rules.Fields[f]; ok {
			d.setIfEmpty(f, First(root, exs...))
		}
	}

	if rules.ExtraAttr != "" && rules.ExtraPrefix != "" {
		sel := fmt.Sprintf("[%s^=%q]", rules.ExtraAttr, rules.ExtraPrefix)
		root.Find(sel).Each(func(_ int, s *goquery.Selection) {
			name, _ := s.Attr(rules.ExtraAttr)
			key := strings.TrimPrefix(name, rules.ExtraPrefix)
			value := Clean(s.Text())
			if key == "" || value == "" {
				return
			}
			if d.Extra == nil {
				d.Extra = make(map[string]string)
			}
			if _, dup := d.Extra[key]; !dup {
				d.Extra[key] = value
			}
		})
	}

	return d, nil
}

// readableText runs article extraction over a whole page and returns its text.
func readableText(body, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(body), u)
	if err != nil {
		return ""
	}
	return htmlToText(article.Content)
}
