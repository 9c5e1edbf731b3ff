// Package normalize turns parsed cards and detail pages into model.Job
// records and removes duplicates by title and company.
package normalize

import (
	"strings"

	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/parse"
)

// Placeholders used when a card lacks a title or company.
const (
	NoTitle   = "No Title"
	NoCompany = "No Company"
)

// PlaceholderDescription replaces the description when the detail page could not be fetched.
const PlaceholderDescription = "Description not available"

// Job builds a record from a card and its (possibly empty) detail. It returns
// false when the card has no usable title, company, or URL.
func Job(src model.Source, keyword string, card parse.Card, detail parse.Detail) (model.Job, bool) {
	title := strings.TrimSpace(card.Title)
	company := strings.TrimSpace(card.Company)
	if isPlaceholder(title, NoTitle) && isPlaceholder(company, NoCompany) && card.URL == "" {
		return model.Job{}, false
	}

	j := model.Job{
		Source:         src,
		ID:             orDefault(card.ID, model.UnknownID),
		Title:          orDefault(title, NoTitle),
		Company:        orDefault(company, NoCompany),
		Location:       orDefault(card.Location, model.NotSpecified),
		URL:            card.URL,
		Description:    strings.TrimSpace(detail.Description),
		DatePosted:     orDefault(firstNonEmpty(detail.DatePosted, card.DatePosted), model.NotSpecified),
		EmploymentType: orDefault(detail.EmploymentType, model.NotSpecified),
		Seniority:      orDefault(detail.Seniority, model.NotSpecified),
		Industries:     orDefault(detail.Industries, model.NotSpecified),
		JobFunction:    orDefault(detail.JobFunction, model.NotSpecified),
		Salary:         orDefault(detail.Salary, model.NotSpecified),
		Keyword:        keyword,
		Extra:          detail.Extra,
	}
	return j, true
}

// Placeholder returns a record built from the card alone, used when the
// detail fetch failed.
func Placeholder(src model.Source, keyword string, card parse.Card) (model.Job, bool) {
	j, ok := Job(src, keyword, card, parse.Detail{})
	if ok {
		j.Description = PlaceholderDescription
	}
	return j, ok
}

func isPlaceholder(v, placeholder string) bool {
	return v == "" || strings.EqualFold(v, placeholder)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
