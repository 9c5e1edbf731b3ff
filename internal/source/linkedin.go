package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/jobmatch/internal/fetch"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/parse"
	"github.com/amishk599/jobmatch/internal/ratelimit"
)

const (
	linkedInBaseURL  = "https://www.linkedin.com"
	linkedInPageSize = 25
	// The guest search stops serving results at start=975.
	linkedInMaxPages = 39

	linkedInTrkFirst = "public_jobs_jobs-search-bar_search-submit"
	linkedInTrkMore  = "public_jobs_jobs-search-results_see-more-jobs_bottom"
)

// LinkedIn returns the spec for the LinkedIn guest job search.
func LinkedIn() Spec {
	list := fetch.ProfileAPI
	list.Name = "linkedin-list"
	list.LiTrack = true
	list.Referers = []string{
		linkedInBaseURL + "/jobs/search",
		linkedInBaseURL + "/jobs",
		"https://www.google.com/",
	}

	detail := fetch.ProfileDocument
	detail.Name = "linkedin-detail"
	detail.Referers = []string{linkedInBaseURL + "/jobs/search", "https://www.google.com/"}

	return Spec{
		Source:        model.SourceLinkedIn,
		BaseURL:       linkedInBaseURL,
		PageSize:      linkedInPageSize,
		MaxPages:      linkedInMaxPages,
		SearchURL:     linkedInSearchURL,
		ListProfile:   list,
		DetailProfile: detail,
		Cards: parse.CardRules{
			Containers: []string{
				"div.base-search-card",
				"li.job-result-card",
				"li.job-card-list__item",
				"li.job-search-card",
				"div.base-card",
			},
			Title: []parse.Extractor{parse.Text(
				"h3.base-search-card__title",
				"h3.job-card-list__title",
				"a.base-search-card__title",
				"a.job-card-list__title",
			)},
			Company: []parse.Extractor{parse.Text(
				"h4.base-search-card__subtitle a",
				"h4.base-search-card__subtitle",
				"h4.job-card-container__company-name",
				"a.job-card-container__company-name",
			)},
			Location: []parse.Extractor{parse.Text(
				"span.job-search-card__location",
				"span.job-card-meta__location",
			)},
			Date: []parse.Extractor{
				parse.Text("time.job-search-card__listdate", "time.job-search-card__listdate--new"),
			},
			Link: []parse.Extractor{parse.Attr("href",
				"a.base-card__full-link",
				"a.job-card-list__title-link",
				"a.base-search-card--link",
			)},
			IDFromURL: []*regexp.Regexp{
				regexp.MustCompile(`/jobs/view/(?:[^/?]*-)?(\d+)`),
				regexp.MustCompile(`currentJobId=(\d+)`),
			},
			ID: []parse.Extractor{
				parse.Attr("data-job-id", "", "[data-job-id]"),
				parse.Attr("data-entity-urn", "", "[data-entity-urn]"),
			},
		},
		Detail: parse.DetailRules{
			Description: []parse.Extractor{parse.Block(
				"div.show-more-less-html__markup",
				"div.description__text",
				"section.show-more-less-html div.show-more-less-html__markup",
				"section.main-job-description div.decorated-job-posting__details",
			)},
			Criteria: &parse.CriteriaRules{
				Item:  "li.description__job-criteria-item",
				Label: "h3.description__job-criteria-subheader",
				Value: "span.description__job-criteria-text",
				Labels: map[string]parse.Field{
					"Date posted":     parse.FieldDatePosted,
					"Posted Date":     parse.FieldDatePosted,
					"Seniority level": parse.FieldSeniority,
					"Employment type": parse.FieldEmploymentType,
					"Job function":    parse.FieldJobFunction,
					"Industries":      parse.FieldIndustries,
				},
			},
			Fields: map[parse.Field][]parse.Extractor{
				parse.FieldDatePosted: {parse.Text(
					"div.topcard__flavor-indicator span",
					"span.posted-time-ago__text",
					"figcaption.job-poster__tagline time",
				)},
			},
			Readability: true,
		},
		Pacing: Pacing{
			Detail:  ratelimit.Between(0.8, 2.5),
			Page:    ratelimit.Between(3, 8),
			Keyword: ratelimit.Between(4, 9),
		},
	}
}

// linkedInKeyword quotes multi-word keywords so the search matches the phrase.
func linkedInKeyword(kw string) string {
	kw = strings.TrimSpace(kw)
	if strings.Contains(kw, " ") && !strings.HasPrefix(kw, `"`) {
		return `"` + kw + `"`
	}
	return kw
}

func linkedInSearchURL(base string, q Query, keyword string, page int) string {
	v := url.Values{}
	v.Set("keywords", linkedInKeyword(keyword))
	v.Set("location", q.Location)
	if page == 0 {
		v.Set("trk", linkedInTrkFirst)
	} else {
		v.Set("trk", linkedInTrkMore)
	}
	v.Set("start", strconv.Itoa(page*linkedInPageSize))
	if q.Days > 0 {
		v.Set("f_TPR", fmt.Sprintf("r%d", q.Days*86400))
	}
	return strings.TrimRight(base, "/") + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + v.Encode()
}
