package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amishk599/jobmatch/internal/fetch"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/parse"
	"github.com/amishk599/jobmatch/internal/ratelimit"
)

const (
	seekBaseURL  = "https://www.seek.com.au"
	seekPageSize = 22
	seekMaxPages = 20
)

// seekLocations maps city names to SEEK's location slugs.
var seekLocations = map[string]string{
	"sydney":    "All-Sydney-NSW",
	"melbourne": "All-Melbourne-VIC",
	"brisbane":  "All-Brisbane-QLD",
	"perth":     "All-Perth-WA",
	"adelaide":  "All-Adelaide-SA",
	"canberra":  "All-Canberra-ACT",
}

// Seek returns the spec for SEEK's HTML search.
func Seek() Spec {
	list := fetch.ProfileDocument
	list.Name = "seek-list"
	list.Referers = []string{seekBaseURL + "/", "https://www.google.com.au/"}

	detail := fetch.ProfileDocument
	detail.Name = "seek-detail"
	detail.Referers = []string{seekBaseURL + "/"}

	return Spec{
		Source:        model.SourceSeek,
		BaseURL:       seekBaseURL,
		PageSize:      seekPageSize,
		MaxPages:      seekMaxPages,
		SearchURL:     seekSearchURL,
		ListProfile:   list,
		DetailProfile: detail,
		Cards: parse.CardRules{
			Containers: []string{
				`article[data-automation="normalJob"]`,
				`article[data-card-type="JobCard"]`,
			},
			Title:    []parse.Extractor{parse.Text(`[data-automation="jobTitle"]`)},
			Company:  []parse.Extractor{parse.Text(`[data-automation="jobCompany"]`, `[data-automation="advertiser-name"]`)},
			Location: []parse.Extractor{parse.Text(`[data-automation="jobLocation"]`, `[data-automation="jobCardLocation"]`)},
			Date:     []parse.Extractor{parse.Text(`[data-automation="jobListingDate"]`)},
			Link: []parse.Extractor{parse.Attr("href",
				`a[data-automation="jobTitle"]`,
				`a[data-automation="job-list-item-link-overlay"]`,
			)},
			IDFromURL: []*regexp.Regexp{regexp.MustCompile(`/job/(\d+)`)},
			ID:        []parse.Extractor{parse.Attr("data-job-id", "", "[data-job-id]")},
		},
		Detail: parse.DetailRules{
			Description: []parse.Extractor{parse.Block(
				`[data-automation="jobAdDetails"]`,
				`[data-automation="jobDescription"]`,
			)},
			Fields: map[parse.Field][]parse.Extractor{
				parse.FieldEmploymentType: {parse.Text(`[data-automation="job-detail-work-type"]`)},
				parse.FieldSalary:         {parse.Text(`[data-automation="job-detail-salary"]`)},
				parse.FieldJobFunction:    {parse.Text(`[data-automation="job-detail-classifications"]`)},
				parse.FieldDatePosted:     {parse.Text(`[data-automation="job-detail-date"]`)},
			},
			ExtraAttr:   "data-automation",
			ExtraPrefix: "job-detail-",
			Readability: true,
		},
		Recent: parse.IsRecent,
		Pacing: Pacing{
			Detail:  ratelimit.Between(1, 3),
			Page:    ratelimit.Between(2, 6),
			Keyword: ratelimit.Between(4, 9),
		},
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9\s-]+`)

// seekKeyword turns "Data Engineer (Go)" into "data-engineer-go".
func seekKeyword(kw string) string {
	kw = nonSlug.ReplaceAllString(strings.ToLower(kw), "")
	return strings.Join(strings.Fields(kw), "-")
}

func seekLocation(loc string) string {
	key := strings.ToLower(strings.TrimSpace(loc))
	if slug, ok := seekLocations[key]; ok {
		return slug
	}
	return strings.Join(strings.Fields(strings.TrimSpace(loc)), "-")
}

func seekSearchURL(base string, q Query, keyword string, page int) string {
	days := q.Days
	if days <= 0 {
		days = 3
	}
	return fmt.Sprintf("%s/%s-jobs/in-%s?daterange=%d&page=%d",
		strings.TrimRight(base, "/"), seekKeyword(keyword), seekLocation(q.Location), days, page+1)
}
