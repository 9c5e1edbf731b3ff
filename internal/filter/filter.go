package filter

import (
	"strings"

	"github.com/amishk599/jobmatch/internal/model"
)

// ExcludeFilter drops jobs whose title contains an excluded keyword, whose
// company contains an excluded company name, or whose employment type
// contains an excluded type. Matching is case-insensitive substring.
// Empty lists exclude nothing.
type ExcludeFilter struct {
	titleKeywords   []string
	companies       []string
	employmentTypes []string
}

var _ model.JobFilter = (*ExcludeFilter)(nil)

// NewExcludeFilter returns a filter built from the exclusion lists. Blank
// entries are ignored.
func NewExcludeFilter(titleKeywords, companies, employmentTypes []string) *ExcludeFilter {
	return &ExcludeFilter{
		titleKeywords:   lowered(titleKeywords),
		companies:       lowered(companies),
		employmentTypes: lowered(employmentTypes),
	}
}

// Match returns true if the job should be kept.
func (f *ExcludeFilter) Match(job model.Job) bool {
	if containsAny(job.Title, f.titleKeywords) {
		return false
	}
	if containsAny(job.Company, f.companies) {
		return false
	}
	if job.EmploymentType != model.NotSpecified && containsAny(job.EmploymentType, f.employmentTypes) {
		return false
	}
	return true
}

// Apply returns the jobs that pass every filter, preserving order.
func Apply(jobs []model.Job, filters ...model.JobFilter) []model.Job {
	out := make([]model.Job, 0, len(jobs))
next:
	for _, j := range jobs {
		for _, f := range filters {
			if !f.Match(j) {
				continue next
			}
		}
		out = append(out, j)
	}
	return out
}

func containsAny(s string, needles []string) bool {
	if len(needles) == 0 {
		return false
	}
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowered(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
