package model

import (
	"context"
	"strings"
)

// Source identifies the listing site a job was fetched from.
type Source string

const (
	SourceLinkedIn Source = "linkedin"
	SourceSeek     Source = "seek"
)

// NotSpecified is the placeholder for optional text attributes the upstream did not provide.
const NotSpecified = "Not specified"

// UnknownID is used when no source-local identity could be extracted from a card.
const UnknownID = "unknown"

// Unified representation of a job listing from any source.
type Job struct {
	Source         Source
	ID             string // source-local, may be UnknownID
	Title          string
	Company        string
	Location       string
	URL            string // absolute, empty if the card had no link
	Description    string
	DatePosted     string // free text as shown by the source
	EmploymentType string
	Seniority      string
	Industries     string
	JobFunction    string
	Salary         string
	Keyword        string            // search keyword that surfaced this job
	Extra          map[string]string // additional labelled attributes from the detail page

	MatchScore   int     // 0-100
	Rating       float64 // 0-5
	MatchReason  string
	SkillMatches []string
	SkillGaps    []string
}

// Key returns the cross-source identity: lowercased, trimmed title and company.
func (j Job) Key() string {
	return strings.ToLower(strings.TrimSpace(j.Title)) + "|" + strings.ToLower(strings.TrimSpace(j.Company))
}

// CanFetchDetail reports whether the job carries enough identity to request its detail page.
func (j Job) CanFetchDetail() bool {
	return j.URL != "" && j.ID != UnknownID
}

// ClampScore bounds a match score to 0-100.
func ClampScore(score int) int {
	return min(max(score, 0), 100)
}

// ClampRating bounds a company rating to 0-5.
func ClampRating(rating float64) float64 {
	return min(max(rating, 0), 5)
}

// MatchResult is the outcome of scoring one job against resume text.
type MatchResult struct {
	Score        int
	Reason       string
	SkillMatches []string
	SkillGaps    []string
	Unscored     bool // no model verdict; the zero score is a placeholder
}

// Rater looks up a company's rating. A zero rating means unknown.
type Rater interface {
	Rate(ctx context.Context, company, locationHint string) (float64, error)
}

// Matcher scores a job against resume text. Implementations degrade to a
// zero-score result with an explanatory reason instead of failing the batch.
type Matcher interface {
	Match(ctx context.Context, job Job, resumeText string) (MatchResult, error)
}

// Notifier sends notifications for newly written matches.
type Notifier interface {
	Notify(jobs []Job) error
}

// JobFilter decides whether a job should continue through the pipeline.
type JobFilter interface {
	Match(job Job) bool
}
