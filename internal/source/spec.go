// Package source drives paginated search for each listing site. All sites
// share one state machine; a Spec supplies everything site-specific.
package source

import (
	"github.com/amishk599/jobmatch/internal/fetch"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/parse"
	"github.com/amishk599/jobmatch/internal/ratelimit"
)

// Query is what the user asked for, shared by every source.
type Query struct {
	Keywords []string
	Location string
	Days     int // posting age window
}

// Pacing holds the randomized waits a fetcher applies between requests.
type Pacing struct {
	Detail  ratelimit.Range // after each detail fetch
	Page    ratelimit.Range // between result pages
	Keyword ratelimit.Range // between keywords
}

// Spec describes one listing site.
type Spec struct {
	Source   model.Source
	BaseURL  string // scheme and host; relative links resolve against it
	PageSize int
	MaxPages int // pagination depth the site serves

	// SearchURL builds the listing URL for a 0-based page index.
	SearchURL func(base string, q Query, keyword string, page int) string

	ListProfile   fetch.Profile
	DetailProfile fetch.Profile
	Cards         parse.CardRules
	Detail        parse.DetailRules

	// Recent filters cards by their listing date before the detail fetch. Optional.
	Recent func(dateText string, maxDays int) bool

	Pacing Pacing
}

// Lookup returns the built-in spec for a source name.
func Lookup(name string) (Spec, bool) {
	switch model.Source(name) {
	case model.SourceLinkedIn:
		return LinkedIn(), true
	case model.SourceSeek:
		return Seek(), true
	default:
		return Spec{}, false
	}
}
