package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/amishk599/jobmatch/internal/fetch"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/normalize"
	"github.com/amishk599/jobmatch/internal/parse"
	"github.com/amishk599/jobmatch/internal/ratelimit"
)

// Doer performs one resilient page request.
type Doer interface {
	Fetch(ctx context.Context, rawURL string, p fetch.Profile) (*fetch.Response, error)
}

var _ Doer = (*fetch.Client)(nil)

// state is a step of the per-keyword search loop.
type state int

const (
	stateInit state = iota
	statePageFetch
	stateParseCards
	stateDetails
	stateAdvance
	stateStop
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case statePageFetch:
		return "page_fetch"
	case stateParseCards:
		return "parse_cards"
	case stateDetails:
		return "details"
	case stateAdvance:
		return "advance"
	default:
		return "stop"
	}
}

// session is the mutable state of one keyword search.
type session struct {
	q         Query
	keyword   string
	page      int
	body      string
	cards     []parse.Card
	added     int
	pageAdded int
	stop      string
	err       error
}

// Fetcher runs paginated searches for one site.
type Fetcher struct {
	spec      Spec
	client    Doer
	collector *Collector
	base      *url.URL
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher. The Collector is shared with the other
// fetchers of the same run.
func NewFetcher(spec Spec, client Doer, collector *Collector, logger *slog.Logger) (*Fetcher, error) {
	base, err := url.Parse(spec.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("source %s: invalid base url %q", spec.Source, spec.BaseURL)
	}
	if spec.SearchURL == nil {
		return nil, fmt.Errorf("source %s: missing search url builder", spec.Source)
	}
	if spec.MaxPages <= 0 {
		spec.MaxPages = 1
	}
	return &Fetcher{
		spec:      spec,
		client:    client,
		collector: collector,
		base:      base,
		logger:    logger.With("source", string(spec.Source)),
	}, nil
}

// Source returns the site this fetcher searches.
func (f *Fetcher) Source() model.Source {
	return f.spec.Source
}

// Fetch searches every keyword in order and returns the records in arrival
// order. Failures end the current keyword but never the run; the only error
// returned is the context's.
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]model.Job, error) {
	var jobs []model.Job
	for i, kw := range q.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if f.collector.Full(f.spec.Source) {
			f.logger.Info("limit reached, skipping remaining keywords", "keyword", kw)
			break
		}

		jobs = append(jobs, f.search(ctx, q, kw)...)

		if err := ctx.Err(); err != nil {
			return jobs, err
		}
		if i < len(q.Keywords)-1 {
			if err := ratelimit.Pause(ctx, f.spec.Pacing.Keyword); err != nil {
				return jobs, err
			}
		}
	}
	return jobs, nil
}

func (f *Fetcher) search(ctx context.Context, q Query, keyword string) []model.Job {
	s := &session{q: q, keyword: keyword}
	var jobs []model.Job

	for st := stateInit; st != stateStop; {
		f.logger.Debug("search state", "keyword", keyword, "state", st.String(), "page", s.page)
		switch st {
		case stateInit:
			f.logger.Info("searching", "keyword", keyword, "location", q.Location, "days", q.Days)
			st = statePageFetch
		case statePageFetch:
			st = f.fetchPage(ctx, s)
		case stateParseCards:
			st = f.parseCards(s)
		case stateDetails:
			var page []model.Job
			page, st = f.fetchDetails(ctx, s)
			jobs = append(jobs, page...)
		case stateAdvance:
			st = f.advance(ctx, s)
		}
	}

	attrs := []any{"keyword", keyword, "pages", s.page + 1, "jobs", s.added, "reason", s.stop}
	if s.err != nil {
		attrs = append(attrs, "error", s.err)
		f.logger.Warn("search ended early", attrs...)
	} else {
		f.logger.Info("search finished", attrs...)
	}
	return jobs
}

func (f *Fetcher) fetchPage(ctx context.Context, s *session) state {
	pageURL := f.spec.SearchURL(f.spec.BaseURL, s.q, s.keyword, s.page)
	f.logger.Debug("fetching page", "keyword", s.keyword, "page", s.page, "url", pageURL)

	resp, err := f.client.Fetch(ctx, pageURL, f.spec.ListProfile)
	if err != nil {
		s.stop, s.err = "page fetch failed", err
		return stateStop
	}
	if strings.TrimSpace(resp.Body) == "" {
		s.stop = "empty page"
		return stateStop
	}
	s.body = resp.Body
	return stateParseCards
}

func (f *Fetcher) parseCards(s *session) state {
	cards, err := parse.ParseCards(s.body, f.base, f.spec.Cards)
	s.body = ""
	if err != nil {
		s.stop, s.err = "unparseable page", err
		return stateStop
	}
	if len(cards) == 0 {
		s.stop = "no cards"
		return stateStop
	}
	s.cards = cards
	return stateDetails
}

func (f *Fetcher) fetchDetails(ctx context.Context, s *session) ([]model.Job, state) {
	src := f.spec.Source
	s.pageAdded = 0
	var jobs []model.Job

	for _, card := range s.cards {
		if err := ctx.Err(); err != nil {
			s.stop, s.err = "cancelled", err
			return jobs, stateStop
		}
		if f.spec.Recent != nil && card.DatePosted != "" && !f.spec.Recent(card.DatePosted, s.q.Days) {
			f.logger.Debug("skipping stale card", "title", card.Title, "posted", card.DatePosted)
			continue
		}
		if _, ok := normalize.Job(src, s.keyword, card, parse.Detail{}); !ok {
			continue
		}

		switch f.collector.Claim(src, card.ID, card.URL) {
		case AlreadySeen:
			continue
		case LimitReached:
			return jobs, stateAdvance
		}

		job, fetched := f.detail(ctx, s.keyword, card)
		jobs = append(jobs, job)
		s.added++
		s.pageAdded++

		if fetched {
			if err := ratelimit.Pause(ctx, f.spec.Pacing.Detail); err != nil {
				s.stop, s.err = "cancelled", err
				return jobs, stateStop
			}
		}
	}
	s.cards = nil
	return jobs, stateAdvance
}

// detail builds the record for card, fetching its detail page when the card
// carries enough to locate one. The bool reports whether a request was made.
func (f *Fetcher) detail(ctx context.Context, keyword string, card parse.Card) (model.Job, bool) {
	src := f.spec.Source
	if card.URL == "" || card.ID == "" || card.ID == model.UnknownID {
		job, _ := normalize.Placeholder(src, keyword, card)
		return job, false
	}

	resp, err := f.client.Fetch(ctx, card.URL, f.spec.DetailProfile)
	if err != nil {
		f.logger.Warn("detail fetch failed", "job_id", card.ID, "url", card.URL, "error", err)
		job, _ := normalize.Placeholder(src, keyword, card)
		return job, true
	}

	d, err := parse.ParseDetail(resp.Body, resp.URL, f.spec.Detail)
	if err != nil {
		f.logger.Warn("detail parse failed", "job_id", card.ID, "error", err)
		job, _ := normalize.Placeholder(src, keyword, card)
		return job, true
	}
	job, _ := normalize.Job(src, keyword, card, d)
	if job.Description == "" {
		job.Description = normalize.PlaceholderDescription
	}
	return job, true
}

func (f *Fetcher) advance(ctx context.Context, s *session) state {
	switch {
	case f.collector.Full(f.spec.Source):
		s.stop = "limit reached"
		return stateStop
	case s.page > 0 && s.pageAdded == 0:
		s.stop = "no new jobs on page"
		return stateStop
	case s.page+1 >= f.spec.MaxPages:
		s.stop = "max depth"
		return stateStop
	}

	if err := ratelimit.Pause(ctx, f.spec.Pacing.Page); err != nil {
		s.stop, s.err = "cancelled", err
		return stateStop
	}
	s.page++
	return statePageFetch
}
