// Package pipeline runs one end-to-end pass: fetch every source, merge,
// filter, enrich, rank, write, and notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobmatch/internal/enrich"
	"github.com/amishk599/jobmatch/internal/filter"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/normalize"
	"github.com/amishk599/jobmatch/internal/rank"
	"github.com/amishk599/jobmatch/internal/source"
)

// JobSource fetches jobs from one listing site. Returned jobs are kept even
// when err is non-nil.
type JobSource interface {
	Source() model.Source
	Fetch(ctx context.Context, q source.Query) ([]model.Job, error)
}

var _ JobSource = (*source.Fetcher)(nil)

// History remembers jobs scored by earlier runs.
type History interface {
	HasSeen(key string) (bool, error)
	MarkSeen(key string) error
}

// ResultWriter persists ranked jobs.
type ResultWriter interface {
	Merge(jobs []model.Job) (rank.MergeResult, error)
}

var _ ResultWriter = (*rank.CSVWriter)(nil)

// ErrNoJobs is returned when no source produced a single job.
var ErrNoJobs = errors.New("no jobs fetched from any source")

// Options tunes a run.
type Options struct {
	Query           source.Query
	RatingThreshold float64
	MatchThreshold  int
	SkipSeen        bool
	Top             int // rows in the printed summary, zero prints nothing
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Sources  []JobSource // dedup keeps the first source's record on a cross-source collision
	Filters  []model.JobFilter
	History  History
	Enricher *enrich.Orchestrator
	Rater    model.Rater
	Matcher  model.Matcher
	Writer   ResultWriter
	Notifier model.Notifier
	Out      io.Writer // summary table destination, nil discards
	Logger   *slog.Logger
}

// Summary describes what a run did.
type Summary struct {
	RunID        string
	Fetched      map[model.Source]int
	SourceErrors map[model.Source]error
	Unique       int
	Kept         int // after exclusion filters
	Unseen       int
	Rated        int // after the rating threshold
	Matched      int // after the match threshold
	Rating       enrich.Report
	Matching     enrich.Report
	Merge        rank.MergeResult
	Top          []model.Job
}

// Pipeline owns the full run: fetch → dedup → filter → skip seen → rate →
// match → rank → write → notify → mark seen.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a pipeline wired with all its dependencies.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Enricher == nil {
		deps.Enricher = enrich.New(enrich.DefaultWorkers, deps.Logger)
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Run executes one pass with the given resume text. An empty resume scores
// every job 0, which the match threshold then drops.
func (p *Pipeline) Run(ctx context.Context, resumeText string) (Summary, error) {
	sum := Summary{
		RunID:        uuid.NewString(),
		Fetched:      make(map[model.Source]int),
		SourceErrors: make(map[model.Source]error),
	}
	logger := p.deps.Logger.With("run_id", sum.RunID)
	logger.Info("run started", "sources", len(p.deps.Sources), "keywords", p.opts.Query.Keywords)

	batches := p.fetchAll(ctx, logger, &sum)
	total := 0
	for _, n := range sum.Fetched {
		total += n
	}
	if total == 0 {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		return sum, ErrNoJobs
	}

	jobs := normalize.Dedup(batches...)
	sum.Unique = len(jobs)

	jobs = filter.Apply(jobs, p.deps.Filters...)
	sum.Kept = len(jobs)

	jobs = p.unseen(jobs, logger)
	sum.Unseen = len(jobs)
	logger.Info("jobs ready for enrichment",
		"fetched", total, "unique", sum.Unique, "kept", sum.Kept, "unseen", sum.Unseen)

	rated, rep := p.deps.Enricher.Rate(ctx, jobs, p.deps.Rater)
	sum.Rating = rep
	rated = enrich.KeepRated(rated, p.opts.RatingThreshold)
	sum.Rated = len(rated)

	scored, rep := p.deps.Enricher.Match(ctx, rated, resumeText, p.deps.Matcher)
	sum.Matching = rep
	matched := enrich.KeepMatched(scored, p.opts.MatchThreshold)
	sum.Matched = len(matched)
	logger.Info("enrichment complete",
		"rated", sum.Rated, "rating_failures", sum.Rating.Failed,
		"matched", sum.Matched, "match_failures", sum.Matching.Failed)

	rank.Sort(matched)
	res, err := p.deps.Writer.Merge(matched)
	if err != nil {
		return sum, fmt.Errorf("writing results: %w", err)
	}
	sum.Merge = res
	sum.Top = rank.Top(matched, p.opts.Top)
	logger.Info("results written", "path", res.Path, "added", len(res.Added), "skipped", res.Skipped, "total", res.Total)

	if p.opts.Top > 0 && len(matched) > 0 {
		fmt.Fprintln(p.deps.Out, rank.Table(matched, p.opts.Top))
	}

	if len(res.Added) > 0 && p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(res.Added); err != nil {
			logger.Error("notification failed", "error", err)
		}
	}

	p.markSeen(scored, rep.Unscored, logger)

	return sum, ctx.Err()
}

// fetchAll runs every source concurrently. A failing source never cancels
// its siblings and whatever it fetched before failing is kept.
func (p *Pipeline) fetchAll(ctx context.Context, logger *slog.Logger, sum *Summary) [][]model.Job {
	batches := make([][]model.Job, len(p.deps.Sources))
	errs := make([]error, len(p.deps.Sources))

	var g errgroup.Group
	for i, src := range p.deps.Sources {
		g.Go(func() error {
			l := logger.With("source", src.Source())
			l.Info("fetching")
			jobs, err := src.Fetch(ctx, p.opts.Query)
			batches[i], errs[i] = jobs, err
			if err != nil {
				l.Warn("source stopped early", "fetched", len(jobs), "error", err)
				return nil
			}
			l.Info("source complete", "fetched", len(jobs))
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range p.deps.Sources {
		sum.Fetched[src.Source()] += len(batches[i])
		if errs[i] != nil {
			sum.SourceErrors[src.Source()] = errs[i]
		}
	}
	return batches
}

func (p *Pipeline) unseen(jobs []model.Job, logger *slog.Logger) []model.Job {
	if !p.opts.SkipSeen || p.deps.History == nil {
		return jobs
	}
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		seen, err := p.deps.History.HasSeen(historyKey(j))
		if err != nil {
			logger.Warn("history lookup failed", "title", j.Title, "company", j.Company, "error", err)
		}
		if !seen {
			out = append(out, j)
		}
	}
	return out
}

// markSeen records every job the matcher produced a verdict for, so later
// runs do not pay for them again. Failed or degraded matches (no resume, no
// description, matching disabled) stay eligible.
func (p *Pipeline) markSeen(scored []model.Job, unscored []int, logger *slog.Logger) {
	if p.deps.History == nil {
		return
	}
	for i, j := range scored {
		if slices.Contains(unscored, i) {
			continue
		}
		if err := p.deps.History.MarkSeen(historyKey(j)); err != nil {
			logger.Warn("history update failed", "title", j.Title, "company", j.Company, "error", err)
		}
	}
}

func historyKey(j model.Job) string {
	return "job:" + j.Key()
}
