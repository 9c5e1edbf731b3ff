// Package enrich attaches company ratings and resume match results to jobs
// using a bounded worker pool. A failing lookup never fails the batch.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/normalize"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 5

// Report summarizes one enrichment stage.
type Report struct {
	Stage     string
	Total     int
	Succeeded int
	Failed    int
	Errors    []error
	FailedIdx []int // work item positions that failed, in completion order
	Unscored  []int // matching only: positions without a model verdict, failures included
}

// Orchestrator runs rating and matching stages over a batch of jobs.
type Orchestrator struct {
	workers int
	logger  *slog.Logger
}

// New returns an Orchestrator with at most workers concurrent calls per stage.
func New(workers int, logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{workers: workers, logger: logger}
}

type company struct {
	name string
	hint string
}

// Rate looks up each distinct company once and returns a copy of jobs with
// Rating set. Failed lookups leave the rating at 0.
func (o *Orchestrator) Rate(ctx context.Context, jobs []model.Job, rater model.Rater) ([]model.Job, Report) {
	var companies []company
	index := make(map[string]int)
	for _, j := range jobs {
		key := companyKey(j.Company)
		if key == "" {
			continue
		}
		if _, ok := index[key]; !ok {
			index[key] = len(companies)
			companies = append(companies, company{name: strings.TrimSpace(j.Company), hint: j.Location})
		}
	}

	ratings := make([]float64, len(companies))
	rep := run(ctx, o, "rating", len(companies),
		func(ctx context.Context, i int) (float64, error) {
			hint := companies[i].hint
			if hint == model.NotSpecified {
				hint = ""
			}
			return rater.Rate(ctx, companies[i].name, hint)
		},
		func(i int, rating float64, err error) []any {
			if err == nil {
				ratings[i] = model.ClampRating(rating)
			}
			return []any{"company", companies[i].name, "rating", ratings[i]}
		},
	)

	out := make([]model.Job, len(jobs))
	copy(out, jobs)
	for i := range out {
		if idx, ok := index[companyKey(out[i].Company)]; ok {
			out[i].Rating = ratings[idx]
		}
	}
	return out, rep
}

// Match scores every job against resumeText and returns a copy of jobs with
// the match fields set. A failed match keeps its degraded zero-score result.
func (o *Orchestrator) Match(ctx context.Context, jobs []model.Job, resumeText string, matcher model.Matcher) ([]model.Job, Report) {
	out := make([]model.Job, len(jobs))
	copy(out, jobs)
	var unscored []int

	rep := run(ctx, o, "matching", len(out),
		func(ctx context.Context, i int) (model.MatchResult, error) {
			return matcher.Match(ctx, jobs[i], resumeText)
		},
		func(i int, res model.MatchResult, err error) []any {
			if err != nil && res.Reason == "" {
				res.Reason = "match failed: " + err.Error()
			}
			if err != nil || res.Unscored {
				unscored = append(unscored, i)
			}
			out[i].MatchScore = model.ClampScore(res.Score)
			out[i].MatchReason = res.Reason
			out[i].SkillMatches = res.SkillMatches
			out[i].SkillGaps = res.SkillGaps
			return []any{"title", out[i].Title, "company", out[i].Company, "score", out[i].MatchScore}
		},
	)
	rep.Unscored = unscored
	return out, rep
}

// KeepRated keeps jobs whose rating is unknown (0) or at least threshold.
func KeepRated(jobs []model.Job, threshold float64) []model.Job {
	var out []model.Job
	for _, j := range jobs {
		if j.Rating == 0 || j.Rating >= threshold {
			out = append(out, j)
		}
	}
	return out
}

// KeepMatched keeps jobs scoring strictly above threshold.
func KeepMatched(jobs []model.Job, threshold int) []model.Job {
	var out []model.Job
	for _, j := range jobs {
		if j.MatchScore > threshold {
			out = append(out, j)
		}
	}
	return out
}

func companyKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == strings.ToLower(normalize.NoCompany) {
		return ""
	}
	return key
}

type outcome[T any] struct {
	idx int
	val T
	err error
}

// run executes work for indices [0, n) on a bounded pool. Outcomes are
// consumed in completion order on the calling goroutine and handed to apply
// with their index, so apply needs no locking.
func run[T any](
	ctx context.Context,
	o *Orchestrator,
	stage string,
	n int,
	work func(ctx context.Context, i int) (T, error),
	apply func(i int, v T, err error) []any,
) Report {
	rep := Report{Stage: stage, Total: n}
	if n == 0 {
		return rep
	}

	results := make(chan outcome[T], n)
	go func() {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					var zero T
					results <- outcome[T]{idx: i, val: zero, err: err}
					return nil
				}
				v, err := work(ctx, i)
				results <- outcome[T]{idx: i, val: v, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		attrs := apply(r.idx, r.val, r.err)
		attrs = append(attrs, "stage", stage, "done", done, "total", n)
		if r.err != nil {
			rep.Failed++
			rep.FailedIdx = append(rep.FailedIdx, r.idx)
			rep.Errors = append(rep.Errors, fmt.Errorf("%s item %d: %w", stage, r.idx, r.err))
			o.logger.Warn("enrichment failed", append(attrs, "error", r.err)...)
			continue
		}
		rep.Succeeded++
		o.logger.Info("enriched", attrs...)
	}
	return rep
}
