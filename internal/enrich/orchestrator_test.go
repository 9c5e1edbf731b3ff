package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobmatch/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRater struct {
	mu      sync.Mutex
	ratings map[string]float64
	fail    map[string]bool
	calls   map[string]int
	hints   map[string]string
}

func (f *fakeRater) Rate(_ context.Context, company, hint string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
		f.hints = make(map[string]string)
	}
	f.calls[company]++
	f.hints[company] = hint
	if f.fail[company] {
		return 0, errors.New("search quota exceeded")
	}
	return f.ratings[company], nil
}

type fakeMatcher struct {
	scores   map[string]int
	fail     map[string]bool
	skip     map[string]bool
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeMatcher) Match(_ context.Context, job model.Job, _ string) (model.MatchResult, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	if f.fail[job.ID] {
		return model.MatchResult{Reason: "API error after retries: boom", Unscored: true}, errors.New("boom")
	}
	if f.skip[job.ID] {
		return model.MatchResult{Reason: "No resume text available", Unscored: true}, nil
	}
	return model.MatchResult{Score: f.scores[job.ID], Reason: "fit", SkillMatches: []string{"Go"}}, nil
}

func TestRate_DistinctCompaniesOnce(t *testing.T) {
	jobs := []model.Job{
		{ID: "1", Company: "Acme", Location: "Sydney"},
		{ID: "2", Company: " acme ", Location: "Melbourne"},
		{ID: "3", Company: "Globex", Location: model.NotSpecified},
		{ID: "4", Company: "No Company"},
	}
	r := &fakeRater{ratings: map[string]float64{"Acme": 4.2, "Globex": 7}}
	o := New(2, discardLogger())

	got, rep := o.Rate(context.Background(), jobs, r)
	if rep.Total != 2 || rep.Succeeded != 2 || rep.Failed != 0 {
		t.Errorf("unexpected report %+v", rep)
	}
	if r.calls["Acme"] != 1 || len(r.calls) != 2 {
		t.Errorf("expected one lookup per company, got %v", r.calls)
	}
	if r.hints["Acme"] != "Sydney" || r.hints["Globex"] != "" {
		t.Errorf("unexpected location hints %v", r.hints)
	}
	if got[0].Rating != 4.2 || got[1].Rating != 4.2 {
		t.Errorf("expected both Acme jobs rated 4.2, got %v/%v", got[0].Rating, got[1].Rating)
	}
	if got[2].Rating != 5 {
		t.Errorf("expected out-of-range rating clamped to 5, got %v", got[2].Rating)
	}
	if got[3].Rating != 0 {
		t.Errorf("expected placeholder company unrated, got %v", got[3].Rating)
	}
	if jobs[0].Rating != 0 {
		t.Error("expected input slice to be left untouched")
	}
}

func TestRate_FailureIsolated(t *testing.T) {
	jobs := []model.Job{{ID: "1", Company: "Acme"}, {ID: "2", Company: "Globex"}}
	r := &fakeRater{ratings: map[string]float64{"Globex": 3.5}, fail: map[string]bool{"Acme": true}}

	got, rep := New(5, nil).Rate(context.Background(), jobs, r)
	if rep.Failed != 1 || rep.Succeeded != 1 || len(rep.Errors) != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if got[0].Rating != 0 || got[1].Rating != 3.5 {
		t.Errorf("unexpected ratings %v/%v", got[0].Rating, got[1].Rating)
	}
}

func TestMatch_BoundedAndAppliedByIndex(t *testing.T) {
	var jobs []model.Job
	scores := make(map[string]int)
	for i := range 12 {
		id := string(rune('a' + i))
		jobs = append(jobs, model.Job{ID: id, Title: "T" + id, Company: "C"})
		scores[id] = 50 + i
	}
	m := &fakeMatcher{scores: scores, delay: 5 * time.Millisecond}

	got, rep := New(3, discardLogger()).Match(context.Background(), jobs, "resume", m)
	if rep.Succeeded != 12 {
		t.Fatalf("expected 12 successes, got %+v", rep)
	}
	if p := m.peak.Load(); p > 3 {
		t.Errorf("expected at most 3 concurrent matches, saw %d", p)
	}
	for i, j := range got {
		if j.MatchScore != 50+i {
			t.Errorf("job %s: expected score %d, got %d", j.ID, 50+i, j.MatchScore)
		}
	}
}

func TestMatch_FailureKeepsDegradedResult(t *testing.T) {
	jobs := []model.Job{{ID: "1"}, {ID: "2"}}
	m := &fakeMatcher{scores: map[string]int{"2": 90}, fail: map[string]bool{"1": true}}

	got, rep := New(2, nil).Match(context.Background(), jobs, "resume", m)
	if rep.Failed != 1 || rep.Succeeded != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(rep.FailedIdx) != 1 || rep.FailedIdx[0] != 0 {
		t.Errorf("expected failed position 0, got %v", rep.FailedIdx)
	}
	if got[0].MatchScore != 0 || !strings.HasPrefix(got[0].MatchReason, "API error after retries") {
		t.Errorf("unexpected degraded result %+v", got[0])
	}
	if got[1].MatchScore != 90 {
		t.Errorf("expected 90, got %d", got[1].MatchScore)
	}
}

func TestMatch_ReportsUnscoredPositions(t *testing.T) {
	jobs := []model.Job{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	m := &fakeMatcher{
		scores: map[string]int{"1": 0, "4": 80},
		fail:   map[string]bool{"2": true},
		skip:   map[string]bool{"3": true},
	}

	got, rep := New(1, discardLogger()).Match(context.Background(), jobs, "resume", m)
	unscored := slices.Sorted(slices.Values(rep.Unscored))
	if !slices.Equal(unscored, []int{1, 2}) {
		t.Errorf("expected unscored positions [1 2], got %v", rep.Unscored)
	}
	if rep.Failed != 1 || len(rep.FailedIdx) != 1 || rep.FailedIdx[0] != 1 {
		t.Errorf("expected only position 1 to fail, got %+v", rep)
	}
	if got[0].MatchScore != 0 || got[2].MatchReason != "No resume text available" {
		t.Errorf("unexpected results %+v", got)
	}
}

func TestMatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []model.Job{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	_, rep := New(1, nil).Match(ctx, jobs, "resume", &fakeMatcher{})
	if rep.Failed != 3 {
		t.Errorf("expected every item to fail on a cancelled context, got %+v", rep)
	}
}

func TestFilters(t *testing.T) {
	jobs := []model.Job{
		{ID: "a", Rating: 4.2, MatchScore: 95},
		{ID: "b", Rating: 4.2, MatchScore: 40},
		{ID: "c", Rating: 0, MatchScore: 88},
		{ID: "d", Rating: 3.5, MatchScore: 99},
		{ID: "e", Rating: 3.9, MatchScore: 71},
		{ID: "f", Rating: 4.0, MatchScore: 70},
	}

	rated := KeepRated(jobs, 3.9)
	if len(rated) != 5 {
		t.Fatalf("expected 5 jobs after rating filter, got %d", len(rated))
	}
	for _, j := range rated {
		if j.ID == "d" {
			t.Error("expected job rated 3.5 to be dropped")
		}
	}

	matched := KeepMatched(rated, 70)
	var ids []string
	for _, j := range matched {
		ids = append(ids, j.ID)
	}
	if got := strings.Join(ids, ","); got != "a,c,e" {
		t.Errorf("expected a,c,e above 70, got %s", got)
	}
}
