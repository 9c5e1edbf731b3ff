package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"text/template"

	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/normalize"
	"github.com/amishk599/jobmatch/internal/retry"
)

// mockProvider replays responses in order, repeating the last one.
type mockProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := min(m.calls, max(len(m.responses), len(m.errs))-1)
	m.calls++
	m.prompts = append(m.prompts, prompt)
	var resp string
	var err error
	if i >= 0 && i < len(m.responses) {
		resp = m.responses[i]
	}
	if i >= 0 && i < len(m.errs) {
		err = m.errs[i]
	}
	return resp, err
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3}
}

func newTestMatcher(p LLMProvider) *LLMMatcher {
	tmpl := template.Must(template.New("test").Parse("{{.Title}}|{{.Company}}|{{.Description}}|{{.Resume}}"))
	return NewLLMMatcher(p, tmpl, fastPolicy(), nil)
}

func testJob(desc string) model.Job {
	return model.Job{ID: "1", Title: "Data Engineer", Company: "Acme", Description: desc}
}

func TestMatch_ParsesAndClamps(t *testing.T) {
	p := &mockProvider{responses: []string{`{
		"match_score": 140,
		"skill_matches": ["Go", "Kafka", " ", "SQL", "AWS", "Docker", "Terraform"],
		"skill_gaps": ["Spark"],
		"match_reason": " Strong backend alignment. "
	}`}}
	m := newTestMatcher(p)

	got, err := m.Match(context.Background(), testJob("Build pipelines"), "Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 100 || got.Unscored {
		t.Errorf("expected a scored verdict clamped to 100, got %+v", got)
	}
	if len(got.SkillMatches) != 5 || got.SkillMatches[2] != "SQL" {
		t.Errorf("expected 5 non-blank skill matches, got %v", got.SkillMatches)
	}
	if got.Reason != "Strong backend alignment." {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if !strings.Contains(p.prompts[0], "Data Engineer|Acme|Build pipelines|Go developer") {
		t.Errorf("unexpected prompt %q", p.prompts[0])
	}
}

func TestMatch_EmptyInputsSkipProvider(t *testing.T) {
	p := &mockProvider{}
	m := newTestMatcher(p)

	tests := []struct {
		desc, resume, reason string
	}{
		{"", "resume", ReasonNoDescription},
		{normalize.PlaceholderDescription, "resume", ReasonNoDescription},
		{"Build pipelines", "  ", ReasonNoResume},
	}
	for _, tt := range tests {
		got, err := m.Match(context.Background(), testJob(tt.desc), tt.resume)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Score != 0 || got.Reason != tt.reason {
			t.Errorf("desc %q resume %q: got %d %q", tt.desc, tt.resume, got.Score, got.Reason)
		}
		if !got.Unscored {
			t.Errorf("desc %q resume %q: expected an unscored result", tt.desc, tt.resume)
		}
	}
	if p.calls != 0 {
		t.Errorf("expected provider not to be called, got %d calls", p.calls)
	}
}

func TestMatch_RetriesTransientThenSucceeds(t *testing.T) {
	p := &mockProvider{
		responses: []string{"", "not json", `{"match_score":72,"skill_matches":[],"skill_gaps":[],"match_reason":"ok"}`},
		errs:      []error{&model.HTTPError{StatusCode: http.StatusServiceUnavailable}, nil, nil},
	}
	m := newTestMatcher(p)

	got, err := m.Match(context.Background(), testJob("Build pipelines"), "resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 72 {
		t.Errorf("expected score 72, got %d", got.Score)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 calls, got %d", p.calls)
	}
}

func TestMatch_ExhaustedDegradesToZero(t *testing.T) {
	p := &mockProvider{errs: []error{errors.New("connection reset")}}
	m := newTestMatcher(p)

	got, err := m.Match(context.Background(), testJob("Build pipelines"), "resume")
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if got.Score != 0 || !got.Unscored || !strings.HasPrefix(got.Reason, "API error after retries: ") {
		t.Errorf("unexpected result %+v", got)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls)
	}
}

func TestMatch_AuthErrorNotRetried(t *testing.T) {
	p := &mockProvider{errs: []error{&model.HTTPError{StatusCode: http.StatusUnauthorized}}}
	m := newTestMatcher(p)

	got, err := m.Match(context.Background(), testJob("Build pipelines"), "resume")
	if err == nil || got.Score != 0 {
		t.Fatalf("expected zero-score failure, got %+v %v", got, err)
	}
	if p.calls != 1 {
		t.Errorf("expected a single attempt, got %d", p.calls)
	}
}

func TestMatch_TruncatesInputs(t *testing.T) {
	p := &mockProvider{responses: []string{`{"match_score":1,"skill_matches":[],"skill_gaps":[],"match_reason":""}`}}
	m := newTestMatcher(p)

	desc := strings.Repeat("d", MaxDescriptionChars+500)
	resume := strings.Repeat("é", MaxResumeChars+10)
	if _, err := m.Match(context.Background(), testJob(desc), resume); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := strings.Split(p.prompts[0], "|")
	if len(parts[2]) != MaxDescriptionChars {
		t.Errorf("expected description truncated to %d, got %d", MaxDescriptionChars, len(parts[2]))
	}
	if n := len([]rune(parts[3])); n != MaxResumeChars {
		t.Errorf("expected resume truncated to %d runes, got %d", MaxResumeChars, n)
	}
}

func TestParseMatch_MissingScore(t *testing.T) {
	if _, err := parseMatch(`{"match_reason":"x"}`); err == nil {
		t.Error("expected error for missing match_score")
	}
}

func TestNopMatcher(t *testing.T) {
	got, err := NewNopMatcher().Match(context.Background(), testJob("x"), "y")
	if err != nil || got.Score != 0 || !got.Unscored || got.Reason != ReasonDisabled {
		t.Errorf("unexpected nop result %+v %v", got, err)
	}
}
