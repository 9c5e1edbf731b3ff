package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/normalize"
	"github.com/amishk599/jobmatch/internal/retry"
)

// Input limits keep prompts inside the model's context window.
const (
	MaxResumeChars      = 32000
	MaxDescriptionChars = 16000
	maxSkills           = 5
)

// Reasons recorded when a job cannot be scored.
const (
	ReasonNoDescription = "No job description available"
	ReasonNoResume      = "No resume text available"
	reasonAPIError      = "API error after retries: "
)

// DefaultMatchPolicy retries transient LLM failures three times, starting at 2s.
func DefaultMatchPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.3,
	}
}

// LLMMatcher implements model.Matcher using an LLM.
type LLMMatcher struct {
	provider LLMProvider
	tmpl     *template.Template
	policy   retry.Policy
	logger   *slog.Logger
}

var _ model.Matcher = (*LLMMatcher)(nil)

// NewLLMMatcher creates a matcher that scores jobs against resume text.
func NewLLMMatcher(provider LLMProvider, tmpl *template.Template, policy retry.Policy, logger *slog.Logger) *LLMMatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &LLMMatcher{
		provider: provider,
		tmpl:     tmpl,
		policy:   policy,
		logger:   logger,
	}
}

type promptData struct {
	Title       string
	Company     string
	Description string
	Resume      string
}

// Match scores job against resumeText. It never fails the batch: when the
// LLM cannot be reached the returned result carries score 0 and the reason,
// alongside the error. Every result without a model verdict is Unscored.
func (m *LLMMatcher) Match(ctx context.Context, job model.Job, resumeText string) (model.MatchResult, error) {
	desc := strings.TrimSpace(job.Description)
	if desc == "" || desc == normalize.PlaceholderDescription {
		return model.MatchResult{Reason: ReasonNoDescription, Unscored: true}, nil
	}
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return model.MatchResult{Reason: ReasonNoResume, Unscored: true}, nil
	}

	var promptBuf bytes.Buffer
	if err := m.tmpl.Execute(&promptBuf, promptData{
		Title:       job.Title,
		Company:     job.Company,
		Description: truncate(desc, MaxDescriptionChars),
		Resume:      truncate(resumeText, MaxResumeChars),
	}); err != nil {
		return model.MatchResult{Reason: "render prompt: " + err.Error(), Unscored: true}, fmt.Errorf("render prompt: %w", err)
	}
	prompt := promptBuf.String()

	var result model.MatchResult
	err := m.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		raw, err := m.provider.Complete(ctx, prompt)
		if err != nil {
			return fmt.Errorf("llm complete: %w", err)
		}
		result, err = parseMatch(raw)
		if err != nil {
			return fmt.Errorf("parse match: %w", err)
		}
		return nil
	})
	if err != nil {
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			err = ex.Err
		}
		m.logger.Warn("match failed", "title", job.Title, "company", job.Company, "error", err)
		return model.MatchResult{Reason: reasonAPIError + err.Error(), Unscored: true}, err
	}
	return result, nil
}

// rawMatch is the JSON shape returned by the LLM (matches matchSchema).
type rawMatch struct {
	MatchScore   *float64 `json:"match_score"`
	SkillMatches []string `json:"skill_matches"`
	SkillGaps    []string `json:"skill_gaps"`
	MatchReason  string   `json:"match_reason"`
}

// parseMatch deserializes the LLM response, clamping the score and capping
// both skill lists.
func parseMatch(raw string) (model.MatchResult, error) {
	var rm rawMatch
	if err := json.Unmarshal([]byte(raw), &rm); err != nil {
		return model.MatchResult{}, fmt.Errorf("unmarshal match JSON: %w", err)
	}
	if rm.MatchScore == nil {
		return model.MatchResult{}, errors.New("missing match_score")
	}
	return model.MatchResult{
		Score:        model.ClampScore(int(*rm.MatchScore + 0.5)),
		Reason:       strings.TrimSpace(rm.MatchReason),
		SkillMatches: capList(rm.SkillMatches, maxSkills),
		SkillGaps:    capList(rm.SkillGaps, maxSkills),
	}, nil
}

func capList(xs []string, n int) []string {
	out := make([]string, 0, min(len(xs), n))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x == "" {
			continue
		}
		out = append(out, x)
		if len(out) == n {
			break
		}
	}
	return out
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
