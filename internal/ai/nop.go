package ai

import (
	"context"

	"github.com/amishk599/jobmatch/internal/model"
)

// ReasonDisabled is recorded on every job when no AI credentials are configured.
const ReasonDisabled = "Matching disabled: no AI credentials configured"

// NopMatcher is a no-op matcher used when ai.api_key is missing.
// Every job scores 0 with no LLM calls.
type NopMatcher struct{}

var _ model.Matcher = (*NopMatcher)(nil)

// NewNopMatcher returns a NopMatcher.
func NewNopMatcher() *NopMatcher {
	return &NopMatcher{}
}

// Match returns a zero score.
func (n *NopMatcher) Match(_ context.Context, _ model.Job, _ string) (model.MatchResult, error) {
	return model.MatchResult{Reason: ReasonDisabled, Unscored: true}, nil
}
