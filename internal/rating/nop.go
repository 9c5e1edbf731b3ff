package rating

import (
	"context"

	"github.com/amishk599/jobmatch/internal/model"
)

// NopRater is used when search credentials are missing. Every company is
// unrated, which the rating filter treats as a pass.
type NopRater struct{}

var _ model.Rater = (*NopRater)(nil)

// NewNopRater returns a NopRater.
func NewNopRater() *NopRater {
	return &NopRater{}
}

// Rate returns 0.
func (n *NopRater) Rate(_ context.Context, _, _ string) (float64, error) {
	return 0, nil
}
