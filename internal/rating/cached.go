package rating

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/amishk599/jobmatch/internal/model"
)

// Cache persists ratings between runs.
type Cache interface {
	Rating(company string) (rating float64, fetchedAt time.Time, ok bool, err error)
	PutRating(company string, rating float64) error
}

// CachedRater serves ratings from a Cache while they are younger than ttl
// and falls through to the wrapped Rater otherwise.
type CachedRater struct {
	next   model.Rater
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

var _ model.Rater = (*CachedRater)(nil)

// NewCachedRater wraps next with cache. A non-positive ttl never expires.
func NewCachedRater(next model.Rater, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedRater {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedRater{next: next, cache: cache, ttl: ttl, now: time.Now, logger: logger}
}

// Rate returns the cached rating when fresh. Only successful lookups are
// cached; cache errors are logged and bypassed.
func (c *CachedRater) Rate(ctx context.Context, company, locationHint string) (float64, error) {
	rating, fetchedAt, ok, err := c.cache.Rating(company)
	if err != nil {
		c.logger.Warn("rating cache read failed", "company", company, "error", err)
	} else if ok && (c.ttl <= 0 || c.now().Sub(fetchedAt) < c.ttl) {
		return rating, nil
	}

	rating, err = c.next.Rate(ctx, company, locationHint)
	if err != nil {
		return 0, err
	}
	if err := c.cache.PutRating(company, rating); err != nil {
		c.logger.Warn("rating cache write failed", "company", company, "error", err)
	}
	return rating, nil
}
