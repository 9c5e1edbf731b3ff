package source

import (
	"sync"

	"github.com/amishk599/jobmatch/internal/model"
)

// Claim is the outcome of offering a card to the Collector.
type Claim int

const (
	Claimed Claim = iota
	AlreadySeen
	LimitReached
)

// Collector is shared by every fetcher in a run. It enforces the per-source
// record limit and remembers which postings were already taken.
type Collector struct {
	mu     sync.Mutex
	limit  int // <= 0 means unlimited
	counts map[model.Source]int
	seen   map[string]struct{}
}

// NewCollector returns a Collector that admits up to limit records per source.
func NewCollector(limit int) *Collector {
	return &Collector{
		limit:  limit,
		counts: make(map[model.Source]int),
		seen:   make(map[string]struct{}),
	}
}

// Claim reserves a slot for the posting identified by id (or url when the
// id is unknown). Postings with neither are always admitted.
func (c *Collector) Claim(src model.Source, id, url string) Claim {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limit > 0 && c.counts[src] >= c.limit {
		return LimitReached
	}
	key := claimKey(src, id, url)
	if key != "" {
		if _, ok := c.seen[key]; ok {
			return AlreadySeen
		}
		c.seen[key] = struct{}{}
	}
	c.counts[src]++
	return Claimed
}

// Full reports whether src has reached its limit.
func (c *Collector) Full(src model.Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit > 0 && c.counts[src] >= c.limit
}

// Count returns how many records src has claimed.
func (c *Collector) Count(src model.Source) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[src]
}

func claimKey(src model.Source, id, url string) string {
	switch {
	case id != "" && id != model.UnknownID:
		return string(src) + ":" + id
	case url != "":
		return string(src) + ":url:" + url
	default:
		return ""
	}
}
