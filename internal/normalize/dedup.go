package normalize

import (
	"sync"

	"github.com/amishk599/jobmatch/internal/model"
)

// Dedup merges batches in order, keeping the first record seen for each
// title/company key.
func Dedup(batches ...[]model.Job) []model.Job {
	m := NewMerger()
	for _, b := range batches {
		m.Add(b...)
	}
	return m.Jobs()
}

// Merger accumulates records from concurrent producers, keeping the first
// arrival for each key.
type Merger struct {
	mu   sync.Mutex
	seen map[string]struct{}
	jobs []model.Job
	dups int
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{seen: make(map[string]struct{})}
}

// Add appends jobs whose key has not been seen and returns how many were new.
func (m *Merger) Add(jobs ...model.Job) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, j := range jobs {
		k := j.Key()
		if _, ok := m.seen[k]; ok {
			m.dups++
			continue
		}
		m.seen[k] = struct{}{}
		m.jobs = append(m.jobs, j)
		added++
	}
	return added
}

// Jobs returns a copy of the merged records in arrival order.
func (m *Merger) Jobs() []model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Job, len(m.jobs))
	copy(out, m.jobs)
	return out
}

// Duplicates returns how many records were dropped as duplicates.
func (m *Merger) Duplicates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dups
}
