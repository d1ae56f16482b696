package operations

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MemoryJobStore keeps analysis jobs for the lifetime of the web process.
// Records are cloned on the way in and out so handlers never observe a job
// a worker is still mutating.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*Job)}
}

// clone copies j along with its sheet list. The analysis result is shared;
// it is written once when the job completes and never mutated afterwards.
func clone(j *Job) *Job {
	c := *j
	if j.Input.Sheets != nil {
		c.Input.Sheets = append([]string(nil), j.Input.Sheets...)
	}
	return &c
}

func (s *MemoryJobStore) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *MemoryJobStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return clone(job), nil
}

func (s *MemoryJobStore) UpdateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return NewNotFoundError(job.ID)
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

// matches applies every non-zero field of f to j.
func (f JobFilter) matches(j *Job) bool {
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && j.CreatedAt.Before(f.Since) {
		return false
	}
	if f.File != "" && j.Input.File != f.File && filepath.Base(j.Input.File) != f.File {
		return false
	}
	return true
}

// ListJobs returns the jobs matching filter, newest first. Jobs created at
// the same instant are ordered by id so pages are stable.
func (s *MemoryJobStore) ListJobs(filter JobFilter) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.matches(j) {
			out = append(out, clone(j))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryJobStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return NewNotFoundError(id)
	}
	delete(s.jobs, id)
	return nil
}

// CleanupOldJobs drops finished jobs, and the analysis tables they hold,
// once they completed more than olderThan ago. Pending and running jobs are
// never removed.
func (s *MemoryJobStore) CleanupOldJobs(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if !j.IsFinished() || j.CompletedAt == nil || !j.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, id)
		n++
	}
	return n, nil
}

// GetStats counts jobs per status plus a "total" entry, for /healthz.
func (s *MemoryJobStore) GetStats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]int, 5)
	stats["total"] = len(s.jobs)
	for _, j := range s.jobs {
		stats[string(j.Status)]++
	}
	return stats
}
