package server

import (
	"sort"
	"sync"
	"time"
)

// RunTable holds recent runs for status polling. It is in-memory only;
// the archive backend keeps the durable history.
type RunTable struct {
	mu   sync.RWMutex
	runs map[string]*Job
}

// NewRunTable creates an empty table.
func NewRunTable() *RunTable {
	return &RunTable{
		runs: make(map[string]*Job),
	}
}

// Get retrieves a run by ID. The returned Job is a copy, safe to read
// while the run is still executing.
func (t *RunTable) Get(id string) (*Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.runs[id]
	if !ok {
		return nil, false
	}
	c := *job
	return &c, true
}

// Put stores a run.
func (t *RunTable) Put(job *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[job.ID] = job
}

// Update applies fn to the run with the given ID, under the table
// lock. Missing IDs are ignored.
func (t *RunTable) Update(id string, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.runs[id]; ok {
		fn(job)
	}
}

// Delete removes a run.
func (t *RunTable) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, id)
}

// List returns copies of all runs, newest first.
func (t *RunTable) List() []*Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := make([]*Job, 0, len(t.runs))
	for _, job := range t.runs {
		c := *job
		jobs = append(jobs, &c)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Submitted.After(jobs[j].Submitted)
	})
	return jobs
}

// Count returns the number of tracked runs.
func (t *RunTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}

// Cleanup removes finished runs older than maxAge and returns how many
// were dropped.
func (t *RunTable) Cleanup(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range t.runs {
		if !job.finished() {
			continue
		}
		if job.Finished != nil && job.Finished.Before(cutoff) {
			delete(t.runs, id)
			removed++
		}
	}

	return removed
}

// RunTableStats summarizes table occupancy by status.
type RunTableStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Stats counts runs by status.
func (t *RunTable) Stats() RunTableStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var stats RunTableStats
	for _, job := range t.runs {
		stats.Total++
		switch job.Status {
		case "pending":
			stats.Pending++
		case "running":
			stats.Running++
		case "completed":
			stats.Completed++
		case "failed":
			stats.Failed++
		}
	}
	return stats
}
