// -----------------------------------------------------------------------
// Job Store - In-memory job state keyed by job ID
// -----------------------------------------------------------------------

package store

import (
	"sync"

	"github.com/ternarybob/aestimo/internal/models"
)

// JobStore holds all job state in memory behind a single RWMutex. Job
// records are never persisted; a restart forgets everything.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*models.Job),
	}
}

// Put registers a job. An existing job with the same ID is replaced.
func (s *JobStore) Put(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a snapshot copy of the job, or NotFoundError.
// The copy keeps readers from observing partial mutations.
func (s *JobStore) Get(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &models.NotFoundError{JobID: id}
	}
	snapshot := *job
	return &snapshot, nil
}

// Update applies fn to the job under the write lock. This is the per-job
// critical section: status checks and transitions inside fn are atomic with
// respect to every other Update and Get.
func (s *JobStore) Update(id string, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return &models.NotFoundError{JobID: id}
	}
	fn(job)
	return nil
}

// List returns snapshot copies of all jobs in unspecified order
func (s *JobStore) List() []*models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// Count returns the number of stored jobs
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Delete removes a job. Deleting an unknown ID is a no-op.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
