package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ternarybob/aestimo/internal/models"
)

func newTestJob(id string) *models.Job {
	return models.NewJob(id, models.TaskKindGenericResearch, []byte(`{"text":"t"}`), "p", models.PaymentQuote{})
}

func TestJobStorePutGet(t *testing.T) {
	s := NewJobStore()
	s.Put(newTestJob("job_1"))

	job, err := s.Get("job_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.ID != "job_1" {
		t.Errorf("ID = %s, want job_1", job.ID)
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestJobStoreGetNotFound(t *testing.T) {
	s := NewJobStore()
	_, err := s.Get("job_missing")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *models.NotFoundError", err)
	}
}

func TestJobStoreGetReturnsSnapshot(t *testing.T) {
	s := NewJobStore()
	s.Put(newTestJob("job_1"))

	snapshot, _ := s.Get("job_1")
	snapshot.Status = models.JobStatusFailed

	stored, _ := s.Get("job_1")
	if stored.Status != models.JobStatusAwaitingPayment {
		t.Error("mutating a Get result must not affect stored state")
	}
}

func TestJobStoreUpdate(t *testing.T) {
	s := NewJobStore()
	s.Put(newTestJob("job_1"))

	err := s.Update("job_1", func(j *models.Job) {
		j.MarkRunning()
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	job, _ := s.Get("job_1")
	if job.Status != models.JobStatusRunning {
		t.Errorf("status = %s, want running", job.Status)
	}
}

func TestJobStoreUpdateNotFound(t *testing.T) {
	s := NewJobStore()
	err := s.Update("job_missing", func(j *models.Job) {})
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *models.NotFoundError", err)
	}
}

func TestJobStoreDelete(t *testing.T) {
	s := NewJobStore()
	s.Put(newTestJob("job_1"))
	s.Delete("job_1")
	if _, err := s.Get("job_1"); err == nil {
		t.Error("deleted job must not be found")
	}
	// Deleting again is a no-op
	s.Delete("job_1")
}

// TestJobStoreConcurrentUpdates verifies Update gives each caller an atomic
// read-modify-write: concurrent status transitions never double-apply.
func TestJobStoreConcurrentUpdates(t *testing.T) {
	s := NewJobStore()
	s.Put(newTestJob("job_1"))

	var transitions int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("job_1", func(j *models.Job) {
				if j.Status == models.JobStatusAwaitingPayment {
					j.MarkRunning()
					transitions++
				}
			})
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Errorf("transitions = %d, want exactly 1", transitions)
	}
}

func TestJobStoreList(t *testing.T) {
	s := NewJobStore()
	for i := 0; i < 3; i++ {
		s.Put(newTestJob(fmt.Sprintf("job_%d", i)))
	}
	if got := len(s.List()); got != 3 {
		t.Errorf("List returned %d jobs, want 3", got)
	}
}
