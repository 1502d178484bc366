// -----------------------------------------------------------------------
// Job - Payment-gated job record and status lifecycle
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	// JobStatusAwaitingPayment means the payment request was created and the
	// job is waiting for on-chain confirmation
	JobStatusAwaitingPayment JobStatus = "awaiting_payment"
	// JobStatusRunning means payment was confirmed and the task is executing
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means the task finished and the payment was finalized
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the task failed, the payment expired, or an
	// internal error occurred
	JobStatusFailed JobStatus = "failed"
)

// CanTransition reports whether a status transition is allowed.
// Valid edges: awaiting_payment -> running, awaiting_payment -> failed,
// running -> completed, running -> failed.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusAwaitingPayment:
		return to == JobStatusRunning || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// PaymentQuote holds the payment request details returned by the payment
// service when a job is created. All times are unix milliseconds as quoted
// by the service.
type PaymentQuote struct {
	BlockchainIdentifier      string   `json:"blockchainIdentifier"`
	PayByTime                 string   `json:"payByTime"`
	SubmitResultTime          string   `json:"submitResultTime"`
	UnlockTime                string   `json:"unlockTime"`
	ExternalDisputeUnlockTime string   `json:"externalDisputeUnlockTime"`
	InputHash                 string   `json:"input_hash"`
	Amounts                   []Amount `json:"amounts"`
}

// Amount is a single payment amount in a given unit (e.g. lovelace)
type Amount struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// Job is the in-memory record for a payment-gated task. It is stored in the
// job store and mutated only through the store's Update critical section.
type Job struct {
	ID            string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Kind          TaskKind  `json:"task_kind"`

	// Input is the serialized task input exactly as accepted at submit time.
	// It is re-parsed when the task runs.
	Input []byte `json:"-"`

	PurchaserID string       `json:"identifier_from_purchaser"`
	Quote       PaymentQuote `json:"quote"`

	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`

	// FinalizeError records a payment finalization failure after the task
	// produced a result. The job stays in running status and needs operator
	// attention; it never retries automatically.
	FinalizeError string `json:"finalize_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a job in awaiting_payment with its payment quote attached
func NewJob(id string, kind TaskKind, input []byte, purchaserID string, quote PaymentQuote) *Job {
	return &Job{
		ID:            id,
		Status:        JobStatusAwaitingPayment,
		PaymentStatus: "pending",
		Kind:          kind,
		Input:         input,
		PurchaserID:   purchaserID,
		Quote:         quote,
		CreatedAt:     time.Now(),
	}
}

// MarkRunning transitions the job to running
func (j *Job) MarkRunning() {
	j.Status = JobStatusRunning
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted transitions the job to completed with its result
func (j *Job) MarkCompleted(result *Result) {
	j.Status = JobStatusCompleted
	j.PaymentStatus = "completed"
	j.Result = result
	j.Error = ""
	now := time.Now()
	j.CompletedAt = &now
}

// MarkFailed transitions the job to failed with an error message
func (j *Job) MarkFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.Error = errorMsg
	j.Result = nil
	now := time.Now()
	j.CompletedAt = &now
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsStuck returns true if the job finished its task but payment
// finalization failed
func (j *Job) IsStuck() bool {
	return j.Status == JobStatusRunning && j.FinalizeError != ""
}

// NotFoundError indicates a lookup for an unknown job ID
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// JobView is the read-only status projection returned to API clients.
// Result is populated only for completed jobs.
type JobView struct {
	JobID         string      `json:"job_id"`
	Status        JobStatus   `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	Result        interface{} `json:"result"`
	Error         string      `json:"error,omitempty"`
}

// View projects the job into its API representation
func (j *Job) View() JobView {
	view := JobView{
		JobID:         j.ID,
		Status:        j.Status,
		PaymentStatus: j.PaymentStatus,
		Error:         j.Error,
	}
	if j.Status == JobStatusCompleted && j.Result != nil {
		view.Result = j.Result.Project()
	}
	if j.IsStuck() {
		view.Error = j.FinalizeError
	}
	return view
}
