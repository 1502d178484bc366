package models

import (
	"testing"
)

// TestCanTransition verifies the job status state machine edges
func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     JobStatus
		to       JobStatus
		expected bool
	}{
		{
			name:     "awaiting_payment to running",
			from:     JobStatusAwaitingPayment,
			to:       JobStatusRunning,
			expected: true,
		},
		{
			name:     "awaiting_payment to failed",
			from:     JobStatusAwaitingPayment,
			to:       JobStatusFailed,
			expected: true,
		},
		{
			name:     "awaiting_payment to completed skips running",
			from:     JobStatusAwaitingPayment,
			to:       JobStatusCompleted,
			expected: false,
		},
		{
			name:     "running to completed",
			from:     JobStatusRunning,
			to:       JobStatusCompleted,
			expected: true,
		},
		{
			name:     "running to failed",
			from:     JobStatusRunning,
			to:       JobStatusFailed,
			expected: true,
		},
		{
			name:     "running back to awaiting_payment",
			from:     JobStatusRunning,
			to:       JobStatusAwaitingPayment,
			expected: false,
		},
		{
			name:     "completed is terminal",
			from:     JobStatusCompleted,
			to:       JobStatusFailed,
			expected: false,
		},
		{
			name:     "failed is terminal",
			from:     JobStatusFailed,
			to:       JobStatusRunning,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob("job_test", TaskKindGenericResearch, []byte(`{"text":"topic"}`), "purchaser_1", PaymentQuote{
		BlockchainIdentifier: "block_abc",
	})

	if job.Status != JobStatusAwaitingPayment {
		t.Errorf("new job status = %s, want awaiting_payment", job.Status)
	}
	if job.PaymentStatus != "pending" {
		t.Errorf("new job payment_status = %s, want pending", job.PaymentStatus)
	}
	if job.IsTerminal() {
		t.Error("new job should not be terminal")
	}

	job.MarkRunning()
	if job.Status != JobStatusRunning || job.StartedAt == nil {
		t.Errorf("MarkRunning: status=%s startedAt=%v", job.Status, job.StartedAt)
	}

	job.MarkCompleted(TextResult("report"))
	if !job.IsTerminal() {
		t.Error("completed job should be terminal")
	}
	if job.Result == nil || job.Error != "" {
		t.Errorf("completed job must have result and no error, got result=%v error=%q", job.Result, job.Error)
	}
	if job.PaymentStatus != "completed" {
		t.Errorf("completed job payment_status = %s, want completed", job.PaymentStatus)
	}
}

func TestJobMarkFailedClearsResult(t *testing.T) {
	job := NewJob("job_test", TaskKindTrading, nil, "p", PaymentQuote{})
	job.MarkRunning()
	job.MarkFailed("task blew up")

	if job.Status != JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.Result != nil {
		t.Error("failed job must not carry a result")
	}
	if job.Error == "" {
		t.Error("failed job must carry an error message")
	}
}

func TestJobIsStuck(t *testing.T) {
	job := NewJob("job_test", TaskKindTrading, nil, "p", PaymentQuote{})
	job.MarkRunning()
	if job.IsStuck() {
		t.Error("running job without finalize error should not be stuck")
	}

	job.FinalizeError = "payment service unreachable"
	if !job.IsStuck() {
		t.Error("running job with finalize error should be stuck")
	}
	if job.IsTerminal() {
		t.Error("stuck job must remain non-terminal")
	}
}

func TestJobViewHidesResultUntilCompleted(t *testing.T) {
	job := NewJob("job_view", TaskKindGenericResearch, nil, "p", PaymentQuote{})
	job.MarkRunning()
	job.Result = TextResult("partial")

	view := job.View()
	if view.Result != nil {
		t.Error("view must not expose result before completion")
	}

	job.MarkCompleted(TextResult("final report"))
	view = job.View()
	if view.Result != "final report" {
		t.Errorf("view result = %v, want final report", view.Result)
	}
}
