// -----------------------------------------------------------------------
// Job Orchestrator - Payment-gated job lifecycle coordination
// -----------------------------------------------------------------------

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/masumi"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/payments"
	"github.com/ternarybob/aestimo/internal/store"
	"github.com/ternarybob/aestimo/internal/tasks"
	"github.com/ternarybob/arbor"
)

// Orchestrator coordinates the payment-gated job lifecycle: submit creates a
// payment request and starts monitoring, confirmation triggers the task
// pipeline exactly once, completion finalizes the payment.
type Orchestrator struct {
	config   *common.Config
	gateway  interfaces.PaymentGateway
	store    *store.JobStore
	registry *tasks.Registry
	monitor  *payments.Monitor
	events   interfaces.EventService
	logger   arbor.ILogger

	// sessions maps job ID to its active payment session. Entries exist only
	// while the payment is being monitored or the task is running.
	mu       sync.Mutex
	sessions map[string]*payments.Session

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// SubmitResult is the quote returned to the purchaser when a job is created
type SubmitResult struct {
	JobID                     string          `json:"job_id"`
	BlockchainIdentifier      string          `json:"blockchainIdentifier"`
	PayByTime                 string          `json:"payByTime"`
	SubmitResultTime          string          `json:"submitResultTime"`
	UnlockTime                string          `json:"unlockTime"`
	ExternalDisputeUnlockTime string          `json:"externalDisputeUnlockTime"`
	AgentIdentifier           string          `json:"agentIdentifier"`
	SellerVKey                string          `json:"sellerVKey"`
	IdentifierFromPurchaser   string          `json:"identifierFromPurchaser"`
	Amounts                   []models.Amount `json:"amounts"`
	InputHash                 string          `json:"input_hash"`
}

// New creates an orchestrator. StartExpirySweep must be called separately to
// begin deadline enforcement.
func New(
	config *common.Config,
	gateway interfaces.PaymentGateway,
	jobStore *store.JobStore,
	registry *tasks.Registry,
	monitor *payments.Monitor,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		config:   config,
		gateway:  gateway,
		store:    jobStore,
		registry: registry,
		monitor:  monitor,
		events:   events,
		logger:   logger,
		sessions: make(map[string]*payments.Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit validates the input, creates the payment request, registers the job
// and starts payment monitoring. Ordering matters: no job record exists
// until the payment request succeeded, so no failure before registration
// can leave an orphan job.
func (o *Orchestrator) Submit(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*SubmitResult, error) {
	input, err := models.ParseTaskInput(kind, rawInput)
	if err != nil {
		return nil, err
	}

	if purchaserID == "" {
		purchaserID = common.NewPurchaserID()
	}

	amounts := o.amountsFor(kind)
	quote, err := o.gateway.CreatePaymentRequest(ctx, masumi.CreatePaymentParams{
		AgentIdentifier: o.config.Masumi.AgentIdentifier,
		Network:         o.config.Masumi.Network,
		PurchaserID:     purchaserID,
		Amounts:         amounts,
		Metadata:        input.PaymentMetadata(),
	})
	if err != nil {
		o.logger.Error().Err(err).Str("task_kind", string(kind)).Msg("Failed to create payment request")
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}

	jobID := common.NewJobID()
	job := models.NewJob(jobID, kind, rawInput, purchaserID, models.PaymentQuote{
		BlockchainIdentifier:      quote.BlockchainIdentifier,
		PayByTime:                 quote.PayByTime,
		SubmitResultTime:          quote.SubmitResultTime,
		UnlockTime:                quote.UnlockTime,
		ExternalDisputeUnlockTime: quote.ExternalDisputeUnlockTime,
		InputHash:                 quote.InputHash,
		Amounts:                   amounts,
	})
	o.store.Put(job)

	session := payments.NewSession(jobID, quote.BlockchainIdentifier, quote.PayByDeadline())
	o.mu.Lock()
	o.sessions[jobID] = session
	o.mu.Unlock()

	o.monitor.Start(o.ctx, session)
	common.SafeGoWithContext(o.ctx, o.logger, "confirmationConsumer", func() {
		o.consumeConfirmation(session)
	})

	o.logger.WithCorrelationId(jobID).Info().
		Str("task_kind", string(kind)).
		Str("blockchain_identifier", quote.BlockchainIdentifier).
		Msg("Job created, awaiting payment")

	o.events.Publish(interfaces.Event{Type: interfaces.EventJobCreated, JobID: jobID})

	return &SubmitResult{
		JobID:                     jobID,
		BlockchainIdentifier:      quote.BlockchainIdentifier,
		PayByTime:                 quote.PayByTime,
		SubmitResultTime:          quote.SubmitResultTime,
		UnlockTime:                quote.UnlockTime,
		ExternalDisputeUnlockTime: quote.ExternalDisputeUnlockTime,
		AgentIdentifier:           o.config.Masumi.AgentIdentifier,
		SellerVKey:                o.config.Masumi.SellerVKey,
		IdentifierFromPurchaser:   purchaserID,
		Amounts:                   amounts,
		InputHash:                 quote.InputHash,
	}, nil
}

// amountsFor returns the configured price for a task kind
func (o *Orchestrator) amountsFor(kind models.TaskKind) []models.Amount {
	amount := o.config.Pricing.ResearchAmount
	if kind.IsRiskAssessment() {
		amount = o.config.Pricing.RiskAmount
	}
	return []models.Amount{{Amount: amount, Unit: o.config.Pricing.Unit}}
}

// consumeConfirmation waits for the session's confirmation event and runs
// the task. Exits without running anything if the session is stopped first.
func (o *Orchestrator) consumeConfirmation(session *payments.Session) {
	select {
	case paymentID := <-session.Confirmed():
		// A confirmation that raced shutdown or session teardown must not
		// start a task execution
		if o.ctx.Err() != nil {
			return
		}
		select {
		case <-session.Stopped():
			return
		default:
		}
		o.handlePaymentConfirmed(session.JobID, paymentID)
	case <-session.Stopped():
	case <-o.ctx.Done():
	}
}

// handlePaymentConfirmed runs the task pipeline for a confirmed payment and
// finalizes the payment. The status check and transition happen atomically
// in the store's critical section, so a duplicate confirmation (or a
// confirmation racing the expiry sweep) is a no-op.
func (o *Orchestrator) handlePaymentConfirmed(jobID, paymentID string) {
	log := o.logger.WithCorrelationId(jobID)

	var proceed bool
	err := o.store.Update(jobID, func(j *models.Job) {
		if j.Status != models.JobStatusAwaitingPayment {
			return
		}
		j.MarkRunning()
		j.PaymentStatus = "confirmed"
		proceed = true
	})
	if err != nil {
		log.Error().Err(err).Msg("Confirmed payment for unknown job")
		return
	}
	if !proceed {
		log.Warn().Str("payment_id", paymentID).Msg("Ignoring confirmation for job no longer awaiting payment")
		return
	}

	log.Info().Str("payment_id", paymentID).Msg("Payment confirmed, executing task")
	o.events.Publish(interfaces.Event{Type: interfaces.EventPaymentConfirmed, JobID: jobID})
	o.events.Publish(interfaces.Event{Type: interfaces.EventJobRunning, JobID: jobID})

	job, err := o.store.Get(jobID)
	if err != nil {
		log.Error().Err(err).Msg("Job disappeared after confirmation")
		return
	}

	// Stored input was validated at submit time; a parse failure here is an
	// internal invariant violation, not a user error.
	input, err := models.ParseTaskInput(job.Kind, job.Input)
	if err != nil {
		o.failJob(jobID, fmt.Sprintf("internal error: stored input invalid: %v", err))
		return
	}

	result, err := o.registry.Dispatch(o.ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("Task execution failed")
		// Execution failed, so the payment is not finalized
		o.failJob(jobID, err.Error())
		return
	}

	if err := o.gateway.CompletePayment(o.ctx, paymentID, result.String()); err != nil {
		log.Error().Err(err).Msg("Payment finalization failed, job needs operator attention")
		o.store.Update(jobID, func(j *models.Job) {
			j.PaymentStatus = "error"
			j.FinalizeError = err.Error()
			j.Result = result
		})
		o.events.Publish(interfaces.Event{
			Type:    interfaces.EventFinalizeFailed,
			JobID:   jobID,
			Payload: map[string]string{"error": err.Error()},
		})
		o.teardownSession(jobID)
		return
	}

	o.store.Update(jobID, func(j *models.Job) {
		j.MarkCompleted(result)
	})
	log.Info().Msg("Task completed and payment finalized")
	o.events.Publish(interfaces.Event{Type: interfaces.EventJobCompleted, JobID: jobID})
	o.teardownSession(jobID)
}

// failJob marks a job failed and tears down its session
func (o *Orchestrator) failJob(jobID, errorMsg string) {
	o.store.Update(jobID, func(j *models.Job) {
		j.MarkFailed(errorMsg)
	})
	o.events.Publish(interfaces.Event{
		Type:    interfaces.EventJobFailed,
		JobID:   jobID,
		Payload: map[string]string{"error": errorMsg},
	})
	o.teardownSession(jobID)
}

// teardownSession removes and stops the job's payment session.
// Removal is atomic with respect to GetStatus session lookups.
func (o *Orchestrator) teardownSession(jobID string) {
	o.mu.Lock()
	session := o.sessions[jobID]
	delete(o.sessions, jobID)
	o.mu.Unlock()

	if session != nil {
		session.Stop()
	}
}

// activeSession returns the job's session if payment monitoring is active
func (o *Orchestrator) activeSession(jobID string) *payments.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessions[jobID]
}

// GetStatus returns the job's status view. While the payment session is
// active the payment status is refreshed from the payment service; refresh
// failures degrade to payment_status "error" rather than failing the call.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (*models.JobView, error) {
	job, err := o.store.Get(jobID)
	if err != nil {
		return nil, err
	}

	if session := o.activeSession(jobID); session != nil {
		paymentStatus := ""
		status, err := o.gateway.GetPaymentStatus(ctx, job.Quote.BlockchainIdentifier)
		if err != nil {
			o.logger.WithCorrelationId(jobID).Warn().Err(err).Msg("Payment status refresh failed")
			paymentStatus = "error"
		} else if status.OnChainState != "" {
			paymentStatus = status.OnChainState
		}

		if paymentStatus != "" {
			o.store.Update(jobID, func(j *models.Job) {
				if !j.IsTerminal() {
					j.PaymentStatus = paymentStatus
				}
			})
			if refreshed, err := o.store.Get(jobID); err == nil {
				job = refreshed
			}
		}
	}

	view := job.View()
	return &view, nil
}

// Shutdown stops the expiry sweep and every active payment session.
// In-flight task executions are cancelled via the orchestrator context.
func (o *Orchestrator) Shutdown() {
	o.logger.Info().Msg("Shutting down job orchestrator")

	if o.cron != nil {
		cronCtx := o.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(5 * time.Second):
			o.logger.Warn().Msg("Timed out waiting for expiry sweep to finish")
		}
	}

	o.cancel()

	o.mu.Lock()
	sessions := make([]*payments.Session, 0, len(o.sessions))
	for id, session := range o.sessions {
		sessions = append(sessions, session)
		delete(o.sessions, id)
	}
	o.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
}
