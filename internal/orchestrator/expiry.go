// -----------------------------------------------------------------------
// Expiry Sweep - Fails jobs whose payment deadline passed unpaid
// -----------------------------------------------------------------------

package orchestrator

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/payments"
)

// expiredPaymentMessage is recorded on jobs whose pay-by deadline passed
// without confirmation.
const expiredPaymentMessage = "payment deadline expired"

// StartExpirySweep schedules the pay-by deadline sweep on the configured
// cron expression.
func (o *Orchestrator) StartExpirySweep() error {
	schedule := o.config.Monitor.ExpirySchedule
	if schedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		o.sweepExpired(time.Now())
	}); err != nil {
		return fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	o.cron = c

	o.logger.Info().Str("schedule", schedule).Msg("Payment expiry sweep scheduled")
	return nil
}

// sweepExpired fails every job still awaiting payment past its deadline.
// The decision happens inside the store's critical section, so a
// confirmation racing the sweep can never produce a double execution: one
// of the two wins the transition, the other is a no-op.
func (o *Orchestrator) sweepExpired(now time.Time) {
	o.mu.Lock()
	candidates := make([]*payments.Session, 0, len(o.sessions))
	for _, session := range o.sessions {
		if !session.PayBy.IsZero() && now.After(session.PayBy) {
			candidates = append(candidates, session)
		}
	}
	o.mu.Unlock()

	for _, session := range candidates {
		var expired bool
		o.store.Update(session.JobID, func(j *models.Job) {
			if j.Status != models.JobStatusAwaitingPayment {
				return
			}
			j.MarkFailed(expiredPaymentMessage)
			expired = true
		})
		if !expired {
			continue
		}

		o.logger.WithCorrelationId(session.JobID).Warn().
			Str("pay_by", session.PayBy.Format(time.RFC3339)).
			Msg("Payment deadline expired, failing job")

		o.events.Publish(interfaces.Event{Type: interfaces.EventPaymentExpired, JobID: session.JobID})
		o.events.Publish(interfaces.Event{
			Type:    interfaces.EventJobFailed,
			JobID:   session.JobID,
			Payload: map[string]string{"error": expiredPaymentMessage},
		})
		o.teardownSession(session.JobID)
	}
}
