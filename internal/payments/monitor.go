// -----------------------------------------------------------------------
// Payment Monitor - Polls the payment service until funds lock on chain
// -----------------------------------------------------------------------

package payments

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

// Monitor starts and supervises per-session poll goroutines. One monitor is
// shared by all jobs; each session gets its own goroutine.
type Monitor struct {
	gateway      interfaces.PaymentGateway
	pollInterval time.Duration
	logger       arbor.ILogger
}

// NewMonitor creates a payment monitor polling at the given interval
func NewMonitor(gateway interfaces.PaymentGateway, pollInterval time.Duration, logger arbor.ILogger) *Monitor {
	return &Monitor{
		gateway:      gateway,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start begins polling the session's payment in a background goroutine and
// returns immediately. When funds are observed locked, the blockchain
// identifier is emitted on the session's confirmed channel exactly once and
// the goroutine exits. Poll failures are logged and retried on the next
// tick. The goroutine also exits on Session.Stop or context cancellation.
func (m *Monitor) Start(ctx context.Context, session *Session) {
	go func() {
		defer close(session.done)

		// Panic recovery to capture fatal crashes in the poll goroutine
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				stackTrace := string(buf[:n])

				m.logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", stackTrace).
					Str("job_id", session.JobID).
					Msg("FATAL: Payment monitor goroutine panicked - writing crash file")

				common.WriteCrashFile(r, stackTrace)
			}
		}()

		m.poll(ctx, session)
	}()

	m.logger.Debug().
		Str("job_id", session.JobID).
		Str("blockchain_identifier", session.BlockchainIdentifier).
		Msg("Payment status monitoring started")
}

func (m *Monitor) poll(ctx context.Context, session *Session) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-session.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := m.gateway.GetPaymentStatus(ctx, session.BlockchainIdentifier)
		if err != nil {
			// Transient: keep polling on the next tick
			m.logger.Warn().
				Err(err).
				Str("job_id", session.JobID).
				Msg("Payment status check failed, will retry")
			continue
		}

		if !status.Confirmed() {
			continue
		}

		// Re-check stop so a confirmation that raced Stop is not emitted
		if session.stopped() {
			return
		}

		m.logger.Info().
			Str("job_id", session.JobID).
			Str("blockchain_identifier", session.BlockchainIdentifier).
			Str("on_chain_state", status.OnChainState).
			Msg("Payment confirmed on chain")

		select {
		case session.confirmed <- session.BlockchainIdentifier:
		case <-session.stop:
		}
		return
	}
}
