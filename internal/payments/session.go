// -----------------------------------------------------------------------
// Payment Session - Per-job payment monitoring state
// -----------------------------------------------------------------------

package payments

import (
	"sync"
	"time"
)

// Session is the monitoring state for one job's payment request. It owns the
// channels that synchronize the poll goroutine with the orchestrator's
// confirmation consumer.
type Session struct {
	JobID                string
	BlockchainIdentifier string
	PayBy                time.Time

	// confirmed delivers the blockchain identifier exactly once, when funds
	// are observed locked on chain.
	confirmed chan string

	// stop is closed by Stop to tell the poll goroutine to exit.
	stop chan struct{}

	// done is closed by the poll goroutine on exit.
	done chan struct{}

	stopOnce sync.Once
}

// NewSession creates a session for a job's payment request
func NewSession(jobID, blockchainID string, payBy time.Time) *Session {
	return &Session{
		JobID:                jobID,
		BlockchainIdentifier: blockchainID,
		PayBy:                payBy,
		confirmed:            make(chan string, 1),
		stop:                 make(chan struct{}),
		done:                 make(chan struct{}),
	}
}

// Confirmed returns the channel that delivers the confirmation event
func (s *Session) Confirmed() <-chan string {
	return s.confirmed
}

// Stop tells the poll goroutine to exit and blocks until it has. After Stop
// returns, no confirmation event will be delivered. Safe to call more than
// once and from multiple goroutines. Requires Monitor.Start to have been
// called on the session.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done

	// The poll goroutine has exited. A confirmation it emitted into the
	// buffer but nobody consumed yet must not outlive the session, so
	// discard it here.
	select {
	case <-s.confirmed:
	default:
	}
}

// Stopped returns a channel closed when Stop is requested. Consumers select
// on it alongside Confirmed so they exit when the session is torn down
// without a confirmation.
func (s *Session) Stopped() <-chan struct{} {
	return s.stop
}

// stopped reports whether Stop was requested, without blocking
func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
