package payments

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/masumi"
)

// mockGateway implements interfaces.PaymentGateway for testing
type mockGateway struct {
	statusFunc   func(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error)
	completeFunc func(ctx context.Context, blockchainID, result string) error
}

func (m *mockGateway) CreatePaymentRequest(ctx context.Context, params masumi.CreatePaymentParams) (*masumi.PaymentRequest, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGateway) GetPaymentStatus(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, blockchainID)
	}
	return &masumi.PaymentStatus{BlockchainIdentifier: blockchainID}, nil
}

func (m *mockGateway) CompletePayment(ctx context.Context, blockchainID, result string) error {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, blockchainID, result)
	}
	return nil
}

func TestMonitorEmitsOnceOnConfirmation(t *testing.T) {
	var polls int32
	gateway := &mockGateway{
		statusFunc: func(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error) {
			n := atomic.AddInt32(&polls, 1)
			state := ""
			if n >= 2 {
				state = masumi.StateFundsLocked
			}
			return &masumi.PaymentStatus{BlockchainIdentifier: blockchainID, OnChainState: state}, nil
		},
	}

	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))
	monitor.Start(context.Background(), session)

	select {
	case id := <-session.Confirmed():
		if id != "block_1" {
			t.Errorf("confirmed id = %s, want block_1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("expected confirmation event")
	}

	// The goroutine exits after emitting, no second event arrives
	select {
	case <-session.done:
	case <-time.After(time.Second):
		t.Fatal("poll goroutine should exit after emitting")
	}
	select {
	case <-session.Confirmed():
		t.Fatal("confirmation must be emitted at most once")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMonitorRetriesAfterPollError(t *testing.T) {
	var polls int32
	gateway := &mockGateway{
		statusFunc: func(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error) {
			if atomic.AddInt32(&polls, 1) == 1 {
				return nil, errors.New("connection refused")
			}
			return &masumi.PaymentStatus{BlockchainIdentifier: blockchainID, OnChainState: masumi.StateFundsLocked}, nil
		},
	}

	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))
	monitor.Start(context.Background(), session)

	select {
	case <-session.Confirmed():
	case <-time.After(time.Second):
		t.Fatal("monitor should survive a transient poll failure")
	}
}

// TestMonitorStopBeforeConfirmation verifies the stop contract: once Stop
// returns, no confirmation event is ever delivered.
func TestMonitorStopBeforeConfirmation(t *testing.T) {
	gateway := &mockGateway{
		statusFunc: func(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error) {
			return &masumi.PaymentStatus{BlockchainIdentifier: blockchainID, OnChainState: ""}, nil
		},
	}

	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))
	monitor.Start(context.Background(), session)

	time.Sleep(12 * time.Millisecond)
	session.Stop()

	select {
	case <-session.Confirmed():
		t.Fatal("no event may be delivered after Stop returns")
	case <-time.After(30 * time.Millisecond):
	}
}

// TestMonitorStopDiscardsUnconsumedConfirmation covers the buffered case:
// the poll goroutine confirmed and exited, but nobody consumed the event
// before Stop. Stop must discard it so it cannot be delivered later.
func TestMonitorStopDiscardsUnconsumedConfirmation(t *testing.T) {
	gateway := &mockGateway{
		statusFunc: func(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error) {
			return &masumi.PaymentStatus{BlockchainIdentifier: blockchainID, OnChainState: masumi.StateFundsLocked}, nil
		},
	}

	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))
	monitor.Start(context.Background(), session)

	// Wait for the poll goroutine to emit and exit without consuming
	select {
	case <-session.done:
	case <-time.After(time.Second):
		t.Fatal("poll goroutine should exit after emitting")
	}

	session.Stop()

	select {
	case id := <-session.Confirmed():
		t.Fatalf("confirmation %q delivered after Stop returned", id)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSessionStopIdempotent(t *testing.T) {
	gateway := &mockGateway{}
	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))
	monitor.Start(context.Background(), session)

	session.Stop()
	session.Stop() // second call must not panic or block
}

func TestMonitorStopsOnContextCancel(t *testing.T) {
	gateway := &mockGateway{}
	monitor := NewMonitor(gateway, 5*time.Millisecond, common.GetLogger())
	session := NewSession("job_1", "block_1", time.Now().Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx, session)
	cancel()

	select {
	case <-session.done:
	case <-time.After(time.Second):
		t.Fatal("poll goroutine should exit on context cancellation")
	}
}
