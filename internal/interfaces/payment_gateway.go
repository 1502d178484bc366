package interfaces

import (
	"context"

	"github.com/ternarybob/aestimo/internal/masumi"
)

// PaymentGateway defines the operations the orchestrator needs from the
// Masumi payment service. The concrete implementation is masumi.Client;
// tests substitute mocks.
type PaymentGateway interface {
	// CreatePaymentRequest registers a payment request and returns the quote
	// (blockchain identifier, deadlines, input hash)
	CreatePaymentRequest(ctx context.Context, params masumi.CreatePaymentParams) (*masumi.PaymentRequest, error)

	// GetPaymentStatus returns the current on-chain state of a payment
	GetPaymentStatus(ctx context.Context, blockchainID string) (*masumi.PaymentStatus, error)

	// CompletePayment submits the task result hash, finalizing the payment
	CompletePayment(ctx context.Context, blockchainID, result string) error
}
