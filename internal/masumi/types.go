package masumi

import (
	"fmt"
	"time"

	"github.com/ternarybob/aestimo/internal/models"
)

// PaymentType is the payment scheme used on the Masumi network.
const PaymentTypeWeb3CardanoV1 = "Web3CardanoV1"

// On-chain states reported by the payment service.
const (
	StateFundsLocked     = "FundsLocked"
	StateResultSubmitted = "ResultSubmitted"
	StateWithdrawn       = "Withdrawn"
	StateRefundRequested = "RefundRequested"
	StateDisputed        = "Disputed"
)

// CreatePaymentParams describes the payment request to register with the
// payment service.
type CreatePaymentParams struct {
	AgentIdentifier string
	Network         string
	PurchaserID     string
	Amounts         []models.Amount

	// Metadata is the flat input payload hashed into the payment request so
	// the purchase is bound to what was ordered.
	Metadata map[string]string
}

// PaymentRequest is the quote returned by the payment service when a payment
// request is created. Times are unix millisecond strings as quoted.
type PaymentRequest struct {
	BlockchainIdentifier      string `json:"blockchainIdentifier"`
	PayByTime                 string `json:"payByTime"`
	SubmitResultTime          string `json:"submitResultTime"`
	UnlockTime                string `json:"unlockTime"`
	ExternalDisputeUnlockTime string `json:"externalDisputeUnlockTime"`

	// InputHash is computed client-side over the metadata and echoed to the
	// purchaser so they can verify the order contents.
	InputHash string `json:"inputHash"`
}

// PayByDeadline parses PayByTime into a time.Time. Returns the zero time if
// the quote carries no parseable deadline.
func (p *PaymentRequest) PayByDeadline() time.Time {
	return parseUnixMillis(p.PayByTime)
}

// PaymentStatus is the current state of a payment request on chain.
type PaymentStatus struct {
	BlockchainIdentifier string `json:"blockchainIdentifier"`
	OnChainState         string `json:"onChainState"`
}

// Confirmed reports whether funds for the payment are locked on chain,
// which is the signal that unblocks task execution.
func (s *PaymentStatus) Confirmed() bool {
	return s.OnChainState == StateFundsLocked
}

// APIError represents an error response from the payment service.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("masumi API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// createPaymentRequestBody is the wire request for POST /payment/.
type createPaymentRequestBody struct {
	AgentIdentifier         string          `json:"agentIdentifier"`
	Network                 string          `json:"network"`
	PaymentType             string          `json:"paymentType"`
	IdentifierFromPurchaser string          `json:"identifierFromPurchaser"`
	InputHash               string          `json:"inputHash"`
	RequestedFunds          []models.Amount `json:"RequestedFunds"`
	Metadata                string          `json:"metadata,omitempty"`
}

// paymentDataEnvelope wraps every payment service response.
type paymentDataEnvelope struct {
	Status string      `json:"status"`
	Data   paymentData `json:"data"`
}

type paymentData struct {
	BlockchainIdentifier      string        `json:"blockchainIdentifier"`
	PayByTime                 string        `json:"payByTime"`
	SubmitResultTime          string        `json:"submitResultTime"`
	UnlockTime                string        `json:"unlockTime"`
	ExternalDisputeUnlockTime string        `json:"externalDisputeUnlockTime"`
	OnChainState              string        `json:"onChainState"`
	Payments                  []paymentData `json:"Payments"`
}

func parseUnixMillis(s string) time.Time {
	var millis int64
	if _, err := fmt.Sscanf(s, "%d", &millis); err != nil || millis <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
