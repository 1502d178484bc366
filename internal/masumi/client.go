package masumi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for a local Masumi payment service.
	DefaultBaseURL = "http://localhost:3001/api/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is a Masumi payment service client.
type Client struct {
	baseURL    string
	apiKey     string
	network    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new Masumi payment service client.
func NewClient(apiKey, network string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		network: network,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do performs a request against the payment service with API-key auth.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("url", c.baseURL+path).
			Msg("Masumi payment service request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   path,
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CreatePaymentRequest registers a new payment request with the payment
// service and returns the quote the purchaser must satisfy.
func (c *Client) CreatePaymentRequest(ctx context.Context, params CreatePaymentParams) (*PaymentRequest, error) {
	network := params.Network
	if network == "" {
		network = c.network
	}

	inputHash := HashInput(params.Metadata)
	metadata, err := json.Marshal(params.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment metadata: %w", err)
	}

	body := createPaymentRequestBody{
		AgentIdentifier:         params.AgentIdentifier,
		Network:                 network,
		PaymentType:             PaymentTypeWeb3CardanoV1,
		IdentifierFromPurchaser: params.PurchaserID,
		InputHash:               inputHash,
		RequestedFunds:          params.Amounts,
		Metadata:                string(metadata),
	}

	var envelope paymentDataEnvelope
	if err := c.do(ctx, http.MethodPost, "/payment/", nil, body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data.BlockchainIdentifier == "" {
		return nil, &APIError{
			StatusCode: http.StatusBadGateway,
			Message:    "payment service returned no blockchain identifier",
			Endpoint:   "/payment/",
		}
	}

	if c.logger != nil {
		c.logger.Info().
			Str("blockchain_identifier", envelope.Data.BlockchainIdentifier).
			Str("network", network).
			Msg("Created payment request")
	}

	return &PaymentRequest{
		BlockchainIdentifier:      envelope.Data.BlockchainIdentifier,
		PayByTime:                 envelope.Data.PayByTime,
		SubmitResultTime:          envelope.Data.SubmitResultTime,
		UnlockTime:                envelope.Data.UnlockTime,
		ExternalDisputeUnlockTime: envelope.Data.ExternalDisputeUnlockTime,
		InputHash:                 inputHash,
	}, nil
}

// GetPaymentStatus returns the on-chain state for a payment request.
func (c *Client) GetPaymentStatus(ctx context.Context, blockchainID string) (*PaymentStatus, error) {
	params := url.Values{}
	params.Set("network", c.network)
	params.Set("blockchainIdentifier", blockchainID)

	var envelope paymentDataEnvelope
	if err := c.do(ctx, http.MethodGet, "/payment/", params, nil, &envelope); err != nil {
		return nil, err
	}

	// The service may answer with a single payment or a filtered list.
	if envelope.Data.BlockchainIdentifier == blockchainID {
		return &PaymentStatus{
			BlockchainIdentifier: blockchainID,
			OnChainState:         envelope.Data.OnChainState,
		}, nil
	}
	for _, p := range envelope.Data.Payments {
		if p.BlockchainIdentifier == blockchainID {
			return &PaymentStatus{
				BlockchainIdentifier: blockchainID,
				OnChainState:         p.OnChainState,
			}, nil
		}
	}

	return nil, &APIError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("payment %s not found", blockchainID),
		Endpoint:   "/payment/",
	}
}

// CompletePayment submits the task result hash, finalizing the payment so
// funds can unlock.
func (c *Client) CompletePayment(ctx context.Context, blockchainID, result string) error {
	hash := sha256.Sum256([]byte(result))
	body := map[string]string{
		"network":              c.network,
		"blockchainIdentifier": blockchainID,
		"submitResultHash":     hex.EncodeToString(hash[:]),
	}

	if err := c.do(ctx, http.MethodPost, "/payment/submit-result", nil, body, nil); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info().
			Str("blockchain_identifier", blockchainID).
			Msg("Payment result submitted")
	}
	return nil
}

// HashInput computes the sha256 hex digest of the payment metadata with
// keys in sorted order, so the same input always hashes identically.
func HashInput(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(metadata[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
