package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CheckoutSessionRequest describes the hosted checkout session to open
// for a booking.
type CheckoutSessionRequest struct {
	Reference     string `json:"reference"`      // Booking number
	Amount        int    `json:"amount"`         // Minor currency units
	CustomerEmail string `json:"customer_email"`
	CallbackURL   string `json:"callback_url"`
}

// CheckoutSession is an open hosted checkout session at the gateway.
type CheckoutSession struct {
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CheckoutGateway abstracts the external payment provider.
type CheckoutGateway interface {
	CreateSession(req *CheckoutSessionRequest) (*CheckoutSession, error)
	VerifySignature(payload []byte, signature string) bool
}

// HostedCheckoutClient talks to the hosted checkout provider's REST API.
type HostedCheckoutClient struct {
	secretKey  string
	baseURL    string
	sessionTTL time.Duration
	client     *http.Client
}

// NewHostedCheckoutClient creates a new hosted checkout client
func NewHostedCheckoutClient(secretKey, environment string, sessionTTL time.Duration) *HostedCheckoutClient {
	baseURL := "https://api.checkout.example.com"
	if environment == "test" {
		baseURL = "https://api-test.checkout.example.com"
	}

	return &HostedCheckoutClient{
		secretKey:  secretKey,
		baseURL:    baseURL,
		sessionTTL: sessionTTL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type checkoutSessionResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		SessionID   string `json:"session_id"`
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// CreateSession opens a hosted checkout session for the given amount.
func (c *HostedCheckoutClient) CreateSession(req *CheckoutSessionRequest) (*CheckoutSession, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("checkout secret key not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", c.baseURL+"/v1/sessions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("checkout session request failed with status %d", resp.StatusCode)
	}

	var sessionResp checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	if !sessionResp.Status {
		return nil, fmt.Errorf("checkout session rejected: %s", sessionResp.Message)
	}

	return &CheckoutSession{
		SessionID:   sessionResp.Data.SessionID,
		CheckoutURL: sessionResp.Data.CheckoutURL,
		ExpiresAt:   time.Now().Add(c.sessionTTL),
	}, nil
}

// VerifySignature verifies a webhook notification signature. The
// gateway signs the raw request body with HMAC-SHA512 using the secret
// key and sends the hex digest in a header.
func (c *HostedCheckoutClient) VerifySignature(payload []byte, signature string) bool {
	return verifyCheckoutSignature(c.secretKey, payload, signature)
}

// SignPayload produces the signature the gateway would send for a
// payload. Used by the mock gateway and by tests.
func SignPayload(secretKey string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyCheckoutSignature(secretKey string, payload []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}

	expected := SignPayload(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// MockCheckoutGateway simulates the provider for development and tests.
type MockCheckoutGateway struct {
	secretKey  string
	sessionTTL time.Duration

	// FailNext makes the next CreateSession call fail
	FailNext bool
}

// NewMockCheckoutGateway creates a new mock checkout gateway
func NewMockCheckoutGateway(secretKey string, sessionTTL time.Duration) *MockCheckoutGateway {
	return &MockCheckoutGateway{
		secretKey:  secretKey,
		sessionTTL: sessionTTL,
	}
}

// CreateSession returns a fabricated checkout session.
func (m *MockCheckoutGateway) CreateSession(req *CheckoutSessionRequest) (*CheckoutSession, error) {
	if m.FailNext {
		m.FailNext = false
		return nil, fmt.Errorf("mock checkout session failure")
	}

	sessionID := "cs_mock_" + uuid.New().String()
	return &CheckoutSession{
		SessionID:   sessionID,
		CheckoutURL: "https://checkout.example.com/pay/" + sessionID,
		ExpiresAt:   time.Now().Add(m.sessionTTL),
	}, nil
}

// VerifySignature verifies signatures the same way the real gateway
// does, so signed test payloads flow through unchanged.
func (m *MockCheckoutGateway) VerifySignature(payload []byte, signature string) bool {
	return verifyCheckoutSignature(m.secretKey, payload, signature)
}
