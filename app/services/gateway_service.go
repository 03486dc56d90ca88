// Package services provides external service integrations and technical concerns like SMS transport and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/utils"
)

// SMSGatewayService sends a single outbound SMS and reports the provider's
// delivery identifier. Fan-out and retry live above this layer.
type SMSGatewayService interface {
	Send(ctx context.Context, recipient, body string) (providerID string, err error)
}

// SMSGatewayServiceImpl implements SMSGatewayService against an HTTP provider
type SMSGatewayServiceImpl struct {
	config *config.GatewayConfig
	client *http.Client
}

// GatewaySendRequest represents the request payload for the SMS provider API
type GatewaySendRequest struct {
	SrcNum         string `json:"srcNum"`
	Recipient      string `json:"recipient"`
	Body           string `json:"body"`
	Type           int    `json:"type"` // Always 1
	ValidityPeriod int    `json:"validityPeriod"`
}

// GatewaySendResponse represents individual message result from the provider API
type GatewaySendResponse struct {
	MessageID  int64  `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSGatewayService creates a new SMS gateway service instance
func NewSMSGatewayService(cfg *config.GatewayConfig) SMSGatewayService {
	return &SMSGatewayServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one SMS message to one recipient
func (s *SMSGatewayServiceImpl) Send(ctx context.Context, recipient, body string) (string, error) {
	requests := []GatewaySendRequest{{
		SrcNum:         s.config.SourceNumber,
		Recipient:      recipient,
		Body:           body,
		Type:           1,
		ValidityPeriod: s.config.ValidityPeriod,
	}}

	requestBody, err := json.Marshal(requests)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v3.0.1/send", s.config.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send gateway request: %w", err)
	}
	defer resp.Body.Close()

	var results []GatewaySendResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("gateway returned empty result set")
	}
	r := results[0]
	if r.StatusCode != 200 || r.Status != "ACCEPTED" {
		return "", fmt.Errorf("SMS delivery failed for %s: %s (%d)", r.Recipient, r.Status, r.StatusCode)
	}
	return fmt.Sprintf("%d", r.MessageID), nil
}

// MockSMSGateway implements SMSGatewayService for testing
type MockSMSGateway struct {
	mu           sync.Mutex
	SentMessages []MockGatewayMessage
	FailFor      map[string]int // recipient -> number of sends that should fail
	FailAll      bool
	nextID       int64
}

// MockGatewayMessage represents a mock outbound SMS
type MockGatewayMessage struct {
	Recipient string
	Body      string
	SentAt    time.Time
}

// NewMockSMSGateway creates a new mock SMS gateway
func NewMockSMSGateway() *MockSMSGateway {
	return &MockSMSGateway{
		SentMessages: make([]MockGatewayMessage, 0),
		FailFor:      make(map[string]int),
	}
}

// Send records a mock SMS, honoring any configured failure injection
func (m *MockSMSGateway) Send(ctx context.Context, recipient, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return "", fmt.Errorf("mock gateway failure for %s", recipient)
	}
	if remaining, ok := m.FailFor[recipient]; ok && remaining > 0 {
		m.FailFor[recipient] = remaining - 1
		return "", fmt.Errorf("mock gateway failure for %s", recipient)
	}
	m.nextID++
	m.SentMessages = append(m.SentMessages, MockGatewayMessage{
		Recipient: recipient,
		Body:      body,
		SentAt:    utils.UTCNow(),
	})
	return fmt.Sprintf("mock-%d", m.nextID), nil
}

// MessagesTo returns all mock messages sent to the given recipient
func (m *MockSMSGateway) MessagesTo(recipient string) []MockGatewayMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockGatewayMessage
	for _, msg := range m.SentMessages {
		if msg.Recipient == recipient {
			out = append(out, msg)
		}
	}
	return out
}

// ClearSentMessages clears the sent messages list
func (m *MockSMSGateway) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = make([]MockGatewayMessage, 0)
}
