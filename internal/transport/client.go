// internal/transport/client.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agencyflow/outreach-backend/internal/service"
)

// Client is the HTTP adapter for the transactional mail provider. It only
// hands messages over; all sending decisions live in the scheduler.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type sendPayload struct {
	service.SendRequest
	// IdempotencyKey keeps a retried handoff from producing duplicate sends.
	IdempotencyKey  string `json:"idempotency_key"`
	InternalID      int    `json:"internal_id"`
	TrackingBaseURL string `json:"tracking_base_url"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (c *Client) SendWithTracking(ctx context.Context, req service.SendRequest, messageID int, trackingBaseURL string) (service.SendResult, error) {
	body, err := json.Marshal(sendPayload{
		SendRequest:     req,
		IdempotencyKey:  uuid.NewString(),
		InternalID:      messageID,
		TrackingBaseURL: trackingBaseURL,
	})
	if err != nil {
		return service.SendResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return service.SendResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return service.SendResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return service.SendResult{}, fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, msg)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return service.SendResult{}, fmt.Errorf("bad provider response: %w", err)
	}
	if !out.Success {
		return service.SendResult{}, fmt.Errorf("provider rejected message: %s", out.Error)
	}
	return service.SendResult{MessageID: out.MessageID}, nil
}

var _ service.MessageTransport = (*Client)(nil)
