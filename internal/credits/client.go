// internal/credits/client.go
package credits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appErrors "github.com/agencyflow/outreach-backend/internal/errors"
	"github.com/agencyflow/outreach-backend/internal/service"
)

// Client talks to the billing service's credit ledger.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type consumeRequest struct {
	TenantID   int               `json:"tenant_id"`
	Credits    int               `json:"credits"`
	ActionType string            `json:"action_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (c *Client) Consume(ctx context.Context, tenantID int, req service.CreditRequest) error {
	body, err := json.Marshal(consumeRequest{
		TenantID:   tenantID,
		Credits:    req.Credits,
		ActionType: req.ActionType,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/credits/consume", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return appErrors.NewInsufficientCredits(tenantID)
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("credit ledger returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

var _ service.CreditLedger = (*Client)(nil)
