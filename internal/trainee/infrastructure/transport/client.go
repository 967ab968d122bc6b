// Package transport provides an HTTP client for the delivery transport SPI.
// Actual email/in-app delivery is out of this orchestrator's scope (spec
// Non-goals); this client only forwards a dispatch request and reports
// whether the upstream transport accepted it.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// Config holds the transport service's base URL and client timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Client implements ports.TransportSPI.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new transport Client.
func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type sendRequest struct {
	PersonID         string                 `json:"personId"`
	Address          *string                `json:"address,omitempty"`
	NotificationType string                 `json:"notificationType"`
	TemplateVersion  string                 `json:"templateVersion"`
	Variables        map[string]interface{} `json:"variables"`
	Reference        *referenceDTO          `json:"reference,omitempty"`
	JustLog          bool                   `json:"justLog"`
}

type referenceDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type sendResponse struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
}

// Send forwards a dispatch request to the upstream transport.
func (c *Client) Send(ctx context.Context, personID string, address *string, typ domain.NotificationType, templateVersion string, variables map[string]interface{}, ref *domain.Reference, justLog bool) (*ports.TransportResult, error) {
	reqBody := sendRequest{
		PersonID:         personID,
		Address:          address,
		NotificationType: string(typ),
		TemplateVersion:  templateVersion,
		Variables:        variables,
		JustLog:          justLog,
	}
	if ref != nil {
		reqBody.Reference = &referenceDTO{Kind: string(ref.Kind), ID: ref.ID}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/transport/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("transport service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return &ports.TransportResult{Delivered: false, Detail: string(respBody)}, nil
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	return &ports.TransportResult{Delivered: out.Delivered, Detail: out.Detail}, nil
}

var _ ports.TransportSPI = (*Client)(nil)
