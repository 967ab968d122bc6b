// Package eligibility provides an HTTP implementation of the messaging
// controller's eligibility predicates (C3's EligibilitySPI port).
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// Config holds the eligibility service's base URL and client timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Client implements ports.EligibilitySPI, one GET per predicate against the
// messaging controller's boolean-result endpoints.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new eligibility Client.
func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

func (c *Client) IsValidRecipient(ctx context.Context, personID string, kind domain.MessageKind) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-valid-recipient", url.Values{
		"personId": {personID},
		"kind":     {string(kind)},
	})
}

func (c *Client) IsProgrammeMembershipNewStarter(ctx context.Context, personID, tisID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-programme-membership-new-starter", idParams(personID, tisID))
}

func (c *Client) IsProgrammeMembershipInPilot2024(ctx context.Context, personID, tisID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-programme-membership-in-pilot-2024", idParams(personID, tisID))
}

func (c *Client) IsProgrammeMembershipInRollout2024(ctx context.Context, personID, tisID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-programme-membership-in-rollout-2024", idParams(personID, tisID))
}

func (c *Client) IsPlacementInPilot2024(ctx context.Context, personID, tisID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-placement-in-pilot-2024", idParams(personID, tisID))
}

func (c *Client) IsPlacementInRollout2024(ctx context.Context, personID, tisID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-placement-in-rollout-2024", idParams(personID, tisID))
}

func (c *Client) IsMessagingEnabled(ctx context.Context, personID string) (bool, error) {
	return c.boolCall(ctx, "/eligibility/is-messaging-enabled", url.Values{"personId": {personID}})
}

func idParams(personID, tisID string) url.Values {
	return url.Values{"personId": {personID}, "tisId": {tisID}}
}

type boolResponse struct {
	Result bool `json:"result"`
}

func (c *Client) boolCall(ctx context.Context, path string, query url.Values) (bool, error) {
	u := c.config.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("eligibility service returned status %d for %s", resp.StatusCode, path)
	}

	var body boolResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode eligibility response: %w", err)
	}
	return body.Result, nil
}

var _ ports.EligibilitySPI = (*Client)(nil)
