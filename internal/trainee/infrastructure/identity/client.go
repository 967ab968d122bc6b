// Package identity provides the trainee-profile account-details SPI client,
// backing both the identity store and profile store ports: a single
// upstream endpoint answers both authoritative-email and profile-detail
// queries.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
)

// Config holds the trainee profile service's base URL and client timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// accountDetails is the upstream UserDetails shape.
type accountDetails struct {
	Registered bool   `json:"registered"`
	Email      string `json:"email"`
	Title      string `json:"title"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	GmcNumber  string `json:"gmcNumber"`
	Roles      []string `json:"roles"`
}

// Client implements ports.IdentityStore and ports.ProfileStore against
// `GET /trainee-profile/account-details/{tisId}`.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new identity/profile Client.
func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// GetIdentity resolves the authoritative registration/email record.
func (c *Client) GetIdentity(ctx context.Context, traineeID string) (*ports.IdentityRecord, error) {
	details, err := c.fetch(ctx, traineeID)
	if err != nil {
		return nil, err
	}
	return &ports.IdentityRecord{
		Registered: details.Registered,
		Email:      details.Email,
		GivenName:  details.GivenName,
		FamilyName: details.FamilyName,
	}, nil
}

// GetProfile resolves trainee profile data.
func (c *Client) GetProfile(ctx context.Context, traineeID string) (*ports.ProfileRecord, error) {
	details, err := c.fetch(ctx, traineeID)
	if err != nil {
		return nil, err
	}
	return &ports.ProfileRecord{
		Title:      details.Title,
		Email:      details.Email,
		GivenName:  details.GivenName,
		FamilyName: details.FamilyName,
		GmcNumber:  details.GmcNumber,
		Roles:      details.Roles,
	}, nil
}

func (c *Client) fetch(ctx context.Context, traineeID string) (*accountDetails, error) {
	u := fmt.Sprintf("%s/trainee-profile/account-details/%s", c.config.BaseURL, url.PathEscape(traineeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("trainee profile service returned status %d", resp.StatusCode)
	}

	var details accountDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode account details: %w", err)
	}
	return &details, nil
}

var (
	_ ports.IdentityStore = (*Client)(nil)
	_ ports.ProfileStore  = (*Client)(nil)
)
