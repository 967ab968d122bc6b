// Package directory provides the C4 contact directory SPI client.
package directory

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

// Config holds the reference-data service's base URL and client timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Client implements ports.ContactDirectory against the reference-data
// service's local-office-contact endpoints, typed the way the teacher's
// provider adapters shape an external REST client: a config struct, a
// bare *http.Client, context-first methods, and typed response structs.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new directory Client.
func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type contactDTO struct {
	Type    string `json:"type"`
	Contact string `json:"contact"`
}

// ListContacts fetches the ordered contact list for a local office, used by
// C3 to resolve a GMC update's recipients.
func (c *Client) ListContacts(ctx context.Context, localOffice string) ([]domain.LocalOfficeContact, error) {
	path := fmt.Sprintf("/reference/local-office-contact-by-lo-name/%s", url.PathEscape(localOffice))
	var dtos []contactDTO
	if err := c.get(ctx, path, nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list local office contacts: %w", err)
	}
	return toDomain(dtos), nil
}

// ListTraineeContacts fetches the contact set configured against a specific
// trainee for contactType (e.g. ContactTypeLTFT).
func (c *Client) ListTraineeContacts(ctx context.Context, traineeID, contactType string) ([]domain.LocalOfficeContact, error) {
	path := fmt.Sprintf("/reference/local-office-contact-by-trainee/%s", url.PathEscape(traineeID))
	query := url.Values{"contactType": {contactType}}
	var dtos []contactDTO
	if err := c.get(ctx, path, query, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list trainee contacts: %w", err)
	}
	return toDomain(dtos), nil
}

func toDomain(dtos []contactDTO) []domain.LocalOfficeContact {
	out := make([]domain.LocalOfficeContact, len(dtos))
	for i, d := range dtos {
		out[i] = domain.LocalOfficeContact{Type: d.Type, Contact: d.Contact}
	}
	return out
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("reference-data service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ ports.ContactDirectory = (*Client)(nil)
