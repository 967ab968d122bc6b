// Package renderer provides an HTTP client for the template renderer SPI.
// Template rendering itself is out of this orchestrator's scope (spec
// Non-goals); this client only formats the template path and forwards
// variables to the upstream renderer.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// Config holds the renderer service's base URL and client timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// Client implements ports.TemplateRenderer.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new renderer Client.
func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// TemplatePath builds the renderer's addressable path for a (messageKind,
// templateName, version) triple.
func (c *Client) TemplatePath(kind domain.MessageKind, templateName, version string) string {
	return path.Join(string(kind), templateName, version)
}

type renderRequest struct {
	TemplatePath string                 `json:"templatePath"`
	Variables    map[string]interface{} `json:"variables"`
}

type renderResponse struct {
	Body string `json:"body"`
}

// Render forwards a render request to the upstream renderer and returns the
// rendered body verbatim.
func (c *Client) Render(ctx context.Context, templatePath string, variables map[string]interface{}) (string, error) {
	body, err := json.Marshal(renderRequest{TemplatePath: templatePath, Variables: variables})
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out renderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode render response: %w", err)
	}
	return out.Body, nil
}

var _ ports.TemplateRenderer = (*Client)(nil)
