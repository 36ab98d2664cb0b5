// Package redcap implements the RecordServer port against the REDCap API.
package redcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordServer = (*Client)(nil)

// Client implements the driven.RecordServer port. REDCap exposes a
// single form-encoded endpoint; the content parameter selects the
// operation. A 403 means the API token was rejected and maps to
// *model.CredentialsError.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new REDCap API client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// VerifyToken checks the API token by requesting the server version.
func (c *Client) VerifyToken(ctx context.Context, endpoint, token string) error {
	form := url.Values{
		"token":   {token},
		"content": {"version"},
	}
	return c.post(ctx, endpoint, form)
}

// ImportRecord imports one flat record.
func (c *Client) ImportRecord(ctx context.Context, endpoint, token string, record map[string]string) error {
	data, err := json.Marshal([]map[string]string{record})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	form := url.Values{
		"token":   {token},
		"content": {"record"},
		"format":  {"json"},
		"type":    {"flat"},
		"data":    {string(data)},
	}
	return c.post(ctx, endpoint, form)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PublicationError{Detail: "record server unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &model.CredentialsError{
			Detail: fmt.Sprintf("record server rejected token: returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.PublicationError{
			Detail: fmt.Sprintf("record server returned %d: %s", resp.StatusCode, detail),
		}
	}

	return nil
}
