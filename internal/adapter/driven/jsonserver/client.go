// Package jsonserver implements the JSONEndpoint port for generic JSON
// destinations.
package jsonserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JSONEndpoint = (*Client)(nil)

// Client implements the driven.JSONEndpoint port: one POST per
// submission, with the configured auth key sent in the X-Auth-Key
// header. Unauthorized responses map to *model.CredentialsError.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new JSON endpoint client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Post delivers one JSON payload to the endpoint.
func (c *Client) Post(ctx context.Context, endpoint, authKey string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authKey != "" {
		req.Header.Set("X-Auth-Key", authKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PublicationError{Detail: "json endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &model.CredentialsError{
			Detail: fmt.Sprintf("json endpoint rejected auth key: returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.PublicationError{
			Detail: fmt.Sprintf("json endpoint returned %d: %s", resp.StatusCode, detail),
		}
	}

	return nil
}
