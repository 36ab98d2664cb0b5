// Package ipfs implements the ContentStore port against an IPFS pinning
// gateway.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ContentStore = (*Client)(nil)

// Client implements the driven.ContentStore port over the gateway's
// multipart add endpoint. All failures map to *model.PublicationError;
// the gateway uses its own API key, so even an unauthorized response
// must not push the publish task into the bad-credentials state.
type Client struct {
	httpClient *http.Client
	pinURL     string
}

// NewClient creates a new pinning client against the given add endpoint URL.
func NewClient(pinURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		pinURL:     pinURL,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, pinURL string) *Client {
	return &Client{
		httpClient: httpClient,
		pinURL:     pinURL,
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Pin uploads one attachment as a multipart file part and returns the
// content hash reported by the gateway.
func (c *Client) Pin(ctx context.Context, apiKey, name, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &model.PublicationError{Detail: "content store unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &model.PublicationError{
			Detail: fmt.Sprintf("pin %s: content store returned %d: %s", name, resp.StatusCode, detail),
		}
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", &model.PublicationError{Detail: "decode content store response", Err: err}
	}
	if added.Hash == "" {
		return "", &model.PublicationError{Detail: fmt.Sprintf("pin %s: content store returned no hash", name)}
	}

	return added.Hash, nil
}
