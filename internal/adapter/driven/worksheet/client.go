// Package worksheet implements the WorksheetServer port against a
// spreadsheet append service.
package worksheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorksheetServer = (*Client)(nil)

// Client implements the driven.WorksheetServer port. The header row is
// fixed when the worksheet is created; appended rows are keyed against
// it. Unauthorized responses map to *model.CredentialsError.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new worksheet service client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing.
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

type createWorksheetBody struct {
	Title  string   `json:"title"`
	Header []string `json:"header"`
}

type createWorksheetResponse struct {
	WorksheetID string `json:"worksheetId"`
}

// CreateWorksheet creates a worksheet with the given header row and
// returns its identifier.
func (c *Client) CreateWorksheet(ctx context.Context, endpoint, apiKey, title string, header []string) (string, error) {
	var resp createWorksheetResponse
	err := c.doJSON(ctx, joinPath(endpoint, "/worksheets"), apiKey,
		createWorksheetBody{Title: title, Header: header}, &resp)
	if err != nil {
		return "", err
	}
	if resp.WorksheetID == "" {
		return "", &model.PublicationError{Detail: "worksheet service returned empty worksheetId"}
	}

	return resp.WorksheetID, nil
}

type appendRowBody struct {
	Row map[string]string `json:"row"`
}

// AppendRow appends one keyed data row to an existing worksheet.
func (c *Client) AppendRow(ctx context.Context, endpoint, apiKey, worksheetID string, row map[string]string) error {
	return c.doJSON(ctx, joinPath(endpoint, "/worksheets/"+worksheetID+"/rows"), apiKey,
		appendRowBody{Row: row}, nil)
}

func (c *Client) doJSON(ctx context.Context, url, apiKey string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PublicationError{Detail: "worksheet service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &model.CredentialsError{
			Detail: fmt.Sprintf("worksheet service rejected credentials: returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.PublicationError{
			Detail: fmt.Sprintf("worksheet service returned %d: %s", resp.StatusCode, detail),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &model.PublicationError{Detail: "decode worksheet service response", Err: err}
		}
	}

	return nil
}

func joinPath(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + path
}
