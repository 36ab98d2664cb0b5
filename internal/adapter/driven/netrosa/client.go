// Package netrosa implements the NotaryRegistry port against the Netrosa
// notarization API.
package netrosa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotaryRegistry = (*Client)(nil)

// Client implements the driven.NotaryRegistry port over the Netrosa
// REST API. Unauthorized responses (401/403) map to
// *model.CredentialsError; every other non-2xx response maps to
// *model.PublicationError.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Netrosa API client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

type registerFormBody struct {
	FormType string `json:"formType"`
	Name     string `json:"name"`
	Form     string `json:"form"`
	Network  string `json:"network"`
	AuthType string `json:"authType"`
	Test     bool   `json:"test"`
}

type registerFormResponse struct {
	FormID string `json:"formId"`
}

// RegisterForm registers a form definition with the registry and returns
// the remote form identifier.
func (c *Client) RegisterForm(ctx context.Context, apiKey string, req driven.RegisterFormRequest) (string, error) {
	body := registerFormBody{
		FormType: "openrosa",
		Name:     req.Name,
		Form:     req.DefinitionXML,
		Network:  string(req.Network),
		AuthType: "key",
		Test:     req.Test,
	}

	var resp registerFormResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/form",
		map[string]string{"x-api-key": apiKey}, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.FormID == "" {
		return "", &model.PublicationError{Detail: "registry returned empty formId"}
	}

	return resp.FormID, nil
}

type formStatusResponse struct {
	FormStatus string `json:"formStatus"`
}

// FormStatus returns the registry's provisioning status for the form.
func (c *Client) FormStatus(ctx context.Context, apiKey, remoteFormID string) (string, error) {
	var resp formStatusResponse
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/form/"+remoteFormID,
		map[string]string{"x-api-key": apiKey}, nil, &resp)
	if err != nil {
		return "", err
	}

	return resp.FormStatus, nil
}

type generateKeysBody struct {
	Generate int `json:"generate"`
}

type generateKeysResponse struct {
	Keys []string `json:"keys"`
}

// GenerateSubmitKey creates one submission key scoped to the remote form.
func (c *Client) GenerateSubmitKey(ctx context.Context, apiKey, remoteFormID string) (string, error) {
	var resp generateKeysResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/form/"+remoteFormID+"/keys",
		map[string]string{"x-api-key": apiKey}, generateKeysBody{Generate: 1}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Keys) == 0 {
		return "", &model.PublicationError{Detail: "registry returned no submission keys"}
	}

	return resp.Keys[0], nil
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken exchanges the submit key for a short-lived bearer token.
func (c *Client) IssueToken(ctx context.Context, remoteFormID, submitKey string) (string, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/form/"+remoteFormID+"/auth/jwt",
		map[string]string{"Authorization": "Bearer " + submitKey}, nil, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &model.PublicationError{Detail: "registry returned empty token"}
	}

	return resp.Token, nil
}

type submitEnvelopeBody struct {
	Value string `json:"value"`
}

// SubmitEnvelope posts one submission envelope. Per the registry contract
// the envelope travels as a JSON string under the "value" key. Submission
// failures of any status map to *model.PublicationError.
func (c *Client) SubmitEnvelope(ctx context.Context, remoteFormID, token string, envelope []byte) error {
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/form/"+remoteFormID+"/submission",
		map[string]string{"Authorization": "Bearer " + token},
		submitEnvelopeBody{Value: string(envelope)}, nil)
	if err != nil {
		// The token was validated when issued; an unauthorized response
		// here is a delivery failure, not a credentials problem.
		if model.IsCredentialsError(err) {
			return &model.PublicationError{Detail: "submission rejected: " + err.Error()}
		}
		return err
	}

	return nil
}

// doJSON performs one JSON request/response round trip. A nil in skips
// the request body; a nil out discards the response body.
func (c *Client) doJSON(ctx context.Context, method, url string, headers map[string]string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PublicationError{Detail: "registry unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &model.CredentialsError{
			Detail: fmt.Sprintf("registry rejected credentials: %s %s returned %d", method, url, resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.PublicationError{
			Detail: fmt.Sprintf("registry request failed: %s %s returned %d: %s", method, url, resp.StatusCode, detail),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &model.PublicationError{Detail: "decode registry response", Err: err}
		}
	}

	return nil
}
