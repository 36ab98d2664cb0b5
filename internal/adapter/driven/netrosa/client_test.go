package netrosa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/netvote/aggregate/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client(), server.URL)
}

func TestClient_RegisterForm(t *testing.T) {
	var gotBody map[string]any
	var gotKey string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/form", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"formId": "remote-42"})
	}))

	formID, err := client.RegisterForm(context.Background(), "nv-key", driven.RegisterFormRequest{
		Name:          "Household Survey",
		DefinitionXML: "<h:html/>",
		Network:       model.NetworkRopsten,
		Test:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-42", formID)
	assert.Equal(t, "nv-key", gotKey)

	assert.Equal(t, "openrosa", gotBody["formType"])
	assert.Equal(t, "Household Survey", gotBody["name"])
	assert.Equal(t, "<h:html/>", gotBody["form"])
	assert.Equal(t, "ropsten", gotBody["network"])
	assert.Equal(t, "key", gotBody["authType"])
	assert.Equal(t, true, gotBody["test"])
}

func TestClient_RegisterForm_Unauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.RegisterForm(context.Background(), "bad-key", driven.RegisterFormRequest{})
	require.Error(t, err)
	assert.True(t, model.IsCredentialsError(err))
}

func TestClient_FormStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/form/remote-42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"formStatus": "open"})
	}))

	status, err := client.FormStatus(context.Background(), "nv-key", "remote-42")
	require.NoError(t, err)
	assert.Equal(t, driven.FormStatusOpen, status)
}

func TestClient_GenerateSubmitKey(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form/remote-42/keys", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 1, body["generate"])

		json.NewEncoder(w).Encode(map[string][]string{"keys": {"submit-key-1"}})
	}))

	key, err := client.GenerateSubmitKey(context.Background(), "nv-key", "remote-42")
	require.NoError(t, err)
	assert.Equal(t, "submit-key-1", key)
}

func TestClient_GenerateSubmitKey_Empty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]string{"keys": {}})
	}))

	_, err := client.GenerateSubmitKey(context.Background(), "nv-key", "remote-42")
	require.Error(t, err)
	assert.True(t, model.IsPublicationError(err))
}

func TestClient_IssueToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form/remote-42/auth/jwt", r.URL.Path)
		require.Equal(t, "Bearer submit-key-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-abc"})
	}))

	token, err := client.IssueToken(context.Background(), "remote-42", "submit-key-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestClient_IssueToken_Unauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.IssueToken(context.Background(), "remote-42", "revoked-key")
	require.Error(t, err)
	assert.True(t, model.IsCredentialsError(err))
}

func TestClient_SubmitEnvelope(t *testing.T) {
	var gotValue string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form/remote-42/submission", r.URL.Path)
		require.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotValue = body["value"]

		w.WriteHeader(http.StatusCreated)
	}))

	envelope := []byte(`{"survey":{"submissionId":"sub-1"}}`)
	require.NoError(t, client.SubmitEnvelope(context.Background(), "remote-42", "tok-abc", envelope))
	assert.JSONEq(t, string(envelope), gotValue)
}

func TestClient_SubmitEnvelope_FailureIsPublicationError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusInternalServerError} {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		err := client.SubmitEnvelope(context.Background(), "remote-42", "tok-abc", []byte(`{}`))
		require.Error(t, err)
		assert.True(t, model.IsPublicationError(err), "status %d", status)
		assert.False(t, model.IsCredentialsError(err), "status %d", status)
	}
}
