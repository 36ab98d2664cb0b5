package redcap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client()), server.URL
}

func TestClient_VerifyToken(t *testing.T) {
	client, endpoint := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok-123", r.PostForm.Get("token"))
		assert.Equal(t, "version", r.PostForm.Get("content"))
		w.Write([]byte("14.5.10"))
	}))

	require.NoError(t, client.VerifyToken(context.Background(), endpoint, "tok-123"))
}

func TestClient_VerifyToken_Rejected(t *testing.T) {
	client, endpoint := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := client.VerifyToken(context.Background(), endpoint, "bad-token")
	require.Error(t, err)
	assert.True(t, model.IsCredentialsError(err))
}

func TestClient_ImportRecord(t *testing.T) {
	client, endpoint := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "record", r.PostForm.Get("content"))
		assert.Equal(t, "json", r.PostForm.Get("format"))
		assert.Equal(t, "flat", r.PostForm.Get("type"))

		var records []map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "sub-1", records[0]["record_id"])
		assert.Equal(t, "34", records[0]["age"])

		w.Write([]byte(`{"count": 1}`))
	}))

	record := map[string]string{"record_id": "sub-1", "age": "34"}
	require.NoError(t, client.ImportRecord(context.Background(), endpoint, "tok-123", record))
}

func TestClient_ImportRecord_ServerError(t *testing.T) {
	client, endpoint := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.ImportRecord(context.Background(), endpoint, "tok-123", map[string]string{"record_id": "sub-1"})
	require.Error(t, err)
	assert.True(t, model.IsPublicationError(err))
}
