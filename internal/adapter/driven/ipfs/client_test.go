package ipfs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netvote/aggregate/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client(), server.URL)
}

func TestClient_Pin(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "ipfs-key", r.Header.Get("x-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "photo.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8}, data)

		json.NewEncoder(w).Encode(map[string]string{
			"Name": "photo.jpg",
			"Hash": "Qm123",
			"Size": "2",
		})
	}))

	ref, err := client.Pin(context.Background(), "ipfs-key", "photo.jpg", "image/jpeg", []byte{0xFF, 0xD8})
	require.NoError(t, err)
	assert.Equal(t, "Qm123", ref)
}

func TestClient_Pin_FailureIsPublicationError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusBadGateway} {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := client.Pin(context.Background(), "ipfs-key", "photo.jpg", "image/jpeg", []byte{1})
		require.Error(t, err)
		assert.True(t, model.IsPublicationError(err), "status %d", status)
		assert.False(t, model.IsCredentialsError(err), "status %d", status)
	}
}

func TestClient_Pin_NoHash(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Name": "photo.jpg"})
	}))

	_, err := client.Pin(context.Background(), "ipfs-key", "photo.jpg", "image/jpeg", []byte{1})
	require.Error(t, err)
	assert.True(t, model.IsPublicationError(err))
}
