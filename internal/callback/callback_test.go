package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var gotContentType string
	var got Payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	finished := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	payload := Payload{
		Project:    "kalatori",
		Tag:        "v0.3.1",
		Version:    "0.3.1",
		ReleaseURL: "https://github.com/alzymologist/kalatori/releases/tag/v0.3.1",
		ImageTags:  []string{"ghcr.io/alzymologist/kalatori:0.3.1", "ghcr.io/alzymologist/kalatori:latest"},
		Assets:     []AssetSummary{{Name: "kalatori", SHA256: "abc123"}},
		FinishedAt: finished,
	}

	require.NoError(t, NewSender(srv.URL).Send(context.Background(), payload))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "kalatori", got.Project)
	assert.Equal(t, "v0.3.1", got.Tag)
	assert.Equal(t, "0.3.1", got.Version)
	assert.Len(t, got.ImageTags, 2)
	require.Len(t, got.Assets, 1)
	assert.Equal(t, "abc123", got.Assets[0].SHA256)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestSend_EmptyURLIsNoop(t *testing.T) {
	assert.NoError(t, NewSender("").Send(context.Background(), Payload{Tag: "v0.3.1"}))
}

func TestSend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSender(srv.URL).Send(context.Background(), Payload{Tag: "v0.3.1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewSender(srv.URL).Send(context.Background(), Payload{Tag: "v0.3.1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivering callback")
}
