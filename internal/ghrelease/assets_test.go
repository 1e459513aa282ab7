package ghrelease

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAsset drops a file into a temp dir and returns its path.
func writeAsset(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExpandUploadURL(t *testing.T) {
	tests := map[string]struct {
		template  string
		assetName string
		expected  string
		wantErr   bool
	}{
		"hypermedia template": {
			template:  "https://uploads.example/releases/101/assets{?name,label}",
			assetName: "kalatori",
			expected:  "https://uploads.example/releases/101/assets?name=kalatori",
		},
		"name needing escape": {
			template:  "https://uploads.example/releases/101/assets{?name,label}",
			assetName: "kalatori linux.tar.gz",
			expected:  "https://uploads.example/releases/101/assets?name=kalatori+linux.tar.gz",
		},
		"plain url without template": {
			template:  "https://uploads.example/releases/101/assets",
			assetName: "kalatori",
			expected:  "https://uploads.example/releases/101/assets?name=kalatori",
		},
		"empty": {
			template: "",
			wantErr:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := expandUploadURL(tc.template, tc.assetName)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentTypeFor("kalatori"))
	assert.Equal(t, "application/json", contentTypeFor("manifest.json"))
}

func TestUploadAsset(t *testing.T) {
	var gotName, gotContentType, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/releases/101/assets", r.URL.Path)
		gotName = r.URL.Query().Get("name")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7, "name": "kalatori", "browser_download_url": "https://example.com/kalatori"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	release := &Release{TagName: "v0.3.1", UploadURL: srv.URL + "/releases/101/assets{?name,label}"}
	path := writeAsset(t, "kalatori", "binary contents")

	asset, err := c.UploadAsset(context.Background(), release, path)
	require.NoError(t, err)

	assert.Equal(t, "kalatori", gotName)
	assert.Equal(t, "application/octet-stream", gotContentType)
	assert.Equal(t, "binary contents", gotBody)
	assert.Equal(t, int64(7), asset.ID)
	assert.Equal(t, "https://example.com/kalatori", asset.URL)
}

func TestUploadAsset_MissingFile(t *testing.T) {
	c := NewClient("alzymologist", "kalatori", "tok")
	release := &Release{TagName: "v0.3.1", UploadURL: "https://uploads.example/assets{?name,label}"}

	_, err := c.UploadAsset(context.Background(), release, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening asset")
}

func TestUploadAsset_ServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "asset too large"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	release := &Release{TagName: "v0.3.1", UploadURL: srv.URL + "/assets{?name,label}"}
	path := writeAsset(t, "kalatori", "binary contents")

	_, err := c.UploadAsset(context.Background(), release, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading asset kalatori")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "asset too large", apiErr.Message)
}

func TestUploadAssets(t *testing.T) {
	var mu sync.Mutex
	var uploaded []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		mu.Lock()
		uploaded = append(uploaded, name)
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1, "name": "` + name + `"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	release := &Release{TagName: "v0.3.1", UploadURL: srv.URL + "/assets{?name,label}"}
	paths := []string{
		writeAsset(t, "kalatori", "bin"),
		writeAsset(t, "checksums.txt", "sums"),
	}

	assets, err := c.UploadAssets(context.Background(), release, paths)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	// Results keep input order regardless of upload interleaving.
	assert.Equal(t, "kalatori", assets[0].Name)
	assert.Equal(t, "checksums.txt", assets[1].Name)

	sort.Strings(uploaded)
	assert.Equal(t, []string{"checksums.txt", "kalatori"}, uploaded)
}

func TestUploadAssets_FirstFailureWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message": "boom"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	release := &Release{TagName: "v0.3.1", UploadURL: srv.URL + "/assets{?name,label}"}
	paths := []string{
		writeAsset(t, "kalatori", "bin"),
		writeAsset(t, "broken", "bad"),
	}

	_, err := c.UploadAssets(context.Background(), release, paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
