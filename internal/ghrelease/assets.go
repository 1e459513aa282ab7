package ghrelease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Asset is the API representation of an uploaded release asset.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// UploadAsset attaches one file to a release using its upload URL.
// The asset name is the file's base name.
func (c *Client) UploadAsset(ctx context.Context, release *Release, path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("checking asset %s: %w", path, err)
	}

	name := filepath.Base(path)
	uploadURL, err := expandUploadURL(release.UploadURL, name)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentTypeFor(name))
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading asset %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("uploading asset %s: %w", name,
			c.decodeError(resp.StatusCode, body, release.TagName))
	}

	var asset Asset
	if err := json.Unmarshal(body, &asset); err != nil {
		return nil, fmt.Errorf("parsing upload response: %w", err)
	}
	return &asset, nil
}

// UploadAssets uploads all files concurrently. The first failure cancels
// the remaining uploads; the error names the failing asset.
func (c *Client) UploadAssets(ctx context.Context, release *Release, paths []string) ([]*Asset, error) {
	assets := make([]*Asset, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			asset, err := c.UploadAsset(gctx, release, path)
			if err != nil {
				return err
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assets, nil
}

// expandUploadURL resolves the hypermedia upload URL template
// ("...{?name,label}") for a concrete asset name.
func expandUploadURL(template, name string) (string, error) {
	base, _, _ := strings.Cut(template, "{")
	if base == "" {
		return "", fmt.Errorf("release has no upload URL")
	}
	return base + "?name=" + url.QueryEscape(name), nil
}

// contentTypeFor guesses the content type for an asset from its extension,
// defaulting to a raw byte stream for extensionless binaries.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
