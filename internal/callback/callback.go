// Package callback delivers the post-release webhook: a JSON summary of
// what shipped, POSTed to a configured URL. Delivery is best-effort and
// never fails the pipeline.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds the callback delivery.
const DefaultTimeout = 5 * time.Second

// AssetSummary describes one released asset in the callback payload.
type AssetSummary struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

// Payload is the JSON body POSTed to the callback URL.
type Payload struct {
	Project    string         `json:"project"`
	Tag        string         `json:"tag"`
	Version    string         `json:"version"`
	ReleaseURL string         `json:"release_url,omitempty"`
	ImageTags  []string       `json:"image_tags,omitempty"`
	Assets     []AssetSummary `json:"assets,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Sender delivers release callbacks.
type Sender struct {
	URL        string
	httpClient *http.Client
}

// NewSender creates a Sender for the given callback URL.
// An empty URL yields a no-op sender.
func NewSender(url string) *Sender {
	return &Sender{
		URL:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Send POSTs the payload to the callback URL.
// Returns nil immediately when no URL is configured.
func (s *Sender) Send(ctx context.Context, payload Payload) error {
	if s.URL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivering callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
