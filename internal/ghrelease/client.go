// Package ghrelease creates releases and uploads assets through the
// GitHub REST API. It uses a plain net/http client; every request
// carries a context for cancellation.
package ghrelease

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds individual API requests.
const DefaultTimeout = 60 * time.Second

// Client talks to the release API of one repository.
type Client struct {
	// BaseURL is the API root. Overridable for testing.
	BaseURL string
	Owner   string
	Repo    string
	Token   string

	httpClient *http.Client
}

// NewClient creates a release client for a repository.
func NewClient(owner, repo, token string) *Client {
	return &Client{
		BaseURL:    "https://api.github.com",
		Owner:      owner,
		Repo:       repo,
		Token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Release is the API representation of a created release.
type Release struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	Name      string `json:"name"`
	HTMLURL   string `json:"html_url"`
	UploadURL string `json:"upload_url"`
}

// CreateRequest holds the parameters for release creation.
type CreateRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// AlreadyExistsError indicates a release already exists for the tag.
type AlreadyExistsError struct {
	TagName string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a release already exists for tag %s", e.TagName)
}

// APIError is a non-success response from the release API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("release API returned %d: %s", e.StatusCode, e.Message)
}

// apiErrorBody is the error payload shape of the REST API.
type apiErrorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Code string `json:"code"`
	} `json:"errors"`
}

// CreateRelease creates a release for a tag.
// Returns AlreadyExistsError when the tag already has a release.
func (c *Client) CreateRelease(ctx context.Context, req CreateRequest) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases", c.BaseURL, c.Owner, c.Repo)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling release request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("creating release: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, c.decodeError(resp.StatusCode, body, req.TagName)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}
	return &release, nil
}

// decodeError maps an error response to a typed error.
func (c *Client) decodeError(status int, body []byte, tagName string) error {
	var parsed apiErrorBody
	_ = json.Unmarshal(body, &parsed)

	if status == http.StatusUnprocessableEntity {
		for _, e := range parsed.Errors {
			if e.Code == "already_exists" {
				return &AlreadyExistsError{TagName: tagName}
			}
		}
	}

	message := parsed.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: status, Message: message}
}

// setHeaders applies the common API headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
