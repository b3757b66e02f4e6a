// Package github fetches repository clone traffic from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/clonepulse/clonepulse/pkg/units"
)

const defaultBaseURL = "https://api.github.com"

// acceptHeader is the GitHub REST API media type.
const acceptHeader = "application/vnd.github+json"

// maxErrorBodyBytes bounds how much of an error response body is read.
const maxErrorBodyBytes = 4 * units.KiB

// tokenEnv is the environment variable holding the API token.
const tokenEnv = "TOKEN"

const defaultTimeout = 30 * time.Second

// namePattern matches valid GitHub owner and repository names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

// Sentinel errors for the traffic source.
var (
	// ErrMissingToken indicates the TOKEN environment variable is unset.
	ErrMissingToken = errors.New("TOKEN environment variable is not set")
	// ErrInvalidName indicates an owner or repository name failed validation.
	ErrInvalidName = errors.New("name must be 1-100 characters of letters, digits, '.', '_', or '-'")
	// ErrNoCloneData indicates the API response carried no clones key.
	ErrNoCloneData = errors.New("no clone data returned")
)

// RawClone is one upstream daily entry. Fields stay raw; row-level
// validation happens in the ingestion pipeline, where one malformed entry
// is reported with its row index instead of aborting the decode.
type RawClone struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Count     json.RawMessage `json:"count"`
	Uniques   json.RawMessage `json:"uniques"`
}

// TrafficSnapshot is the rolling daily clone window the API returns.
type TrafficSnapshot struct {
	Clones []RawClone `json:"clones"`
}

// Source captures the ability to fetch a clone traffic snapshot.
type Source interface {
	FetchClones(ctx context.Context, user, repo string) (*TrafficSnapshot, error)
}

// Client is a thin wrapper around the GitHub traffic REST endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a client with sane defaults.
func NewClient(token string, opts ...func(*Client)) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient overrides the internal HTTP client.
func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the default API base URL (useful for tests and
// GitHub Enterprise installs).
func WithBaseURL(url string) func(*Client) {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// FetchClones retrieves the daily clone snapshot for user/repo.
// A response without a clones key is ErrNoCloneData; a present but empty
// list is a valid zero-row snapshot.
func (c *Client) FetchClones(ctx context.Context, user, repo string) (*TrafficSnapshot, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	url := fmt.Sprintf("%s/repos/%s/%s/traffic/clones", c.baseURL, user, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("fetch clone traffic: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf("github api status %d: %s", resp.StatusCode, string(data))
	}

	var snapshot TrafficSnapshot

	decoder := json.NewDecoder(resp.Body)

	decodeErr := decoder.Decode(&snapshot)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode clone traffic: %w", decodeErr)
	}

	if snapshot.Clones == nil {
		return nil, ErrNoCloneData
	}

	return &snapshot, nil
}

// ValidateName checks a GitHub owner or repository name. The what argument
// names the field in the returned error.
func ValidateName(name, what string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid %s %q: %w", what, name, ErrInvalidName)
	}

	return nil
}

// TokenFromEnv returns the API token from the TOKEN environment variable.
func TokenFromEnv() (string, error) {
	token := os.Getenv(tokenEnv)
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}
