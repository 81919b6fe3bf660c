// Package cloud is a client for the remote deployment API.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cameronsjo/deckhand/internal/manifest"
)

// API paths.
const (
	projectPath = "/project/"
	filesPath   = "/project/deployment/chain-forge"
	imagePath   = "/project/deployment/image"
	configPath  = "/project/deployment/config"
)

// APIKeyHeader carries the credential on every request.
const APIKeyHeader = "X-Api-Key"

// RequestIDHeader carries the run ID on every request.
const RequestIDHeader = "X-Request-Id"

// maxReasonBody caps how much of an error response ends up in a Result.
const maxReasonBody = 512

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://karnot.xyz.
	BaseURL string

	// APIKey is sent in the X-Api-Key header.
	APIKey string

	// UserAgent is sent on every request. Optional.
	UserAgent string

	// RunID is sent in the X-Request-Id header. Optional.
	RunID string

	// HTTPClient defaults to a client without a timeout.
	HTTPClient *http.Client
}

// Project is the project metadata returned by the API.
type Project struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Stack        string `json:"stack"`
}

// Client issues deployment requests. It holds no per-call state, so
// repeated identical calls are sent to the API every time.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	runID     string
	http      *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		userAgent: opts.UserAgent,
		runID:     opts.RunID,
		http:      httpClient,
	}
}

// projectResponse is the GET /project/{id} envelope.
type projectResponse struct {
	Data *Project `json:"data"`
}

// ProjectExists checks that the project exists and returns its metadata.
// A 200 response needs data.name; organization and stack are only logged
// and may be empty.
func (c *Client) ProjectExists(ctx context.Context, projectID string) (Project, Result) {
	req, err := c.newRequest(ctx, http.MethodGet, projectPath+url.PathEscape(projectID), nil)
	if err != nil {
		return Project{}, Failure(0, "create request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Project{}, Failure(0, "send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Project{}, statusFailure(resp)
	}

	var body projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Project{}, Failure(resp.StatusCode, "decode response: %v", err)
	}
	if body.Data == nil || body.Data.Name == "" {
		return Project{}, Failure(resp.StatusCode, "response has no project data")
	}

	return *body.Data, Success(resp.StatusCode)
}

type fileRequest struct {
	URL         string `json:"url"`
	ProjectID   string `json:"projectId"`
	ServiceName string `json:"serviceName"`
	Async       bool   `json:"async"`
}

type imageRequest struct {
	Image       string `json:"image"`
	ProjectID   string `json:"projectId"`
	ServiceName string `json:"serviceName"`
	Async       bool   `json:"async"`
}

type configRequest struct {
	Config      any    `json:"config"`
	ProjectID   string `json:"projectId"`
	ServiceName string `json:"serviceName"`
	Async       bool   `json:"async"`
}

// UpdateFiles uploads every file, one request each. All files are attempted;
// the Result is OK only if every upload succeeded.
func (c *Client) UpdateFiles(ctx context.Context, projectID, serviceName string, files []manifest.File) Result {
	var (
		failed []string
		status int
	)

	for _, f := range files {
		res := c.post(ctx, filesPath, fileRequest{
			URL:         f.Source,
			ProjectID:   projectID,
			ServiceName: serviceName,
		})
		status = res.Status
		if !res.OK {
			failed = append(failed, fmt.Sprintf("%s (%s)", f.Label, res.Reason))
		}
	}

	if len(failed) > 0 {
		return Failure(status, "%d of %d uploads failed: %s", len(failed), len(files), strings.Join(failed, "; "))
	}
	return Success(status)
}

// UpdateImage replaces the running image of a service.
func (c *Client) UpdateImage(ctx context.Context, projectID, serviceName, image string) Result {
	return c.post(ctx, imagePath, imageRequest{
		Image:       image,
		ProjectID:   projectID,
		ServiceName: serviceName,
	})
}

// UpdateConfig replaces the configuration of a service.
func (c *Client) UpdateConfig(ctx context.Context, projectID, serviceName string, config any) Result {
	return c.post(ctx, configPath, configRequest{
		Config:      config,
		ProjectID:   projectID,
		ServiceName: serviceName,
	})
}

// post sends payload as JSON. Only 200 counts as success.
func (c *Client) post(ctx context.Context, path string, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failure(0, "marshal payload: %v", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return Failure(0, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Failure(0, "send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFailure(resp)
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return Success(resp.StatusCode)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.runID != "" {
		req.Header.Set(RequestIDHeader, c.runID)
	}
	return req, nil
}

// statusFailure builds a failed Result from an unexpected response.
func statusFailure(resp *http.Response) Result {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxReasonBody))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return Failure(resp.StatusCode, "unexpected status: %d", resp.StatusCode)
	}
	return Failure(resp.StatusCode, "unexpected status: %d: %s", resp.StatusCode, msg)
}
