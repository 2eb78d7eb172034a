// Package sdk is the client library creekctl uses to talk to the daemon.
// It wires base URL resolution, keyring-stored tokens, and the HTTP
// surface into one small type so commands don't repeat that plumbing.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hollandale/creekrun/pkg/api/schemas"
)

// Sdk is a thin authenticated client for the daemon's API.
type Sdk struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewSdk returns an initialized SDK for the given base URL, loading the
// token from the OS keyring when one is stored.
func NewSdk(baseURL string) *Sdk {
	token, _ := LoadToken(baseURL)
	return &Sdk{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// ClearCredentials removes the cached token for the SDK's base URL from
// the keyring and resets the in-memory copy.
func (s *Sdk) ClearCredentials() {
	if s == nil || s.BaseURL == "" {
		return
	}
	_ = DeleteToken(s.BaseURL)
	s.Token = ""
}

// HandleUnauthorized clears any cached token when the status represents an
// authentication failure. It returns true for 401 so callers can show a
// helpful message.
func (s *Sdk) HandleUnauthorized(status int) bool {
	if status != http.StatusUnauthorized {
		return false
	}
	s.ClearCredentials()
	return true
}

// apiError mirrors huma's error body just enough for messages.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (s *Sdk) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if s.HandleUnauthorized(resp.StatusCode) {
			return fmt.Errorf("unauthorized: run `creekctl auth login` first")
		}
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Detail, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Health checks the daemon is reachable.
func (s *Sdk) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/health", nil, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("daemon reports status %q", body.Status)
	}
	return nil
}

// TriggerInvocation starts one manual invocation and waits for its
// terminal state.
func (s *Sdk) TriggerInvocation(ctx context.Context) (*schemas.InvocationResponse, error) {
	var inv schemas.InvocationResponse
	if err := s.do(ctx, http.MethodPost, "/api/invocations", nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvocations lists invocations, optionally filtered by status.
func (s *Sdk) ListInvocations(ctx context.Context, status string) ([]schemas.InvocationResponse, error) {
	path := "/api/invocations"
	if status != "" {
		path += "?status=" + status
	}

	var body struct {
		Invocations []schemas.InvocationResponse `json:"invocations"`
	}
	if err := s.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Invocations, nil
}

// GetInvocation fetches one invocation by ID.
func (s *Sdk) GetInvocation(ctx context.Context, id string) (*schemas.InvocationResponse, error) {
	var inv schemas.InvocationResponse
	if err := s.do(ctx, http.MethodGet, "/api/invocations/"+id, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetLogs fetches the captured stdout of an invocation.
func (s *Sdk) GetLogs(ctx context.Context, id string) (string, error) {
	var body struct {
		Logs string `json:"logs"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/invocations/"+id+"/logs", nil, &body); err != nil {
		return "", err
	}
	return body.Logs, nil
}

// ListArtifacts lists retained output objects for an invocation.
func (s *Sdk) ListArtifacts(ctx context.Context, id string) ([]schemas.InvocationArtifact, error) {
	var body struct {
		Artifacts []schemas.InvocationArtifact `json:"artifacts"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/invocations/"+id+"/artifacts", nil, &body); err != nil {
		return nil, err
	}
	return body.Artifacts, nil
}

// GetLatestReading fetches the newest stored reading for a site.
func (s *Sdk) GetLatestReading(ctx context.Context, siteCode string) (*schemas.ReadingResponse, error) {
	var reading schemas.ReadingResponse
	if err := s.do(ctx, http.MethodGet, "/api/readings/"+siteCode+"/latest", nil, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}
