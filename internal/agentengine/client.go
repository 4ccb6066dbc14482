// ABOUTME: HTTP client for a Vertex AI Agent Engine resource.
// ABOUTME: Covers session create/delete and the streamed query RPC.

package agentengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client talks to one agent engine resource. All calls are scoped to the
// resource name it was constructed with.
type Client struct {
	httpClient *http.Client
	baseURL    string
	resource   string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the regional API endpoint. Test hook and escape
// hatch for private service connect setups.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient substitutes the HTTP client, bypassing oauth2 transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for the given resource using the provided token
// source. resource is the full name, e.g.
// "projects/p/locations/us-central1/reasoningEngines/123".
func NewClient(ctx context.Context, location, resource string, ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    fmt.Sprintf("https://%s-aiplatform.googleapis.com", location),
		resource:   resource,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefaultClient builds a client authenticated with application-default
// credentials, the way the relay runs on Cloud Run.
func NewDefaultClient(ctx context.Context, location, resource string, opts ...Option) (*Client, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("resolving default credentials: %w", err)
	}
	return NewClient(ctx, location, resource, ts, opts...), nil
}

// Session is an ephemeral server-side context on the agent engine, scoped
// to one message-handling invocation.
type Session struct {
	ID   string
	Name string
}

// CreateSession opens a session for the given user.
func (c *Client) CreateSession(ctx context.Context, userID string) (*Session, error) {
	url := fmt.Sprintf("%s/v1/%s/sessions", c.baseURL, c.resource)
	body, err := json.Marshal(map[string]string{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("encoding session request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var created struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}

	id := sessionIDFromName(created.Name)
	if id == "" {
		return nil, fmt.Errorf("session response carried no session id: %q", created.Name)
	}
	return &Session{ID: id, Name: created.Name}, nil
}

// DeleteSession tears down a session. Callers must invoke this exactly once
// per successful CreateSession, regardless of how the query went.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/v1/%s/sessions/%s", c.baseURL, c.resource, sessionID)
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// streamQueryRequest is the engine's generic method-dispatch envelope.
type streamQueryRequest struct {
	ClassMethod string           `json:"class_method"`
	Input       streamQueryInput `json:"input"`
}

type streamQueryInput struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// StreamQuery issues the streamed query RPC and returns a Stream of events.
// The stream is lazy, finite, and not restartable; the caller owns closing it.
func (c *Client) StreamQuery(ctx context.Context, userID, sessionID, message string) (Stream, error) {
	url := fmt.Sprintf("%s/v1/%s:streamQuery", c.baseURL, c.resource)
	body, err := json.Marshal(streamQueryRequest{
		ClassMethod: "stream_query",
		Input: streamQueryInput{
			UserID:    userID,
			SessionID: sessionID,
			Message:   message,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	return newJSONStream(resp.Body), nil
}

// do issues a request and normalizes non-2xx statuses into errors.
// On error the response body has been consumed and closed.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling agent engine: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("agent engine %s %s: %s: %s",
			method, url, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}

// sessionIDFromName extracts the session id from a resource name such as
// ".../reasoningEngines/123/sessions/456" or the longer operation form
// ".../sessions/456/operations/789".
func sessionIDFromName(name string) string {
	const marker = "sessions/"
	idx := strings.Index(name, marker)
	if idx < 0 {
		return ""
	}
	rest := name[idx+len(marker):]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
