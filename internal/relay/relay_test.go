// ABOUTME: Tests for relay assembly and the end-to-end HTTP surface with fakes.
// ABOUTME: Exercises routing, health endpoints, and credential resolution rules.

package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/slack-relay/internal/config"
	"github.com/2389/slack-relay/internal/slack"
)

const testSecret = "test-signing-secret"

type countingHandler struct {
	mu    sync.Mutex
	calls int
}

func (h *countingHandler) HandleMessage(context.Context, string, string, string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{HTTPAddr: "127.0.0.1:0", ShutdownGrace: time.Second},
		Slack:  config.SlackConfig{EventsPath: "/slack/events"},
		Dedupe: config.DedupeConfig{TTL: time.Minute, MaxSize: 16},
	}
}

func signedRequest(t *testing.T, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)
	req.Header.Set(slack.TimestampHeader, ts)
	req.Header.Set(slack.SignatureHeader, "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestAssemble_RoutesEventsToDispatcher(t *testing.T) {
	handler := &countingHandler{}
	r := assemble(testConfig(), nil, handler, slack.NewVerifier(testSecret), "UBOT")
	defer r.seen.Close()

	body := `{
		"type": "event_callback",
		"event_id": "Ev1",
		"event": {"type": "message", "user": "U1", "channel": "C1", "text": "hi"}
	}`
	rec := httptest.NewRecorder()
	r.httpServer.Handler.ServeHTTP(rec, signedRequest(t, "/slack/events", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, r.tasks.Drain(5*time.Second))
	assert.Equal(t, 1, handler.count())
}

func TestAssemble_HealthEndpoints(t *testing.T) {
	r := assemble(testConfig(), nil, &countingHandler{}, slack.NewVerifier(testSecret), "UBOT")
	defer r.seen.Close()

	for _, path := range []string{"/health", "/health/ready"} {
		rec := httptest.NewRecorder()
		r.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "OK", rec.Body.String(), path)
	}
}

func TestResolveCredentials_InlineComplete(t *testing.T) {
	cfg := testConfig()
	cfg.Slack.BotToken = "xoxb-inline"
	cfg.Slack.SigningSecret = "inline-secret"
	cfg.Agent.ResourceID = "projects/p/locations/l/reasoningEngines/1"

	creds, err := resolveCredentials(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-inline", creds.botToken)
	assert.Equal(t, "inline-secret", creds.signingSecret)
	assert.Equal(t, "projects/p/locations/l/reasoningEngines/1", creds.resourceID)
}

func TestResolveCredentials_IncompleteWithoutSecretName(t *testing.T) {
	cfg := testConfig()
	cfg.Slack.BotToken = "xoxb-inline" // signing secret and resource id missing

	_, err := resolveCredentials(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_name")
}
