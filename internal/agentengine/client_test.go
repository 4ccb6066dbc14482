// ABOUTME: Tests for the agent engine client against a local HTTP server.
// ABOUTME: Covers session lifecycle request shapes and NDJSON stream decoding.

package agentengine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testResource = "projects/p/locations/us-central1/reasoningEngines/42"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return NewClient(context.Background(), "us-central1", testResource, ts,
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/"+testResource+"/sessions", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "U123", body["userId"])

		json.NewEncoder(w).Encode(map[string]string{
			"name": testResource + "/sessions/9981",
		})
	})

	sess, err := client.CreateSession(context.Background(), "U123")
	require.NoError(t, err)
	assert.Equal(t, "9981", sess.ID)
}

func TestCreateSession_OperationName(t *testing.T) {
	// Some engine versions answer with the long-running operation name;
	// the session id still sits between "sessions/" and "/operations/".
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"name": testResource + "/sessions/777/operations/1",
		})
	})

	sess, err := client.CreateSession(context.Background(), "U123")
	require.NoError(t, err)
	assert.Equal(t, "777", sess.ID)
}

func TestCreateSession_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "resource exhausted"}}`, http.StatusTooManyRequests)
	})

	_, err := client.CreateSession(context.Background(), "U123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestDeleteSession(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.Write([]byte("{}"))
	})

	err := client.DeleteSession(context.Background(), "9981")
	require.NoError(t, err)
	assert.Equal(t, "/v1/"+testResource+"/sessions/9981", gotPath)
}

func TestStreamQuery_DecodesEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/"+testResource+":streamQuery", r.URL.Path)

		var req streamQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "stream_query", req.ClassMethod)
		assert.Equal(t, "U123", req.Input.UserID)
		assert.Equal(t, "sess-1", req.Input.SessionID)
		assert.Equal(t, "hello", req.Input.Message)

		io.WriteString(w, `{"content": {"parts": [{"text": "Hel"}, {"text": "lo, "}]}}`+"\n")
		io.WriteString(w, "\n")
		io.WriteString(w, `{"content": {"parts": [{"text": "world"}]}}`+"\n")
	})

	stream, err := client.StreamQuery(context.Background(), "U123", "sess-1", "hello")
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hello, ", ev.Text())

	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "world", ev.Text())

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamQuery_MalformedEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"content": {"parts": [{"text": "ok"}]}}`+"\n")
		io.WriteString(w, `{"content": nonsense`+"\n")
	})

	stream, err := client.StreamQuery(context.Background(), "U1", "s1", "q")
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ok", ev.Text())

	_, err = stream.Recv()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestStreamEvent_Text(t *testing.T) {
	assert.Equal(t, "", (&StreamEvent{}).Text())
	assert.Equal(t, "", (*StreamEvent)(nil).Text())

	ev := &StreamEvent{Content: &Content{Parts: []Part{{Text: "a"}, {}, {Text: "b"}}}}
	assert.Equal(t, "ab", ev.Text())
}

func TestSessionIDFromName(t *testing.T) {
	assert.Equal(t, "1", sessionIDFromName("x/sessions/1"))
	assert.Equal(t, "1", sessionIDFromName("x/sessions/1/operations/2"))
	assert.Equal(t, "", sessionIDFromName("x/operations/2"))
}
