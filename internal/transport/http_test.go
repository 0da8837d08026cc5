package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/patrol/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHandler struct {
	method string
	err    error
}

func (h *testHandler) Handle(_ context.Context, tenantID, operatorID, method string, params json.RawMessage) (any, error) {
	h.method = method
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"tenant": tenantID, "operator": operatorID}, nil
}

type codedErr struct {
	code string
}

func (e *codedErr) Error() string        { return e.code }
func (e *codedErr) CodeValue() string    { return e.code }
func (e *codedErr) MessageValue() string { return "round already claimed" }

func postRPC(t *testing.T, url, body string, headers map[string]string) (*http.Response, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/mcp", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out Response
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHTTPServer_MCP(t *testing.T) {
	handler := &testHandler{}
	resolver := &testResolver{tokens: map[string]Principal{"token": {TenantID: "tenant1", OperatorID: "op1"}}}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver), nil))
	t.Cleanup(server.Close)

	resp, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"list_claimable_rounds","id":1}`, map[string]string{
		"Authorization": "Bearer token",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "list_claimable_rounds", handler.method)
	require.Nil(t, out.Error)
	require.Equal(t, map[string]any{"tenant": "tenant1", "operator": "op1"}, out.Result)
}

func TestHTTPServer_MCPUnauthorized(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, AuthMiddleware(&testResolver{}), nil))
	t.Cleanup(server.Close)

	resp, _ := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"list_clients","id":1}`, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_CodedError(t *testing.T) {
	handler := &testHandler{err: &codedErr{code: "ALREADY_CLAIMED"}}
	server := httptest.NewServer(NewServer(handler, HeaderMiddleware("default"), nil))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"start_round","id":7}`, map[string]string{
		OperatorHeader: "op2",
	})
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrApplication, out.Error.Code)
	assert.Equal(t, "round already claimed", out.Error.Message)
	assert.EqualValues(t, 7, out.ID)
}

func TestHTTPServer_InvalidRequest(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, HeaderMiddleware("default"), nil))
	t.Cleanup(server.Close)

	_, out := postRPC(t, server.URL, `{"id":1}`, nil)
	require.NotNil(t, out.Error)
	require.Equal(t, ErrInvalidReq, out.Error.Code)
}

func TestHTTPServer_Health(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, nil, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_RoundEvents(t *testing.T) {
	hub := feed.NewHub(4)
	server := httptest.NewServer(NewServer(&testHandler{}, HeaderMiddleware("tenant1"), hub))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/rounds/r1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The handler subscribes before writing headers, so dispatches from
	// here on reach the stream. Events for other tenants or rounds do not.
	hub.Dispatch(feed.Event{Type: feed.EventVisitRecorded, TenantID: "tenant2", RoundID: "r1"})
	hub.Dispatch(feed.Event{Type: feed.EventVisitRecorded, TenantID: "tenant1", RoundID: "r2"})
	hub.Dispatch(feed.Event{Type: feed.EventProgressUpdated, TenantID: "tenant1", RoundID: "r1"})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		lines = append(lines, line)
	}
	require.Equal(t, "event: progress.updated", lines[0])

	var evt feed.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &evt))
	require.Equal(t, "tenant1", evt.TenantID)
	require.Equal(t, "r1", evt.RoundID)
}
