package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/patrol/internal/domain/activity"
	"github.com/rpggio/patrol/internal/domain/checkpoint"
	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/incident"
	"github.com/rpggio/patrol/internal/domain/progress"
	"github.com/rpggio/patrol/internal/domain/round"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/feed"
	"github.com/rpggio/patrol/internal/mcp"
	"github.com/rpggio/patrol/internal/scan"
	"github.com/rpggio/patrol/internal/sqlite"
	"github.com/rpggio/patrol/internal/transport"
	"github.com/stretchr/testify/require"
)

// StreamPath serves the MCP streamable HTTP transport.
const StreamPath = "/mcp/stream"

// Options tunes the stack under test.
type Options struct {
	GeofenceMeters float64
	Policy         round.Policy
	Evidence       mcp.EvidenceService
}

type TestServer struct {
	Server     *httptest.Server
	DB         *sqlite.DB
	Bus        *feed.MemoryBus
	Hub        *feed.Hub
	Aggregator *progress.Aggregator
	APIKeys    *sqlite.APIKeyRepository
	TenantID   string
}

// New starts the full service over an in-memory database. Requests are
// authenticated with API keys added through AddAPIKey.
func New(t *testing.T, tenantID string, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clientRepo := sqlite.NewClientRepository(db)
	checkpointRepo := sqlite.NewCheckpointRepository(db)
	templateRepo := sqlite.NewTemplateRepository(db)
	roundRepo := sqlite.NewRoundRepository(db)
	visitRepo := sqlite.NewVisitRepository(db)
	incidentRepo := sqlite.NewIncidentRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)

	bus := feed.NewMemoryBus()
	hub := feed.NewHub(64)

	activitySvc := activity.NewService(activityRepo, nil)
	clientSvc := client.NewService(clientRepo, nil)
	checkpointSvc := checkpoint.NewService(checkpointRepo, bus, activitySvc, nil)
	templateSvc := template.NewService(templateRepo, nil)
	scopes := round.NewScopeResolver(roundRepo, templateSvc)
	aggregator := progress.NewAggregator(scopes, checkpointRepo, visitRepo, bus, nil)
	roundSvc := round.NewService(roundRepo, templateSvc, aggregator, bus, activitySvc, opts.Policy, nil)
	visitSvc := visit.NewService(visitRepo, roundSvc, scopes, checkpointSvc, bus, activitySvc, opts.GeofenceMeters, nil)
	incidentSvc := incident.NewService(incidentRepo, roundSvc, bus, activitySvc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, aggregator.Run(ctx, bus))
	require.NoError(t, bus.StartForwarder(ctx, hub.Dispatch))

	services := mcp.Services{
		Clients:     clientSvc,
		Checkpoints: checkpointSvc,
		Templates:   templateSvc,
		Rounds:      roundSvc,
		Visits:      visitSvc,
		Progress:    aggregator,
		Incidents:   incidentSvc,
		Activity:    activitySvc,
		Decoder:     scan.NewQRDecoder(),
	}
	if opts.Evidence != nil {
		services.Evidence = opts.Evidence
	}

	router := transport.NewServer(mcp.NewHandler(services), transport.AuthMiddleware(apiKeys), hub)
	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	router.Handle(StreamPath, sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	))
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:     server,
		DB:         db,
		Bus:        bus,
		Hub:        hub,
		Aggregator: aggregator,
		APIKeys:    apiKeys,
		TenantID:   tenantID,
	}

	t.Cleanup(func() {
		server.Close()
		cancel()
		_ = bus.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers token for the server's tenant. An empty operatorID
// makes a dispatcher key.
func (ts *TestServer) AddAPIKey(t *testing.T, token, operatorID string) {
	t.Helper()
	require.NoError(t, ts.APIKeys.Create(context.Background(), token, ts.TenantID, operatorID, "test"))
}

// Call invokes method over JSON-RPC and decodes the result into out when
// non-nil. A domain failure is returned as the JSON-RPC error.
func (ts *TestServer) Call(t *testing.T, token, method string, params any, out any) *transport.Error {
	t.Helper()

	payload := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/mcp", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpc struct {
		Result json.RawMessage  `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	if rpc.Error != nil {
		return rpc.Error
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(rpc.Result, out))
	}
	return nil
}

// MustCall is Call that fails the test on a domain error.
func (ts *TestServer) MustCall(t *testing.T, token, method string, params any, out any) {
	t.Helper()
	if rpcErr := ts.Call(t, token, method, params, out); rpcErr != nil {
		require.FailNow(t, "unexpected rpc error", "%s: %s %v", method, rpcErr.Message, rpcErr.Data)
	}
}

// ErrorCode extracts the stable error code from a JSON-RPC error.
func ErrorCode(rpcErr *transport.Error) string {
	if rpcErr == nil {
		return ""
	}
	data, ok := rpcErr.Data.(map[string]any)
	if !ok {
		return ""
	}
	code, _ := data["code"].(string)
	return code
}
