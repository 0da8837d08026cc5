package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rpggio/patrol/internal/domain/visit"
	"github.com/rpggio/patrol/internal/mcp"
	"github.com/rpggio/patrol/internal/transport"
)

type rpcClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func newRPCClient(baseURL, token string) *rpcClient {
	return &rpcClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/mcp",
		token:    token,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// rpcError is a JSON-RPC failure carrying the server's error code.
type rpcError struct {
	Code    string
	Message string
}

func (e *rpcError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func (c *rpcClient) recordVisitByCode(ctx context.Context, roundID, code string) (*mcp.VisitResponse, error) {
	var out mcp.VisitResponse
	err := c.call(ctx, "record_visit_by_code", mcp.RecordVisitByCodeParams{
		RoundID: roundID,
		Code:    code,
		Source:  visit.SourceScan,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *rpcClient) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(transport.Request{JSONRPC: "2.0", ID: 1, Method: method, Params: mustRaw(params)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: unexpected status %s", method, resp.Status)
	}

	var rpc struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
			Data    struct {
				Code string `json:"code"`
			} `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpc.Error != nil {
		return &rpcError{Code: rpc.Error.Data.Code, Message: rpc.Error.Message}
	}
	return json.Unmarshal(rpc.Result, out)
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
