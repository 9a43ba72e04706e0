// Package mcp is the client for the remote tool-execution endpoint. The
// endpoint speaks JSON-RPC 2.0 over HTTP POST with a session correlation
// id passed as a query parameter.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

type Client struct {
	BaseURL   string
	APIKey    string
	SessionId string
	Client    *http.Client

	reqId atomic.Int64
}

// Tool is a remotely declared tool descriptor.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func NewClient(baseURL, apiKey, sessionId string) *Client {
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		SessionId: sessionId,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- JSON-RPC wire structs ---

type rpcRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolsCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// ListTools discovers the remotely declared tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var res toolsListResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("unmarshal tools/list result: %w", err)
	}
	return res.Tools, nil
}

// CallTool executes a named remote tool and returns its text content
// verbatim, joining multiple content blocks with newlines.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	raw, err := c.call(ctx, "tools/call", toolsCallParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	var res toolsCallResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("unmarshal tools/call result: %w", err)
	}
	var parts []string
	for _, block := range res.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		return "", fmt.Errorf("remote tool %s failed: %s", name, text)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Id:      c.reqId.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.BaseURL
	if c.SessionId != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "sessionId=" + url.QueryEscape(c.SessionId)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp error: status %d, body: %s", resp.StatusCode, string(body))
	}

	decoded, err := DecodeEnvelope(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(decoded, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("mcp rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
