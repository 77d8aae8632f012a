package agentgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Client talks to an agentgate gateway. Safe for concurrent use; the
// token is swapped atomically on re-authentication.
type Client struct {
	baseURL string
	cfg     clientConfig

	mu    sync.RWMutex
	token string

	nextID atomic.Int64
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("agentgate: base URL is required")
	}
	cfg := clientConfig{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "agentgate-go-sdk",
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		token:   cfg.token,
	}, nil
}

// Authenticate exchanges the configured credentials for a token and
// stores it for subsequent calls.
func (c *Client) Authenticate(ctx context.Context) (*Token, error) {
	if c.cfg.agentID == "" || c.cfg.secret == "" {
		return nil, fmt.Errorf("agentgate: credentials not configured; use WithCredentials")
	}
	body := map[string]any{
		"agentId":     c.cfg.agentID,
		"agentSecret": c.cfg.secret,
	}
	if c.cfg.provider != "" {
		body["provider"] = c.cfg.provider
	}
	if len(c.cfg.scopes) > 0 {
		body["scopes"] = c.cfg.scopes
	}

	var tok Token
	if err := c.postJSON(ctx, "/agent/token", body, &tok); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = tok.Token
	c.mu.Unlock()
	return &tok, nil
}

// Introspect decodes the current token's claims server-side.
func (c *Client) Introspect(ctx context.Context) (*Introspection, error) {
	var intro Introspection
	if err := c.getJSON(ctx, "/agent/token/introspect", &intro); err != nil {
		return nil, err
	}
	return &intro, nil
}

// Call performs a single JSON-RPC request and returns its result.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  params,
	}

	raw, err := c.postRPC(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("agentgate: decode rpc response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Notify sends a JSON-RPC notification. The gateway acknowledges it
// without a response body.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	_, err := c.postRPC(ctx, rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
	return err
}

// Batch sends several requests in one round trip. Responses come back
// keyed by request order; a failed entry carries its own *RPCError.
func (c *Client) Batch(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("agentgate: empty batch")
	}

	wire := make([]rpcRequest, len(reqs))
	for i, r := range reqs {
		wire[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      json.RawMessage(strconv.Itoa(i + 1)),
			Method:  r.Method,
			Params:  r.Params,
		}
	}

	raw, err := c.postRPC(ctx, wire)
	if err != nil {
		return nil, err
	}

	var resps []rpcResponse
	if err := json.Unmarshal(raw, &resps); err != nil {
		return nil, fmt.Errorf("agentgate: decode batch response: %w", err)
	}

	results := make([]BatchResult, len(reqs))
	for _, resp := range resps {
		var idx int
		if err := json.Unmarshal(resp.ID, &idx); err != nil || idx < 1 || idx > len(reqs) {
			continue
		}
		results[idx-1] = BatchResult{Result: resp.Result, Err: resp.Error}
	}
	return results, nil
}

// BatchRequest is one entry of a Batch call.
type BatchRequest struct {
	Method string
	Params any
}

// BatchResult is the per-entry outcome of a Batch call.
type BatchResult struct {
	Result json.RawMessage
	Err    *RPCError
}

// ListTools returns the actions visible to this caller's permissions.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	raw, err := c.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("agentgate: decode tools: %w", err)
	}
	return out.Tools, nil
}

// CallTool invokes a named action. Pass "confirmed": true in args to
// clear a confirmation gate, or "simulate": true for a dry run.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	return c.Call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) postRPC(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("agentgate: encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/agent/rpc", body)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("agentgate: encode request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("agentgate: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agentgate: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("agentgate: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decodeEnvelope(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("agentgate: decode envelope: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return &APIError{Code: env.Error.Code, Message: env.Error.Message}
		}
		return fmt.Errorf("agentgate: request failed without error detail")
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func apiError(status int, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		return &APIError{Status: status, Code: env.Error.Code, Message: env.Error.Message}
	}
	return &APIError{Status: status, Code: "UNKNOWN", Message: http.StatusText(status)}
}
