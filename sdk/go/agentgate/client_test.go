package agentgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /agent/token", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AgentID     string `json:"agentId"`
			AgentSecret string `json:"agentSecret"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.AgentSecret != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   map[string]string{"code": "INVALID_CREDENTIALS", "message": "invalid credentials"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"token":       "tok-abc",
				"agentId":     req.AgentID,
				"permissions": []string{"read"},
				"scopes":      []string{"*"},
			},
		})
	})

	mux.HandleFunc("POST /agent/rpc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   map[string]string{"code": "TOKEN_REQUIRED", "message": "agent token required"},
			})
			return
		}
		var batch []map[string]any
		dec := json.NewDecoder(r.Body)
		var single map[string]any
		raw := json.RawMessage{}
		if err := dec.Decode(&raw); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if len(raw) > 0 && raw[0] == '[' {
			json.Unmarshal(raw, &batch)
			out := make([]map[string]any, 0, len(batch))
			for _, entry := range batch {
				out = append(out, map[string]any{
					"jsonrpc": "2.0",
					"id":      entry["id"],
					"result":  map[string]any{"echo": entry["method"]},
				})
			}
			json.NewEncoder(w).Encode(out)
			return
		}
		json.Unmarshal(raw, &single)
		if single["method"] == "tools/list" {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      single["id"],
				"result": map[string]any{
					"tools": []map[string]any{{"name": "search_products", "description": "Search the catalog"}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      single["id"],
			"error":   map[string]any{"code": -32001, "message": "permission denied"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticateStoresToken(t *testing.T) {
	srv := testGateway(t)
	c, err := New(srv.URL, WithCredentials("agent-1", "s3cret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if tok.Token != "tok-abc" {
		t.Errorf("expected tok-abc, got %q", tok.Token)
	}
	if c.currentToken() != "tok-abc" {
		t.Error("token not stored on client")
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	srv := testGateway(t)
	c, _ := New(srv.URL, WithCredentials("agent-1", "wrong"))

	_, err := c.Authenticate(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %s", apiErr.Code)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.Status)
	}
}

func TestListTools(t *testing.T) {
	srv := testGateway(t)
	c, _ := New(srv.URL, WithToken("tok-abc"))

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search_products" {
		t.Errorf("unexpected tools: %+v", tools)
	}
}

func TestCallWithoutTokenFails(t *testing.T) {
	srv := testGateway(t)
	c, _ := New(srv.URL)

	_, err := c.Call(context.Background(), "tools/list", nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "TOKEN_REQUIRED" {
		t.Errorf("expected TOKEN_REQUIRED, got %s", apiErr.Code)
	}
}

func TestRPCErrorSurfaced(t *testing.T) {
	srv := testGateway(t)
	c, _ := New(srv.URL, WithToken("tok-abc"))

	_, err := c.CallTool(context.Background(), "checkout", map[string]any{"amount": 10})
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if !rpcErr.PermissionDenied() {
		t.Errorf("expected permission denied, got code %d", rpcErr.Code)
	}
}

func TestBatchKeepsOrder(t *testing.T) {
	srv := testGateway(t)
	c, _ := New(srv.URL, WithToken("tok-abc"))

	results, err := c.Batch(context.Background(), []BatchRequest{
		{Method: "tools/list"},
		{Method: "prompts/list"},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	var first struct {
		Echo string `json:"echo"`
	}
	if err := json.Unmarshal(results[0].Result, &first); err != nil {
		t.Fatalf("decode first result: %v", err)
	}
	if first.Echo != "tools/list" {
		t.Errorf("results out of order: %+v", first)
	}
}
