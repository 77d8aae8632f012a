package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/gate"
	"github.com/okhotin/agentgate/internal/registry"
	"github.com/okhotin/agentgate/internal/rpc"
)

// maxRPCBody bounds a JSON-RPC request body.
const maxRPCBody = 1 << 20

type tokenRequest struct {
	AgentID     string   `json:"agentId"`
	AgentSecret string   `json:"agentSecret"`
	Provider    string   `json:"provider,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gate.WriteError(w, r, http.StatusBadRequest, gate.CodeMissingCredentials, "request body must be JSON")
		return
	}
	if req.AgentID == "" || req.AgentSecret == "" {
		gate.WriteError(w, r, http.StatusBadRequest, gate.CodeMissingCredentials, "agentId and agentSecret are required")
		return
	}

	rec, err := s.reg.Authenticate(r.Context(), req.AgentID, req.AgentSecret)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidCredentials) {
			gate.WriteError(w, r, http.StatusUnauthorized, gate.CodeInvalidCredentials, "invalid credentials")
			return
		}
		s.logger.Error("registry unavailable", zap.Error(err))
		gate.WriteError(w, r, http.StatusServiceUnavailable, gate.CodeInternal, "registry unavailable")
		return
	}

	agentToken, err := s.tokens.Issue(rec.Identity, req.Scopes)
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err))
		gate.WriteError(w, r, http.StatusInternalServerError, gate.CodeInternal, "token issuance failed")
		return
	}

	s.metrics.TokensIssued.Inc()
	gate.WriteData(w, r, http.StatusOK, agentToken)
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	info, ok := gate.FromContext(r.Context())
	if !ok || info.Claims == nil {
		gate.WriteError(w, r, http.StatusUnauthorized, gate.CodeTokenRequired, "agent token required")
		return
	}

	claims := info.Claims
	remaining := s.tokens.Remaining(claims)
	payload := map[string]any{
		"agentId":          claims.AgentID,
		"provider":         claims.Provider,
		"permissions":      claims.Permissions,
		"scopes":           claims.Scopes,
		"isExpired":        remaining <= 0,
		"remainingSeconds": int(remaining.Seconds()),
	}
	// Timestamp claims are optional in RFC 7519; omit what is absent.
	if claims.IssuedAt != nil {
		payload["issuedAt"] = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload["expiresAt"] = claims.ExpiresAt.Time
	}
	gate.WriteData(w, r, http.StatusOK, payload)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.metrics.RequestsTotal.WithLabelValues("rpc").Inc()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRPCBody))
	if err != nil {
		gate.WriteError(w, r, http.StatusBadRequest, gate.CodeInternal, "failed to read request body")
		return
	}

	resp := s.dispatcher.Handle(r.Context(), body)

	// The dispatcher flags the request when auxiliary context (the
	// reputation store) was substituted with defaults.
	if info, ok := gate.FromContext(r.Context()); ok && info.Degraded {
		w.Header().Set("X-Degraded", "true")
	}

	status := http.StatusOK
	if resp == nil {
		// All notifications: acknowledged, nothing to return.
		status = http.StatusNoContent
		w.WriteHeader(status)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(resp)
	}

	s.metrics.RequestDuration.
		WithLabelValues("rpc", http.StatusText(status)).
		Observe(time.Since(start).Seconds())
}

// handleRPCInfo answers GET on the RPC endpoint with static capability
// info.
func (s *Server) handleRPCInfo(w http.ResponseWriter, r *http.Request) {
	gate.WriteData(w, r, http.StatusOK, map[string]any{
		"protocol":        "JSON-RPC 2.0",
		"protocolVersion": rpc.ProtocolVersion,
		"transport":       "POST " + r.URL.Path,
		"methods": []string{
			"initialize",
			"tools/list", "tools/call",
			"resources/list", "resources/read",
			"prompts/list", "prompts/get",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gate.WriteData(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	gate.WriteData(w, r, http.StatusOK, map[string]any{
		"name":    "agentgate",
		"version": gate.Version,
		"endpoints": map[string]string{
			"rpc":        "POST /agent/rpc",
			"token":      "POST /agent/token",
			"introspect": "GET /agent/token/introspect",
			"health":     "GET /agent/health",
		},
		"tokenTTL": s.cfg.Auth.TokenTTL.String(),
		"rateLimit": map[string]any{
			"limit":  s.limiter.Limit(),
			"window": s.cfg.RateLimit.Window.String(),
		},
	})
}
