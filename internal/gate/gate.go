// Package gate is the access-control pipeline every gateway request
// passes through: blocklist, rate limiting, token verification, and
// trusted context injection.
package gate

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/ratelimit"
	"github.com/okhotin/agentgate/internal/token"
)

// Gate composes the blocklist, rate limiter and token service in front
// of every request. Stores are injected at construction so they can be
// swapped for shared backends without touching call sites.
type Gate struct {
	tokens    *token.Service
	limiter   *ratelimit.Limiter
	blocklist *Blocklist
	logger    *zap.Logger
}

// New creates a Gate. A nil blocklist disables identity blocking.
func New(tokens *token.Service, limiter *ratelimit.Limiter, blocklist *Blocklist, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		tokens:    tokens,
		limiter:   limiter,
		blocklist: blocklist,
		logger:    logger,
	}
}

// Middleware returns the per-request pipeline. When protected is true,
// requests without a credential are rejected; public paths (health,
// server info) pass through unauthenticated but still rate limited.
// Every rejection is terminal and every response carries quota headers.
func (g *Gate) Middleware(protected bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &RequestInfo{
				RequestID:  uuid.NewString(),
				RemoteAddr: remoteHost(r),
				ReceivedAt: time.Now().UTC(),
			}
			r = r.WithContext(WithRequestInfo(r.Context(), info))
			w.Header().Set("X-Request-ID", info.RequestID)

			// Quota is counted and stamped before any rejection so every
			// response, including 403s, carries the rate headers.
			res, err := g.limiter.Check(r.Context(), rateKey(r, info))
			if err != nil {
				// A broken counter store must not take the gateway down.
				g.logger.Error("rate limit check failed", zap.Error(err))
				res = ratelimit.Result{
					Allowed:   true,
					Remaining: g.limiter.Limit(),
					ResetAt:   time.Now().Add(g.limiter.Window()).UTC(),
				}
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				WriteError(w, r, http.StatusTooManyRequests, CodeRateLimitExceeded,
					fmt.Sprintf("rate limit exceeded, retry after %s", res.ResetAt.UTC().Format(time.RFC3339)))
				return
			}

			if g.blocklist != nil {
				for _, identity := range []string{r.Header.Get("User-Agent"), r.Header.Get("X-Agent-ID")} {
					if blocked, pattern := g.blocklist.IsBlocked(identity); blocked {
						g.logger.Warn("blocked client identity",
							zap.String("identity", identity),
							zap.String("pattern", pattern),
							zap.String("remote", info.RemoteAddr))
						WriteError(w, r, http.StatusForbidden, CodeAgentBlocked, "client identity is blocked")
						return
					}
				}
			}

			credential := extractCredential(r)
			if credential == "" {
				if protected {
					WriteError(w, r, http.StatusUnauthorized, CodeTokenRequired, "agent token required")
					return
				}
				// Labeling only; the guess never feeds authorization.
				g.logger.Debug("anonymous request",
					zap.String("provider_guess", token.DetectProvider(r.Header.Get("User-Agent"))),
					zap.String("remote", info.RemoteAddr))
				next.ServeHTTP(w, r)
				return
			}

			claims, err := g.tokens.Verify(credential)
			if err != nil {
				code := CodeInvalidToken
				if errors.Is(err, token.ErrTokenExpired) {
					code = CodeTokenExpired
				}
				g.logger.Info("token rejected",
					zap.String("code", code),
					zap.String("remote", info.RemoteAddr))
				WriteError(w, r, http.StatusUnauthorized, code, err.Error())
				return
			}

			info.AgentID = claims.AgentID
			info.Claims = claims
			next.ServeHTTP(w, r)
		})
	}
}

// CORS applies the gateway's permissive cross-origin policy and
// answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Agent-Token, X-Agent-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractCredential reads the bearer token from the Authorization
// header or the X-Agent-Token fallback.
func extractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	return r.Header.Get("X-Agent-Token")
}

// rateKey composes the counter key from the caller's network address
// and declared agent id. The declared id is untrusted but fine for
// accounting; authorization never reads it.
func rateKey(r *http.Request, info *RequestInfo) string {
	agent := r.Header.Get("X-Agent-ID")
	if agent == "" {
		agent = "anonymous"
	}
	return info.RemoteAddr + ":" + agent
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
