package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/permission"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	s, err := NewService(testKey, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func testIdentity() model.AgentIdentity {
	return model.AgentIdentity{
		ID:       "agent-42",
		Name:     "shopbot",
		Provider: "anthropic",
		Active:   true,
	}
}

// --- Round-trip ---

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := newTestService(t)
	scopes := []string{"products:read", "orders:*"}

	tok, err := s.Issue(testIdentity(), scopes)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := s.Verify(tok.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AgentID != "agent-42" {
		t.Errorf("expected agent-42, got %q", claims.AgentID)
	}
	if claims.Provider != "anthropic" {
		t.Errorf("expected anthropic, got %q", claims.Provider)
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != "products:read" || claims.Scopes[1] != "orders:*" {
		t.Errorf("scopes did not round-trip: %v", claims.Scopes)
	}
	if claims.ID == "" {
		t.Error("expected a token identifier (jti)")
	}
}

func TestIssueDefaultScopes(t *testing.T) {
	s := newTestService(t)
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(tok.Scopes) != 1 || tok.Scopes[0] != "*" {
		t.Errorf("expected global wildcard scope, got %v", tok.Scopes)
	}
}

func TestIssueExpiryAfterIssuedAt(t *testing.T) {
	s := newTestService(t)
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !tok.ExpiresAt.After(tok.IssuedAt) {
		t.Error("expected expiresAt > issuedAt")
	}
	if got := tok.ExpiresAt.Sub(tok.IssuedAt); got != DefaultTTL {
		t.Errorf("expected %s TTL, got %s", DefaultTTL, got)
	}
}

func TestIssueUnmappedIdentityGetsDefaultPermissions(t *testing.T) {
	s := newTestService(t)
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(tok.Permissions) != 1 || tok.Permissions[0] != "read" {
		t.Errorf("expected default [read], got %v", tok.Permissions)
	}
}

func TestIssueMappedIdentityPermissions(t *testing.T) {
	s := newTestService(t, WithPermissionMap(map[string][]permission.Level{
		"anthropic/shopbot": {permission.Read, permission.Execute},
	}))
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(tok.Permissions) != 2 || tok.Permissions[1] != "execute" {
		t.Errorf("expected [read execute], got %v", tok.Permissions)
	}
}

func TestIssueRequiresID(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Issue(model.AgentIdentity{}, nil); err == nil {
		t.Error("expected error for identity without ID")
	}
}

// --- Expiry ---

func TestVerifyExpired(t *testing.T) {
	now := time.Now()
	clock := &fakeClock{t: now}
	s := newTestService(t, WithClock(clock.Now), WithTTL(time.Hour))

	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.t = now.Add(30 * time.Minute)
	if _, err := s.Verify(tok.Token); err != nil {
		t.Fatalf("expected valid before expiry, got %v", err)
	}

	clock.t = now.Add(2 * time.Hour)
	_, err = s.Verify(tok.Token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

// --- Structural rejects ---

func TestVerifyStructuralRejects(t *testing.T) {
	s := newTestService(t)
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"too short", "abc.def.ghi"},
		{"two segments", strings.Repeat("a", 40) + "." + strings.Repeat("b", 40)},
		{"four segments", strings.Repeat("a", 20) + "." + strings.Repeat("b", 20) + "." + strings.Repeat("c", 20) + "." + strings.Repeat("d", 20)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Verify(tc.token)
			if !errors.Is(err, ErrMalformedToken) {
				t.Errorf("expected ErrMalformedToken, got %v", err)
			}
		})
	}
}

func TestVerifyWrongKey(t *testing.T) {
	s := newTestService(t)
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewService([]byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = other.Verify(tok.Token)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyStripsBearerPrefix(t *testing.T) {
	s := newTestService(t)
	tok, err := s.Issue(testIdentity(), nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Verify("Bearer " + tok.Token); err != nil {
		t.Errorf("expected Bearer-prefixed token to verify, got %v", err)
	}
}

// --- Provider detection ---

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 ChatGPT-User/1.0", "openai"},
		{"Claude-Web/1.0 (Anthropic)", "anthropic"},
		{"Gemini-Agent/2.1", "google"},
		{"PerplexityBot/1.0", "perplexity"},
		{"curl/8.0", "unknown"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := DetectProvider(tc.ua); got != tc.want {
			t.Errorf("DetectProvider(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}
