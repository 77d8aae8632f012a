package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/permission"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

// minTokenLength rejects obviously truncated credentials before any
// cryptographic work is attempted.
const minTokenLength = 32

// Verification failures. Callers branch on these with errors.Is to map
// them to wire error codes.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrVerification     = errors.New("token verification failed")
)

// Claims is the signed payload carried by every agent token.
type Claims struct {
	AgentID     string   `json:"agent_id"`
	Provider    string   `json:"provider"`
	Permissions []string `json:"permissions"`
	Scopes      []string `json:"scopes"`
	jwt.RegisteredClaims
}

// PermissionLevels returns the claim's permissions as parsed levels.
func (c *Claims) PermissionLevels() []permission.Level {
	return permission.FromStrings(c.Permissions)
}

// Service issues and verifies signed agent credentials. Tokens are
// HS256 JWTs; the signing key comes from the key provider at
// construction. The permission map is keyed by "provider/name" and
// falls back to DefaultPermissions when an identity is unmapped.
type Service struct {
	key   []byte
	ttl   time.Duration
	perms map[string][]permission.Level
	now   func() time.Time
}

// DefaultPermissions is the minimal grant for identities without an
// explicit permission mapping.
var DefaultPermissions = []permission.Level{permission.Read}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithPermissionMap sets the provider/name → permissions mapping.
func WithPermissionMap(m map[string][]permission.Level) Option {
	return func(s *Service) { s.perms = m }
}

// WithClock overrides the time source. For testing expiry behavior.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service with the given signing key.
func NewService(key []byte, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, errors.New("token: signing key must not be empty")
	}
	s := &Service{
		key:   key,
		ttl:   DefaultTTL,
		perms: map[string][]permission.Level{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a credential for the identity. Scopes default to the
// global wildcard when empty. The permission set is looked up by
// "provider/name"; unmapped identities get DefaultPermissions.
func (s *Service) Issue(identity model.AgentIdentity, scopes []string) (*model.AgentToken, error) {
	if identity.ID == "" {
		return nil, errors.New("token: identity has no ID")
	}
	if len(scopes) == 0 {
		scopes = []string{"*"}
	}

	perms := s.lookupPermissions(identity)
	now := s.now().UTC()
	expires := now.Add(s.ttl)

	claims := &Claims{
		AgentID:     identity.ID,
		Provider:    identity.Provider,
		Permissions: permission.Strings(perms),
		Scopes:      scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    "agentgate",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("token: sign: %w", err)
	}

	return &model.AgentToken{
		Token:       signed,
		AgentID:     identity.ID,
		IssuedAt:    now,
		ExpiresAt:   expires,
		Permissions: claims.Permissions,
		Scopes:      scopes,
	}, nil
}

// Verify checks a token's structure, signature, and expiry, returning
// the embedded claims on success. Structural rejects (empty, too
// short, wrong segment count) happen before any cryptographic work.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	if tokenStr == "" || len(tokenStr) < minTokenLength {
		return nil, ErrMalformedToken
	}
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrMalformedToken
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrVerification, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrVerification
	}
	return claims, nil
}

// Remaining returns how long the claims stay valid from now. Zero or
// negative means expired.
func (s *Service) Remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}

func (s *Service) lookupPermissions(identity model.AgentIdentity) []permission.Level {
	if perms, ok := s.perms[identity.Provider+"/"+identity.Name]; ok && len(perms) > 0 {
		return perms
	}
	return DefaultPermissions
}
