package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/okhotin/agentgate/internal/model"
)

// Store failures. "Not found" and "store unavailable" are distinct,
// first-class conditions: the first is a caller error, the second a
// recoverable infrastructure fault.
var (
	ErrNotFound           = errors.New("registry: agent not found")
	ErrUnavailable        = errors.New("registry: store unavailable")
	ErrInvalidCredentials = errors.New("registry: invalid credentials")
)

// Record is a registered agent plus its credential and grants.
type Record struct {
	Identity    model.AgentIdentity
	SecretHash  string
	Permissions []string
}

// Store is the narrow persistence interface for the agent registry.
type Store interface {
	Get(ctx context.Context, agentID string) (Record, error)
	GetByProviderName(ctx context.Context, provider, name string) (Record, error)
	List(ctx context.Context) ([]model.AgentIdentity, error)
	Upsert(ctx context.Context, rec Record) error
	Deactivate(ctx context.Context, agentID string) error
}

// Registry authenticates agents against a Store.
type Registry struct {
	store Store
}

// New creates a Registry over the given store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Authenticate verifies an agent's secret and returns its record.
// Deactivated agents fail with ErrInvalidCredentials; the caller never
// learns whether the id or the secret was wrong.
func (r *Registry) Authenticate(ctx context.Context, agentID, secret string) (Record, error) {
	rec, err := r.store.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrInvalidCredentials
		}
		return Record{}, err
	}
	if !rec.Identity.Active {
		return Record{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.SecretHash), []byte(secret)) != nil {
		return Record{}, ErrInvalidCredentials
	}
	return rec, nil
}

// Lookup returns a record by agent id.
func (r *Registry) Lookup(ctx context.Context, agentID string) (Record, error) {
	return r.store.Get(ctx, agentID)
}

// HashSecret derives the stored credential hash from a raw secret.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("registry: secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("registry: hash secret: %w", err)
	}
	return string(hash), nil
}

// MemoryStore is the in-process Store for tests and single-node dev.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory registry store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, agentID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[agentID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// GetByProviderName implements Store.
func (m *MemoryStore) GetByProviderName(_ context.Context, provider, name string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.Identity.Provider == provider && rec.Identity.Name == name {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]model.AgentIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AgentIdentity, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Identity)
	}
	return out, nil
}

// Upsert implements Store.
func (m *MemoryStore) Upsert(_ context.Context, rec Record) error {
	if rec.Identity.ID == "" {
		return errors.New("registry: record has no agent id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Identity.ID] = rec
	return nil
}

// Deactivate implements Store. Identities are never deleted.
func (m *MemoryStore) Deactivate(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[agentID]
	if !ok {
		return ErrNotFound
	}
	rec.Identity.Active = false
	m.records[agentID] = rec
	return nil
}
