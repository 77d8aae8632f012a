package reputation

import (
	"context"
	"errors"
	"sync"

	"github.com/okhotin/agentgate/internal/model"
)

// Trust levels, derived from score by fixed thresholds.
const (
	LevelNew      = "new"
	LevelBasic    = "basic"
	LevelTrusted  = "trusted"
	LevelVerified = "verified"
	LevelElite    = "elite"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 1000
)

// Store failures. ErrUnavailable is first-class: the request path
// degrades to a conservative default instead of failing.
var (
	ErrNotFound    = errors.New("reputation: agent not found")
	ErrUnavailable = errors.New("reputation: store unavailable")
)

// LevelFor maps a score to its trust level. Scores are clamped into
// [MinScore, MaxScore] before mapping.
func LevelFor(score int) string {
	switch {
	case score >= 900:
		return LevelElite
	case score >= 700:
		return LevelVerified
	case score >= 500:
		return LevelTrusted
	case score >= 300:
		return LevelBasic
	default:
		return LevelNew
	}
}

// Clamp bounds a raw score into the valid range.
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// NewRecord builds a record with the level derived from the score.
func NewRecord(agentID string, score int) model.ReputationRecord {
	score = Clamp(score)
	return model.ReputationRecord{AgentID: agentID, Score: score, Level: LevelFor(score)}
}

// DefaultRecord is the conservative fallback used when the store has
// no record or is unreachable: lowest tier, zero score.
func DefaultRecord(agentID string) model.ReputationRecord {
	return NewRecord(agentID, MinScore)
}

// Store is the narrow interface the engine reads reputation through.
// Updates arrive asynchronously from usage signals elsewhere; the
// request path only reads.
type Store interface {
	Get(ctx context.Context, agentID string) (model.ReputationRecord, error)
	Upsert(ctx context.Context, rec model.ReputationRecord) error
}

// MemoryStore is the in-process Store for tests and single-node dev.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.ReputationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.ReputationRecord)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, agentID string) (model.ReputationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[agentID]
	if !ok {
		return model.ReputationRecord{}, ErrNotFound
	}
	return rec, nil
}

// Upsert implements Store. The level is recomputed from the score so
// stored records can never disagree with the threshold mapping.
func (m *MemoryStore) Upsert(_ context.Context, rec model.ReputationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.AgentID] = NewRecord(rec.AgentID, rec.Score)
	return nil
}
