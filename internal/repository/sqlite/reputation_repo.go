package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/reputation"
)

// ReputationRepo implements reputation.Store over SQLite. Only the
// score is stored; the level is always derived on read so threshold
// changes apply retroactively.
type ReputationRepo struct {
	db *sql.DB
}

// Get implements reputation.Store.
func (r *ReputationRepo) Get(ctx context.Context, agentID string) (model.ReputationRecord, error) {
	var score int
	err := r.db.QueryRowContext(ctx,
		"SELECT score FROM reputation WHERE agent_id = ?", agentID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReputationRecord{}, reputation.ErrNotFound
	}
	if err != nil {
		return model.ReputationRecord{}, fmt.Errorf("%w: %v", reputation.ErrUnavailable, err)
	}
	return reputation.NewRecord(agentID, score), nil
}

// Upsert implements reputation.Store.
func (r *ReputationRepo) Upsert(ctx context.Context, rec model.ReputationRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reputation (agent_id, score) VALUES (?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET score = excluded.score`,
		rec.AgentID, reputation.Clamp(rec.Score))
	if err != nil {
		return fmt.Errorf("%w: %v", reputation.ErrUnavailable, err)
	}
	return nil
}
