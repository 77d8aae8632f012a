package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/registry"
)

// AgentRepo implements registry.Store over SQLite.
type AgentRepo struct {
	db *sql.DB
}

const agentColumns = "id, name, provider, version, capabilities, active, secret_hash, permissions"

// Get implements registry.Store.
func (r *AgentRepo) Get(ctx context.Context, agentID string) (registry.Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE id = ?", agentID)
	return scanRecord(row)
}

// GetByProviderName implements registry.Store.
func (r *AgentRepo) GetByProviderName(ctx context.Context, provider, name string) (registry.Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE provider = ? AND name = ?", provider, name)
	return scanRecord(row)
}

// List implements registry.Store.
func (r *AgentRepo) List(ctx context.Context) ([]model.AgentIdentity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+agentColumns+" FROM agents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.AgentIdentity
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.Identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return out, nil
}

// Upsert implements registry.Store.
func (r *AgentRepo) Upsert(ctx context.Context, rec registry.Record) error {
	if rec.Identity.ID == "" {
		return errors.New("sqlite: record has no agent id")
	}
	caps, err := json.Marshal(rec.Identity.Capabilities)
	if err != nil {
		return fmt.Errorf("sqlite: encode capabilities: %w", err)
	}
	perms, err := json.Marshal(rec.Permissions)
	if err != nil {
		return fmt.Errorf("sqlite: encode permissions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, provider, version, capabilities, active, secret_hash, permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capabilities = excluded.capabilities,
			active       = excluded.active,
			secret_hash  = excluded.secret_hash,
			permissions  = excluded.permissions`,
		rec.Identity.ID, rec.Identity.Name, rec.Identity.Provider, rec.Identity.Version,
		string(caps), boolToInt(rec.Identity.Active), rec.SecretHash, string(perms))
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return nil
}

// Deactivate implements registry.Store.
func (r *AgentRepo) Deactivate(ctx context.Context, agentID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE agents SET active = 0 WHERE id = ?", agentID)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	if n == 0 {
		return registry.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (registry.Record, error) {
	var rec registry.Record
	var caps, perms string
	var active int
	err := row.Scan(&rec.Identity.ID, &rec.Identity.Name, &rec.Identity.Provider,
		&rec.Identity.Version, &caps, &active, &rec.SecretHash, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Record{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Record{}, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	rec.Identity.Active = active != 0
	if err := json.Unmarshal([]byte(caps), &rec.Identity.Capabilities); err != nil {
		return registry.Record{}, fmt.Errorf("sqlite: decode capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(perms), &rec.Permissions); err != nil {
		return registry.Record{}, fmt.Errorf("sqlite: decode permissions: %w", err)
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
