package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/registry"
	"github.com/okhotin/agentgate/internal/reputation"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "gate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAgentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := db.Agents()
	ctx := context.Background()

	rec := registry.Record{
		Identity: model.AgentIdentity{
			ID:           "a1",
			Name:         "shopbot",
			Provider:     "anthropic",
			Version:      "2.1",
			Capabilities: []string{"search", "purchase"},
			Active:       true,
		},
		SecretHash:  "$2a$10$fakehash",
		Permissions: []string{"read", "execute"},
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Identity.Name != "shopbot" || got.Identity.Version != "2.1" {
		t.Errorf("identity did not round-trip: %+v", got.Identity)
	}
	if len(got.Identity.Capabilities) != 2 || got.Identity.Capabilities[1] != "purchase" {
		t.Errorf("capabilities did not round-trip: %v", got.Identity.Capabilities)
	}
	if len(got.Permissions) != 2 || got.Permissions[1] != "execute" {
		t.Errorf("permissions did not round-trip: %v", got.Permissions)
	}
}

func TestAgentNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Agents().Get(context.Background(), "ghost")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAgentUpsertUpdates(t *testing.T) {
	db := openTestDB(t)
	repo := db.Agents()
	ctx := context.Background()

	rec := registry.Record{
		Identity:    model.AgentIdentity{ID: "a1", Name: "bot", Provider: "openai", Active: true},
		SecretHash:  "h1",
		Permissions: []string{"read"},
	}
	repo.Upsert(ctx, rec)

	rec.Permissions = []string{"read", "write"}
	rec.SecretHash = "h2"
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, _ := repo.Get(ctx, "a1")
	if got.SecretHash != "h2" || len(got.Permissions) != 2 {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestAgentDeactivate(t *testing.T) {
	db := openTestDB(t)
	repo := db.Agents()
	ctx := context.Background()

	repo.Upsert(ctx, registry.Record{
		Identity:   model.AgentIdentity{ID: "a1", Name: "bot", Provider: "openai", Active: true},
		SecretHash: "h",
	})
	if err := repo.Deactivate(ctx, "a1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got, _ := repo.Get(ctx, "a1")
	if got.Identity.Active {
		t.Error("expected inactive after Deactivate")
	}

	if err := repo.Deactivate(ctx, "ghost"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAgentGetByProviderName(t *testing.T) {
	db := openTestDB(t)
	repo := db.Agents()
	ctx := context.Background()

	repo.Upsert(ctx, registry.Record{
		Identity:   model.AgentIdentity{ID: "a1", Name: "bot", Provider: "openai", Active: true},
		SecretHash: "h",
	})

	got, err := repo.GetByProviderName(ctx, "openai", "bot")
	if err != nil {
		t.Fatalf("GetByProviderName: %v", err)
	}
	if got.Identity.ID != "a1" {
		t.Errorf("unexpected id %q", got.Identity.ID)
	}
}

func TestReputationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := db.Reputation()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "a1"); !errors.Is(err, reputation.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Upsert(ctx, model.ReputationRecord{AgentID: "a1", Score: 720}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	rec, err := repo.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Score != 720 || rec.Level != reputation.LevelVerified {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestReputationClampsOnWrite(t *testing.T) {
	db := openTestDB(t)
	repo := db.Reputation()
	ctx := context.Background()

	repo.Upsert(ctx, model.ReputationRecord{AgentID: "a1", Score: 99999})
	rec, _ := repo.Get(ctx, "a1")
	if rec.Score != reputation.MaxScore {
		t.Errorf("expected clamped score %d, got %d", reputation.MaxScore, rec.Score)
	}
}
