package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mailassist/internal/store"
	"mailassist/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRepository 把整个 store 快照存成 store_snapshots 表中的一行 JSONB
type SnapshotRepository struct {
	db *pgxpool.Pool
	id string
}

func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db, id: "default"}
}

func (r *SnapshotRepository) Name() string { return "postgres" }

// EnsureSchema creates the snapshot table if missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS store_snapshots (
            id         TEXT PRIMARY KEY,
            data       JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `
	_, err := r.db.Exec(ctx, query)
	return err
}

// Load returns the latest snapshot, or store.ErrNoSnapshot when the row is absent.
func (r *SnapshotRepository) Load(ctx context.Context) (*store.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "store_snapshots", time.Since(start))
	}()

	query := `
        SELECT data
        FROM store_snapshots
        WHERE id = $1
    `
	var data []byte
	err := r.db.QueryRow(ctx, query, r.id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save upserts the snapshot row.
func (r *SnapshotRepository) Save(ctx context.Context, snap *store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "store_snapshots", time.Since(start))
	}()

	query := `
        INSERT INTO store_snapshots (id, data, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (id)
        DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
    `
	_, err = r.db.Exec(ctx, query, r.id, data)
	return err
}

func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
