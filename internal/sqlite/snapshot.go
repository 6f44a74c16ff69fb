package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/repository"
)

var _ repository.SnapshotRepository = (*SnapshotRepository)(nil)

// SnapshotRepository implements repository.SnapshotRepository for SQLite
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save stores the snapshot, replacing any earlier one for the same project
func (r *SnapshotRepository) Save(ctx context.Context, p *project.Project) error {
	if p == nil || p.ID == "" {
		return repository.ErrInvalidInput
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, name, status, progress, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			progress = excluded.progress,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		string(p.Status),
		p.Progress,
		string(data),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by project ID
func (r *SnapshotRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decodeSnapshot(id, data)
}

// List returns every stored snapshot, most recently saved first
func (r *SnapshotRepository) List(ctx context.Context) ([]*project.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM snapshots ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		p, err := decodeSnapshot(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

// Delete removes a snapshot
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func decodeSnapshot(id, data string) (*project.Project, error) {
	var p project.Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, id, err)
	}
	return &p, nil
}
