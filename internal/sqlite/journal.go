package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/repository"
)

var _ repository.JournalRepository = (*JournalRepository)(nil)

// JournalRepository implements repository.JournalRepository for SQLite
type JournalRepository struct {
	db *DB
}

// NewJournalRepository creates a new JournalRepository
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Append stores an entry and sets its ID
func (r *JournalRepository) Append(ctx context.Context, entry *journal.Entry) error {
	query := `
		INSERT INTO mutation_journal (project_id, operation, entity_id, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		entry.ProjectID,
		entry.Operation,
		nullString(entry.EntityID),
		string(entry.Outcome),
		nullString(entry.Error),
		entry.CreatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: outcome %q", repository.ErrInvalidInput, entry.Outcome)
		}
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read journal entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns entries newest first
func (r *JournalRepository) List(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error) {
	var (
		where []string
		args  []any
	)
	if opts.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.Outcome != nil {
		where = append(where, "outcome = ?")
		args = append(args, string(*opts.Outcome))
	}

	query := `SELECT id, project_id, operation, entity_id, outcome, error, created_at FROM mutation_journal`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var (
			e        journal.Entry
			entityID sql.NullString
			errText  sql.NullString
			outcome  string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Operation, &entityID, &outcome, &errText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.EntityID = entityID.String
		e.Error = errText.String
		e.Outcome = journal.Outcome(outcome)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
