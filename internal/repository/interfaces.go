package repository

import (
	"context"

	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
)

// SnapshotRepository manages locally persisted project snapshots
type SnapshotRepository interface {
	Save(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]*project.Project, error)
	Delete(ctx context.Context, id string) error
}

// JournalRepository manages the mutation journal
type JournalRepository interface {
	Append(ctx context.Context, entry *journal.Entry) error
	List(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error)
}
