package cache

import (
	"context"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// SnapshotRepository persists snapshots between runs.
type SnapshotRepository interface {
	Save(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]*project.Project, error)
}
