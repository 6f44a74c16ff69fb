package optimistic

import (
	"context"

	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
)

// Backend is the remote collaborator that owns the authoritative state.
type Backend interface {
	FetchProject(ctx context.Context, projectID string) (*project.Project, error)
	CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error)
	UpdateEpic(ctx context.Context, epicID string, patch project.EpicPatch) (*project.Epic, error)
	DeleteEpic(ctx context.Context, epicID string) error
	CreateStory(ctx context.Context, epicID string, in project.StoryInput) (*project.UserStory, error)
	UpdateStory(ctx context.Context, storyID string, patch project.StoryPatch) (*project.UserStory, error)
	DeleteStory(ctx context.Context, storyID string) error
	ReorderStory(ctx context.Context, projectID string, intent project.ReorderIntent) error
	RestoreStory(ctx context.Context, storyID string) (*project.UserStory, error)
	RetryGeneration(ctx context.Context, projectID string) error
}

// Recorder receives the outcome of every mutation.
type Recorder interface {
	Record(ctx context.Context, entry *journal.Entry) error
}
