package mocks

import (
	"context"

	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// Backend is a mock for optimistic.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) FetchProject(ctx context.Context, projectID string) (*project.Project, error) {
	args := m.Called(ctx, projectID)
	if p, ok := args.Get(0).(*project.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error) {
	args := m.Called(ctx, projectID, in)
	if e, ok := args.Get(0).(*project.Epic); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) UpdateEpic(ctx context.Context, epicID string, patch project.EpicPatch) (*project.Epic, error) {
	args := m.Called(ctx, epicID, patch)
	if e, ok := args.Get(0).(*project.Epic); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) DeleteEpic(ctx context.Context, epicID string) error {
	args := m.Called(ctx, epicID)
	return args.Error(0)
}

func (m *Backend) CreateStory(ctx context.Context, epicID string, in project.StoryInput) (*project.UserStory, error) {
	args := m.Called(ctx, epicID, in)
	if s, ok := args.Get(0).(*project.UserStory); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) UpdateStory(ctx context.Context, storyID string, patch project.StoryPatch) (*project.UserStory, error) {
	args := m.Called(ctx, storyID, patch)
	if s, ok := args.Get(0).(*project.UserStory); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) DeleteStory(ctx context.Context, storyID string) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}

func (m *Backend) ReorderStory(ctx context.Context, projectID string, intent project.ReorderIntent) error {
	args := m.Called(ctx, projectID, intent)
	return args.Error(0)
}

func (m *Backend) RestoreStory(ctx context.Context, storyID string) (*project.UserStory, error) {
	args := m.Called(ctx, storyID)
	if s, ok := args.Get(0).(*project.UserStory); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) RetryGeneration(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// SnapshotRepository is a mock for repository.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Save(ctx context.Context, p *project.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *SnapshotRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*project.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotRepository) List(ctx context.Context) ([]*project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]*project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// JournalRepository is a mock for repository.JournalRepository.
type JournalRepository struct {
	mock.Mock
}

func (m *JournalRepository) Append(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *JournalRepository) List(ctx context.Context, opts journal.ListOptions) ([]journal.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]journal.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
