// Package workspace is the view-layer entry point: read access to cached
// projects and one imperative call per user action.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/mutate"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/status"
)

var (
	// ErrStoryNotFound is returned when opening a story that is not cached
	ErrStoryNotFound = errors.New("story not found")

	// ErrNoOpenStory is returned by draft calls when no story is open
	ErrNoOpenStory = errors.New("no story is open")
)

// Workspace ties the cache, the coordinator and the open drafts together.
type Workspace struct {
	store   *cache.Store
	coord   *optimistic.Coordinator
	journal *journal.Service
	logger  *slog.Logger

	mu     sync.Mutex
	drafts map[string]*draft.Reconciler
}

// New creates a workspace. journal and logger may be nil.
func New(coord *optimistic.Coordinator, journal *journal.Service, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workspace{
		store:   coord.Store(),
		coord:   coord,
		journal: journal,
		logger:  logger,
		drafts:  make(map[string]*draft.Reconciler),
	}
}

// Project returns the cached snapshot.
func (w *Workspace) Project(projectID string) (*project.Project, error) {
	return w.coord.Snapshot(projectID)
}

// Load fetches a project into the cache.
func (w *Workspace) Load(ctx context.Context, projectID string) (*project.Project, error) {
	return w.coord.Load(ctx, projectID)
}

// Subscribe streams snapshots of a project as they change.
func (w *Workspace) Subscribe(projectID string) (<-chan *project.Project, func()) {
	return w.store.Subscribe(projectID)
}

// CreateEpic adds an epic. It shows in the snapshot under a temporary id
// until the server confirms it.
func (w *Workspace) CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error) {
	return w.coord.CreateEpic(ctx, projectID, in)
}

// UpdateEpic renames or repositions an epic.
func (w *Workspace) UpdateEpic(ctx context.Context, projectID, epicID string, patch project.EpicPatch) (*project.Epic, error) {
	return w.coord.UpdateEpic(ctx, projectID, epicID, patch)
}

// DeleteEpic removes an epic with its stories.
func (w *Workspace) DeleteEpic(ctx context.Context, projectID, epicID string) error {
	return w.coord.DeleteEpic(ctx, projectID, epicID)
}

// CreateStory adds a story to an epic, under a temporary id until confirmed.
func (w *Workspace) CreateStory(ctx context.Context, projectID, epicID string, in project.StoryInput) (*project.UserStory, error) {
	return w.coord.CreateStory(ctx, projectID, epicID, in)
}

// UpdateStory patches a story.
func (w *Workspace) UpdateStory(ctx context.Context, projectID, storyID string, patch project.StoryPatch) (*project.UserStory, error) {
	return w.coord.UpdateStory(ctx, projectID, storyID, patch)
}

// DeleteStory removes a story. An open draft of that story is discarded.
func (w *Workspace) DeleteStory(ctx context.Context, projectID, storyID string) error {
	if err := w.coord.DeleteStory(ctx, projectID, storyID); err != nil {
		return err
	}
	w.mu.Lock()
	if r, ok := w.drafts[projectID]; ok && r.StoryID() == storyID {
		delete(w.drafts, projectID)
	}
	w.mu.Unlock()
	return nil
}

// MoveStory resolves a drag gesture and applies it. A gesture that does not
// change the order returns a nil intent and makes no call.
func (w *Workspace) MoveStory(ctx context.Context, projectID string, g reorder.Gesture) (*project.ReorderIntent, error) {
	p, err := w.coord.Snapshot(projectID)
	if err != nil {
		return nil, err
	}
	intent := reorder.Resolve(p, g)
	if intent == nil {
		return nil, nil
	}
	if err := w.coord.ReorderStory(ctx, projectID, *intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// ApplyStatus folds an inbound status event into the cache.
func (w *Workspace) ApplyStatus(ev project.StatusEvent) (bool, error) {
	return status.Apply(w.store, ev)
}

// RetryGeneration resets a failed project to pending and asks the server to
// generate it again.
func (w *Workspace) RetryGeneration(ctx context.Context, projectID string) error {
	return w.coord.RetryGeneration(ctx, projectID)
}

// OpenStory starts a fresh draft of a story, discarding any other draft open
// in the same project.
func (w *Workspace) OpenStory(projectID, storyID string) (*draft.Reconciler, error) {
	p, err := w.coord.Snapshot(projectID)
	if err != nil {
		return nil, err
	}
	story, ok := mutate.Story(p, storyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
	}
	r := draft.Open(story, w.coord.For(projectID))
	w.mu.Lock()
	w.drafts[projectID] = r
	w.mu.Unlock()
	return r, nil
}

// CloseStory drops the open draft of a project.
func (w *Workspace) CloseStory(projectID string) {
	w.mu.Lock()
	delete(w.drafts, projectID)
	w.mu.Unlock()
}

// Draft returns the open draft of a project.
func (w *Workspace) Draft(projectID string) (*draft.Reconciler, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.drafts[projectID]
	if !ok {
		return nil, fmt.Errorf("%w in project %s", ErrNoOpenStory, projectID)
	}
	return r, nil
}

// DraftState summarizes the open draft for display.
type DraftState struct {
	StoryID                     string                 `json:"story_id"`
	Draft                       *project.DerivedFields `json:"draft"`
	DirtyFields                 []string               `json:"dirty_fields"`
	HasPendingSave              bool                   `json:"has_pending_save"`
	IsPersistedContentIdentical bool                   `json:"is_persisted_content_identical"`
	RecentlyRestored            bool                   `json:"recently_restored"`
	ShowRestoreAll              bool                   `json:"show_restore_all"`
}

// DraftStatus describes the open draft of a project.
func (w *Workspace) DraftStatus(projectID string) (*DraftState, error) {
	r, err := w.Draft(projectID)
	if err != nil {
		return nil, err
	}
	d := r.Draft()
	st := &DraftState{
		StoryID:                     r.StoryID(),
		Draft:                       d,
		HasPendingSave:              r.HasPendingSave(),
		IsPersistedContentIdentical: r.IsPersistedContentIdentical(),
		RecentlyRestored:            r.RecentlyRestored(),
		ShowRestoreAll:              r.ShowRestoreAll(),
		DirtyFields:                 []string{},
	}
	for _, key := range project.AssetKeys {
		if r.IsDirty(draft.BucketAssets, key) {
			st.DirtyFields = append(st.DirtyFields, string(draft.BucketAssets)+"."+key)
		}
	}
	for _, key := range project.ReasoningKeys {
		if r.IsDirty(draft.BucketReasoning, key) {
			st.DirtyFields = append(st.DirtyFields, string(draft.BucketReasoning)+"."+key)
		}
	}
	return st, nil
}

// RecentMutations lists settled mutations of a project, newest first.
func (w *Workspace) RecentMutations(ctx context.Context, projectID string, limit int) ([]journal.Entry, error) {
	if w.journal == nil {
		return nil, nil
	}
	return w.journal.Recent(ctx, journal.ListOptions{ProjectID: projectID, Limit: limit})
}

// Close stops background work.
func (w *Workspace) Close() {
	w.coord.Close()
}
