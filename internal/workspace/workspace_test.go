package workspace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/repository/mocks"
	"github.com/rpggio/blueprint/internal/workspace"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("connection refused")

func seed() *project.Project {
	return &project.Project{
		ID:     "p1",
		Status: project.StatusReady,
		Epics: []*project.Epic{
			{ID: "e1", ProjectID: "p1", Position: 100, Stories: []*project.UserStory{
				{ID: "a", EpicID: "e1", Position: 100, DerivedFields: &project.DerivedFields{
					Assets: map[string]string{project.AssetHook: "AI hook"},
				}},
				{ID: "b", EpicID: "e1", Position: 200},
				{ID: "c", EpicID: "e1", Position: 300},
			}},
		},
	}
}

func setup(t *testing.T) (*workspace.Workspace, *cache.Store, *mocks.Backend, *mocks.JournalRepository) {
	t.Helper()
	store := cache.NewStore()
	store.Set("p1", seed())
	backend := &mocks.Backend{}
	repo := &mocks.JournalRepository{}
	repo.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()
	svc := journal.NewService(repo, nil)
	ws := workspace.New(optimistic.New(store, backend, svc, nil), svc, nil)
	t.Cleanup(ws.Close)
	return ws, store, backend, repo
}

func order(p *project.Project) []string {
	var ids []string
	for _, s := range p.Epics[0].Stories {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestMoveStory_NoChangeMakesNoCall(t *testing.T) {
	ws, _, backend, _ := setup(t)

	intent, err := ws.MoveStory(context.Background(), "p1", reorder.Gesture{DraggedID: "b", DropTargetID: "b"})
	require.NoError(t, err)
	require.Nil(t, intent)
	backend.AssertNotCalled(t, "ReorderStory", mock.Anything, mock.Anything, mock.Anything)
}

func TestMoveStory_ResolvesAndSends(t *testing.T) {
	ws, store, backend, _ := setup(t)
	a := "a"
	want := project.ReorderIntent{StoryID: "c", TargetEpicID: "e1", BeforeStoryID: &a}
	backend.On("ReorderStory", mock.Anything, "p1", want).Return(nil)
	backend.On("FetchProject", mock.Anything, "p1").Return(nil, errOffline)

	intent, err := ws.MoveStory(context.Background(), "p1", reorder.Gesture{DraggedID: "c", DropTargetID: "a"})
	require.NoError(t, err)
	require.Equal(t, &want, intent)

	p, _ := store.Get("p1")
	require.Equal(t, []string{"c", "a", "b"}, order(p))
}

func TestMoveStory_UncachedProject(t *testing.T) {
	ws, _, _, _ := setup(t)
	_, err := ws.MoveStory(context.Background(), "p9", reorder.Gesture{DraggedID: "a", DropTargetID: "b"})
	require.ErrorIs(t, err, optimistic.ErrNotCached)
}

func TestDraftLifecycle(t *testing.T) {
	ws, _, _, _ := setup(t)

	_, err := ws.DraftStatus("p1")
	require.ErrorIs(t, err, workspace.ErrNoOpenStory)

	_, err = ws.OpenStory("p1", "zz")
	require.ErrorIs(t, err, workspace.ErrStoryNotFound)

	r, err := ws.OpenStory("p1", "a")
	require.NoError(t, err)
	require.NoError(t, r.SetField(draft.BucketAssets, project.AssetHook, "edited"))
	require.NoError(t, r.SetField(draft.BucketReasoning, project.ReasoningProof, "proof"))

	st, err := ws.DraftStatus("p1")
	require.NoError(t, err)
	require.Equal(t, "a", st.StoryID)
	require.Equal(t, []string{"assets.hook", "reasoning.proof"}, st.DirtyFields)
	require.True(t, st.HasPendingSave)
	require.True(t, st.ShowRestoreAll)

	ws.CloseStory("p1")
	_, err = ws.Draft("p1")
	require.ErrorIs(t, err, workspace.ErrNoOpenStory)
}

func TestDeleteStory_DropsOpenDraft(t *testing.T) {
	ws, store, backend, _ := setup(t)
	backend.On("DeleteStory", mock.Anything, "a").Return(nil)
	backend.On("FetchProject", mock.Anything, "p1").Return(nil, errOffline)

	_, err := ws.OpenStory("p1", "a")
	require.NoError(t, err)
	require.NoError(t, ws.DeleteStory(context.Background(), "p1", "a"))

	_, err = ws.Draft("p1")
	require.ErrorIs(t, err, workspace.ErrNoOpenStory)
	p, _ := store.Get("p1")
	require.Equal(t, []string{"b", "c"}, order(p))
}

func TestApplyStatus(t *testing.T) {
	ws, store, _, _ := setup(t)
	msg := "quota exceeded"

	changed, err := ws.ApplyStatus(project.StatusEvent{ProjectID: "p1", Status: project.StatusFailed, Progress: 40, Message: &msg})
	require.NoError(t, err)
	require.True(t, changed)

	p, _ := store.Get("p1")
	require.Equal(t, project.StatusFailed, p.Status)
}

func TestRecentMutations(t *testing.T) {
	ws, _, _, repo := setup(t)
	entries := []journal.Entry{{ID: 2, ProjectID: "p1", Operation: "UpdateStory", Outcome: journal.OutcomeCommitted}}
	repo.On("List", mock.Anything, journal.ListOptions{ProjectID: "p1", Limit: 5}).Return(entries, nil)

	got, err := ws.RecentMutations(context.Background(), "p1", 5)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}
