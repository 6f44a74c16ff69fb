package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/blueprint/internal/config"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/remote"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/testserver"
	"github.com/stretchr/testify/require"
)

func board(st project.Status) *project.Project {
	return &project.Project{
		ID:     "p1",
		Name:   "Launch",
		Status: st,
		Epics: []*project.Epic{
			{ID: "e1", ProjectID: "p1", Title: "Onboarding", Position: 100, Stories: []*project.UserStory{
				{ID: "a", EpicID: "e1", Content: "sign up", Priority: project.PriorityHigh, Position: 100,
					DerivedFields:         &project.DerivedFields{Assets: map[string]string{project.AssetHook: "AI hook"}},
					OriginalDerivedFields: &project.DerivedFields{Assets: map[string]string{project.AssetHook: "AI hook"}},
				},
				{ID: "b", EpicID: "e1", Content: "invite", Priority: project.PriorityLow, Position: 200},
			}},
		},
	}
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.Token = "secret"
	cfg.API.Backoff = time.Millisecond
	cfg.Poll.Interval = 20 * time.Millisecond
	cfg.DB.Path = filepath.Join(t.TempDir(), "blueprint.db")
	return cfg
}

func storyOrder(p *project.Project) []string {
	var ids []string
	for _, s := range p.Epics[0].Stories {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestApp_EditsReachTheBackend(t *testing.T) {
	backend := testserver.New(t, "secret", board(project.StatusReady))
	cfg := testConfig(t, backend.URL())
	ctx := context.Background()

	a, err := newApp(cfg, newLogger(cfg, testWriter{t}), false)
	require.NoError(t, err)
	defer a.close()

	_, err = a.ws.Load(ctx, "p1")
	require.NoError(t, err)

	created, err := a.ws.CreateStory(ctx, "p1", "e1", project.StoryInput{Content: "share a board"})
	require.NoError(t, err)
	require.False(t, optimistic.IsTemp(created.ID))

	intent, err := a.ws.MoveStory(ctx, "p1", reorder.Gesture{DraggedID: created.ID, DropTargetID: "a"})
	require.NoError(t, err)
	require.NotNil(t, intent)
	require.Equal(t, []string{created.ID, "a", "b"}, storyOrder(backend.Project("p1")))

	r, err := a.ws.OpenStory("p1", "a")
	require.NoError(t, err)
	require.NoError(t, r.SetField(draft.BucketAssets, project.AssetCTA, "Start your free trial today, no card needed"))
	saved, err := r.Save(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{project.AssetCTA}, saved.DerivedFields.OverLimitFields)

	a.coord.Wait()
	p, err := a.ws.Project("p1")
	require.NoError(t, err)
	require.Equal(t, storyOrder(backend.Project("p1")), storyOrder(p))

	entries, err := a.ws.RecentMutations(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.Equal(t, journal.OutcomeCommitted, e.Outcome)
	}
}

func TestApp_RejectedEditRollsBackAndIsJournaled(t *testing.T) {
	backend := testserver.New(t, "secret", board(project.StatusReady))
	cfg := testConfig(t, backend.URL())
	ctx := context.Background()

	a, err := newApp(cfg, newLogger(cfg, testWriter{t}), false)
	require.NoError(t, err)
	defer a.close()
	_, err = a.ws.Load(ctx, "p1")
	require.NoError(t, err)

	backend.FailNext(http.StatusBadRequest, "Content is too long.")
	content := "edited"
	_, err = a.ws.UpdateStory(ctx, "p1", "b", project.StoryPatch{Content: &content})
	require.Error(t, err)
	require.Equal(t, remote.KindValidation, remote.Classify(err))
	require.Equal(t, "Content is too long.", remote.Message(err))

	p, err := a.ws.Project("p1")
	require.NoError(t, err)
	require.Equal(t, "invite", p.Epics[0].Stories[1].Content)

	entries, err := a.ws.RecentMutations(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, journal.OutcomeRolledBack, entries[0].Outcome)
	require.Equal(t, "b", entries[0].EntityID)
}

func TestApp_WarmStartFromDisk(t *testing.T) {
	backend := testserver.New(t, "secret", board(project.StatusReady))
	cfg := testConfig(t, backend.URL())
	ctx := context.Background()

	a, err := newApp(cfg, newLogger(cfg, testWriter{t}), false)
	require.NoError(t, err)
	_, err = a.ws.Load(ctx, "p1")
	require.NoError(t, err)
	a.close()

	backend.Server.Close()

	b, err := newApp(cfg, newLogger(cfg, testWriter{t}), false)
	require.NoError(t, err)
	defer b.close()

	_, err = b.ws.Load(ctx, "p1")
	require.Equal(t, remote.KindNetwork, remote.Classify(err))

	p, err := b.ws.Project("p1")
	require.NoError(t, err)
	require.Equal(t, "Launch", p.Name)
	require.Equal(t, []string{"a", "b"}, storyOrder(p))
}

func TestApp_AutoWatchSettlesGeneratingProject(t *testing.T) {
	generating := board(project.StatusGenerating)
	generating.Progress = 10
	generating.Epics = nil
	backend := testserver.New(t, "secret", generating)
	cfg := testConfig(t, backend.URL())

	a, err := newApp(cfg, newLogger(cfg, testWriter{t}), true)
	require.NoError(t, err)
	defer a.close()

	_, err = a.ws.Load(context.Background(), "p1")
	require.NoError(t, err)

	backend.Replace(board(project.StatusReady))
	backend.SetStatus("p1", project.StatusReady, 100)

	require.Eventually(t, func() bool {
		p, err := a.ws.Project("p1")
		return err == nil && p.Status == project.StatusReady && len(p.Epics) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

// testWriter sends log output to the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
