package mutate_test

import (
	"math/rand"
	"testing"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/mutate"
	"github.com/stretchr/testify/require"
)

func story(id string, pos int) *project.UserStory {
	return &project.UserStory{ID: id, Content: "story " + id, Priority: project.PriorityMedium, Position: pos}
}

func fixture() *project.Project {
	return &project.Project{
		ID:     "p1",
		Name:   "Blueprint",
		Status: project.StatusReady,
		Epics: []*project.Epic{
			{ID: "e1", Title: "Acquisition", Position: 100, Stories: []*project.UserStory{
				{ID: "a", EpicID: "e1", Position: 100},
				{ID: "b", EpicID: "e1", Position: 200},
				{ID: "c", EpicID: "e1", Position: 300},
			}},
			{ID: "e2", Title: "Retention", Position: 200, Stories: []*project.UserStory{
				{ID: "d", EpicID: "e2", Position: 100},
				{ID: "e", EpicID: "e2", Position: 200},
			}},
			{ID: "e3", Title: "Empty", Position: 300},
		},
	}
}

func storyIDs(e *project.Epic) []string {
	ids := make([]string, 0, len(e.Stories))
	for _, s := range e.Stories {
		ids = append(ids, s.ID)
	}
	return ids
}

func positions(e *project.Epic) []int {
	out := make([]int, 0, len(e.Stories))
	for _, s := range e.Stories {
		out = append(out, s.Position)
	}
	return out
}

func TestMoveStory_WithinEpicReindexes(t *testing.T) {
	p := fixture()
	next := mutate.MoveStory(p, "c", "e1", 0)

	require.Equal(t, []string{"c", "a", "b"}, storyIDs(next.Epics[0]))
	require.Equal(t, []int{100, 200, 300}, positions(next.Epics[0]))
	require.Equal(t, []string{"a", "b", "c"}, storyIDs(p.Epics[0]), "input must be untouched")
	require.Same(t, p.Epics[1], next.Epics[1])
	require.Same(t, p.Epics[2], next.Epics[2])
}

func TestMoveStory_AcrossEpics(t *testing.T) {
	p := fixture()
	next := mutate.MoveStory(p, "a", "e2", 2)

	require.Equal(t, []string{"b", "c"}, storyIDs(next.Epics[0]))
	require.Equal(t, []int{100, 200}, positions(next.Epics[0]))
	require.Equal(t, []string{"d", "e", "a"}, storyIDs(next.Epics[1]))
	require.Equal(t, []int{100, 200, 300}, positions(next.Epics[1]))
	require.Equal(t, "e2", next.Epics[1].Stories[2].EpicID)
	require.Same(t, p.Epics[1].Stories[0], next.Epics[1].Stories[0], "unchanged stories keep identity")
}

func TestMoveStory_IntoEmptyEpicClampsIndex(t *testing.T) {
	next := mutate.MoveStory(fixture(), "b", "e3", 10)
	require.Equal(t, []string{"b"}, storyIDs(next.Epics[2]))
	require.Equal(t, []int{100}, positions(next.Epics[2]))
}

func TestMoveStory_PositionsStayStrictlyIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := fixture()
	ids := []string{"a", "b", "c", "d", "e"}
	epics := []string{"e1", "e2", "e3"}

	for i := 0; i < 200; i++ {
		id := ids[rng.Intn(len(ids))]
		target := epics[rng.Intn(len(epics))]
		p = mutate.MoveStory(p, id, target, rng.Intn(6))

		seen := 0
		for _, e := range p.Epics {
			for j, s := range e.Stories {
				require.Equal(t, e.ID, s.EpicID)
				if j > 0 {
					require.Greater(t, s.Position, e.Stories[j-1].Position)
				}
				seen++
			}
		}
		require.Equal(t, len(ids), seen, "a story must belong to exactly one epic")
	}
}

func TestMissingIDsLeaveSnapshotUnchanged(t *testing.T) {
	p := fixture()
	content := "x"

	require.Equal(t, fixture(), mutate.MoveStory(p, "missing", "e1", 0))
	require.Equal(t, fixture(), mutate.MoveStory(p, "a", "missing", 0))
	require.Equal(t, fixture(), mutate.UpdateStory(p, "missing", project.StoryPatch{Content: &content}))
	require.Equal(t, fixture(), mutate.RemoveStory(p, "missing"))
	require.Equal(t, fixture(), mutate.UpdateEpic(p, "missing", project.EpicPatch{Title: &content}))
	require.Equal(t, fixture(), mutate.RemoveEpic(p, "missing"))
	require.Equal(t, fixture(), mutate.InsertStory(p, "missing", story("z", 0)))
	require.Same(t, p, mutate.RemoveStory(p, "missing"))
}

func TestInsertStory_AppendsWithStep(t *testing.T) {
	p := fixture()
	next := mutate.InsertStory(p, "e1", story("z", 0))

	require.Equal(t, []string{"a", "b", "c", "z"}, storyIDs(next.Epics[0]))
	require.Equal(t, 400, next.Epics[0].Stories[3].Position)
	require.Equal(t, "e1", next.Epics[0].Stories[3].EpicID)
	require.Len(t, p.Epics[0].Stories, 3)

	same := mutate.InsertStory(next, "e2", story("z", 0))
	require.Same(t, next, same, "duplicate ids are ignored")
}

func TestInsertEpic_SortsByPosition(t *testing.T) {
	p := fixture()
	next := mutate.InsertEpic(p, &project.Epic{ID: "e0", Title: "First", Position: 50})
	require.Equal(t, "e0", next.Epics[0].ID)
	require.Equal(t, "p1", next.Epics[0].ProjectID)

	appended := mutate.InsertEpic(p, &project.Epic{ID: "e4", Title: "Last"})
	require.Equal(t, "e4", appended.Epics[3].ID)
	require.Equal(t, 400, appended.Epics[3].Position)
}

func TestUpdateStory_KeepsOriginalDerivedFields(t *testing.T) {
	p := fixture()
	original := &project.DerivedFields{Assets: map[string]string{project.AssetHook: "ai hook"}}
	p = mutate.UpdateStory(p, "a", project.StoryPatch{DerivedFields: original})
	p.Epics[0].Stories[0].OriginalDerivedFields = original.Clone()

	edited := &project.DerivedFields{Assets: map[string]string{project.AssetHook: "edited"}}
	next := mutate.UpdateStory(p, "a", project.StoryPatch{DerivedFields: edited})

	s, ok := mutate.Story(next, "a")
	require.True(t, ok)
	require.Equal(t, "edited", s.DerivedFields.Assets[project.AssetHook])
	require.Equal(t, "ai hook", s.OriginalDerivedFields.Assets[project.AssetHook])
	require.Same(t, p.Epics[1], next.Epics[1])
}

func TestUpdateStory_PositionResorts(t *testing.T) {
	pos := 250
	next := mutate.UpdateStory(fixture(), "a", project.StoryPatch{Position: &pos})
	require.Equal(t, []string{"b", "a", "c"}, storyIDs(next.Epics[0]))
}

func TestRemoveEpicAndStory(t *testing.T) {
	p := fixture()
	next := mutate.RemoveStory(p, "b")
	require.Equal(t, []string{"a", "c"}, storyIDs(next.Epics[0]))

	next = mutate.RemoveEpic(next, "e1")
	require.Len(t, next.Epics, 2)
	_, _, found := mutate.FindStory(next, "a")
	require.False(t, found)
}

func TestReplaceEpic_RewritesStoryOwner(t *testing.T) {
	p := mutate.InsertEpic(fixture(), &project.Epic{ID: "temp-1", Title: "New"})
	p = mutate.InsertStory(p, "temp-1", story("s1", 0))

	next := mutate.ReplaceEpic(p, "temp-1", &project.Epic{ID: "e9", Title: "New", Position: 400})
	idx, ok := mutate.FindEpic(next, "e9")
	require.True(t, ok)
	require.Equal(t, "e9", next.Epics[idx].Stories[0].EpicID)
	_, ok = mutate.FindEpic(next, "temp-1")
	require.False(t, ok)
}

func TestReplaceStory_SwapsID(t *testing.T) {
	p := mutate.InsertStory(fixture(), "e2", story("temp-2", 0))
	next := mutate.ReplaceStory(p, "temp-2", &project.UserStory{ID: "s42", Content: "server", Position: 300})

	_, _, ok := mutate.FindStory(next, "temp-2")
	require.False(t, ok)
	s, ok := mutate.Story(next, "s42")
	require.True(t, ok)
	require.Equal(t, "e2", s.EpicID)
}
