package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/mcp"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/remote"
	"github.com/rpggio/blueprint/internal/repository/mocks"
	"github.com/rpggio/blueprint/internal/workspace"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func board() *project.Project {
	return &project.Project{
		ID:     "p1",
		Name:   "Launch",
		Status: project.StatusReady,
		Epics: []*project.Epic{
			{ID: "e1", ProjectID: "p1", Title: "Onboarding", Position: 100, Stories: []*project.UserStory{
				{ID: "a", EpicID: "e1", Content: "sign up", Position: 100, DerivedFields: &project.DerivedFields{
					Assets: map[string]string{project.AssetHook: "AI hook"},
				}},
				{ID: "b", EpicID: "e1", Content: "invite", Position: 200},
			}},
		},
	}
}

type harness struct {
	session *sdkmcp.ClientSession
	store   *cache.Store
	backend *mocks.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := cache.NewStore()
	backend := &mocks.Backend{}
	ws := workspace.New(optimistic.New(store, backend, nil, nil), nil, nil)
	t.Cleanup(ws.Close)

	server := mcp.NewServer(mcp.Config{Workspace: ws, TransportMode: "stdio"})
	serverT, clientT := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })

	return &harness{session: cs, store: store, backend: backend}
}

func (h *harness) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func (h *harness) apiError(t *testing.T, name string, args map[string]any) mcp.APIError {
	t.Helper()
	text, isErr := h.call(t, name, args)
	require.True(t, isErr, "expected %s to fail: %s", name, text)
	var apiErr mcp.APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	return apiErr
}

func TestListTools(t *testing.T) {
	h := newHarness(t)
	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{
		"get_project", "load_project", "create_epic", "update_epic", "delete_epic",
		"create_story", "update_story", "delete_story", "move_story", "open_story",
		"set_field", "restore_field", "save_draft", "restore_all", "draft_status",
		"retry_generation", "recent_mutations", "export_csv",
	} {
		require.True(t, names[name], "missing tool %s", name)
	}
}

func TestGetProject_RequiresLoad(t *testing.T) {
	h := newHarness(t)
	apiErr := h.apiError(t, "get_project", map[string]any{"project_id": "p1"})
	require.Equal(t, "NOT_LOADED", apiErr.Code)
	require.NotEmpty(t, apiErr.RecoveryHint)

	h.backend.On("FetchProject", mock.Anything, "p1").Return(board(), nil)
	text, isErr := h.call(t, "load_project", map[string]any{"project_id": "p1"})
	require.False(t, isErr, text)

	text, isErr = h.call(t, "get_project", map[string]any{"project_id": "p1"})
	require.False(t, isErr)
	var p project.Project
	require.NoError(t, json.Unmarshal([]byte(text), &p))
	require.Equal(t, "Launch", p.Name)
	require.Len(t, p.Epics[0].Stories, 2)
}

func TestUpdateStory_BackendRejectionIsReported(t *testing.T) {
	h := newHarness(t)
	h.store.Set("p1", board())
	h.backend.On("UpdateStory", mock.Anything, "a", mock.Anything).
		Return(nil, &remote.StatusError{Method: "PATCH", Path: "/api/stories/a/", StatusCode: 400, Message: "content: too long"})
	h.backend.On("FetchProject", mock.Anything, "p1").Return(nil, errors.New("offline"))

	apiErr := h.apiError(t, "update_story", map[string]any{"project_id": "p1", "story_id": "a", "content": "edited"})
	require.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	require.Equal(t, "content: too long", apiErr.Message)

	p, _ := h.store.Get("p1")
	require.Equal(t, "sign up", p.Epics[0].Stories[0].Content)
}

func TestMoveStory(t *testing.T) {
	h := newHarness(t)
	h.store.Set("p1", board())
	h.backend.On("ReorderStory", mock.Anything, "p1", mock.Anything).Return(nil)
	h.backend.On("FetchProject", mock.Anything, "p1").Return(nil, errors.New("offline"))

	text, isErr := h.call(t, "move_story", map[string]any{"project_id": "p1", "dragged_id": "a", "drop_target_id": "a"})
	require.False(t, isErr)
	require.JSONEq(t, `{"moved":false}`, text)

	text, isErr = h.call(t, "move_story", map[string]any{"project_id": "p1", "dragged_id": "b", "drop_target_id": "a"})
	require.False(t, isErr, text)
	var resp mcp.MoveStoryResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.True(t, resp.Moved)
	require.Equal(t, "a", *resp.Intent.BeforeStoryID)
	require.Nil(t, resp.Intent.AfterStoryID)

	p, _ := h.store.Get("p1")
	require.Equal(t, "b", p.Epics[0].Stories[0].ID)
}

func TestDraftTools(t *testing.T) {
	h := newHarness(t)
	h.store.Set("p1", board())

	apiErr := h.apiError(t, "set_field", map[string]any{"project_id": "p1", "bucket": "assets", "key": "hook", "value": "x"})
	require.Equal(t, "NO_OPEN_STORY", apiErr.Code)

	_, isErr := h.call(t, "open_story", map[string]any{"project_id": "p1", "story_id": "a"})
	require.False(t, isErr)

	text, isErr := h.call(t, "set_field", map[string]any{"project_id": "p1", "bucket": "assets", "key": "hook", "value": "Sharper hook"})
	require.False(t, isErr, text)
	var st workspace.DraftState
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	require.Equal(t, []string{"assets.hook"}, st.DirtyFields)
	require.Equal(t, "Sharper hook", st.Draft.Assets[project.AssetHook])

	apiErr = h.apiError(t, "set_field", map[string]any{"project_id": "p1", "bucket": "styles", "key": "x", "value": "y"})
	require.Equal(t, "UNKNOWN_BUCKET", apiErr.Code)

	text, isErr = h.call(t, "restore_field", map[string]any{"project_id": "p1", "bucket": "assets", "key": "hook"})
	require.False(t, isErr, text)
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	require.Empty(t, st.DirtyFields)
	require.Equal(t, "AI hook", st.Draft.Assets[project.AssetHook])
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.store.Set("p1", board())

	text, isErr := h.call(t, "export_csv", map[string]any{"project_id": "p1"})
	require.False(t, isErr)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "Onboarding,sign up,"))
}
