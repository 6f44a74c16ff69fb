package mcp

import (
	"bytes"
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/export"
	"github.com/rpggio/blueprint/internal/reorder"
)

// toolFunc is the body of a tool. A string result is sent as plain text,
// anything else as JSON.
type toolFunc[In any] func(ctx context.Context, in In) (any, error)

func addTool[In any](server *sdkmcp.Server, name, description string, fn toolFunc[In]) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			out, err := fn(ctx, in)
			if err != nil {
				return errorResult(err), nil, nil
			}
			res, err := textResult(out)
			return res, nil, err
		})
}

func textResult(v any) (*sdkmcp.CallToolResult, error) {
	text, ok := v.(string)
	if !ok {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	data, _ := json.Marshal(MapError(err))
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func registerTools(server *sdkmcp.Server, ws Workspace) {
	// Snapshots
	addTool(server, "get_project", "Get the cached snapshot of a project",
		func(_ context.Context, in ProjectParams) (any, error) {
			return ws.Project(in.ProjectID)
		})
	addTool(server, "load_project", "Fetch a project from the server into the cache",
		func(ctx context.Context, in ProjectParams) (any, error) {
			return ws.Load(ctx, in.ProjectID)
		})

	// Epics
	addTool(server, "create_epic", "Create an epic. It appears at once with a temporary id",
		func(ctx context.Context, in CreateEpicParams) (any, error) {
			return ws.CreateEpic(ctx, in.ProjectID, project.EpicInput{Title: in.Title, Position: in.Position})
		})
	addTool(server, "update_epic", "Rename or reposition an epic",
		func(ctx context.Context, in UpdateEpicParams) (any, error) {
			return ws.UpdateEpic(ctx, in.ProjectID, in.EpicID, project.EpicPatch{Title: in.Title, Position: in.Position})
		})
	addTool(server, "delete_epic", "Delete an epic and its stories",
		func(ctx context.Context, in EpicParams) (any, error) {
			if err := ws.DeleteEpic(ctx, in.ProjectID, in.EpicID); err != nil {
				return nil, err
			}
			return DeletedResponse{Deleted: in.EpicID}, nil
		})

	// Stories
	addTool(server, "create_story", "Create a user story in an epic. It appears at once with a temporary id",
		func(ctx context.Context, in CreateStoryParams) (any, error) {
			return ws.CreateStory(ctx, in.ProjectID, in.EpicID, project.StoryInput{
				Content:  in.Content,
				Priority: in.Priority,
				Status:   in.Status,
				Position: in.Position,
			})
		})
	addTool(server, "update_story", "Update a user story's text, status, priority or position",
		func(ctx context.Context, in UpdateStoryParams) (any, error) {
			return ws.UpdateStory(ctx, in.ProjectID, in.StoryID, project.StoryPatch{
				Content:  in.Content,
				Status:   in.Status,
				Priority: in.Priority,
				Position: in.Position,
			})
		})
	addTool(server, "delete_story", "Delete a user story",
		func(ctx context.Context, in StoryParams) (any, error) {
			if err := ws.DeleteStory(ctx, in.ProjectID, in.StoryID); err != nil {
				return nil, err
			}
			return DeletedResponse{Deleted: in.StoryID}, nil
		})
	addTool(server, "move_story", "Move a story by dropping it on another story or on an epic",
		func(ctx context.Context, in MoveStoryParams) (any, error) {
			intent, err := ws.MoveStory(ctx, in.ProjectID, reorder.Gesture{
				DraggedID:     in.DraggedID,
				DropTargetID:  in.DropTargetID,
				ContainerHint: in.ContainerHint,
			})
			if err != nil {
				return nil, err
			}
			return MoveStoryResponse{Moved: intent != nil, Intent: intent}, nil
		})

	// Drafts
	addTool(server, "open_story", "Open a story's derived fields for editing",
		func(_ context.Context, in StoryParams) (any, error) {
			if _, err := ws.OpenStory(in.ProjectID, in.StoryID); err != nil {
				return nil, err
			}
			return ws.DraftStatus(in.ProjectID)
		})
	addTool(server, "set_field", "Edit one field of the open draft",
		func(_ context.Context, in SetFieldParams) (any, error) {
			r, err := ws.Draft(in.ProjectID)
			if err != nil {
				return nil, err
			}
			if err := r.SetField(draft.Bucket(in.Bucket), in.Key, in.Value); err != nil {
				return nil, err
			}
			return ws.DraftStatus(in.ProjectID)
		})
	addTool(server, "restore_field", "Return one field of the open draft to its AI original",
		func(_ context.Context, in FieldParams) (any, error) {
			r, err := ws.Draft(in.ProjectID)
			if err != nil {
				return nil, err
			}
			if err := r.RestoreField(draft.Bucket(in.Bucket), in.Key); err != nil {
				return nil, err
			}
			return ws.DraftStatus(in.ProjectID)
		})
	addTool(server, "save_draft", "Save the open draft as one update",
		func(ctx context.Context, in ProjectParams) (any, error) {
			r, err := ws.Draft(in.ProjectID)
			if err != nil {
				return nil, err
			}
			return r.Save(ctx)
		})
	addTool(server, "restore_all", "Reset the open story to its AI original on the server",
		func(ctx context.Context, in ProjectParams) (any, error) {
			r, err := ws.Draft(in.ProjectID)
			if err != nil {
				return nil, err
			}
			return r.RestoreAllFromServer(ctx)
		})
	addTool(server, "draft_status", "Describe the open draft: dirty fields and restore state",
		func(_ context.Context, in ProjectParams) (any, error) {
			return ws.DraftStatus(in.ProjectID)
		})

	// Generation and history
	addTool(server, "retry_generation", "Restart generation of a failed project",
		func(ctx context.Context, in ProjectParams) (any, error) {
			if err := ws.RetryGeneration(ctx, in.ProjectID); err != nil {
				return nil, err
			}
			p, err := ws.Project(in.ProjectID)
			if err != nil {
				return nil, err
			}
			return RetryResponse{ProjectID: p.ID, Status: p.Status}, nil
		})
	addTool(server, "recent_mutations", "List recently settled changes and their outcome, newest first",
		func(ctx context.Context, in RecentMutationsParams) (any, error) {
			return ws.RecentMutations(ctx, in.ProjectID, in.Limit)
		})
	addTool(server, "export_csv", "Export the cached project as CSV, one row per story",
		func(_ context.Context, in ProjectParams) (any, error) {
			p, err := ws.Project(in.ProjectID)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := export.WriteCSV(&buf, p); err != nil {
				return nil, err
			}
			return buf.String(), nil
		})
}
