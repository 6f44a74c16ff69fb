package mcp

import "github.com/rpggio/blueprint/internal/domain/project"

// ProjectParams names a project.
type ProjectParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
}

type CreateEpicParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Title     string `json:"title" jsonschema:"Epic title"`
	Position  int    `json:"position,omitempty" jsonschema:"Position; omit to append"`
}

type UpdateEpicParams struct {
	ProjectID string  `json:"project_id" jsonschema:"Project ID"`
	EpicID    string  `json:"epic_id" jsonschema:"Epic ID, may be a temporary id"`
	Title     *string `json:"title,omitempty" jsonschema:"New title"`
	Position  *int    `json:"position,omitempty" jsonschema:"New position"`
}

type EpicParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	EpicID    string `json:"epic_id" jsonschema:"Epic ID, may be a temporary id"`
}

type CreateStoryParams struct {
	ProjectID string           `json:"project_id" jsonschema:"Project ID"`
	EpicID    string           `json:"epic_id" jsonschema:"Owning epic ID, may be a temporary id"`
	Content   string           `json:"content" jsonschema:"Story text"`
	Priority  project.Priority `json:"priority,omitempty" jsonschema:"low, medium or high; defaults to medium"`
	Status    string           `json:"status,omitempty" jsonschema:"Workflow status"`
	Position  int              `json:"position,omitempty" jsonschema:"Position; omit to append"`
}

type UpdateStoryParams struct {
	ProjectID string            `json:"project_id" jsonschema:"Project ID"`
	StoryID   string            `json:"story_id" jsonschema:"Story ID, may be a temporary id"`
	Content   *string           `json:"content,omitempty" jsonschema:"New story text"`
	Status    *string           `json:"status,omitempty" jsonschema:"New workflow status"`
	Priority  *project.Priority `json:"priority,omitempty" jsonschema:"low, medium or high"`
	Position  *int              `json:"position,omitempty" jsonschema:"New position within the epic"`
}

type StoryParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	StoryID   string `json:"story_id" jsonschema:"Story ID"`
}

type MoveStoryParams struct {
	ProjectID     string `json:"project_id" jsonschema:"Project ID"`
	DraggedID     string `json:"dragged_id" jsonschema:"ID of the story being moved"`
	DropTargetID  string `json:"drop_target_id" jsonschema:"ID of the story or epic it was dropped on"`
	ContainerHint string `json:"container_hint,omitempty" jsonschema:"Epic ID of the drop container, when known"`
}

type FieldParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Bucket    string `json:"bucket" jsonschema:"assets, reasoning or meta"`
	Key       string `json:"key" jsonschema:"Field key, for example hook or proof"`
}

type SetFieldParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Bucket    string `json:"bucket" jsonschema:"assets, reasoning or meta"`
	Key       string `json:"key" jsonschema:"Field key, for example hook or proof"`
	Value     string `json:"value" jsonschema:"New field text"`
}

type RecentMutationsParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of entries"`
}

// MoveStoryResponse reports the resolved reorder. Intent is nil when the drop
// left the order unchanged.
type MoveStoryResponse struct {
	Moved  bool                   `json:"moved"`
	Intent *project.ReorderIntent `json:"intent,omitempty"`
}

type DeletedResponse struct {
	Deleted string `json:"deleted"`
}

type RetryResponse struct {
	ProjectID string         `json:"project_id"`
	Status    project.Status `json:"status"`
}
