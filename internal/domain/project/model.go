package project

import "time"

// Status represents the generation lifecycle of a project
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusParsing    Status = "parsing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further status events are expected.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Priority ranks a user story
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PositionStep is the gap between consecutive sibling positions.
const PositionStep = 100

// Project is a blueprint: an idea plus the epics generated for it
type Project struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Idea              string           `json:"idea"`
	Status            Status           `json:"status"`
	Progress          int              `json:"progress"`
	Stage             *string          `json:"stage,omitempty"`
	Message           *string          `json:"message,omitempty"`
	Epics             []*Epic          `json:"epics"`
	SchemaSuggestions []map[string]any `json:"schema_suggestions,omitempty"`
	Telemetry         map[string]any   `json:"telemetry,omitempty"`
	Metrics           map[string]any   `json:"metrics,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Epic is a column of user stories
type Epic struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"project_id,omitempty"`
	Title         string       `json:"title"`
	Position      int          `json:"position"`
	Stories       []*UserStory `json:"user_stories"`
	IsAIGenerated bool         `json:"is_ai_generated"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// UserStory is a prioritized content variant inside an epic
type UserStory struct {
	ID                    string         `json:"id"`
	EpicID                string         `json:"epic_id,omitempty"`
	Content               string         `json:"content"`
	Status                string         `json:"status"`
	Priority              Priority       `json:"priority"`
	Position              int            `json:"position"`
	IsAIGenerated         bool           `json:"is_ai_generated"`
	DerivedFields         *DerivedFields `json:"derived_fields,omitempty"`
	OriginalDerivedFields *DerivedFields `json:"original_derived_fields,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// DerivedFields is the structured marketing copy attached to a story
type DerivedFields struct {
	Meta            map[string]any    `json:"meta,omitempty"`
	Assets          map[string]string `json:"assets,omitempty"`
	Reasoning       map[string]string `json:"reasoning,omitempty"`
	Limits          map[string]int    `json:"limits,omitempty"`
	CharCounts      map[string]int    `json:"char_counts,omitempty"`
	OverLimitFields []string          `json:"over_limit_fields,omitempty"`
	OverLimitCount  int               `json:"over_limit_count"`
}

// StatusEvent is an inbound generation progress notification
type StatusEvent struct {
	ProjectID string  `json:"project_id" validate:"required"`
	Status    Status  `json:"status" validate:"omitempty,oneof=pending generating parsing ready failed"`
	Progress  int     `json:"progress" validate:"min=0,max=100"`
	Stage     *string `json:"stage,omitempty"`
	Message   *string `json:"message,omitempty"`
}

// EpicInput describes a new epic.
type EpicInput struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position,omitempty" validate:"min=0"`
}

// EpicPatch describes a partial epic update.
type EpicPatch struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Position *int    `json:"position,omitempty" validate:"omitempty,min=0"`
}

// StoryInput describes a new user story.
type StoryInput struct {
	Content  string   `json:"content" validate:"required"`
	Priority Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Status   string   `json:"status,omitempty"`
	Position int      `json:"position,omitempty" validate:"min=0"`
}

// StoryPatch describes a partial user story update.
type StoryPatch struct {
	Content       *string        `json:"content,omitempty"`
	Status        *string        `json:"status,omitempty"`
	Priority      *Priority      `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Position      *int           `json:"position,omitempty" validate:"omitempty,min=0"`
	DerivedFields *DerivedFields `json:"derived_fields,omitempty"`
}

// ReorderIntent is a resolved story move. AfterStoryID is the story that will
// precede the moved story, BeforeStoryID the one that will follow it; either
// is nil at a list end.
type ReorderIntent struct {
	StoryID       string  `json:"story_id" validate:"required"`
	TargetEpicID  string  `json:"target_epic_id" validate:"required"`
	BeforeStoryID *string `json:"before_story_id,omitempty"`
	AfterStoryID  *string `json:"after_story_id,omitempty"`
}
