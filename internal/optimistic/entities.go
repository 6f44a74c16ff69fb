package optimistic

import (
	"context"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/mutate"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/status"
)

// CreateEpic inserts an epic under a placeholder id and swaps in the server
// epic once confirmed.
func (c *Coordinator) CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tempID := NewTempID(c.now())
	placeholder := &project.Epic{ID: tempID, Title: in.Title, Position: in.Position}

	return run(ctx, c, mutation[*project.Epic]{
		op:        "create_epic",
		projectID: projectID,
		entityID:  tempID,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.InsertEpic(p, placeholder)
		},
		remote: func(ctx context.Context) (*project.Epic, error) {
			epic, err := c.backend.CreateEpic(ctx, projectID, in)
			if err == nil {
				c.aliases.set(tempID, epic.ID)
			}
			return epic, err
		},
		commit: func(p *project.Project, epic *project.Epic) *project.Project {
			return mutate.ReplaceEpic(p, tempID, epic)
		},
	})
}

// UpdateEpic patches an epic.
func (c *Coordinator) UpdateEpic(ctx context.Context, projectID, epicID string, patch project.EpicPatch) (*project.Epic, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	id, err := c.aliases.resolve(epicID)
	if err != nil {
		return nil, err
	}
	return run(ctx, c, mutation[*project.Epic]{
		op:        "update_epic",
		projectID: projectID,
		entityID:  id,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.UpdateEpic(p, id, patch)
		},
		remote: func(ctx context.Context) (*project.Epic, error) {
			return c.backend.UpdateEpic(ctx, id, patch)
		},
		commit: func(p *project.Project, epic *project.Epic) *project.Project {
			return mutate.ReplaceEpic(p, id, epic)
		},
	})
}

// DeleteEpic removes an epic and its stories.
func (c *Coordinator) DeleteEpic(ctx context.Context, projectID, epicID string) error {
	id, err := c.aliases.resolve(epicID)
	if err != nil {
		return err
	}
	_, err = run(ctx, c, mutation[struct{}]{
		op:        "delete_epic",
		projectID: projectID,
		entityID:  id,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.RemoveEpic(p, id)
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.DeleteEpic(ctx, id)
		},
	})
	return err
}

// CreateStory inserts a story under a placeholder id and swaps in the server
// story once confirmed.
func (c *Coordinator) CreateStory(ctx context.Context, projectID, epicID string, in project.StoryInput) (*project.UserStory, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	eid, err := c.aliases.resolve(epicID)
	if err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = project.PriorityMedium
	}
	tempID := NewTempID(c.now())
	placeholder := &project.UserStory{
		ID:       tempID,
		Content:  in.Content,
		Status:   in.Status,
		Priority: in.Priority,
		Position: in.Position,
	}

	return run(ctx, c, mutation[*project.UserStory]{
		op:        "create_story",
		projectID: projectID,
		entityID:  tempID,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.InsertStory(p, eid, placeholder)
		},
		remote: func(ctx context.Context) (*project.UserStory, error) {
			story, err := c.backend.CreateStory(ctx, eid, in)
			if err == nil {
				c.aliases.set(tempID, story.ID)
			}
			return story, err
		},
		commit: func(p *project.Project, story *project.UserStory) *project.Project {
			return mutate.ReplaceStory(p, tempID, story)
		},
	})
}

// UpdateStory patches a story. Derived fields in the patch are measured
// locally so limit counters are right before the server answers.
func (c *Coordinator) UpdateStory(ctx context.Context, projectID, storyID string, patch project.StoryPatch) (*project.UserStory, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	id, err := c.aliases.resolve(storyID)
	if err != nil {
		return nil, err
	}
	local := patch
	if patch.DerivedFields != nil {
		local.DerivedFields = project.Measure(patch.DerivedFields)
	}

	return run(ctx, c, mutation[*project.UserStory]{
		op:        "update_story",
		projectID: projectID,
		entityID:  id,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.UpdateStory(p, id, local)
		},
		remote: func(ctx context.Context) (*project.UserStory, error) {
			return c.backend.UpdateStory(ctx, id, patch)
		},
		commit: func(p *project.Project, story *project.UserStory) *project.Project {
			return mutate.ReplaceStory(p, id, story)
		},
	})
}

// DeleteStory removes a story.
func (c *Coordinator) DeleteStory(ctx context.Context, projectID, storyID string) error {
	id, err := c.aliases.resolve(storyID)
	if err != nil {
		return err
	}
	_, err = run(ctx, c, mutation[struct{}]{
		op:        "delete_story",
		projectID: projectID,
		entityID:  id,
		optimistic: func(p *project.Project) *project.Project {
			return mutate.RemoveStory(p, id)
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.DeleteStory(ctx, id)
		},
	})
	return err
}

// ReorderStory moves a story between its intended neighbors.
func (c *Coordinator) ReorderStory(ctx context.Context, projectID string, intent project.ReorderIntent) error {
	if err := intent.Validate(); err != nil {
		return err
	}
	resolved, err := c.resolveIntent(intent)
	if err != nil {
		return err
	}
	_, err = run(ctx, c, mutation[struct{}]{
		op:        "reorder_story",
		projectID: projectID,
		entityID:  resolved.StoryID,
		optimistic: func(p *project.Project) *project.Project {
			return reorder.Apply(p, resolved)
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.ReorderStory(ctx, projectID, resolved)
		},
	})
	return err
}

// RestoreStory resets a story's derived fields to the AI original.
func (c *Coordinator) RestoreStory(ctx context.Context, projectID, storyID string) (*project.UserStory, error) {
	id, err := c.aliases.resolve(storyID)
	if err != nil {
		return nil, err
	}
	return run(ctx, c, mutation[*project.UserStory]{
		op:        "restore_story",
		projectID: projectID,
		entityID:  id,
		optimistic: func(p *project.Project) *project.Project {
			s, ok := mutate.Story(p, id)
			if !ok || s.OriginalDerivedFields == nil {
				return p
			}
			return mutate.UpdateStory(p, id, project.StoryPatch{DerivedFields: s.OriginalDerivedFields})
		},
		remote: func(ctx context.Context) (*project.UserStory, error) {
			return c.backend.RestoreStory(ctx, id)
		},
		commit: func(p *project.Project, story *project.UserStory) *project.Project {
			return mutate.ReplaceStory(p, id, story)
		},
	})
}

// RetryGeneration restarts generation for a project, showing it as pending
// until the backend reports progress.
func (c *Coordinator) RetryGeneration(ctx context.Context, projectID string) error {
	_, err := run(ctx, c, mutation[struct{}]{
		op:         "retry_generation",
		projectID:  projectID,
		entityID:   projectID,
		optimistic: status.ResetForRetry,
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.backend.RetryGeneration(ctx, projectID)
		},
	})
	return err
}

func (c *Coordinator) resolveIntent(intent project.ReorderIntent) (project.ReorderIntent, error) {
	var err error
	out := intent
	if out.StoryID, err = c.aliases.resolve(intent.StoryID); err != nil {
		return out, err
	}
	if out.TargetEpicID, err = c.aliases.resolve(intent.TargetEpicID); err != nil {
		return out, err
	}
	if out.BeforeStoryID, err = c.aliases.resolvePtr(intent.BeforeStoryID); err != nil {
		return out, err
	}
	if out.AfterStoryID, err = c.aliases.resolvePtr(intent.AfterStoryID); err != nil {
		return out, err
	}
	return out, nil
}

// Scope binds the coordinator to one project for collaborators that only
// know story ids.
type Scope struct {
	c         *Coordinator
	projectID string
}

// For returns a Scope for projectID.
func (c *Coordinator) For(projectID string) Scope {
	return Scope{c: c, projectID: projectID}
}

// UpdateStory patches a story in the scoped project.
func (s Scope) UpdateStory(ctx context.Context, storyID string, patch project.StoryPatch) (*project.UserStory, error) {
	return s.c.UpdateStory(ctx, s.projectID, storyID, patch)
}

// RestoreStory restores a story in the scoped project.
func (s Scope) RestoreStory(ctx context.Context, storyID string) (*project.UserStory, error) {
	return s.c.RestoreStory(ctx, s.projectID, storyID)
}
