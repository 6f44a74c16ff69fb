// Package reorder turns a drag-end gesture into a story reorder intent.
//
// The resolver only sees normalized ids. Whatever produced the gesture (a
// pointer, a keyboard, a tool call) is adapted to Gesture at the boundary.
package reorder

import (
	"slices"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/mutate"
)

// Gesture is a normalized drag-end event.
type Gesture struct {
	DraggedID     string `json:"dragged_id"`
	DropTargetID  string `json:"drop_target_id"`
	ContainerHint string `json:"container_hint,omitempty"`
}

// Resolve computes the reorder intent for g against p. It returns nil when the
// gesture cannot be resolved or would not change the order.
//
// Within one epic a story dragged down onto another lands after it and a
// story dragged up lands before it. Across epics the story lands before the
// target. A drop on an epic rather than a story appends to that epic.
func Resolve(p *project.Project, g Gesture) *project.ReorderIntent {
	if g.DraggedID == "" || g.DraggedID == g.DropTargetID {
		return nil
	}
	srcIdx, fromIdx, ok := mutate.FindStory(p, g.DraggedID)
	if !ok {
		return nil
	}
	target := targetEpic(p, g)
	if target == nil {
		return nil
	}
	sameEpic := target.ID == p.Epics[srcIdx].ID

	ids := storyIDsWithout(target, g.DraggedID)
	insertAt := len(ids)
	if ti := slices.Index(ids, g.DropTargetID); ti >= 0 {
		insertAt = ti
		if sameEpic && fromIdx <= ti {
			insertAt = ti + 1
		}
	}

	order := slices.Insert(slices.Clone(ids), insertAt, g.DraggedID)
	if sameEpic && slices.Equal(order, storyIDsWithout(target, "")) {
		return nil
	}

	intent := &project.ReorderIntent{StoryID: g.DraggedID, TargetEpicID: target.ID}
	if insertAt > 0 {
		intent.AfterStoryID = ptr(order[insertAt-1])
	}
	if insertAt+1 < len(order) {
		intent.BeforeStoryID = ptr(order[insertAt+1])
	}
	return intent
}

// Apply moves the story named by intent so that it sits between its intended
// neighbors, reindexing positions. Neighbors that are no longer in the target
// epic are ignored; with neither present the story is appended.
func Apply(p *project.Project, intent project.ReorderIntent) *project.Project {
	if _, _, ok := mutate.FindStory(p, intent.StoryID); !ok {
		return p
	}
	ei, ok := mutate.FindEpic(p, intent.TargetEpicID)
	if !ok {
		return p
	}
	ids := storyIDsWithout(p.Epics[ei], intent.StoryID)
	index := len(ids)
	switch {
	case intent.AfterStoryID != nil && slices.Contains(ids, *intent.AfterStoryID):
		index = slices.Index(ids, *intent.AfterStoryID) + 1
	case intent.BeforeStoryID != nil && slices.Contains(ids, *intent.BeforeStoryID):
		index = slices.Index(ids, *intent.BeforeStoryID)
	}
	return mutate.MoveStory(p, intent.StoryID, intent.TargetEpicID, index)
}

func targetEpic(p *project.Project, g Gesture) *project.Epic {
	for _, id := range []string{g.ContainerHint, g.DropTargetID} {
		if ei, ok := mutate.FindEpic(p, id); ok {
			return p.Epics[ei]
		}
	}
	if ei, _, ok := mutate.FindStory(p, g.DropTargetID); ok {
		return p.Epics[ei]
	}
	return nil
}

func storyIDsWithout(e *project.Epic, skip string) []string {
	ids := make([]string, 0, len(e.Stories))
	for _, s := range e.Stories {
		if s.ID != skip {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func ptr(s string) *string { return &s }
