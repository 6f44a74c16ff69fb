// Package mutate computes new project snapshots from a snapshot and a change.
//
// Every function is pure: the input snapshot is never modified, and only the
// path from the project root down to the changed element is copied. Epics and
// stories that the change does not touch keep their pointer identity, so
// callers can compare sub-trees with == to detect what changed. A change that
// refers to an id absent from the snapshot returns the input unchanged.
package mutate

import (
	"slices"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// FindEpic returns the index of the epic with the given id.
func FindEpic(p *project.Project, id string) (int, bool) {
	if p == nil || id == "" {
		return -1, false
	}
	for i, e := range p.Epics {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// FindStory returns the owning epic index and the story index of a story.
func FindStory(p *project.Project, id string) (int, int, bool) {
	if p == nil || id == "" {
		return -1, -1, false
	}
	for ei, e := range p.Epics {
		for si, s := range e.Stories {
			if s.ID == id {
				return ei, si, true
			}
		}
	}
	return -1, -1, false
}

// Story returns the story with the given id, if present.
func Story(p *project.Project, id string) (*project.UserStory, bool) {
	ei, si, ok := FindStory(p, id)
	if !ok {
		return nil, false
	}
	return p.Epics[ei].Stories[si], true
}

// NextEpicPosition returns the position for an epic appended after the last one.
func NextEpicPosition(p *project.Project) int {
	if p == nil || len(p.Epics) == 0 {
		return project.PositionStep
	}
	return p.Epics[len(p.Epics)-1].Position + project.PositionStep
}

// NextStoryPosition returns the position for a story appended to an epic.
func NextStoryPosition(e *project.Epic) int {
	if e == nil || len(e.Stories) == 0 {
		return project.PositionStep
	}
	return e.Stories[len(e.Stories)-1].Position + project.PositionStep
}

// InsertEpic adds an epic, keeping epics sorted by position. A zero position
// appends after the last epic.
func InsertEpic(p *project.Project, epic *project.Epic) *project.Project {
	if p == nil || epic == nil {
		return p
	}
	if _, exists := FindEpic(p, epic.ID); exists {
		return p
	}
	e := *epic
	if e.Position == 0 {
		e.Position = NextEpicPosition(p)
	}
	if e.ProjectID == "" {
		e.ProjectID = p.ID
	}
	epics := make([]*project.Epic, 0, len(p.Epics)+1)
	epics = append(epics, p.Epics...)
	epics = insertSorted(epics, &e, func(x *project.Epic) int { return x.Position })
	return withEpics(p, epics)
}

// UpdateEpic applies a patch to one epic.
func UpdateEpic(p *project.Project, id string, patch project.EpicPatch) *project.Project {
	idx, ok := FindEpic(p, id)
	if !ok {
		return p
	}
	e := *p.Epics[idx]
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	resort := false
	if patch.Position != nil && *patch.Position != e.Position {
		e.Position = *patch.Position
		resort = true
	}
	epics := slices.Clone(p.Epics)
	epics[idx] = &e
	if resort {
		sortByPosition(epics, func(x *project.Epic) int { return x.Position })
	}
	return withEpics(p, epics)
}

// RemoveEpic deletes an epic together with its stories.
func RemoveEpic(p *project.Project, id string) *project.Project {
	idx, ok := FindEpic(p, id)
	if !ok {
		return p
	}
	return withEpics(p, slices.Delete(slices.Clone(p.Epics), idx, idx+1))
}

// ReplaceEpic swaps the epic stored under id for a server-confirmed copy.
// Local stories are kept and re-pointed at the epic's new id.
func ReplaceEpic(p *project.Project, id string, epic *project.Epic) *project.Project {
	idx, ok := FindEpic(p, id)
	if !ok || epic == nil {
		return p
	}
	local := p.Epics[idx]
	e := *epic
	e.Stories = local.Stories
	if e.ID != local.ID {
		stories := make([]*project.UserStory, len(local.Stories))
		for i, s := range local.Stories {
			cp := *s
			cp.EpicID = e.ID
			stories[i] = &cp
		}
		e.Stories = stories
	}
	if e.ProjectID == "" {
		e.ProjectID = local.ProjectID
	}
	epics := slices.Clone(p.Epics)
	epics[idx] = &e
	sortByPosition(epics, func(x *project.Epic) int { return x.Position })
	return withEpics(p, epics)
}

// InsertStory adds a story to an epic, keeping stories sorted by position. A
// zero position appends after the epic's last story.
func InsertStory(p *project.Project, epicID string, story *project.UserStory) *project.Project {
	idx, ok := FindEpic(p, epicID)
	if !ok || story == nil {
		return p
	}
	if _, _, exists := FindStory(p, story.ID); exists {
		return p
	}
	src := p.Epics[idx]
	s := *story
	s.EpicID = src.ID
	if s.Position == 0 {
		s.Position = NextStoryPosition(src)
	}
	stories := make([]*project.UserStory, 0, len(src.Stories)+1)
	stories = append(stories, src.Stories...)
	stories = insertSorted(stories, &s, func(x *project.UserStory) int { return x.Position })
	return withEpicAt(p, idx, withStories(src, stories))
}

// UpdateStory applies a patch to one story. The story's original derived
// fields are never touched.
func UpdateStory(p *project.Project, id string, patch project.StoryPatch) *project.Project {
	ei, si, ok := FindStory(p, id)
	if !ok {
		return p
	}
	src := p.Epics[ei]
	s := *src.Stories[si]
	if patch.Content != nil {
		s.Content = *patch.Content
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	if patch.Priority != nil {
		s.Priority = *patch.Priority
	}
	if patch.DerivedFields != nil {
		s.DerivedFields = patch.DerivedFields.Clone()
	}
	resort := false
	if patch.Position != nil && *patch.Position != s.Position {
		s.Position = *patch.Position
		resort = true
	}
	stories := slices.Clone(src.Stories)
	stories[si] = &s
	if resort {
		sortByPosition(stories, func(x *project.UserStory) int { return x.Position })
	}
	return withEpicAt(p, ei, withStories(src, stories))
}

// ReplaceStory swaps the story stored under id for a server-confirmed copy.
// The story stays in the epic that currently owns it.
func ReplaceStory(p *project.Project, id string, story *project.UserStory) *project.Project {
	ei, si, ok := FindStory(p, id)
	if !ok || story == nil {
		return p
	}
	src := p.Epics[ei]
	s := *story
	s.EpicID = src.ID
	stories := slices.Clone(src.Stories)
	stories[si] = &s
	sortByPosition(stories, func(x *project.UserStory) int { return x.Position })
	return withEpicAt(p, ei, withStories(src, stories))
}

// RemoveStory deletes one story.
func RemoveStory(p *project.Project, id string) *project.Project {
	ei, si, ok := FindStory(p, id)
	if !ok {
		return p
	}
	src := p.Epics[ei]
	return withEpicAt(p, ei, withStories(src, slices.Delete(slices.Clone(src.Stories), si, si+1)))
}

// MoveStory moves a story into the target epic at index (counted after the
// story has been removed from its current list) and reindexes positions of
// every list it touched to 100, 200, 300...
func MoveStory(p *project.Project, id, targetEpicID string, index int) *project.Project {
	ei, si, ok := FindStory(p, id)
	if !ok {
		return p
	}
	ti, ok := FindEpic(p, targetEpicID)
	if !ok {
		return p
	}

	src := p.Epics[ei]
	moved := src.Stories[si]
	remaining := slices.Delete(slices.Clone(src.Stories), si, si+1)

	dest := remaining
	if ti != ei {
		dest = slices.Clone(p.Epics[ti].Stories)
	}
	index = max(0, min(index, len(dest)))
	dest = slices.Insert(dest, index, moved)

	epics := slices.Clone(p.Epics)
	if ti != ei {
		epics[ei] = withStories(src, reindex(remaining, src.ID))
	}
	epics[ti] = withStories(p.Epics[ti], reindex(dest, p.Epics[ti].ID))
	return withEpics(p, epics)
}

// reindex assigns positions 100, 200, ... in list order, copying only the
// stories whose position or owning epic changes.
func reindex(stories []*project.UserStory, epicID string) []*project.UserStory {
	out := make([]*project.UserStory, len(stories))
	for i, s := range stories {
		pos := (i + 1) * project.PositionStep
		if s.Position == pos && s.EpicID == epicID {
			out[i] = s
			continue
		}
		cp := *s
		cp.Position = pos
		cp.EpicID = epicID
		out[i] = &cp
	}
	return out
}

func withEpics(p *project.Project, epics []*project.Epic) *project.Project {
	cp := *p
	cp.Epics = epics
	return &cp
}

func withEpicAt(p *project.Project, idx int, e *project.Epic) *project.Project {
	epics := slices.Clone(p.Epics)
	epics[idx] = e
	return withEpics(p, epics)
}

func withStories(e *project.Epic, stories []*project.UserStory) *project.Epic {
	cp := *e
	cp.Stories = stories
	return &cp
}

func insertSorted[T any](list []T, item T, pos func(T) int) []T {
	at := len(list)
	for i, x := range list {
		if pos(x) > pos(item) {
			at = i
			break
		}
	}
	return slices.Insert(list, at, item)
}

func sortByPosition[T any](list []T, pos func(T) int) {
	slices.SortStableFunc(list, func(a, b T) int { return pos(a) - pos(b) })
}
