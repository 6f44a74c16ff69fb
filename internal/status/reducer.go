// Package status folds generation progress events into cached projects.
package status

import (
	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/project"
)

// Reduce folds ev into cur. It returns cur itself when nothing changes, so
// callers can detect no-ops by pointer comparison.
//
// Status follows the event. Progress never decreases. A failed project keeps
// its last message unless the event carries a new one.
func Reduce(cur *project.Project, ev project.StatusEvent) *project.Project {
	if cur == nil || ev.ProjectID != cur.ID {
		return cur
	}

	st := ev.Status
	if st == "" {
		st = cur.Status
	}
	progress := max(cur.Progress, ev.Progress)

	stage := cur.Stage
	switch {
	case ev.Stage != nil:
		stage = ev.Stage
	case st.Terminal():
		stage = ptr(string(st))
	}

	var message *string
	switch {
	case ev.Message != nil:
		message = ev.Message
	case st == project.StatusFailed:
		message = cur.Message
	}

	if st == cur.Status && progress == cur.Progress && equal(stage, cur.Stage) && equal(message, cur.Message) {
		return cur
	}
	next := *cur
	next.Status = st
	next.Progress = progress
	next.Stage = stage
	next.Message = message
	return &next
}

// Apply validates ev and folds it into the cached project. It reports whether
// the cache changed. Events for projects that are not cached are ignored.
func Apply(store *cache.Store, ev project.StatusEvent) (bool, error) {
	if err := ev.Validate(); err != nil {
		return false, err
	}
	_, _, changed := store.Update(ev.ProjectID, func(p *project.Project) *project.Project {
		return Reduce(p, ev)
	})
	return changed, nil
}

// ResetForRetry returns p as it looks right after a retry was requested.
func ResetForRetry(p *project.Project) *project.Project {
	if p == nil {
		return p
	}
	if p.Status == project.StatusPending && p.Progress == 0 && p.Message == nil &&
		p.Stage != nil && *p.Stage == string(project.StatusPending) {
		return p
	}
	next := *p
	next.Status = project.StatusPending
	next.Progress = 0
	next.Stage = ptr(string(project.StatusPending))
	next.Message = nil
	return &next
}

// EventFrom describes p's current state as a status event.
func EventFrom(p *project.Project) project.StatusEvent {
	return project.StatusEvent{
		ProjectID: p.ID,
		Status:    p.Status,
		Progress:  p.Progress,
		Stage:     p.Stage,
		Message:   p.Message,
	}
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptr(s string) *string { return &s }
