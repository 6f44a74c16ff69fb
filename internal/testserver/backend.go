// Package testserver runs an in-memory blueprint API for end-to-end tests.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/mutate"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/status"
)

// Backend serves the project, epic and story endpoints from memory. Writes go
// through the same pure transforms the client uses, so both sides agree on
// positions.
type Backend struct {
	Server *httptest.Server
	Token  string

	mu       sync.Mutex
	projects map[string]*project.Project
	nextID   int
	fail     []failure
	calls    []string
}

type failure struct {
	status  int
	message string
}

// New starts a backend seeded with projects. It is closed when t ends.
func New(t *testing.T, token string, projects ...*project.Project) *Backend {
	t.Helper()
	b := &Backend{Token: token, projects: make(map[string]*project.Project)}
	for _, p := range projects {
		b.projects[p.ID] = p
	}

	r := chi.NewRouter()
	r.Use(b.authorize)
	r.Route("/api", func(r chi.Router) {
		r.Get("/projects/{id}/", b.getProject)
		r.Post("/projects/{id}/reorder-story/", b.reorderStory)
		r.Post("/projects/{id}/retry/", b.retry)
		r.Post("/epics/", b.createEpic)
		r.Patch("/epics/{id}/", b.updateEpic)
		r.Delete("/epics/{id}/", b.deleteEpic)
		r.Post("/stories/", b.createStory)
		r.Patch("/stories/{id}/", b.updateStory)
		r.Delete("/stories/{id}/", b.deleteStory)
		r.Post("/stories/{id}/restore/", b.restoreStory)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Project returns the server-side copy of a project.
func (b *Backend) Project(id string) *project.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projects[id]
}

// SetStatus moves generation along as the server would.
func (b *Backend) SetStatus(id string, st project.Status, progress int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.projects[id]; ok {
		next := *p
		next.Status = st
		next.Progress = progress
		b.projects[id] = &next
	}
}

// Replace swaps the server-side project wholesale.
func (b *Backend) Replace(p *project.Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projects[p.ID] = p
}

// FailNext makes the next write request fail with status and message.
func (b *Backend) FailNext(status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = append(b.fail, failure{status: status, message: message})
}

// Calls lists the write requests received, as "METHOD path".
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" && r.Header.Get("Authorization") != "Bearer "+b.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		if r.Method != http.MethodGet {
			b.mu.Lock()
			b.calls = append(b.calls, r.Method+" "+r.URL.Path)
			var f *failure
			if len(b.fail) > 0 {
				f = &b.fail[0]
				b.fail = b.fail[1:]
			}
			b.mu.Unlock()
			if f != nil {
				writeJSON(w, f.status, map[string]string{"detail": f.message})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) getProject(w http.ResponseWriter, r *http.Request) {
	p := b.Project(chi.URLParam(r, "id"))
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) retry(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p, ok := b.projects[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.projects[id] = status.ResetForRetry(p)
	w.WriteHeader(http.StatusAccepted)
}

type reorderBody struct {
	StoryID      string  `json:"story_id"`
	TargetEpicID string  `json:"target_epic_id"`
	BeforeID     *string `json:"before_id"`
	AfterID      *string `json:"after_id"`
}

func (b *Backend) reorderStory(w http.ResponseWriter, r *http.Request) {
	var body reorderBody
	if !decode(w, r, &body) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p, ok := b.projects[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if _, _, found := mutate.FindStory(p, body.StoryID); !found {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"story_id": {"Unknown story."}})
		return
	}
	b.projects[id] = reorder.Apply(p, project.ReorderIntent{
		StoryID:       body.StoryID,
		TargetEpicID:  body.TargetEpicID,
		BeforeStoryID: body.BeforeID,
		AfterStoryID:  body.AfterID,
	})
	w.WriteHeader(http.StatusNoContent)
}

type epicBody struct {
	Project  string `json:"project"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

func (b *Backend) createEpic(w http.ResponseWriter, r *http.Request) {
	var body epicBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field may not be blank."}})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[body.Project]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"project": {"Unknown project."}})
		return
	}
	epic := &project.Epic{ID: b.newID("epic"), ProjectID: p.ID, Title: body.Title, Position: body.Position}
	if epic.Position == 0 {
		epic.Position = mutate.NextEpicPosition(p)
	}
	p = mutate.InsertEpic(p, epic)
	b.projects[p.ID] = p
	idx, _ := mutate.FindEpic(p, epic.ID)
	writeJSON(w, http.StatusCreated, p.Epics[idx])
}

func (b *Backend) updateEpic(w http.ResponseWriter, r *http.Request) {
	var patch project.EpicPatch
	if !decode(w, r, &patch) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p := b.ownerOfEpic(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	p = mutate.UpdateEpic(p, id, patch)
	b.projects[p.ID] = p
	idx, _ := mutate.FindEpic(p, id)
	writeJSON(w, http.StatusOK, p.Epics[idx])
}

func (b *Backend) deleteEpic(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p := b.ownerOfEpic(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.projects[p.ID] = mutate.RemoveEpic(p, id)
	w.WriteHeader(http.StatusNoContent)
}

type storyBody struct {
	Epic     string           `json:"epic"`
	Content  string           `json:"content"`
	Priority project.Priority `json:"priority"`
	Status   string           `json:"status"`
	Position int              `json:"position"`
}

func (b *Backend) createStory(w http.ResponseWriter, r *http.Request) {
	var body storyBody
	if !decode(w, r, &body) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ownerOfEpic(body.Epic)
	if p == nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"epic": {"Unknown epic."}})
		return
	}
	story := &project.UserStory{
		ID:       b.newID("story"),
		EpicID:   body.Epic,
		Content:  body.Content,
		Priority: body.Priority,
		Status:   body.Status,
		Position: body.Position,
	}
	if story.Priority == "" {
		story.Priority = project.PriorityMedium
	}
	p = mutate.InsertStory(p, body.Epic, story)
	b.projects[p.ID] = p
	saved, _ := mutate.Story(p, story.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (b *Backend) updateStory(w http.ResponseWriter, r *http.Request) {
	var patch project.StoryPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.DerivedFields != nil {
		patch.DerivedFields = project.Measure(patch.DerivedFields)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p := b.ownerOfStory(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	p = mutate.UpdateStory(p, id, patch)
	b.projects[p.ID] = p
	saved, _ := mutate.Story(p, id)
	writeJSON(w, http.StatusOK, saved)
}

func (b *Backend) deleteStory(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p := b.ownerOfStory(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	b.projects[p.ID] = mutate.RemoveStory(p, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) restoreStory(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	p := b.ownerOfStory(id)
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	cur, _ := mutate.Story(p, id)
	p = mutate.UpdateStory(p, id, project.StoryPatch{DerivedFields: project.Measure(cur.OriginalDerivedFields)})
	b.projects[p.ID] = p
	saved, _ := mutate.Story(p, id)
	writeJSON(w, http.StatusOK, saved)
}

func (b *Backend) ownerOfEpic(id string) *project.Project {
	for _, p := range b.projects {
		if _, ok := mutate.FindEpic(p, id); ok {
			return p
		}
	}
	return nil
}

func (b *Backend) ownerOfStory(id string) *project.Project {
	for _, p := range b.projects {
		if _, _, ok := mutate.FindStory(p, id); ok {
			return p
		}
	}
	return nil
}

func (b *Backend) newID(kind string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", kind, b.nextID)
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
