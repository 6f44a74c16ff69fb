// Package cache holds the client-side project snapshots shared by every writer.
package cache

import (
	"context"
	"sync"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// Observer is notified after a snapshot is replaced.
type Observer func(id string, p *project.Project)

type entry struct {
	project *project.Project
	version uint64
}

type refetch struct {
	token  uint64
	cancel context.CancelFunc
}

// Store maps project ids to immutable snapshots. Snapshots are never mutated
// in place; every write replaces the stored pointer.
type Store struct {
	mu        sync.Mutex
	entries   map[string]entry
	refetches map[string]refetch
	pending   map[string]int
	tokens    uint64
	observers []Observer
	subs      map[string]map[chan *project.Project]struct{}
}

// NewStore creates an empty store.
func NewStore(observers ...Observer) *Store {
	return &Store{
		entries:   make(map[string]entry),
		refetches: make(map[string]refetch),
		pending:   make(map[string]int),
		observers: observers,
		subs:      make(map[string]map[chan *project.Project]struct{}),
	}
}

// Get returns the cached snapshot for id.
func (s *Store) Get(id string) (*project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e.project, ok
}

// Version returns how many times the entry for id has been replaced.
func (s *Store) Version(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id].version
}

// Set replaces the snapshot for id.
func (s *Store) Set(id string, p *project.Project) {
	s.mu.Lock()
	s.put(id, p)
	s.mu.Unlock()
	s.notify(id, p)
}

// Update atomically replaces the snapshot for id with fn(current). fn must be
// pure. When the entry is missing or fn returns the same pointer, nothing is
// written and changed is false.
func (s *Store) Update(id string, fn func(*project.Project) *project.Project) (prev, next *project.Project, changed bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, false
	}
	prev = e.project
	next = fn(prev)
	if next == prev {
		s.mu.Unlock()
		return prev, prev, false
	}
	s.put(id, next)
	s.mu.Unlock()
	s.notify(id, next)
	return prev, next, true
}

// CompareAndSwap replaces the snapshot only if the cached pointer is still
// expected.
func (s *Store) CompareAndSwap(id string, expected, next *project.Project) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.project != expected {
		s.mu.Unlock()
		return false
	}
	s.put(id, next)
	s.mu.Unlock()
	s.notify(id, next)
	return true
}

// Delete drops the entry for id and cancels its refetch.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	s.cancelLocked(id)
}

// IDs returns the ids of all cached projects.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Acquire marks a mutation as pending for id and cancels any refetch in
// flight so a stale read cannot overwrite the optimistic write that follows.
func (s *Store) Acquire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id]++
	s.cancelLocked(id)
}

// Release marks a pending mutation for id as settled.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[id] <= 1 {
		delete(s.pending, id)
		return
	}
	s.pending[id]--
}

// Pending returns the number of unsettled mutations for id.
func (s *Store) Pending(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id]
}

// BeginRefetch registers a background read for id, cancelling any earlier one.
// The returned token must be passed to CommitRefetch.
func (s *Store) BeginRefetch(parent context.Context, id string) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
	ctx, cancel := context.WithCancel(parent)
	s.tokens++
	s.refetches[id] = refetch{token: s.tokens, cancel: cancel}
	return ctx, s.tokens
}

// CommitRefetch writes a refetched snapshot if the refetch identified by token
// was not cancelled and no mutation is pending for id.
func (s *Store) CommitRefetch(id string, token uint64, p *project.Project) bool {
	s.mu.Lock()
	rf, ok := s.refetches[id]
	if !ok || rf.token != token {
		s.mu.Unlock()
		return false
	}
	delete(s.refetches, id)
	rf.cancel()
	if s.pending[id] > 0 {
		s.mu.Unlock()
		return false
	}
	s.put(id, p)
	s.mu.Unlock()
	s.notify(id, p)
	return true
}

// EndRefetch releases the refetch registration identified by token, if it is
// still current.
func (s *Store) EndRefetch(id string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rf, ok := s.refetches[id]; ok && rf.token == token {
		rf.cancel()
		delete(s.refetches, id)
	}
}

// CancelRefetch cancels the in-flight refetch for id without waiting for it.
func (s *Store) CancelRefetch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

// Subscribe returns a channel receiving every new snapshot for id. Slow
// subscribers miss intermediate snapshots rather than block writers.
func (s *Store) Subscribe(id string) (<-chan *project.Project, func()) {
	ch := make(chan *project.Project, 1)
	s.mu.Lock()
	if s.subs[id] == nil {
		s.subs[id] = make(map[chan *project.Project]struct{})
	}
	s.subs[id][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[id], ch)
			if len(s.subs[id]) == 0 {
				delete(s.subs, id)
			}
			s.mu.Unlock()
		})
	}
}

func (s *Store) put(id string, p *project.Project) {
	e := s.entries[id]
	s.entries[id] = entry{project: p, version: e.version + 1}
}

func (s *Store) cancelLocked(id string) {
	if rf, ok := s.refetches[id]; ok {
		rf.cancel()
		delete(s.refetches, id)
	}
}

func (s *Store) notify(id string, p *project.Project) {
	for _, obs := range s.observers {
		obs(id, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	latest, ok := s.entries[id]
	if !ok {
		return
	}
	for ch := range s.subs[id] {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- latest.project:
		default:
		}
	}
}
