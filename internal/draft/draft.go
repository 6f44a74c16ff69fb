// Package draft holds the editable copy of a story's derived fields while the
// story is open.
package draft

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// Bucket names a group of derived fields.
type Bucket string

const (
	BucketAssets    Bucket = "assets"
	BucketReasoning Bucket = "reasoning"
	BucketMeta      Bucket = "meta"
)

var buckets = []Bucket{BucketAssets, BucketReasoning, BucketMeta}

// ErrUnknownBucket is returned for a bucket other than assets, reasoning or meta.
var ErrUnknownBucket = errors.New("unknown field bucket")

// Saver submits derived fields for a story.
type Saver interface {
	UpdateStory(ctx context.Context, storyID string, patch project.StoryPatch) (*project.UserStory, error)
	RestoreStory(ctx context.Context, storyID string) (*project.UserStory, error)
}

// Reconciler tracks the draft, the last persisted value and the pristine AI
// original of one story's derived fields.
type Reconciler struct {
	storyID string
	saver   Saver

	mu               sync.Mutex
	draft            *project.DerivedFields
	persisted        *project.DerivedFields
	original         *project.DerivedFields
	recentlyRestored bool
}

// Open starts editing story. The draft is seeded from the story's current
// derived fields.
func Open(story *project.UserStory, saver Saver) *Reconciler {
	r := &Reconciler{storyID: story.ID, saver: saver}
	r.seed(story)
	return r
}

// StoryID returns the id of the open story.
func (r *Reconciler) StoryID() string {
	return r.storyID
}

// Draft returns a copy of the working fields.
func (r *Reconciler) Draft() *project.DerivedFields {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.Clone()
}

// SetField changes one draft value. The cache is not touched.
func (r *Reconciler) SetField(bucket Bucket, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := put(r.draft, bucket, key, value); err != nil {
		return err
	}
	r.recentlyRestored = false
	return nil
}

// IsDirty reports whether a draft value differs from the persisted one. Missing
// values count as empty.
func (r *Reconciler) IsDirty(bucket Bucket, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return get(r.draft, bucket, key) != get(r.persisted, bucket, key)
}

// RestoreField resets one draft value to the AI original. Stories without an
// original fall back to the persisted value.
func (r *Reconciler) RestoreField(bucket Bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(buckets, bucket) {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	src := r.original
	if src == nil {
		src = r.persisted
	}
	copyField(r.draft, src, bucket, key)
	r.recentlyRestored = false
	return nil
}

// HasPendingSave reports whether any tracked field is dirty.
func (r *Reconciler) HasPendingSave() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingLocked()
}

// IsPersistedContentIdentical reports whether the persisted fields still match
// the AI original.
func (r *Reconciler) IsPersistedContentIdentical() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.original == nil {
		return true
	}
	for _, b := range buckets {
		for _, key := range r.trackedKeys(b) {
			if get(r.persisted, b, key) != get(r.original, b, key) {
				return false
			}
		}
	}
	return true
}

// RecentlyRestored reports whether the story was restored from the server
// with no edits since.
func (r *Reconciler) RecentlyRestored() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentlyRestored
}

// ShowRestoreAll reports whether restoring the whole story would change
// anything worth offering.
func (r *Reconciler) ShowRestoreAll() bool {
	if r.RecentlyRestored() {
		return false
	}
	return r.HasPendingSave() || !r.IsPersistedContentIdentical()
}

// Save submits the draft as one update. On success the draft and persisted
// values are reseeded from the server response. Edits made while the save was
// in flight stay in the draft.
func (r *Reconciler) Save(ctx context.Context) (*project.UserStory, error) {
	r.mu.Lock()
	payload := r.payloadLocked()
	r.mu.Unlock()

	story, err := r.saver.UpdateStory(ctx, r.storyID, project.StoryPatch{DerivedFields: payload})
	if err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	edited := r.draft
	r.seed(story)
	for _, b := range buckets {
		keys := append(keysOf(edited, b), keysOf(payload, b)...)
		for _, key := range keys {
			if b == BucketMeta && strings.HasPrefix(key, "_") {
				continue
			}
			if get(edited, b, key) != get(payload, b, key) {
				copyField(r.draft, edited, b, key)
			}
		}
	}
	r.recentlyRestored = false
	return story, nil
}

// RestoreAllFromServer asks the server to reset the story to its AI original
// and reseeds from the answer.
func (r *Reconciler) RestoreAllFromServer(ctx context.Context) (*project.UserStory, error) {
	story, err := r.saver.RestoreStory(ctx, r.storyID)
	if err != nil {
		return nil, fmt.Errorf("restoring story: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seed(story)
	r.recentlyRestored = true
	return story, nil
}

func (r *Reconciler) seed(story *project.UserStory) {
	persisted := story.DerivedFields.Clone()
	if persisted == nil {
		persisted = &project.DerivedFields{}
	}
	r.persisted = persisted
	r.draft = persisted.Clone()
	if story.OriginalDerivedFields != nil {
		r.original = story.OriginalDerivedFields.Clone()
	}
}

func (r *Reconciler) pendingLocked() bool {
	for _, b := range buckets {
		for _, key := range r.trackedKeys(b) {
			if get(r.draft, b, key) != get(r.persisted, b, key) {
				return true
			}
		}
	}
	return false
}

// payloadLocked builds the fields sent on save: every tracked asset and
// reasoning key plus meta without internal keys.
func (r *Reconciler) payloadLocked() *project.DerivedFields {
	out := &project.DerivedFields{
		Assets:    make(map[string]string),
		Reasoning: make(map[string]string),
		Limits:    maps.Clone(r.persisted.Limits),
	}
	for _, key := range r.trackedKeys(BucketAssets) {
		out.Assets[key] = get(r.draft, BucketAssets, key)
	}
	for _, key := range r.trackedKeys(BucketReasoning) {
		out.Reasoning[key] = get(r.draft, BucketReasoning, key)
	}
	for key, v := range r.draft.Meta {
		if strings.HasPrefix(key, "_") {
			continue
		}
		if out.Meta == nil {
			out.Meta = make(map[string]any)
		}
		out.Meta[key] = v
	}
	return out
}

func (r *Reconciler) trackedKeys(b Bucket) []string {
	var keys []string
	switch b {
	case BucketAssets:
		keys = slices.Clone(project.AssetKeys)
	case BucketReasoning:
		keys = slices.Clone(project.ReasoningKeys)
	}
	for _, df := range []*project.DerivedFields{r.draft, r.persisted, r.original} {
		keys = append(keys, keysOf(df, b)...)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	if b == BucketMeta {
		keys = slices.DeleteFunc(keys, func(k string) bool { return strings.HasPrefix(k, "_") })
	}
	return keys
}

func keysOf(df *project.DerivedFields, b Bucket) []string {
	if df == nil {
		return nil
	}
	switch b {
	case BucketAssets:
		return slices.Collect(maps.Keys(df.Assets))
	case BucketReasoning:
		return slices.Collect(maps.Keys(df.Reasoning))
	case BucketMeta:
		return slices.Collect(maps.Keys(df.Meta))
	}
	return nil
}

func get(df *project.DerivedFields, b Bucket, key string) string {
	if df == nil {
		return ""
	}
	switch b {
	case BucketAssets:
		return df.Assets[key]
	case BucketReasoning:
		return df.Reasoning[key]
	case BucketMeta:
		return project.FieldString(df.Meta[key])
	}
	return ""
}

// copyField sets dst's value for key to src's, removing it when src has none.
func copyField(dst, src *project.DerivedFields, b Bucket, key string) {
	switch b {
	case BucketAssets:
		if v, ok := src.Assets[key]; ok {
			_ = put(dst, b, key, v)
		} else {
			delete(dst.Assets, key)
		}
	case BucketReasoning:
		if v, ok := src.Reasoning[key]; ok {
			_ = put(dst, b, key, v)
		} else {
			delete(dst.Reasoning, key)
		}
	case BucketMeta:
		if v, ok := src.Meta[key]; ok {
			if dst.Meta == nil {
				dst.Meta = make(map[string]any)
			}
			dst.Meta[key] = v
		} else {
			delete(dst.Meta, key)
		}
	}
}

func put(df *project.DerivedFields, b Bucket, key, value string) error {
	switch b {
	case BucketAssets:
		if df.Assets == nil {
			df.Assets = make(map[string]string)
		}
		df.Assets[key] = value
	case BucketReasoning:
		if df.Reasoning == nil {
			df.Reasoning = make(map[string]string)
		}
		df.Reasoning[key] = value
	case BucketMeta:
		if df.Meta == nil {
			df.Meta = make(map[string]any)
		}
		df.Meta[key] = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBucket, b)
	}
	return nil
}
