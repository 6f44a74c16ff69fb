// Package remote talks to the blueprint backend over its REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/blueprint/internal/domain/project"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 200 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client is the HTTP backend. Requests that fail without a response or with a
// 5xx status are retried with exponential backoff; 4xx responses never are.
type Client struct {
	base        *url.URL
	token       string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
	fetches     singleflight.Group
}

// New creates a client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}
	c := &Client{
		base:        base,
		token:       opts.Token,
		http:        opts.HTTPClient,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoff
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// FetchProject returns the full project. Concurrent fetches of one project
// share a single request.
func (c *Client) FetchProject(ctx context.Context, projectID string) (*project.Project, error) {
	ch := c.fetches.DoChan(projectID, func() (any, error) {
		var p project.Project
		if err := c.do(context.WithoutCancel(ctx), http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/", nil, &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*project.Project), nil
	}
}

type createEpicRequest struct {
	Project  string `json:"project"`
	Title    string `json:"title"`
	Position int    `json:"position,omitempty"`
}

// CreateEpic creates an epic in a project.
func (c *Client) CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error) {
	var e project.Epic
	body := createEpicRequest{Project: projectID, Title: in.Title, Position: in.Position}
	if err := c.do(ctx, http.MethodPost, "/api/epics/", body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEpic patches an epic.
func (c *Client) UpdateEpic(ctx context.Context, epicID string, patch project.EpicPatch) (*project.Epic, error) {
	var e project.Epic
	if err := c.do(ctx, http.MethodPatch, "/api/epics/"+url.PathEscape(epicID)+"/", patch, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEpic deletes an epic and its stories.
func (c *Client) DeleteEpic(ctx context.Context, epicID string) error {
	return c.do(ctx, http.MethodDelete, "/api/epics/"+url.PathEscape(epicID)+"/", nil, nil)
}

type createStoryRequest struct {
	Epic     string           `json:"epic"`
	Content  string           `json:"content"`
	Priority project.Priority `json:"priority,omitempty"`
	Status   string           `json:"status,omitempty"`
	Position int              `json:"position,omitempty"`
}

// CreateStory creates a story in an epic.
func (c *Client) CreateStory(ctx context.Context, epicID string, in project.StoryInput) (*project.UserStory, error) {
	var s project.UserStory
	body := createStoryRequest{Epic: epicID, Content: in.Content, Priority: in.Priority, Status: in.Status, Position: in.Position}
	if err := c.do(ctx, http.MethodPost, "/api/stories/", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStory patches a story.
func (c *Client) UpdateStory(ctx context.Context, storyID string, patch project.StoryPatch) (*project.UserStory, error) {
	var s project.UserStory
	if err := c.do(ctx, http.MethodPatch, "/api/stories/"+url.PathEscape(storyID)+"/", patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStory deletes a story.
func (c *Client) DeleteStory(ctx context.Context, storyID string) error {
	return c.do(ctx, http.MethodDelete, "/api/stories/"+url.PathEscape(storyID)+"/", nil, nil)
}

type reorderRequest struct {
	StoryID      string  `json:"story_id"`
	TargetEpicID string  `json:"target_epic_id"`
	BeforeID     *string `json:"before_id"`
	AfterID      *string `json:"after_id"`
}

// ReorderStory moves a story between two neighbors.
func (c *Client) ReorderStory(ctx context.Context, projectID string, intent project.ReorderIntent) error {
	body := reorderRequest{
		StoryID:      intent.StoryID,
		TargetEpicID: intent.TargetEpicID,
		BeforeID:     intent.BeforeStoryID,
		AfterID:      intent.AfterStoryID,
	}
	return c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/reorder-story/", body, nil)
}

// RestoreStory resets a story's derived fields to the AI original.
func (c *Client) RestoreStory(ctx context.Context, storyID string) (*project.UserStory, error) {
	var s project.UserStory
	if err := c.do(ctx, http.MethodPost, "/api/stories/"+url.PathEscape(storyID)+"/restore/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RetryGeneration restarts generation of a project.
func (c *Client) RetryGeneration(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/retry/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.once(ctx, method, path, payload, out)
		if err == nil || !Retryable(err) || attempt == c.maxAttempts {
			break
		}
		wait := c.backoff << (attempt - 1)
		c.logger.Debug("retrying backend call", "method", method, "path", path, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s %s: %w", method, path, ErrEmptyResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// serverMessage extracts a readable reason from an error body.
func serverMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
		var parts []string
		for field, v := range body {
			if msgs, ok := v.([]any); ok && len(msgs) > 0 {
				parts = append(parts, fmt.Sprintf("%s: %v", field, msgs[0]))
			}
		}
		if len(parts) > 0 {
			slices.Sort(parts)
			return strings.Join(parts, "; ")
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
