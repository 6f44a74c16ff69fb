// Package push subscribes to the backend's project status channel.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rpggio/blueprint/internal/domain/project"
)

// ProjectPlaceholder is replaced by the project id in the subscription URL.
const ProjectPlaceholder = "{project_id}"

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Subscriber streams status events over a websocket, reconnecting with
// backoff until its context is done.
type Subscriber struct {
	urlTemplate string
	token       string
	dialer      *websocket.Dialer
	logger      *slog.Logger
	minBackoff  time.Duration
}

// NewSubscriber creates a subscriber. urlTemplate may contain
// ProjectPlaceholder; otherwise the project id is sent as a query parameter.
func NewSubscriber(urlTemplate, token string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Subscriber{
		urlTemplate: urlTemplate,
		token:       token,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second, ReadBufferSize: 4096, WriteBufferSize: 1024},
		logger:      logger,
		minBackoff:  minBackoff,
	}
}

// URL returns the subscription URL for a project.
func (s *Subscriber) URL(projectID string) (string, error) {
	if strings.Contains(s.urlTemplate, ProjectPlaceholder) {
		return strings.ReplaceAll(s.urlTemplate, ProjectPlaceholder, url.PathEscape(projectID)), nil
	}
	u, err := url.Parse(s.urlTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing push url: %w", err)
	}
	q := u.Query()
	q.Set("project_id", projectID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Stream delivers events for projectID to out until ctx is done. Events for
// other projects and undecodable frames are dropped.
func (s *Subscriber) Stream(ctx context.Context, projectID string, out chan<- project.StatusEvent) error {
	target, err := s.URL(projectID)
	if err != nil {
		return err
	}
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	backoff := s.minBackoff
	for {
		conn, _, err := s.dialer.DialContext(ctx, target, header)
		if err == nil {
			backoff = s.minBackoff
			err = s.read(ctx, conn, projectID, out)
		}
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("push channel lost, reconnecting", "project_id", projectID, "wait", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *Subscriber) read(ctx context.Context, conn *websocket.Conn, projectID string, out chan<- project.StatusEvent) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.logger.Debug("push channel connected", "project_id", projectID)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		ev, ok := decode(data)
		if !ok {
			s.logger.Debug("dropping push frame", "project_id", projectID, "bytes", len(data))
			continue
		}
		if ev.ProjectID == "" {
			ev.ProjectID = projectID
		}
		if ev.ProjectID != projectID {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type envelope struct {
	Type    string               `json:"type"`
	Payload *project.StatusEvent `json:"payload"`
}

// decode accepts a bare status event or one wrapped as {"type", "payload"}.
func decode(data []byte) (project.StatusEvent, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Payload != nil {
		return *env.Payload, true
	}
	var ev project.StatusEvent
	if err := json.Unmarshal(data, &ev); err != nil || (ev.Status == "" && ev.ProjectID == "") {
		return project.StatusEvent{}, false
	}
	return ev, true
}
