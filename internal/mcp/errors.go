package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/remote"
	"github.com/rpggio/blueprint/internal/workspace"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain and backend errors to MCP error codes. The message is
// what a user should be shown.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, optimistic.ErrNotCached):
		return &APIError{Code: "NOT_LOADED", Message: "project is not loaded", RecoveryHint: "Call load_project first"}
	case errors.Is(err, optimistic.ErrUnconfirmedID):
		return &APIError{Code: "UNCONFIRMED_ID", Message: "the referenced item has not been saved yet", RecoveryHint: "Wait for the create call to finish"}
	case errors.Is(err, workspace.ErrNoOpenStory):
		return &APIError{Code: "NO_OPEN_STORY", Message: "no story is open", RecoveryHint: "Call open_story first"}
	case errors.Is(err, workspace.ErrStoryNotFound):
		return &APIError{Code: "STORY_NOT_FOUND", Message: "story not found", RecoveryHint: "Reload the project"}
	case errors.Is(err, draft.ErrUnknownBucket):
		return &APIError{Code: "UNKNOWN_BUCKET", Message: "unknown field bucket", RecoveryHint: "Use assets, reasoning or meta"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	}

	switch remote.Classify(err) {
	case remote.KindNetwork:
		return &APIError{Code: "NETWORK_ERROR", Message: remote.Message(err), RecoveryHint: "Retry when the connection is back"}
	case remote.KindValidation:
		return &APIError{Code: "VALIDATION_ERROR", Message: remote.Message(err), RecoveryHint: "Fix the input and retry"}
	case remote.KindServer:
		return &APIError{Code: "SERVER_ERROR", Message: remote.Message(err), RecoveryHint: "Retry shortly"}
	case remote.KindCanceled:
		return &APIError{Code: "CANCELED", Message: remote.Message(err)}
	}
	return &APIError{Code: "INTERNAL", Message: err.Error()}
}
