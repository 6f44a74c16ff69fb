package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/draft"
	"github.com/rpggio/blueprint/internal/reorder"
	"github.com/rpggio/blueprint/internal/workspace"
)

// Workspace defines the view-layer operations exposed as tools.
type Workspace interface {
	Project(projectID string) (*project.Project, error)
	Load(ctx context.Context, projectID string) (*project.Project, error)

	CreateEpic(ctx context.Context, projectID string, in project.EpicInput) (*project.Epic, error)
	UpdateEpic(ctx context.Context, projectID, epicID string, patch project.EpicPatch) (*project.Epic, error)
	DeleteEpic(ctx context.Context, projectID, epicID string) error
	CreateStory(ctx context.Context, projectID, epicID string, in project.StoryInput) (*project.UserStory, error)
	UpdateStory(ctx context.Context, projectID, storyID string, patch project.StoryPatch) (*project.UserStory, error)
	DeleteStory(ctx context.Context, projectID, storyID string) error
	MoveStory(ctx context.Context, projectID string, g reorder.Gesture) (*project.ReorderIntent, error)
	RetryGeneration(ctx context.Context, projectID string) error

	OpenStory(projectID, storyID string) (*draft.Reconciler, error)
	Draft(projectID string) (*draft.Reconciler, error)
	DraftStatus(projectID string) (*workspace.DraftState, error)

	RecentMutations(ctx context.Context, projectID string, limit int) ([]journal.Entry, error)
}

// Config contains server configuration.
type Config struct {
	Workspace     Workspace
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "blueprint",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Workspace)

	if cfg.Logger != nil {
		cfg.Logger.Debug("mcp server configured", "transport", cfg.TransportMode, "version", version)
	}
	return server
}
