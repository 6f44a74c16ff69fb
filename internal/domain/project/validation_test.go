package project_test

import (
	"testing"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestStoryInput_Validate(t *testing.T) {
	require.NoError(t, project.StoryInput{Content: "As a buyer...", Priority: project.PriorityHigh}.Validate())
	require.ErrorIs(t, project.StoryInput{}.Validate(), project.ErrInvalidInput)
	require.ErrorIs(t, project.StoryInput{Content: "x", Priority: "urgent"}.Validate(), project.ErrInvalidInput)
}

func TestEpicInput_Validate(t *testing.T) {
	require.NoError(t, project.EpicInput{Title: "Onboarding"}.Validate())
	require.ErrorIs(t, project.EpicInput{}.Validate(), project.ErrInvalidInput)
}

func TestStatusEvent_Validate(t *testing.T) {
	require.NoError(t, project.StatusEvent{ProjectID: "p1", Status: project.StatusGenerating, Progress: 40}.Validate())
	require.ErrorIs(t, project.StatusEvent{ProjectID: "p1", Progress: 140}.Validate(), project.ErrInvalidInput)
	require.ErrorIs(t, project.StatusEvent{ProjectID: "p1", Status: "done"}.Validate(), project.ErrInvalidInput)
	require.ErrorIs(t, project.StatusEvent{Status: project.StatusReady}.Validate(), project.ErrInvalidInput)
}

func TestStatus_Terminal(t *testing.T) {
	require.True(t, project.StatusReady.Terminal())
	require.True(t, project.StatusFailed.Terminal())
	require.False(t, project.StatusParsing.Terminal())
}
