package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/export"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	p := &project.Project{
		ID: "p1",
		Epics: []*project.Epic{
			{ID: "e1", Title: "Onboarding", Stories: []*project.UserStory{
				{ID: "a", Content: "As a user, I sign up", Priority: project.PriorityHigh, Position: 100,
					DerivedFields: &project.DerivedFields{
						Assets:         map[string]string{project.AssetHook: "Start, fast", project.AssetCTA: "Go"},
						OverLimitCount: 1,
					}},
				{ID: "b", Content: "Invite a \"team\"", Priority: project.PriorityLow, Position: 200},
			}},
			{ID: "e2", Title: "Empty"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, p))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, export.Header(), records[0])

	first := records[1]
	require.Equal(t, []string{"Onboarding", "As a user, I sign up", "high", "100", "Start, fast"}, first[:5])
	require.Equal(t, "Go", first[len(first)-2])
	require.Equal(t, "1", first[len(first)-1])

	second := records[2]
	require.Equal(t, "Invite a \"team\"", second[1])
	require.Equal(t, "0", second[len(second)-1])
}

func TestWriteCSV_NilProjectWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}
