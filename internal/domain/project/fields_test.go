package project_test

import (
	"testing"

	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestMeasure_UsesLimitsAndCountsRunes(t *testing.T) {
	df := &project.DerivedFields{
		Assets: map[string]string{
			project.AssetCTA:      "Réservez maintenant",
			project.AssetGoogleH1: "A headline that is far too long for Google",
		},
		Limits: map[string]int{project.AssetCTA: 25, project.AssetGoogleH1: 30},
	}

	measured := project.Measure(df)
	require.Equal(t, 19, measured.CharCounts[project.AssetCTA])
	require.Equal(t, []string{project.AssetGoogleH1}, measured.OverLimitFields)
	require.Equal(t, 1, measured.OverLimitCount)
	require.Nil(t, df.CharCounts, "input must not be mutated")
}

func TestMeasure_FallsBackToDefaultLimits(t *testing.T) {
	df := &project.DerivedFields{
		Assets: map[string]string{project.AssetCTA: "This call to action is way too long"},
	}
	measured := project.Measure(df)
	require.Equal(t, 1, measured.OverLimitCount)
	require.Nil(t, project.Measure(nil))
}

func TestDerivedFieldsClone_IsDeep(t *testing.T) {
	df := &project.DerivedFields{
		Assets: map[string]string{project.AssetHook: "hook"},
		Meta:   map[string]any{"var_id": "v1"},
	}
	cp := df.Clone()
	cp.Assets[project.AssetHook] = "changed"
	cp.Meta["var_id"] = "v2"
	require.Equal(t, "hook", df.Assets[project.AssetHook])
	require.Equal(t, "v1", df.Meta["var_id"])
}

func TestFieldString(t *testing.T) {
	require.Equal(t, "", project.FieldString(nil))
	require.Equal(t, "x", project.FieldString("x"))
	require.Equal(t, "3", project.FieldString(3))
}
