package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/modules/common/model"
)

func TestStyleWordingFallsBackToCinematic(t *testing.T) {
	assert.Equal(t, "hand-drawn anime", StyleWording(model.StyleAnime))
	assert.Equal(t, StyleWording(model.StyleCinematic), StyleWording(model.VisualStyle("vaporwave")))
}

func TestScenesPromptEmbedsBlueprintAndCount(t *testing.T) {
	bp := model.Blueprint{
		Characters:   []model.Character{{Name: "Mira", Description: "a wiry engineer"}},
		Locations:    []model.Location{{Name: "Station", Description: "rusted platforms"}},
		StoryOutline: []string{"arrival", "discovery"},
	}

	got := ScenesPrompt("a robot explores", model.StyleRealistic, bp, 3)

	assert.Contains(t, got, "photorealistic documentary-style footage")
	assert.Contains(t, got, "- Mira: a wiry engineer")
	assert.Contains(t, got, "- Station: rusted platforms")
	assert.Contains(t, got, "exactly 3 scenes")
	assert.Contains(t, got, "Tracking Shot")
}

func TestBlueprintResponseToBlueprint(t *testing.T) {
	raw := `{
		"characters": [{"name": "Mira", "description": "a wiry engineer"}],
		"locations": [{"name": "Station", "description": "rusted platforms"}],
		"storyOutline": ["arrival", "discovery", "escape"]
	}`

	var resp BlueprintResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	bp := resp.ToBlueprint()
	require.Len(t, bp.Characters, 1)
	assert.Equal(t, "Mira", bp.Characters[0].Name)
	assert.Empty(t, bp.Characters[0].ID)
	assert.Equal(t, model.StatusSuggested, bp.Characters[0].Status)
	require.Len(t, bp.Locations, 1)
	assert.Equal(t, model.StatusSuggested, bp.Locations[0].Status)
	assert.Len(t, bp.StoryOutline, 3)
}

func TestPairAlternateReadiness(t *testing.T) {
	type fake struct{ name string }

	both := NewPair(&fake{"a"}, &fake{"b"}, nil)
	assert.True(t, both.AlternateReady())

	solo := NewPair[*fake](&fake{"a"}, nil, nil)
	assert.False(t, solo.AlternateReady())

	gated := NewPair(&fake{"a"}, &fake{"b"}, func() bool { return false })
	assert.False(t, gated.AlternateReady())
}
