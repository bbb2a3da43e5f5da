package provider

import (
	"fmt"
	"strings"

	"storyboard-server/modules/common/model"
)

// styleWording - how each visual style is described to the text model
var styleWording = map[model.VisualStyle]string{
	model.StyleCinematic: "cinematic live-action film",
	model.StyleAnime:     "hand-drawn anime",
	model.StyleRealistic: "photorealistic documentary-style footage",
}

// StyleWording - descriptive phrase for a visual style
func StyleWording(style model.VisualStyle) string {
	if w, ok := styleWording[style]; ok {
		return w
	}
	return styleWording[model.StyleCinematic]
}

// BlueprintPrompt - instruction for proposing characters, locations and a
// story outline from a raw idea. The response must be a single JSON object.
func BlueprintPrompt(idea string, style model.VisualStyle) string {
	return fmt.Sprintf(`You are a storyboard development assistant for a %s production.

Read the story idea below and propose the recurring characters, the recurring locations, and a story outline.

Story idea:
%s

Respond with ONLY a JSON object in exactly this shape:
{
  "characters": [{"name": "...", "description": "..."}],
  "locations": [{"name": "...", "description": "..."}],
  "storyOutline": ["beat 1", "beat 2", "..."]
}

Rules:
- 1 to 4 characters, 1 to 3 locations, 3 to 6 outline beats.
- Descriptions are visual: appearance, wardrobe, mood, materials, light.
- Character and location names must be short and unique.`, StyleWording(style), idea)
}

// ScenesPrompt - instruction for expanding a blueprint into scene seeds. The
// response must be a JSON array with one object per scene.
func ScenesPrompt(idea string, style model.VisualStyle, bp model.Blueprint, sceneCount int) string {
	var chars []string
	for _, c := range bp.Characters {
		chars = append(chars, fmt.Sprintf("- %s: %s", c.Name, c.Description))
	}
	var locs []string
	for _, l := range bp.Locations {
		locs = append(locs, fmt.Sprintf("- %s: %s", l.Name, l.Description))
	}

	return fmt.Sprintf(`You are a storyboard development assistant for a %s production.

Story idea:
%s

Characters:
%s

Locations:
%s

Story outline:
%s

Break the story into exactly %d scenes of roughly %d seconds each.

Respond with ONLY a JSON array, one object per scene, in exactly this shape:
[{
  "title": "...",
  "action": "one sentence describing what happens on screen",
  "setting": "...",
  "lighting": "...",
  "colorPalette": "...",
  "soundDesign": "...",
  "emotionalTone": "...",
  "visualEffects": "...",
  "cameraAngle": "...",
  "cuttingStyle": "...",
  "transition": "...",
  "duration": %d,
  "characterNames": ["..."],
  "locationNames": ["..."]
}]

Rules:
- cameraAngle must be one of: Wide Shot, Medium Shot, Close-up, Extreme Close-up, Over-the-Shoulder, Low Angle, High Angle, Dutch Angle, Tracking Shot.
- cuttingStyle must be one of: Hard Cut, Jump Cut, Match Cut, Cross Cut, Cutaway, Smash Cut, Cutting on Action, None.
- transition must be one of: None, Fade, Dissolve, Wipe, Cut to Black.
- characterNames and locationNames must only use names listed above.`,
		StyleWording(style), idea,
		strings.Join(chars, "\n"), strings.Join(locs, "\n"),
		strings.Join(bp.StoryOutline, "\n"),
		sceneCount, model.SceneSeconds, model.SceneSeconds)
}

// ShotTypesPrompt - instruction for suggesting three alternative framings of
// an existing scene. The response must be a JSON array of strings.
func ShotTypesPrompt(sc model.Scene) string {
	return fmt.Sprintf(`A storyboard scene currently uses this framing: %q.

Scene action: %s
Emotional tone: %s

Suggest exactly 3 alternative shot types from this list that would frame the action differently:
Wide Shot, Medium Shot, Close-up, Extreme Close-up, Over-the-Shoulder, Low Angle, High Angle, Dutch Angle, Tracking Shot.

Respond with ONLY a JSON array of 3 strings.`, sc.CameraAngle, sc.Action, sc.EmotionalTone)
}

// BlueprintResponse - wire shape of a blueprint generation reply
type BlueprintResponse struct {
	Characters []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"characters"`
	Locations []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"locations"`
	StoryOutline []string `json:"storyOutline"`
}

// ToBlueprint - convert into the domain shape; IDs stay empty until the
// orchestrator assigns them
func (r BlueprintResponse) ToBlueprint() model.Blueprint {
	bp := model.Blueprint{StoryOutline: r.StoryOutline}
	for _, c := range r.Characters {
		bp.Characters = append(bp.Characters, model.Character{
			Name:        c.Name,
			Description: c.Description,
			Status:      model.StatusSuggested,
		})
	}
	for _, l := range r.Locations {
		bp.Locations = append(bp.Locations, model.Location{
			Name:        l.Name,
			Description: l.Description,
			Status:      model.StatusSuggested,
		})
	}
	return bp
}
