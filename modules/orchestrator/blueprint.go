package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/store"
)

// GenerateBlueprint asks the text provider to propose characters, locations
// and an outline for the idea, assigns entity IDs and installs the result as
// the board's blueprint
func (o *Orchestrator) GenerateBlueprint(ctx context.Context, idea string, style model.VisualStyle) (model.Blueprint, error) {
	o.busy.SetGlobalBusy(KeyGeneratingBlueprint)
	defer o.busy.ClearGlobalBusy(KeyGeneratingBlueprint)

	bp, err := runWithFallback(ctx, o, o.registry.Text, "Blueprint generation",
		func(ctx context.Context, p provider.TextProvider) (model.Blueprint, error) {
			return p.GenerateBlueprint(ctx, idea, style)
		})
	if err != nil {
		return model.Blueprint{}, err
	}

	for i := range bp.Characters {
		bp.Characters[i].ID = uuid.NewString()
		bp.Characters[i].Status = model.StatusSuggested
	}
	for i := range bp.Locations {
		bp.Locations[i].ID = uuid.NewString()
		bp.Locations[i].Status = model.StatusSuggested
	}

	o.store.SetBlueprint(bp)
	log.Printf("✅ Blueprint accepted: %d characters, %d locations, %d beats",
		len(bp.Characters), len(bp.Locations), len(bp.StoryOutline))
	return bp, nil
}

// GenerateScenesFromBlueprint expands the current blueprint into scenes. The
// scene count is the video duration divided into standard-length clips,
// rounded up; a 16 second video gets 2 scenes.
func (o *Orchestrator) GenerateScenesFromBlueprint(ctx context.Context, idea string, style model.VisualStyle, durationSecs int) ([]model.Scene, error) {
	if durationSecs <= 0 {
		return nil, fmt.Errorf("video duration must be positive, got %d", durationSecs)
	}
	sceneCount := (durationSecs + model.SceneSeconds - 1) / model.SceneSeconds

	o.busy.SetGlobalBusy(KeyGeneratingScenes)
	defer o.busy.ClearGlobalBusy(KeyGeneratingScenes)

	bp := model.Blueprint{
		Characters:   o.store.Characters(),
		Locations:    o.store.Locations(),
		StoryOutline: o.store.StoryOutline(),
	}

	seeds, err := runWithFallback(ctx, o, o.registry.Text, "Scene generation",
		func(ctx context.Context, p provider.TextProvider) ([]model.SceneSeed, error) {
			return p.GenerateScenes(ctx, idea, style, bp, sceneCount)
		})
	if err != nil {
		return nil, err
	}

	scenes := make([]model.Scene, 0, len(seeds))
	for _, seed := range seeds {
		sc := o.sceneFromSeed(seed, style, bp)
		scenes = append(scenes, sc)
	}

	o.store.SetScenes(scenes)
	log.Printf("✅ %d scenes generated from blueprint", len(scenes))
	return scenes, nil
}

// sceneFromSeed - turn a provider scene seed into a full scene: assign an ID,
// resolve entity names to IDs, default the reference sets and synthesize the
// derived prompts
func (o *Orchestrator) sceneFromSeed(seed model.SceneSeed, style model.VisualStyle, bp model.Blueprint) model.Scene {
	sc := model.Scene{
		ID:            uuid.NewString(),
		Title:         seed.Title,
		Style:         style,
		Action:        seed.Action,
		Setting:       seed.Setting,
		Lighting:      seed.Lighting,
		ColorPalette:  seed.ColorPalette,
		SoundDesign:   seed.SoundDesign,
		EmotionalTone: seed.EmotionalTone,
		VisualEffects: seed.VisualEffects,
		CameraAngle:   seed.CameraAngle,
		CuttingStyle:  seed.CuttingStyle,
		Transition:    seed.Transition,
		Duration:      seed.Duration,
		MainImage:     -1,
		VideoStatus:   model.VideoIdle,
	}
	if sc.Duration <= 0 {
		sc.Duration = model.SceneSeconds
	}

	sc.CharacterIDs = resolveCharacterNames(seed.CharacterNames, bp.Characters)
	sc.LocationIDs = resolveLocationNames(seed.LocationNames, bp.Locations)

	sc.ImagePrompt = o.synth.ImagePrompt(sc, bp.Characters, bp.Locations)
	sc.VideoPrompt = o.synth.VideoPrompt(sc, bp.Characters, bp.Locations)
	return sc
}

// SuggestShotTypes - alternative framings for a scene, with fallback
func (o *Orchestrator) SuggestShotTypes(ctx context.Context, sceneID string) ([]string, error) {
	sc, _, ok := o.store.SceneByID(sceneID)
	if !ok {
		return nil, store.ErrIndexOutOfBounds
	}
	return runWithFallback(ctx, o, o.registry.Text, "Shot suggestion",
		func(ctx context.Context, p provider.TextProvider) ([]string, error) {
			return p.SuggestShotTypes(ctx, sc)
		})
}

// resolveCharacterNames maps names back to entity IDs, dropping names the
// blueprint doesn't know. A seed naming nobody references every character.
func resolveCharacterNames(names []string, chars []model.Character) []string {
	if len(names) == 0 {
		ids := make([]string, 0, len(chars))
		for _, c := range chars {
			ids = append(ids, c.ID)
		}
		return ids
	}
	var ids []string
	for _, name := range names {
		for _, c := range chars {
			if c.Name == name {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

func resolveLocationNames(names []string, locs []model.Location) []string {
	if len(names) == 0 {
		ids := make([]string, 0, len(locs))
		for _, l := range locs {
			ids = append(ids, l.ID)
		}
		return ids
	}
	var ids []string
	for _, name := range names {
		for _, l := range locs {
			if l.Name == name {
				ids = append(ids, l.ID)
				break
			}
		}
	}
	return ids
}
