package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"storyboard-server/modules/busy"
	"storyboard-server/modules/common/model"
	"storyboard-server/modules/common/storage"
	"storyboard-server/modules/common/utils"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/store"
)

// GenerateSceneImage generates a still for the scene and appends it to the
// scene's image options, marking it as the main image
func (o *Orchestrator) GenerateSceneImage(ctx context.Context, sceneID string) error {
	return o.busy.WithBusy(ctx, busy.KindScene, sceneID, func(ctx context.Context) error {
		return o.generateSceneImage(ctx, sceneID, "")
	})
}

func (o *Orchestrator) generateSceneImage(ctx context.Context, sceneID, shotOverride string) error {
	sc, _, ok := o.store.SceneByID(sceneID)
	if !ok {
		return store.ErrIndexOutOfBounds
	}

	req := o.imageRequestFor(sc, shotOverride)
	img, err := runWithFallback(ctx, o, o.registry.Image, "Image generation",
		func(ctx context.Context, p provider.ImageProvider) (model.UploadedImage, error) {
			return p.GenerateImage(ctx, req)
		})
	if err != nil {
		return err
	}

	o.persistImage(ctx, sceneID, storage.AssetSceneImage, &img)
	return o.appendImageOption(sceneID, img)
}

// EditSceneImage regenerates the scene's main image following an edit
// instruction, keeping the current image as the anchor
func (o *Orchestrator) EditSceneImage(ctx context.Context, sceneID, instruction string) error {
	return o.busy.WithBusy(ctx, busy.KindScene, sceneID, func(ctx context.Context) error {
		sc, _, ok := o.store.SceneByID(sceneID)
		if !ok {
			return store.ErrIndexOutOfBounds
		}
		if sc.MainImage < 0 || sc.MainImage >= len(sc.ImageOptions) {
			return fmt.Errorf("scene %q has no image to edit", sc.Title)
		}

		base := sc.ImageOptions[sc.MainImage]
		req := o.imageRequestFor(sc, "")
		req.Prompt = instruction + "\n\nKeep everything else about the image unchanged."
		req.BaseImage = &base

		img, err := runWithFallback(ctx, o, o.registry.Image, "Image edit",
			func(ctx context.Context, p provider.ImageProvider) (model.UploadedImage, error) {
				return p.EditImage(ctx, req)
			})
		if err != nil {
			return err
		}

		o.persistImage(ctx, sceneID, storage.AssetSceneImage, &img)
		return o.appendImageOption(sceneID, img)
	})
}

// GenerateMoreImageOptions asks the text provider for alternative shot types,
// drops the scene's current framing, and generates the remaining suggestions
// in parallel. Partial failure is fine; the call fails only when every
// suggestion fails.
func (o *Orchestrator) GenerateMoreImageOptions(ctx context.Context, sceneID string) error {
	return o.busy.WithBusy(ctx, busy.KindScene, sceneID, func(ctx context.Context) error {
		sc, _, ok := o.store.SceneByID(sceneID)
		if !ok {
			return store.ErrIndexOutOfBounds
		}

		shots, err := runWithFallback(ctx, o, o.registry.Text, "Shot suggestion",
			func(ctx context.Context, p provider.TextProvider) ([]string, error) {
				return p.SuggestShotTypes(ctx, sc)
			})
		if err != nil {
			return err
		}

		var candidates []string
		for _, shot := range shots {
			if shot != sc.CameraAngle && shot != "" {
				candidates = append(candidates, shot)
			}
		}
		if len(candidates) > model.MaxImageOptions {
			candidates = candidates[:model.MaxImageOptions]
		}
		if len(candidates) == 0 {
			return fmt.Errorf("no alternative shot types suggested")
		}

		log.Printf("🎨 Generating %d image options for scene %q: %s",
			len(candidates), sc.Title, strings.Join(candidates, ", "))

		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error
		succeeded := 0

		for _, shot := range candidates {
			wg.Add(1)
			go func(shot string) {
				defer wg.Done()
				if err := o.generateSceneImage(ctx, sceneID, shot); err != nil {
					log.Printf("⚠️  Option %q failed: %v", shot, err)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
			}(shot)
		}
		wg.Wait()

		if succeeded == 0 {
			return fmt.Errorf("all image options failed: %w", firstErr)
		}
		return nil
	})
}

// GenerateCharacterReferenceImage renders a reference portrait for the
// character and promotes it from suggested to defined
func (o *Orchestrator) GenerateCharacterReferenceImage(ctx context.Context, characterID string, style model.VisualStyle) error {
	return o.busy.WithBusy(ctx, busy.KindCharacter, characterID, func(ctx context.Context) error {
		return o.generateCharacterReference(ctx, characterID, style)
	})
}

func (o *Orchestrator) generateCharacterReference(ctx context.Context, characterID string, style model.VisualStyle) error {
	chars := o.store.Characters()
	idx := -1
	for i, c := range chars {
		if c.ID == characterID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return store.ErrIndexOutOfBounds
	}
	c := chars[idx]

	req := provider.ImageRequest{
		Prompt: fmt.Sprintf(
			"Character reference sheet in a %s style. Full-body portrait of %s on a neutral background, even lighting, facing the camera. %s",
			provider.StyleWording(style), c.Name, c.Description),
		AspectRatio: "3:4",
	}
	img, err := runWithFallback(ctx, o, o.registry.Image, "Reference image generation",
		func(ctx context.Context, p provider.ImageProvider) (model.UploadedImage, error) {
			return p.GenerateImage(ctx, req)
		})
	if err != nil {
		return err
	}
	img.Name = c.Name

	o.persistImage(ctx, characterID, storage.AssetReferenceImage, &img)
	return o.store.UpdateCharacter(idx, store.CharacterPatch{
		ReferenceImage: &img,
		Status:         store.Ptr(model.StatusDefined),
	})
}

// GenerateLocationReferenceImage - same flow for a location
func (o *Orchestrator) GenerateLocationReferenceImage(ctx context.Context, locationID string, style model.VisualStyle) error {
	return o.busy.WithBusy(ctx, busy.KindLocation, locationID, func(ctx context.Context) error {
		return o.generateLocationReference(ctx, locationID, style)
	})
}

func (o *Orchestrator) generateLocationReference(ctx context.Context, locationID string, style model.VisualStyle) error {
	locs := o.store.Locations()
	idx := -1
	for i, l := range locs {
		if l.ID == locationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return store.ErrIndexOutOfBounds
	}
	l := locs[idx]

	req := provider.ImageRequest{
		Prompt: fmt.Sprintf(
			"Location reference plate in a %s style. Wide establishing view of %s, no people in frame. %s",
			provider.StyleWording(style), l.Name, l.Description),
		AspectRatio: "16:9",
	}
	img, err := runWithFallback(ctx, o, o.registry.Image, "Reference image generation",
		func(ctx context.Context, p provider.ImageProvider) (model.UploadedImage, error) {
			return p.GenerateImage(ctx, req)
		})
	if err != nil {
		return err
	}
	img.Name = l.Name

	o.persistImage(ctx, locationID, storage.AssetReferenceImage, &img)
	return o.store.UpdateLocation(idx, store.LocationPatch{
		ReferenceImage: &img,
		Status:         store.Ptr(model.StatusDefined),
	})
}

// GenerateAllSceneImages - batch image generation over every scene. Each
// scene gets its attempt; the returned count is the number of failures.
// Per-item errors stay out of the sink, the caller reports the summary.
func (o *Orchestrator) GenerateAllSceneImages(ctx context.Context) int {
	scenes := o.store.Scenes()
	return o.progress.RunBatch(ctx, KeyBatchGenerating, "Generating scene images", len(scenes),
		func(ctx context.Context, i int) error {
			return o.busy.WithBusyQuiet(ctx, busy.KindScene, scenes[i].ID, func(ctx context.Context) error {
				return o.generateSceneImage(ctx, scenes[i].ID, "")
			})
		})
}

// GenerateAllReferenceImages - reference images for every character and
// location still in the suggested state
func (o *Orchestrator) GenerateAllReferenceImages(ctx context.Context, style model.VisualStyle) int {
	type item struct {
		id        string
		character bool
	}
	var items []item
	for _, c := range o.store.Characters() {
		if c.Status == model.StatusSuggested {
			items = append(items, item{id: c.ID, character: true})
		}
	}
	for _, l := range o.store.Locations() {
		if l.Status == model.StatusSuggested {
			items = append(items, item{id: l.ID})
		}
	}

	return o.progress.RunBatch(ctx, KeyGeneratingRefImages, "Generating reference images", len(items),
		func(ctx context.Context, i int) error {
			if items[i].character {
				return o.busy.WithBusyQuiet(ctx, busy.KindCharacter, items[i].id, func(ctx context.Context) error {
					return o.generateCharacterReference(ctx, items[i].id, style)
				})
			}
			return o.busy.WithBusyQuiet(ctx, busy.KindLocation, items[i].id, func(ctx context.Context) error {
				return o.generateLocationReference(ctx, items[i].id, style)
			})
		})
}

// boardStyle - the style of the first scene, cinematic when no scenes exist
func (o *Orchestrator) boardStyle() model.VisualStyle {
	scenes := o.store.Scenes()
	if len(scenes) > 0 && scenes[0].Style != "" {
		return scenes[0].Style
	}
	return model.StyleCinematic
}

// imageRequestFor builds the provider request for a scene: derived prompt,
// reference images of the entities it cites, and the consistency preamble
// telling the model how strictly to honor each reference
func (o *Orchestrator) imageRequestFor(sc model.Scene, shotOverride string) provider.ImageRequest {
	chars, locs := o.store.ReferencedEntities(sc)

	promptText := sc.ImagePrompt
	if shotOverride != "" {
		alt := sc
		alt.CameraAngle = shotOverride
		promptText = o.synth.ImagePrompt(alt, chars, locs)
	}

	var refs []provider.Reference
	var charNames, locNames []string
	for _, c := range chars {
		if c.ReferenceImage != nil {
			refs = append(refs, provider.Reference{
				Kind: "character", Name: c.Name,
				Data: c.ReferenceImage.Data, MimeType: c.ReferenceImage.MimeType,
			})
			charNames = append(charNames, c.Name)
		}
	}
	for _, l := range locs {
		if l.ReferenceImage != nil {
			refs = append(refs, provider.Reference{
				Kind: "location", Name: l.Name,
				Data: l.ReferenceImage.Data, MimeType: l.ReferenceImage.MimeType,
			})
			locNames = append(locNames, l.Name)
		}
	}

	if prefix := consistencyPrefix(charNames, locNames); prefix != "" {
		promptText = prefix + "\n\n" + promptText
	}

	return provider.ImageRequest{
		Prompt:         promptText,
		NegativePrompt: sc.NegativePrompt,
		AspectRatio:    "16:9",
		References:     refs,
		Seed:           sc.Seed,
		SeedStrength:   sc.SeedStrength,
		Model:          sc.ImageModel,
	}
}

// consistencyPrefix - reference handling rules. Characters demand strict
// visual fidelity; locations keep their atmosphere but get a new framing.
func consistencyPrefix(charNames, locNames []string) string {
	var parts []string
	if len(charNames) > 0 {
		parts = append(parts, fmt.Sprintf(
			"The attached reference images define these characters: %s. Render each of them exactly as shown in their reference image: same face, hair, build and wardrobe.",
			strings.Join(charNames, ", ")))
	}
	if len(locNames) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Reference images of these locations are attached: %s. Preserve each location's atmosphere, materials and lighting, but compose a new framing of the space instead of copying the reference view.",
			strings.Join(locNames, ", ")))
	}
	return strings.Join(parts, " ")
}

// appendImageOption - store append under one lock so parallel option
// generators never clobber each other
func (o *Orchestrator) appendImageOption(sceneID string, img model.UploadedImage) error {
	return o.store.AppendSceneImage(sceneID, img)
}

// persistImage uploads the image to asset storage when configured, recording
// the stored URL back on the image value. Failures only log; generation
// results never depend on persistence.
func (o *Orchestrator) persistImage(ctx context.Context, entityID string, kind storage.AssetKind, img *model.UploadedImage) {
	if o.assets == nil || !o.assets.Enabled() {
		return
	}
	_, data, err := utils.ParseDataURL(img.Data)
	if err != nil {
		log.Printf("⚠️  Skipping asset upload for %s: %v", entityID, err)
		return
	}
	url, err := o.assets.UploadImage(ctx, entityID, kind, data)
	if err != nil {
		log.Printf("⚠️  Asset upload failed for %s: %v", entityID, err)
		return
	}
	img.StoredURL = url
}
