package store

import "storyboard-server/modules/common/model"

// ScenePatch - partial scene update. Nil fields are left untouched; non-nil
// fields overwrite, including overwriting with the zero value. The patch
// decodes directly from the update JSON the UI sends.
type ScenePatch struct {
	Title *string `json:"title,omitempty"`

	ImageOptions *[]model.UploadedImage `json:"imageOptions,omitempty"`
	MainImage    *int                   `json:"mainImage,omitempty"`
	Sketch       *model.UploadedImage   `json:"sketch,omitempty"`
	ClearSketch  *bool                  `json:"clearSketch,omitempty"`
	Annotations  *[]model.Annotation    `json:"annotations,omitempty"`

	ImagePrompt *string `json:"imagePrompt,omitempty"`
	VideoPrompt *string `json:"videoPrompt,omitempty"`

	Style          *model.VisualStyle `json:"style,omitempty"`
	Action         *string            `json:"action,omitempty"`
	Setting        *string            `json:"setting,omitempty"`
	Lighting       *string            `json:"lighting,omitempty"`
	ColorPalette   *string            `json:"colorPalette,omitempty"`
	SoundDesign    *string            `json:"soundDesign,omitempty"`
	EmotionalTone  *string            `json:"emotionalTone,omitempty"`
	VisualEffects  *string            `json:"visualEffects,omitempty"`
	CameraAngle    *string            `json:"cameraAngle,omitempty"`
	CuttingStyle   *string            `json:"cuttingStyle,omitempty"`
	Transition     *string            `json:"transition,omitempty"`
	Duration       *int               `json:"duration,omitempty"`
	NegativePrompt *string            `json:"negativePrompt,omitempty"`
	Seed           *int64             `json:"seed,omitempty"`
	SeedStrength   *float64           `json:"seedStrength,omitempty"`

	UseAdvancedVideoSettings *bool `json:"useAdvancedVideoSettings,omitempty"`

	CharacterIDs *[]string `json:"characterIds,omitempty"`
	LocationIDs  *[]string `json:"locationIds,omitempty"`

	ImageModel *string `json:"imageModel,omitempty"`

	VideoStatus        *model.VideoStatus `json:"videoStatus,omitempty"`
	VideoURL           *string            `json:"videoUrl,omitempty"`
	VideoStatusMessage *string            `json:"videoStatusMessage,omitempty"`
	VideoTaskID        *string            `json:"videoTaskId,omitempty"`
}

// promptRelevant reports whether the patch touches any field the derived
// prompts are computed from. Image option and video lifecycle fields never
// count.
func (p ScenePatch) promptRelevant() bool {
	return p.Title != nil ||
		p.Style != nil ||
		p.Action != nil ||
		p.Setting != nil ||
		p.Lighting != nil ||
		p.ColorPalette != nil ||
		p.SoundDesign != nil ||
		p.EmotionalTone != nil ||
		p.VisualEffects != nil ||
		p.CameraAngle != nil ||
		p.CuttingStyle != nil ||
		p.Transition != nil ||
		p.Duration != nil ||
		p.NegativePrompt != nil ||
		p.UseAdvancedVideoSettings != nil ||
		p.CharacterIDs != nil ||
		p.LocationIDs != nil ||
		p.Annotations != nil
}

func (p ScenePatch) apply(sc *model.Scene) {
	if p.Title != nil {
		sc.Title = *p.Title
	}
	if p.ImageOptions != nil {
		opts := *p.ImageOptions
		if len(opts) > model.MaxImageOptions {
			opts = opts[:model.MaxImageOptions]
		}
		sc.ImageOptions = opts
		if sc.MainImage >= len(opts) {
			sc.MainImage = len(opts) - 1
		}
	}
	if p.MainImage != nil {
		// main image must point into the option list, -1 means unset
		main := *p.MainImage
		if main >= len(sc.ImageOptions) {
			main = len(sc.ImageOptions) - 1
		}
		if main < 0 {
			main = -1
		}
		sc.MainImage = main
	}
	if p.Sketch != nil {
		sc.Sketch = p.Sketch
	}
	if p.ClearSketch != nil && *p.ClearSketch {
		sc.Sketch = nil
	}
	if p.Annotations != nil {
		sc.Annotations = *p.Annotations
	}
	if p.ImagePrompt != nil {
		sc.ImagePrompt = *p.ImagePrompt
	}
	if p.VideoPrompt != nil {
		sc.VideoPrompt = *p.VideoPrompt
	}
	if p.Style != nil {
		sc.Style = *p.Style
	}
	if p.Action != nil {
		sc.Action = *p.Action
	}
	if p.Setting != nil {
		sc.Setting = *p.Setting
	}
	if p.Lighting != nil {
		sc.Lighting = *p.Lighting
	}
	if p.ColorPalette != nil {
		sc.ColorPalette = *p.ColorPalette
	}
	if p.SoundDesign != nil {
		sc.SoundDesign = *p.SoundDesign
	}
	if p.EmotionalTone != nil {
		sc.EmotionalTone = *p.EmotionalTone
	}
	if p.VisualEffects != nil {
		sc.VisualEffects = *p.VisualEffects
	}
	if p.CameraAngle != nil {
		sc.CameraAngle = *p.CameraAngle
	}
	if p.CuttingStyle != nil {
		sc.CuttingStyle = *p.CuttingStyle
	}
	if p.Transition != nil {
		sc.Transition = *p.Transition
	}
	if p.Duration != nil {
		sc.Duration = *p.Duration
	}
	if p.NegativePrompt != nil {
		sc.NegativePrompt = *p.NegativePrompt
	}
	if p.Seed != nil {
		sc.Seed = *p.Seed
	}
	if p.SeedStrength != nil {
		sc.SeedStrength = *p.SeedStrength
	}
	if p.UseAdvancedVideoSettings != nil {
		sc.UseAdvancedVideoSettings = *p.UseAdvancedVideoSettings
	}
	if p.CharacterIDs != nil {
		sc.CharacterIDs = *p.CharacterIDs
	}
	if p.LocationIDs != nil {
		sc.LocationIDs = *p.LocationIDs
	}
	if p.ImageModel != nil {
		sc.ImageModel = *p.ImageModel
	}
	if p.VideoStatus != nil {
		sc.VideoStatus = *p.VideoStatus
	}
	if p.VideoURL != nil {
		sc.VideoURL = *p.VideoURL
	}
	if p.VideoStatusMessage != nil {
		sc.VideoStatusMessage = *p.VideoStatusMessage
	}
	if p.VideoTaskID != nil {
		sc.VideoTaskID = *p.VideoTaskID
	}
}

// CharacterPatch - partial character update
type CharacterPatch struct {
	Name                *string              `json:"name,omitempty"`
	Description         *string              `json:"description,omitempty"`
	ReferenceImage      *model.UploadedImage `json:"referenceImage,omitempty"`
	ClearReferenceImage *bool                `json:"clearReferenceImage,omitempty"`
	Status              *model.EntityStatus  `json:"status,omitempty"`
}

func (p CharacterPatch) apply(c *model.Character) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.ReferenceImage != nil {
		c.ReferenceImage = p.ReferenceImage
	}
	if p.ClearReferenceImage != nil && *p.ClearReferenceImage {
		c.ReferenceImage = nil
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
}

// LocationPatch - partial location update
type LocationPatch struct {
	Name                *string              `json:"name,omitempty"`
	Description         *string              `json:"description,omitempty"`
	ReferenceImage      *model.UploadedImage `json:"referenceImage,omitempty"`
	ClearReferenceImage *bool                `json:"clearReferenceImage,omitempty"`
	Status              *model.EntityStatus  `json:"status,omitempty"`
}

func (p LocationPatch) apply(l *model.Location) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.ReferenceImage != nil {
		l.ReferenceImage = p.ReferenceImage
	}
	if p.ClearReferenceImage != nil && *p.ClearReferenceImage {
		l.ReferenceImage = nil
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
}

// Ptr - tiny helper for building patches inline
func Ptr[T any](v T) *T { return &v }
