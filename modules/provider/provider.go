package provider

import (
	"context"

	"storyboard-server/modules/common/model"
)

// Reference - a character or location image passed along with an image
// request so the provider keeps the entity visually consistent
type Reference struct {
	Kind     string // "character" or "location"
	Name     string
	Data     string // base64 payload
	MimeType string
}

// ImageRequest - one image generation or edit call
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	References     []Reference
	BaseImage      *model.UploadedImage // edit target, nil for fresh generation
	Seed           int64
	SeedStrength   float64
	Model          string // provider-specific model override, "" for default
}

// VideoRequest - one image-to-video generation call
type VideoRequest struct {
	Prompt         string
	NegativePrompt string
	Image          model.UploadedImage // start frame
	DurationSecs   int
	Model          string
}

// TextProvider generates structured storyboard text. Responses are parsed
// JSON, never free text.
type TextProvider interface {
	Name() string
	ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error)
	GenerateBlueprint(ctx context.Context, idea string, style model.VisualStyle) (model.Blueprint, error)
	GenerateScenes(ctx context.Context, idea string, style model.VisualStyle, bp model.Blueprint, sceneCount int) ([]model.SceneSeed, error)
	SuggestShotTypes(ctx context.Context, sc model.Scene) ([]string, error)
}

// ImageProvider turns prompts (plus references) into still images
type ImageProvider interface {
	Name() string
	ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error)
	GenerateImage(ctx context.Context, req ImageRequest) (model.UploadedImage, error)
	EditImage(ctx context.Context, req ImageRequest) (model.UploadedImage, error)
}

// VideoProvider animates a still into a clip. Implementations poll their
// backend internally and report human-readable phase text through onProgress.
type VideoProvider interface {
	Name() string
	ValidateKey(ctx context.Context, apiKey string) (model.ProviderModels, error)
	GenerateVideo(ctx context.Context, req VideoRequest, onProgress func(message string)) (videoURL string, err error)
}
