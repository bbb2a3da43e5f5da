package model

import "time"

// VisualStyle - 3-way visual style selected when a board is created
type VisualStyle string

const (
	StyleCinematic VisualStyle = "cinematic"
	StyleAnime     VisualStyle = "anime"
	StyleRealistic VisualStyle = "realistic"
)

// EntityStatus - character/location lifecycle
type EntityStatus string

const (
	StatusSuggested EntityStatus = "suggested" // proposed by text generation, no reference image yet
	StatusDefined   EntityStatus = "defined"   // has a reference image or was finalized manually
)

// VideoStatus - per-scene video generation lifecycle
type VideoStatus string

const (
	VideoIdle       VideoStatus = "idle"
	VideoGenerating VideoStatus = "generating"
	VideoDone       VideoStatus = "done"
	VideoError      VideoStatus = "error"
)

// AnnotationType - director's annotation kinds on a scene sketch
type AnnotationType string

const (
	AnnotationNote   AnnotationType = "note"
	AnnotationPose   AnnotationType = "pose"
	AnnotationCamera AnnotationType = "camera"
)

// Annotation - freeform director's note pinned onto a scene, position normalized 0-100
type Annotation struct {
	Type AnnotationType `json:"type"`
	Text string         `json:"text"`
	X    float64        `json:"x"`
	Y    float64        `json:"y"`
}

// UploadedImage - in-memory image value object.
// ProviderRef is an opaque handle a provider returned after registering the
// bytes server-side, kept so the same bytes are not re-uploaded.
type UploadedImage struct {
	Data        string `json:"data"` // base64 payload, no data-URL prefix
	MimeType    string `json:"mimeType"`
	Size        int    `json:"size"`
	Name        string `json:"name"`
	ProviderRef string `json:"providerRef,omitempty"`
	StoredURL   string `json:"storedUrl,omitempty"` // storage URL once persisted
}

// MaxImageOptions - cap on candidate images kept per scene
const MaxImageOptions = 3

// SceneSeconds - nominal length of one scene clip
const SceneSeconds = 8

// Scene - one video segment of the storyboard
type Scene struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	ImageOptions []UploadedImage `json:"imageOptions"` // len <= MaxImageOptions
	MainImage    int             `json:"mainImage"`    // index into ImageOptions, -1 when unset
	Sketch       *UploadedImage  `json:"sketch,omitempty"`
	Annotations  []Annotation    `json:"annotations,omitempty"`

	// Derived prompts. Recomputed from the structured fields below unless the
	// caller set them explicitly in the same update.
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`

	Style          VisualStyle `json:"style"`
	Action         string      `json:"action"`
	Setting        string      `json:"setting"`
	Lighting       string      `json:"lighting"`
	ColorPalette   string      `json:"colorPalette"`
	SoundDesign    string      `json:"soundDesign"`
	EmotionalTone  string      `json:"emotionalTone"`
	VisualEffects  string      `json:"visualEffects"`
	CameraAngle    string      `json:"cameraAngle"`
	CuttingStyle   string      `json:"cuttingStyle"`
	Transition     string      `json:"transition"` // transition to the next scene
	Duration       int         `json:"duration"`   // seconds
	NegativePrompt string      `json:"negativePrompt"`
	Seed           int64       `json:"seed"`
	SeedStrength   float64     `json:"seedStrength"`

	UseAdvancedVideoSettings bool `json:"useAdvancedVideoSettings"`

	CharacterIDs []string `json:"characterIds"`
	LocationIDs  []string `json:"locationIds"`

	ImageModel string `json:"imageModel,omitempty"` // per-scene image provider/model override

	VideoStatus        VideoStatus `json:"videoStatus"`
	VideoURL           string      `json:"videoUrl,omitempty"`
	VideoStatusMessage string      `json:"videoStatusMessage,omitempty"`
	VideoTaskID        string      `json:"videoTaskId,omitempty"` // external job id for polling providers
}

// Character - a recurring person in the storyboard, referenced by scenes via ID
type Character struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ReferenceImage *UploadedImage `json:"referenceImage,omitempty"`
	Status         EntityStatus   `json:"status"`
}

// Location - a recurring place, same shape as Character
type Location struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ReferenceImage *UploadedImage `json:"referenceImage,omitempty"`
	Status         EntityStatus   `json:"status"`
}

// Blueprint - AI-proposed characters, locations and outline for an idea,
// produced before any scenes exist
type Blueprint struct {
	Characters   []Character `json:"characters"`
	Locations    []Location  `json:"locations"`
	StoryOutline []string    `json:"storyOutline"`
}

// SceneSeed - the field set a text provider returns per scene when expanding a
// blueprint; the orchestrator resolves names into entity IDs
type SceneSeed struct {
	Title          string   `json:"title"`
	Action         string   `json:"action"`
	Setting        string   `json:"setting"`
	Lighting       string   `json:"lighting"`
	ColorPalette   string   `json:"colorPalette"`
	SoundDesign    string   `json:"soundDesign"`
	EmotionalTone  string   `json:"emotionalTone"`
	VisualEffects  string   `json:"visualEffects"`
	CameraAngle    string   `json:"cameraAngle"`
	CuttingStyle   string   `json:"cuttingStyle"`
	Transition     string   `json:"transition"`
	Duration       int      `json:"duration"`
	CharacterNames []string `json:"characterNames"`
	LocationNames  []string `json:"locationNames"`
}

// ProviderModels - model listing returned by a provider after key validation
type ProviderModels struct {
	TextModels  []string `json:"textModels,omitempty"`
	ImageModels []string `json:"imageModels,omitempty"`
	VideoModels []string `json:"videoModels,omitempty"`
}

// CredentialStatus - validation state of stored provider credentials
type CredentialStatus string

const (
	CredentialIdle          CredentialStatus = "idle"
	CredentialValidating    CredentialStatus = "validating"
	CredentialValid         CredentialStatus = "valid"
	CredentialError         CredentialStatus = "error"
	CredentialEnvConfigured CredentialStatus = "env_configured"
)

// ProviderCredentials - persisted per-provider API configuration
type ProviderCredentials struct {
	Provider   string           `json:"provider"`
	APIKey     string           `json:"apiKey"`
	Status     CredentialStatus `json:"status"`
	TextModel  string           `json:"textModel,omitempty"`
	ImageModel string           `json:"imageModel,omitempty"`
	VideoModel string           `json:"videoModel,omitempty"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}
