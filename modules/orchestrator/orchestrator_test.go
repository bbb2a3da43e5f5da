package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/modules/busy"
	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/model"
	"storyboard-server/modules/progress"
	"storyboard-server/modules/prompt"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/store"
)

// --- mocks ---

type mockText struct {
	name      string
	blueprint model.Blueprint
	seeds     []model.SceneSeed
	shots     []string
	err       error
	calls     int
}

func (m *mockText) Name() string { return m.name }

func (m *mockText) ValidateKey(context.Context, string) (model.ProviderModels, error) {
	return model.ProviderModels{}, nil
}

func (m *mockText) GenerateBlueprint(context.Context, string, model.VisualStyle) (model.Blueprint, error) {
	m.calls++
	return m.blueprint, m.err
}

func (m *mockText) GenerateScenes(context.Context, string, model.VisualStyle, model.Blueprint, int) ([]model.SceneSeed, error) {
	m.calls++
	return m.seeds, m.err
}

func (m *mockText) SuggestShotTypes(context.Context, model.Scene) ([]string, error) {
	m.calls++
	return m.shots, m.err
}

type mockImage struct {
	name string
	err  error
	// errFor fails only requests whose prompt contains the key
	errFor string

	mu    sync.Mutex
	calls int
	reqs  []provider.ImageRequest
}

func (m *mockImage) Name() string { return m.name }

func (m *mockImage) ValidateKey(context.Context, string) (model.ProviderModels, error) {
	return model.ProviderModels{}, nil
}

func (m *mockImage) generate(req provider.ImageRequest) (model.UploadedImage, error) {
	m.mu.Lock()
	m.calls++
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if m.err != nil {
		return model.UploadedImage{}, m.err
	}
	if m.errFor != "" && strings.Contains(req.Prompt, m.errFor) {
		return model.UploadedImage{}, errors.New("503 unavailable")
	}
	return model.UploadedImage{
		Data:     "ZmFrZQ==",
		MimeType: "image/png",
		Name:     m.name,
	}, nil
}

func (m *mockImage) GenerateImage(_ context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	return m.generate(req)
}

func (m *mockImage) EditImage(_ context.Context, req provider.ImageRequest) (model.UploadedImage, error) {
	return m.generate(req)
}

type mockVideo struct {
	name string
	url  string
	errs []error // consumed one per call, nil slice means always succeed
	hook func() // runs at the start of every call

	mu    sync.Mutex
	calls int
}

func (m *mockVideo) Name() string { return m.name }

func (m *mockVideo) ValidateKey(context.Context, string) (model.ProviderModels, error) {
	return model.ProviderModels{}, nil
}

func (m *mockVideo) GenerateVideo(_ context.Context, _ provider.VideoRequest, onProgress func(string)) (string, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()

	if m.hook != nil {
		m.hook()
	}
	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if onProgress != nil {
		onProgress("Rendering video...")
	}
	return m.url, nil
}

// --- harness ---

type harness struct {
	orch          *Orchestrator
	store         *store.Store
	tracker       *busy.Tracker
	notifications []string
	sunk          []error
	mu            sync.Mutex
}

func (h *harness) Notify(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifications = append(h.notifications, message)
}

func (h *harness) notified() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notifications...)
}

func (h *harness) sinkErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.sunk...)
}

func newHarness(t *testing.T, reg *provider.Registry) *harness {
	t.Helper()
	h := &harness{}
	synth := prompt.New(rand.New(rand.NewSource(1)))
	h.store = store.New(synth, nil)
	h.tracker = busy.New(func(err error) {
		h.mu.Lock()
		h.sunk = append(h.sunk, err)
		h.mu.Unlock()
	}, nil)
	reporter := progress.New(h.tracker, 0, nil)
	h.orch = New(h.store, h.tracker, reporter, reg, synth, Options{
		Notifier:            h,
		RateLimitRetryDelay: time.Minute,
	})
	h.orch.sleep = func(time.Duration) {}
	return h
}

func textOnlyRegistry(preferred, alternate provider.TextProvider) *provider.Registry {
	return &provider.Registry{Text: provider.NewPair(preferred, alternate, nil)}
}

func seedBoard(h *harness) (sceneID string) {
	h.store.SetBlueprint(model.Blueprint{
		Characters: []model.Character{{ID: "c1", Name: "Mira", Status: model.StatusDefined}},
		Locations:  []model.Location{{ID: "l1", Name: "Station", Status: model.StatusDefined}},
	})
	h.store.SetScenes([]model.Scene{{
		ID:           "s1",
		Title:        "Opening",
		Style:        model.StyleCinematic,
		Action:       "doors open",
		CameraAngle:  "Wide Shot",
		CharacterIDs: []string{"c1"},
		LocationIDs:  []string{"l1"},
		Duration:     8,
		MainImage:    -1,
		VideoStatus:  model.VideoIdle,
		ImagePrompt:  "derived image prompt",
		VideoPrompt:  "derived video prompt",
	}})
	return "s1"
}

// --- fallback invariant ---

func TestFallbackNotifiesOnceAndUsesAlternate(t *testing.T) {
	preferred := &mockText{name: "gemini", err: errors.New("503 unavailable")}
	alternate := &mockText{name: "groq", blueprint: model.Blueprint{
		Characters: []model.Character{{Name: "Mira"}},
	}}
	h := newHarness(t, textOnlyRegistry(preferred, alternate))

	bp, err := h.orch.GenerateBlueprint(context.Background(), "a story", model.StyleCinematic)
	require.NoError(t, err)
	require.Len(t, bp.Characters, 1)

	assert.Equal(t, 1, preferred.calls)
	assert.Equal(t, 1, alternate.calls)

	notes := h.notified()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "groq")
	assert.Contains(t, notes[0], "gemini")
}

func TestNoAlternatePropagatesOriginalError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	preferred := &mockText{name: "gemini", err: boom}
	h := newHarness(t, textOnlyRegistry(preferred, nil))

	_, err := h.orch.GenerateBlueprint(context.Background(), "a story", model.StyleCinematic)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, h.notified())
}

func TestFallbackFailureReturnsAlternateError(t *testing.T) {
	altErr := errors.New("429 too many requests")
	preferred := &mockText{name: "gemini", err: errors.New("503 unavailable")}
	alternate := &mockText{name: "groq", err: altErr}
	h := newHarness(t, textOnlyRegistry(preferred, alternate))

	_, err := h.orch.GenerateBlueprint(context.Background(), "a story", model.StyleCinematic)
	assert.ErrorIs(t, err, altErr)
}

func TestMissingProviderFailsInsteadOfPanicking(t *testing.T) {
	h := newHarness(t, &provider.Registry{})
	sceneID := seedBoard(h)

	_, err := h.orch.GenerateBlueprint(context.Background(), "a story", model.StyleCinematic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider configured")

	err = h.orch.GenerateSceneImage(context.Background(), sceneID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider configured")
	assert.False(t, h.tracker.IsBusy(sceneID))

	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))
	err = h.orch.GenerateSceneVideo(context.Background(), sceneID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider configured")

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoError, sc.VideoStatus)
	assert.False(t, h.tracker.IsBusy(sceneID))
}

// --- blueprint and scenes ---

func TestGenerateBlueprintAssignsIDsAndSuggestedStatus(t *testing.T) {
	text := &mockText{name: "gemini", blueprint: model.Blueprint{
		Characters:   []model.Character{{Name: "Mira"}, {Name: "Jun"}},
		Locations:    []model.Location{{Name: "Station"}},
		StoryOutline: []string{"beat one"},
	}}
	h := newHarness(t, textOnlyRegistry(text, nil))

	bp, err := h.orch.GenerateBlueprint(context.Background(), "a story", model.StyleCinematic)
	require.NoError(t, err)

	for _, c := range bp.Characters {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, model.StatusSuggested, c.Status)
	}
	for _, l := range bp.Locations {
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, model.StatusSuggested, l.Status)
	}

	assert.Len(t, h.store.Characters(), 2)
	assert.Len(t, h.store.Locations(), 1)
	assert.Equal(t, []string{"beat one"}, h.store.StoryOutline())
	assert.False(t, h.tracker.IsGlobalBusy(KeyGeneratingBlueprint))
}

func TestGenerateScenesSplitsDurationIntoClips(t *testing.T) {
	text := &mockText{name: "gemini", seeds: []model.SceneSeed{
		{
			Title:          "Arrival",
			Action:         "a robot steps off the train",
			EmotionalTone:  "quiet",
			CharacterNames: []string{"Rover"},
			LocationNames:  []string{"Abandoned City"},
		},
		{
			Title:  "Exploration",
			Action: "the robot scans empty streets",
			// no names: defaults to every entity
		},
	}}
	h := newHarness(t, textOnlyRegistry(text, nil))
	h.store.SetBlueprint(model.Blueprint{
		Characters: []model.Character{{ID: "c1", Name: "Rover"}},
		Locations:  []model.Location{{ID: "l1", Name: "Abandoned City"}},
	})

	scenes, err := h.orch.GenerateScenesFromBlueprint(context.Background(),
		"a robot explores an abandoned city", model.StyleCinematic, 16)
	require.NoError(t, err)
	require.Len(t, scenes, 2)

	first := scenes[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.StyleCinematic, first.Style)
	assert.Equal(t, []string{"c1"}, first.CharacterIDs)
	assert.Equal(t, []string{"l1"}, first.LocationIDs)
	assert.Equal(t, model.SceneSeconds, first.Duration)
	assert.Equal(t, -1, first.MainImage)
	assert.Equal(t, model.VideoIdle, first.VideoStatus)
	assert.Contains(t, first.ImagePrompt, "Phong cách Điện ảnh")
	assert.Contains(t, first.ImagePrompt, "Abandoned City")
	assert.NotEmpty(t, first.VideoPrompt)

	// empty name lists reference everything
	second := scenes[1]
	assert.Equal(t, []string{"c1"}, second.CharacterIDs)
	assert.Equal(t, []string{"l1"}, second.LocationIDs)

	assert.Len(t, h.store.Scenes(), 2)
}

func TestGenerateScenesRejectsNonPositiveDuration(t *testing.T) {
	h := newHarness(t, textOnlyRegistry(&mockText{name: "gemini"}, nil))

	_, err := h.orch.GenerateScenesFromBlueprint(context.Background(), "idea", model.StyleCinematic, 0)
	assert.Error(t, err)
}

// --- images ---

func TestGenerateSceneImageAppendsOptionAndSetsMain(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	sceneID := seedBoard(h)

	require.NoError(t, h.orch.GenerateSceneImage(context.Background(), sceneID))

	sc, _, ok := h.store.SceneByID(sceneID)
	require.True(t, ok)
	require.Len(t, sc.ImageOptions, 1)
	assert.Equal(t, 0, sc.MainImage)
	assert.False(t, h.tracker.IsBusy(sceneID))
}

func TestGenerateSceneImageSendsConsistencyPrefix(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	sceneID := seedBoard(h)

	ref := model.UploadedImage{Data: "cmVm", MimeType: "image/png"}
	require.NoError(t, h.store.UpdateCharacter(0, store.CharacterPatch{ReferenceImage: &ref}))
	require.NoError(t, h.store.UpdateLocation(0, store.LocationPatch{ReferenceImage: &ref}))

	require.NoError(t, h.orch.GenerateSceneImage(context.Background(), sceneID))

	require.Len(t, img.reqs, 1)
	req := img.reqs[0]
	require.Len(t, req.References, 2)
	assert.Contains(t, req.Prompt, "same face, hair, build and wardrobe")
	assert.Contains(t, req.Prompt, "a new framing of the space instead of copying the reference view")
	assert.Equal(t, "16:9", req.AspectRatio)
}

func TestEditSceneImageRequiresMainImage(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	sceneID := seedBoard(h)

	err := h.orch.EditSceneImage(context.Background(), sceneID, "make it night")
	assert.Error(t, err)
	assert.Equal(t, 0, img.calls)
}

func TestEditSceneImagePassesBaseAndInstruction(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "b2xk", MimeType: "image/png"}))

	require.NoError(t, h.orch.EditSceneImage(context.Background(), sceneID, "make it night"))

	require.Len(t, img.reqs, 1)
	req := img.reqs[0]
	require.NotNil(t, req.BaseImage)
	assert.Equal(t, "b2xk", req.BaseImage.Data)
	assert.Contains(t, req.Prompt, "make it night")
	assert.Contains(t, req.Prompt, "Keep everything else about the image unchanged.")

	// edited result appended alongside the original
	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Len(t, sc.ImageOptions, 2)
	assert.Equal(t, 1, sc.MainImage)
}

func TestGenerateMoreImageOptionsPartialFailureSucceeds(t *testing.T) {
	text := &mockText{name: "gemini", shots: []string{"Wide Shot", "Close-up", "Low Angle", "High Angle"}}
	img := &mockImage{name: "gemini", errFor: "Low Angle"}
	h := newHarness(t, &provider.Registry{
		Text:  provider.NewPair[provider.TextProvider](text, nil, nil),
		Image: provider.NewPair[provider.ImageProvider](img, nil, nil),
	})
	sceneID := seedBoard(h)

	// "Wide Shot" matches the scene's current angle and is dropped; the other
	// three run, one fails
	require.NoError(t, h.orch.GenerateMoreImageOptions(context.Background(), sceneID))

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Len(t, sc.ImageOptions, 2)
}

func TestGenerateMoreImageOptionsAllFailed(t *testing.T) {
	text := &mockText{name: "gemini", shots: []string{"Close-up", "Low Angle"}}
	img := &mockImage{name: "gemini", err: errors.New("503 unavailable")}
	h := newHarness(t, &provider.Registry{
		Text:  provider.NewPair[provider.TextProvider](text, nil, nil),
		Image: provider.NewPair[provider.ImageProvider](img, nil, nil),
	})
	sceneID := seedBoard(h)

	err := h.orch.GenerateMoreImageOptions(context.Background(), sceneID)
	assert.Error(t, err)
}

func TestGenerateCharacterReferencePromotesStatus(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	h.store.AddCharacter(model.Character{ID: "c1", Name: "Mira", Description: "a wiry engineer", Status: model.StatusSuggested})

	require.NoError(t, h.orch.GenerateCharacterReferenceImage(context.Background(), "c1", model.StyleCinematic))

	chars := h.store.Characters()
	require.Len(t, chars, 1)
	assert.Equal(t, model.StatusDefined, chars[0].Status)
	require.NotNil(t, chars[0].ReferenceImage)
	assert.Equal(t, "Mira", chars[0].ReferenceImage.Name)

	require.Len(t, img.reqs, 1)
	assert.Equal(t, "3:4", img.reqs[0].AspectRatio)
	assert.Contains(t, img.reqs[0].Prompt, "Mira")
	assert.Contains(t, img.reqs[0].Prompt, "a wiry engineer")
}

func TestGenerateAllReferenceImagesOnlySuggested(t *testing.T) {
	img := &mockImage{name: "gemini"}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	h.store.AddCharacter(model.Character{ID: "c1", Name: "Mira", Status: model.StatusSuggested})
	h.store.AddCharacter(model.Character{ID: "c2", Name: "Jun", Status: model.StatusDefined})
	h.store.AddLocation(model.Location{ID: "l1", Name: "Station", Status: model.StatusSuggested})

	failed := h.orch.GenerateAllReferenceImages(context.Background(), model.StyleCinematic)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 2, img.calls)
}

func TestGenerateAllSceneImagesCountsFailures(t *testing.T) {
	img := &mockImage{name: "gemini", err: errors.New("503 unavailable")}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	seedBoard(h)

	failed := h.orch.GenerateAllSceneImages(context.Background())
	assert.Equal(t, 1, failed)
	assert.False(t, h.tracker.IsGlobalBusy(KeyBatchGenerating))

	// batch item failures are counted, not sunk; the caller sends one summary
	assert.Empty(t, h.sinkErrors())
}

func TestSingleSceneImageFailureReachesSink(t *testing.T) {
	img := &mockImage{name: "gemini", err: errors.New("503 unavailable")}
	h := newHarness(t, &provider.Registry{Image: provider.NewPair[provider.ImageProvider](img, nil, nil)})
	sceneID := seedBoard(h)

	err := h.orch.GenerateSceneImage(context.Background(), sceneID)
	require.Error(t, err)
	require.Len(t, h.sinkErrors(), 1)
}

func TestGenerateAllVideosKeepsItemErrorsOffTheSink(t *testing.T) {
	vid := &mockVideo{name: "veo", errs: []error{errors.New("task failed"), errors.New("task failed")}}
	h := newHarness(t, videoRegistry(vid, nil))
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	failed := h.orch.GenerateAllVideos(context.Background())
	assert.Equal(t, 1, failed)
	assert.Empty(t, h.sinkErrors())

	// the failure still lands on the scene itself
	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoError, sc.VideoStatus)
}

// --- video lifecycle ---

func videoRegistry(preferred, alternate provider.VideoProvider) *provider.Registry {
	return &provider.Registry{Video: provider.NewPair(preferred, alternate, nil)}
}

func TestVideoEntersGeneratingBeforeProviderRuns(t *testing.T) {
	h := newHarness(t, nil)
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))
	// leave a stale clip from a previous run
	require.NoError(t, h.store.UpdateSceneByID(sceneID, store.ScenePatch{
		VideoStatus: store.Ptr(model.VideoDone),
		VideoURL:    store.Ptr("https://old.example/clip.mp4"),
	}))

	var statusDuring model.VideoStatus
	var urlDuring string
	vid := &mockVideo{name: "veo", url: "https://cdn.example/clip.mp4", hook: func() {
		sc, _, _ := h.store.SceneByID(sceneID)
		statusDuring = sc.VideoStatus
		urlDuring = sc.VideoURL
	}}
	h.orch.registry = videoRegistry(vid, nil)

	require.NoError(t, h.orch.GenerateSceneVideo(context.Background(), sceneID))

	assert.Equal(t, model.VideoGenerating, statusDuring)
	assert.Empty(t, urlDuring, "previous clip must be cleared before generation")

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoDone, sc.VideoStatus)
	assert.Equal(t, "https://cdn.example/clip.mp4", sc.VideoURL)
	assert.Empty(t, sc.VideoStatusMessage)
}

func TestVideoRequiresMainImage(t *testing.T) {
	vid := &mockVideo{name: "veo", url: "https://cdn.example/clip.mp4"}
	h := newHarness(t, videoRegistry(vid, nil))
	sceneID := seedBoard(h)

	err := h.orch.GenerateSceneVideo(context.Background(), sceneID)
	assert.Error(t, err)
	assert.Equal(t, 0, vid.calls)
}

func TestVideoEmptyURLIsAnError(t *testing.T) {
	vid := &mockVideo{name: "veo", url: ""}
	h := newHarness(t, videoRegistry(vid, nil))
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	err := h.orch.GenerateSceneVideo(context.Background(), sceneID)
	assert.Error(t, err)

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoError, sc.VideoStatus)
	assert.NotEmpty(t, sc.VideoStatusMessage)
}

func TestVideoRateLimitRetriesSameProviderFirst(t *testing.T) {
	var slept []time.Duration
	vid := &mockVideo{
		name: "veo",
		url:  "https://cdn.example/clip.mp4",
		errs: []error{errors.New("429 too many requests")},
	}
	h := newHarness(t, videoRegistry(vid, nil))
	h.orch.sleep = func(d time.Duration) { slept = append(slept, d) }
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	require.NoError(t, h.orch.GenerateSceneVideo(context.Background(), sceneID))

	assert.Equal(t, 2, vid.calls)
	require.Len(t, slept, 1)
	assert.Equal(t, time.Minute, slept[0])
	// the same provider recovered, no fallback notification
	assert.Empty(t, h.notified())

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoDone, sc.VideoStatus)
}

func TestVideoRateLimitTwiceFallsBackToAlternate(t *testing.T) {
	rateLimited := errors.New("429 too many requests")
	preferred := &mockVideo{name: "veo", errs: []error{rateLimited, rateLimited}}
	alternate := &mockVideo{name: "kling", url: "https://cdn.example/alt.mp4"}
	h := newHarness(t, videoRegistry(preferred, alternate))
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	require.NoError(t, h.orch.GenerateSceneVideo(context.Background(), sceneID))

	assert.Equal(t, 2, preferred.calls)
	assert.Equal(t, 1, alternate.calls)
	require.Len(t, h.notified(), 1)

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoDone, sc.VideoStatus)
	assert.Equal(t, "https://cdn.example/alt.mp4", sc.VideoURL)
}

func TestVideoFailureWithoutAlternateSetsErrorMessage(t *testing.T) {
	rateLimited := errors.New("429 too many requests")
	vid := &mockVideo{name: "veo", errs: []error{rateLimited, rateLimited}}
	h := newHarness(t, videoRegistry(vid, nil))
	sceneID := seedBoard(h)
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	err := h.orch.GenerateSceneVideo(context.Background(), sceneID)
	require.Error(t, err)

	sc, _, _ := h.store.SceneByID(sceneID)
	assert.Equal(t, model.VideoError, sc.VideoStatus)
	assert.Equal(t, apierr.Message(apierr.RateLimited), sc.VideoStatusMessage)
	assert.False(t, h.tracker.IsBusy(sceneID))
}

func TestGenerateAllVideosSkipsScenesWithoutImages(t *testing.T) {
	vid := &mockVideo{name: "veo", url: "https://cdn.example/clip.mp4"}
	h := newHarness(t, videoRegistry(vid, nil))
	sceneID := seedBoard(h)
	h.store.AddScene(model.Scene{ID: "s2", Title: "No image yet", MainImage: -1})
	require.NoError(t, h.store.AppendSceneImage(sceneID, model.UploadedImage{Data: "ZnJhbWU=", MimeType: "image/png"}))

	failed := h.orch.GenerateAllVideos(context.Background())
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, vid.calls)
}

// --- shot suggestions ---

func TestSuggestShotTypesUnknownScene(t *testing.T) {
	h := newHarness(t, textOnlyRegistry(&mockText{name: "gemini"}, nil))

	_, err := h.orch.SuggestShotTypes(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrIndexOutOfBounds)
}

func TestSuggestShotTypesFallsBack(t *testing.T) {
	preferred := &mockText{name: "gemini", err: fmt.Errorf("503 unavailable")}
	alternate := &mockText{name: "groq", shots: []string{"Close-up", "Low Angle", "Dutch Angle"}}
	h := newHarness(t, textOnlyRegistry(preferred, alternate))
	sceneID := seedBoard(h)

	shots, err := h.orch.SuggestShotTypes(context.Background(), sceneID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Close-up", "Low Angle", "Dutch Angle"}, shots)
	assert.Len(t, h.notified(), 1)
}
