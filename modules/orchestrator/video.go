package orchestrator

import (
	"context"
	"fmt"
	"log"

	"storyboard-server/modules/busy"
	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/model"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/store"
)

// GenerateSceneVideo animates the scene's main image. The scene enters the
// generating state synchronously, before any provider work, so the UI flips
// immediately; on resolution the state moves to done (with a video URL) or
// error (with a user-facing message).
func (o *Orchestrator) GenerateSceneVideo(ctx context.Context, sceneID string) error {
	return o.busy.WithBusy(ctx, busy.KindScene, sceneID, func(ctx context.Context) error {
		return o.generateSceneVideo(ctx, sceneID)
	})
}

func (o *Orchestrator) generateSceneVideo(ctx context.Context, sceneID string) error {
	sc, idx, ok := o.store.SceneByID(sceneID)
	if !ok {
		return store.ErrIndexOutOfBounds
	}
	if sc.MainImage < 0 || sc.MainImage >= len(sc.ImageOptions) {
		return fmt.Errorf("scene %q has no image to animate", sc.Title)
	}

	// Entering generating always clears the previous clip.
	if err := o.store.UpdateScene(idx, store.ScenePatch{
		VideoStatus:        store.Ptr(model.VideoGenerating),
		VideoURL:           store.Ptr(""),
		VideoStatusMessage: store.Ptr("Preparing video generation..."),
	}); err != nil {
		return err
	}

	req := provider.VideoRequest{
		Prompt:         sc.VideoPrompt,
		NegativePrompt: sc.NegativePrompt,
		Image:          sc.ImageOptions[sc.MainImage],
		DurationSecs:   sc.Duration,
	}
	onProgress := func(message string) {
		_ = o.store.UpdateSceneByID(sceneID, store.ScenePatch{
			VideoStatusMessage: store.Ptr(message),
		})
	}

	videoURL, err := o.runVideo(ctx, req, onProgress)
	if err != nil {
		_ = o.store.UpdateSceneByID(sceneID, store.ScenePatch{
			VideoStatus:        store.Ptr(model.VideoError),
			VideoStatusMessage: store.Ptr(apierr.MessageFor(err)),
		})
		return err
	}
	if videoURL == "" {
		err := fmt.Errorf("video provider returned an empty URL")
		_ = o.store.UpdateSceneByID(sceneID, store.ScenePatch{
			VideoStatus:        store.Ptr(model.VideoError),
			VideoStatusMessage: store.Ptr(apierr.MessageFor(err)),
		})
		return err
	}

	return o.store.UpdateSceneByID(sceneID, store.ScenePatch{
		VideoStatus:        store.Ptr(model.VideoDone),
		VideoURL:           store.Ptr(videoURL),
		VideoStatusMessage: store.Ptr(""),
	})
}

// runVideo - video generation with the rate-limit policy layered under
// provider fallback: a rate-limited preferred provider gets one more chance
// after a fixed delay before the alternate takes over
func (o *Orchestrator) runVideo(ctx context.Context, req provider.VideoRequest, onProgress func(string)) (string, error) {
	return runWithFallback(ctx, o, o.registry.Video, "Video generation",
		func(ctx context.Context, p provider.VideoProvider) (string, error) {
			url, err := p.GenerateVideo(ctx, req, onProgress)
			if err == nil {
				return url, nil
			}
			if apierr.Classify(err) != apierr.RateLimited {
				return "", err
			}

			log.Printf("⏳ Video provider %s rate limited, retrying once in %v", p.Name(), o.rateLimitRetryDelay)
			onProgress("Provider busy, retrying shortly...")
			o.sleep(o.rateLimitRetryDelay)

			return p.GenerateVideo(ctx, req, onProgress)
		})
}

// GenerateAllVideos - batch video generation over every scene that has a main
// image. Returns the number of failed scenes. Per-scene failures land on the
// scene's video status; only the caller's summary reaches the sink.
func (o *Orchestrator) GenerateAllVideos(ctx context.Context) int {
	var ready []string
	for _, sc := range o.store.Scenes() {
		if sc.MainImage >= 0 && sc.MainImage < len(sc.ImageOptions) {
			ready = append(ready, sc.ID)
		}
	}

	return o.progress.RunBatch(ctx, KeyBatchGenerating, "Generating videos", len(ready),
		func(ctx context.Context, i int) error {
			return o.busy.WithBusyQuiet(ctx, busy.KindScene, ready[i], func(ctx context.Context) error {
				return o.generateSceneVideo(ctx, ready[i])
			})
		})
}
