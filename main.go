package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"storyboard-server/modules/busy"
	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/config"
	"storyboard-server/modules/common/configstore"
	"storyboard-server/modules/common/redis"
	"storyboard-server/modules/common/storage"
	"storyboard-server/modules/hub"
	"storyboard-server/modules/orchestrator"
	"storyboard-server/modules/progress"
	"storyboard-server/modules/prompt"
	"storyboard-server/modules/provider"
	"storyboard-server/modules/provider/gemini"
	"storyboard-server/modules/provider/groq"
	"storyboard-server/modules/provider/kling"
	"storyboard-server/modules/provider/runware"
	"storyboard-server/modules/provider/veo"
	"storyboard-server/modules/settings"
	"storyboard-server/modules/store"
)

// CORS headers for the browser UI
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "storyboard-server",
	})
}

// buildRegistry wires the provider services into preferred/alternate pairs
// per capability according to configuration.
func buildRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, map[string]settings.Validator) {
	validators := make(map[string]settings.Validator)

	var geminiSvc *gemini.Service
	if cfg.GeminiAPIKey != "" {
		svc, err := gemini.NewService(ctx, cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiImageModel)
		if err != nil {
			log.Printf("❌ Gemini client init failed: %v", err)
		} else {
			geminiSvc = svc
			validators["gemini"] = svc.ValidateKey
		}
	}

	var groqSvc *groq.Service
	if cfg.GroqAPIKey != "" {
		groqSvc = groq.NewService(cfg.GroqAPIKey, cfg.GroqModel)
		validators["groq"] = groqSvc.ValidateKey
	}

	var runwareSvc *runware.Service
	if cfg.RunwareAPIKey != "" {
		runwareSvc = runware.NewService(cfg.RunwareAPIKey, cfg.RunwareModel)
		validators["runware"] = runwareSvc.ValidateKey
	}

	var veoSvc *veo.Service
	if cfg.VeoAPIKey != "" {
		veoSvc = veo.NewService(cfg.VeoAPIKey, cfg.VeoModel, cfg.VideoPollInterval, cfg.VideoPollMaxChecks)
		validators["veo"] = veoSvc.ValidateKey
	}

	var klingSvc *kling.Service
	if cfg.KlingAccessKey != "" && cfg.KlingSecretKey != "" {
		klingSvc = kling.NewService(cfg.KlingAccessKey, cfg.KlingSecretKey, cfg.KlingModel, cfg.VideoPollInterval, cfg.VideoPollMaxChecks)
		validators["kling"] = klingSvc.ValidateKey
	}

	reg := &provider.Registry{}

	// Text: gemini and groq, order set by preference. Typed nil interface
	// values are avoided by only assigning constructed services.
	var textPreferred, textAlternate provider.TextProvider
	if cfg.PreferredTextProvider == "groq" && groqSvc != nil {
		textPreferred = groqSvc
		if geminiSvc != nil {
			textAlternate = geminiSvc
		}
	} else {
		if geminiSvc != nil {
			textPreferred = geminiSvc
		}
		if groqSvc != nil {
			if textPreferred == nil {
				textPreferred = groqSvc
			} else {
				textAlternate = groqSvc
			}
		}
	}
	reg.Text = provider.NewPair(textPreferred, textAlternate, nil)

	var imagePreferred, imageAlternate provider.ImageProvider
	if cfg.PreferredImageProvider == "runware" && runwareSvc != nil {
		imagePreferred = runwareSvc
		if geminiSvc != nil {
			imageAlternate = geminiSvc
		}
	} else {
		if geminiSvc != nil {
			imagePreferred = geminiSvc
		}
		if runwareSvc != nil {
			if imagePreferred == nil {
				imagePreferred = runwareSvc
			} else {
				imageAlternate = runwareSvc
			}
		}
	}
	reg.Image = provider.NewPair(imagePreferred, imageAlternate, nil)

	var videoPreferred, videoAlternate provider.VideoProvider
	if cfg.PreferredVideoProvider == "kling" && klingSvc != nil {
		videoPreferred = klingSvc
		if veoSvc != nil {
			videoAlternate = veoSvc
		}
	} else {
		if veoSvc != nil {
			videoPreferred = veoSvc
		}
		if klingSvc != nil {
			if videoPreferred == nil {
				videoPreferred = klingSvc
			} else {
				videoAlternate = klingSvc
			}
		}
	}
	reg.Video = provider.NewPair(videoPreferred, videoAlternate, nil)

	return reg, validators
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx := context.Background()

	rdb := redis.Connect(cfg)
	credStore := configstore.New(rdb)
	assets := storage.NewClient()

	registry, validators := buildRegistry(ctx, cfg)
	registry.LogSetup()

	synth := prompt.New(nil)

	eventHub := hub.New(nil)

	tracker := busy.New(
		func(err error) { eventHub.Notify(apierr.MessageFor(err)) },
		func(snap busy.Snapshot) { eventHub.Broadcast(hub.Event{Type: "busy", Payload: snap}) },
	)

	board := store.New(synth, func(snap store.Snapshot) {
		eventHub.Broadcast(hub.Event{Type: "state", Payload: snap})
	})

	reporter := progress.New(tracker, cfg.BatchConcurrency, func(p *progress.Progress) {
		eventHub.Broadcast(hub.Event{Type: "progress", Payload: p})
	})

	orch := orchestrator.New(board, tracker, reporter, registry, synth, orchestrator.Options{
		Assets:              assets,
		Notifier:            eventHub,
		RateLimitRetryDelay: cfg.RateLimitRetryDelay,
	})

	// new connections catch up on the current board and busy state
	eventHub.SetSnapshotFn(func() []hub.Event {
		return []hub.Event{
			{Type: "state", Payload: board.Snapshot()},
			{Type: "busy", Payload: tracker.Snapshot()},
		}
	})

	envKeys := map[string]string{}
	if cfg.GeminiAPIKey != "" {
		envKeys["gemini"] = cfg.GeminiAPIKey
	}
	if cfg.GroqAPIKey != "" {
		envKeys["groq"] = cfg.GroqAPIKey
	}
	if cfg.RunwareAPIKey != "" {
		envKeys["runware"] = cfg.RunwareAPIKey
	}
	if cfg.VeoAPIKey != "" {
		envKeys["veo"] = cfg.VeoAPIKey
	}
	if cfg.KlingAccessKey != "" {
		// kling validation probes the configured pair, the key value is unused
		envKeys["kling"] = cfg.KlingAccessKey
	}

	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", eventHub.HandleWebSocket)

	orchestrator.NewHandler(orch).RegisterRoutes(r)
	settings.NewHandler(credStore, validators, envKeys).RegisterRoutes(r)

	if rdb == nil {
		log.Println("⚠️  Running without Redis, stored API keys unavailable")
	}
	if !assets.Enabled() {
		log.Println("⚠️  Running without Supabase, generated assets stay in memory only")
	}

	log.Printf("🚀 Storyboard Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
