package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/model"
	"storyboard-server/modules/store"
)

// Handler - REST surface over the orchestrator. Generation endpoints return
// 202 and run in the background; state flows to the UI over the websocket.
type Handler struct {
	orch *Orchestrator
}

func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RegisterRoutes - mount everything under /api
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/state", h.getState).Methods("GET")
	api.HandleFunc("/busy", h.getBusy).Methods("GET")

	api.HandleFunc("/blueprint", h.generateBlueprint).Methods("POST")
	api.HandleFunc("/scenes/generate", h.generateScenes).Methods("POST")

	api.HandleFunc("/scenes", h.addScene).Methods("POST")
	api.HandleFunc("/scenes/{index}", h.updateScene).Methods("PATCH")
	api.HandleFunc("/scenes/{index}", h.removeScene).Methods("DELETE")
	api.HandleFunc("/scenes/{id}/image", h.generateSceneImage).Methods("POST")
	api.HandleFunc("/scenes/{id}/image/options", h.generateMoreOptions).Methods("POST")
	api.HandleFunc("/scenes/{id}/image/edit", h.editSceneImage).Methods("POST")
	api.HandleFunc("/scenes/{id}/video", h.generateSceneVideo).Methods("POST")
	api.HandleFunc("/scenes/{id}/shots", h.suggestShots).Methods("POST")

	api.HandleFunc("/characters", h.addCharacter).Methods("POST")
	api.HandleFunc("/characters/{index}", h.updateCharacter).Methods("PATCH")
	api.HandleFunc("/characters/{index}", h.removeCharacter).Methods("DELETE")
	api.HandleFunc("/characters/{id}/reference-image", h.generateCharacterRef).Methods("POST")

	api.HandleFunc("/locations", h.addLocation).Methods("POST")
	api.HandleFunc("/locations/{index}", h.updateLocation).Methods("PATCH")
	api.HandleFunc("/locations/{index}", h.removeLocation).Methods("DELETE")
	api.HandleFunc("/locations/{id}/reference-image", h.generateLocationRef).Methods("POST")

	api.HandleFunc("/batch/images", h.batchImages).Methods("POST")
	api.HandleFunc("/batch/videos", h.batchVideos).Methods("POST")
	api.HandleFunc("/batch/reference-images", h.batchReferences).Methods("POST")
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.store.Snapshot())
}

func (h *Handler) getBusy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.busy.Snapshot())
}

type blueprintRequest struct {
	Idea  string            `json:"idea"`
	Style model.VisualStyle `json:"style"`
}

func (h *Handler) generateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req blueprintRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Idea == "" {
		writeError(w, http.StatusBadRequest, "idea is required")
		return
	}

	ctx := detach(r)
	go func() {
		if _, err := h.orch.GenerateBlueprint(ctx, req.Idea, req.Style); err != nil {
			log.Printf("❌ Blueprint generation failed: %v", err)
			h.orch.notifier.Notify(apierr.MessageFor(err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

type scenesRequest struct {
	Idea     string            `json:"idea"`
	Style    model.VisualStyle `json:"style"`
	Duration int               `json:"duration"`
}

func (h *Handler) generateScenes(w http.ResponseWriter, r *http.Request) {
	var req scenesRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be positive")
		return
	}

	ctx := detach(r)
	go func() {
		if _, err := h.orch.GenerateScenesFromBlueprint(ctx, req.Idea, req.Style, req.Duration); err != nil {
			log.Printf("❌ Scene generation failed: %v", err)
			h.orch.notifier.Notify(apierr.MessageFor(err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) addScene(w http.ResponseWriter, r *http.Request) {
	var sc model.Scene
	if !decode(w, r, &sc) {
		return
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if len(sc.ImageOptions) == 0 {
		sc.MainImage = -1
	}
	if sc.VideoStatus == "" {
		sc.VideoStatus = model.VideoIdle
	}
	idx := h.orch.store.AddScene(sc)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"index": idx, "id": sc.ID})
}

func (h *Handler) updateScene(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var patch store.ScenePatch
	if !decode(w, r, &patch) {
		return
	}
	writeStoreResult(w, h.orch.store.UpdateScene(idx, patch))
}

func (h *Handler) removeScene(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	writeStoreResult(w, h.orch.store.RemoveScene(idx))
}

func (h *Handler) generateSceneImage(w http.ResponseWriter, r *http.Request) {
	h.runAsync(w, r, func() error {
		return h.orch.GenerateSceneImage(detach(r), mux.Vars(r)["id"])
	})
}

func (h *Handler) generateMoreOptions(w http.ResponseWriter, r *http.Request) {
	h.runAsync(w, r, func() error {
		return h.orch.GenerateMoreImageOptions(detach(r), mux.Vars(r)["id"])
	})
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

func (h *Handler) editSceneImage(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Instruction == "" {
		writeError(w, http.StatusBadRequest, "instruction is required")
		return
	}
	h.runAsync(w, r, func() error {
		return h.orch.EditSceneImage(detach(r), mux.Vars(r)["id"], req.Instruction)
	})
}

func (h *Handler) generateSceneVideo(w http.ResponseWriter, r *http.Request) {
	h.runAsync(w, r, func() error {
		return h.orch.GenerateSceneVideo(detach(r), mux.Vars(r)["id"])
	})
}

func (h *Handler) suggestShots(w http.ResponseWriter, r *http.Request) {
	shots, err := h.orch.SuggestShotTypes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrIndexOutOfBounds) {
			status = http.StatusNotFound
		}
		writeError(w, status, apierr.MessageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"shots": shots})
}

func (h *Handler) addCharacter(w http.ResponseWriter, r *http.Request) {
	var c model.Character
	if !decode(w, r, &c) {
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.StatusDefined
	}
	idx := h.orch.store.AddCharacter(c)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"index": idx, "id": c.ID})
}

func (h *Handler) updateCharacter(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var patch store.CharacterPatch
	if !decode(w, r, &patch) {
		return
	}
	writeStoreResult(w, h.orch.store.UpdateCharacter(idx, patch))
}

func (h *Handler) removeCharacter(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	writeStoreResult(w, h.orch.store.RemoveCharacter(idx))
}

func (h *Handler) generateCharacterRef(w http.ResponseWriter, r *http.Request) {
	h.runAsync(w, r, func() error {
		return h.orch.GenerateCharacterReferenceImage(detach(r), mux.Vars(r)["id"], h.orch.boardStyle())
	})
}

func (h *Handler) addLocation(w http.ResponseWriter, r *http.Request) {
	var l model.Location
	if !decode(w, r, &l) {
		return
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = model.StatusDefined
	}
	idx := h.orch.store.AddLocation(l)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"index": idx, "id": l.ID})
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var patch store.LocationPatch
	if !decode(w, r, &patch) {
		return
	}
	writeStoreResult(w, h.orch.store.UpdateLocation(idx, patch))
}

func (h *Handler) removeLocation(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	writeStoreResult(w, h.orch.store.RemoveLocation(idx))
}

func (h *Handler) generateLocationRef(w http.ResponseWriter, r *http.Request) {
	h.runAsync(w, r, func() error {
		return h.orch.GenerateLocationReferenceImage(detach(r), mux.Vars(r)["id"], h.orch.boardStyle())
	})
}

func (h *Handler) batchImages(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	go func() {
		if failed := h.orch.GenerateAllSceneImages(ctx); failed > 0 {
			h.orch.notifier.Notify(strconv.Itoa(failed) + " scene images failed to generate.")
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) batchVideos(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	go func() {
		if failed := h.orch.GenerateAllVideos(ctx); failed > 0 {
			h.orch.notifier.Notify(strconv.Itoa(failed) + " videos failed to generate.")
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) batchReferences(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	go func() {
		if failed := h.orch.GenerateAllReferenceImages(ctx, h.orch.boardStyle()); failed > 0 {
			h.orch.notifier.Notify(strconv.Itoa(failed) + " reference images failed to generate.")
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// runAsync - fire the operation in the background and acknowledge. Errors
// surface through the busy tracker's sink and the scene state, not the
// response.
func (h *Handler) runAsync(w http.ResponseWriter, r *http.Request, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			log.Printf("❌ %s %s failed: %v", r.Method, r.URL.Path, err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// detach - background context for work that outlives the HTTP request
func detach(*http.Request) context.Context {
	return context.Background()
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return idx, true
}

func writeStoreResult(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrIndexOutOfBounds) {
		writeError(w, http.StatusNotFound, "entity index out of bounds")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
