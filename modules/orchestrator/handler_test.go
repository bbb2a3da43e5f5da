package orchestrator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/modules/common/model"
	"storyboard-server/modules/store"
)

func newTestRouter(t *testing.T) (*mux.Router, *harness) {
	t.Helper()
	h := newHarness(t, nil)
	r := mux.NewRouter()
	NewHandler(h.orch).RegisterRoutes(r)
	return r, h
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetStateReturnsSnapshot(t *testing.T) {
	r, h := newTestRouter(t)
	seedBoard(h)

	rec := doJSON(t, r, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap store.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Scenes, 1)
	assert.Equal(t, "Opening", snap.Scenes[0].Title)
	assert.Len(t, snap.Characters, 1)
}

func TestAddSceneAssignsDefaults(t *testing.T) {
	r, h := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/scenes", map[string]interface{}{
		"title": "New scene",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Index int    `json:"index"`
		ID    string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Index)
	assert.NotEmpty(t, resp.ID)

	sc, err := h.store.Scene(0)
	require.NoError(t, err)
	assert.Equal(t, -1, sc.MainImage)
	assert.Equal(t, model.VideoIdle, sc.VideoStatus)
}

func TestPatchSceneDecodesDirectly(t *testing.T) {
	r, h := newTestRouter(t)
	seedBoard(h)

	rec := doJSON(t, r, http.MethodPatch, "/api/scenes/0", map[string]interface{}{
		"title":    "Renamed",
		"lighting": "neon glow",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	sc, _ := h.store.Scene(0)
	assert.Equal(t, "Renamed", sc.Title)
	assert.Equal(t, "neon glow", sc.Lighting)
	// lighting is prompt-relevant, so the derived prompt refreshed
	assert.Contains(t, sc.ImagePrompt, "neon glow lighting")
}

func TestPatchOutOfRangeIndexIs404(t *testing.T) {
	r, h := newTestRouter(t)
	seedBoard(h)

	rec := doJSON(t, r, http.MethodPatch, "/api/scenes/9", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/characters/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchNonIntegerIndexIs400(t *testing.T) {
	r, h := newTestRouter(t)
	seedBoard(h)

	rec := doJSON(t, r, http.MethodPatch, "/api/scenes/abc", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSceneKeepsEntities(t *testing.T) {
	r, h := newTestRouter(t)
	seedBoard(h)

	rec := doJSON(t, r, http.MethodDelete, "/api/scenes/0", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, h.store.Scenes())
	assert.Len(t, h.store.Characters(), 1)
	assert.Len(t, h.store.Locations(), 1)
}

func TestBlueprintRequiresIdea(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/blueprint", map[string]interface{}{"style": "cinematic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenesGenerateRequiresPositiveDuration(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/scenes/generate", map[string]interface{}{
		"idea":     "a story",
		"duration": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditImageRequiresInstruction(t *testing.T) {
	r, h := newTestRouter(t)
	sceneID := seedBoard(h)

	rec := doJSON(t, r, http.MethodPost, "/api/scenes/"+sceneID+"/image/edit", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCharacterAndUpdate(t *testing.T) {
	r, h := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/characters", map[string]interface{}{
		"name":        "Mira",
		"description": "a wiry engineer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	chars := h.store.Characters()
	require.Len(t, chars, 1)
	assert.NotEmpty(t, chars[0].ID)
	assert.Equal(t, model.StatusDefined, chars[0].Status)

	rec = doJSON(t, r, http.MethodPatch, "/api/characters/0", map[string]interface{}{
		"description": "a tired engineer",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a tired engineer", h.store.Characters()[0].Description)
}

func TestGetBusy(t *testing.T) {
	r, h := newTestRouter(t)
	h.tracker.SetBusy("scene", "s1")

	rec := doJSON(t, r, http.MethodGet, "/api/busy", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		Scenes map[string]bool `json:"scenes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Scenes["s1"])
}
