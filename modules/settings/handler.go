package settings

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"storyboard-server/modules/common/apierr"
	"storyboard-server/modules/common/configstore"
	"storyboard-server/modules/common/model"
)

// Validator checks an API key against the provider's cheapest endpoint and
// reports the models it unlocks.
type Validator func(ctx context.Context, apiKey string) (model.ProviderModels, error)

// Handler - provider credential management. Keys saved here live in Redis;
// keys from the environment show up as env_configured and cannot be edited.
type Handler struct {
	store      *configstore.Store
	validators map[string]Validator
	envKeys    map[string]string // provider -> key configured via environment
}

func NewHandler(store *configstore.Store, validators map[string]Validator, envKeys map[string]string) *Handler {
	if validators == nil {
		validators = map[string]Validator{}
	}
	if envKeys == nil {
		envKeys = map[string]string{}
	}
	return &Handler{store: store, validators: validators, envKeys: envKeys}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/settings").Subrouter()
	api.HandleFunc("/providers", h.listProviders).Methods("GET")
	api.HandleFunc("/providers/{provider}", h.setProvider).Methods("PUT")
	api.HandleFunc("/providers/{provider}", h.removeProvider).Methods("DELETE")
	api.HandleFunc("/providers/{provider}/validate", h.validateProvider).Methods("POST")
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byProvider := make(map[string]model.ProviderCredentials, len(stored))
	for _, creds := range stored {
		creds.APIKey = maskKey(creds.APIKey)
		byProvider[creds.Provider] = creds
	}
	// env-backed providers without a stored override still appear in the list
	for name := range h.envKeys {
		if _, ok := byProvider[name]; !ok {
			byProvider[name] = model.ProviderCredentials{
				Provider: name,
				Status:   model.CredentialEnvConfigured,
			}
		}
	}

	out := make([]model.ProviderCredentials, 0, len(byProvider))
	for _, creds := range byProvider {
		out = append(out, creds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })

	writeJSON(w, http.StatusOK, out)
}

type setRequest struct {
	APIKey     string `json:"apiKey"`
	TextModel  string `json:"textModel,omitempty"`
	ImageModel string `json:"imageModel,omitempty"`
	VideoModel string `json:"videoModel,omitempty"`
}

func (h *Handler) setProvider(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	creds := model.ProviderCredentials{
		Provider:   name,
		APIKey:     strings.TrimSpace(req.APIKey),
		Status:     model.CredentialValidating,
		TextModel:  req.TextModel,
		ImageModel: req.ImageModel,
		VideoModel: req.VideoModel,
	}

	var models model.ProviderModels
	if validate, ok := h.validators[name]; ok {
		found, err := validate(r.Context(), creds.APIKey)
		if err != nil {
			log.Printf("❌ Key validation failed for %s: %v", name, err)
			creds.Status = model.CredentialError
			if err := h.store.Set(r.Context(), creds); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"provider": name,
				"status":   model.CredentialError,
				"error":    apierr.MessageFor(err),
			})
			return
		}
		creds.Status = model.CredentialValid
		models = found
	} else {
		// no validator wired, trust the key until it is used
		creds.Status = model.CredentialIdle
	}

	if err := h.store.Set(r.Context(), creds); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("✅ Stored API key for %s (status: %s)", name, creds.Status)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": name,
		"status":   creds.Status,
		"models":   models,
	})
}

func (h *Handler) removeProvider(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	if err := h.store.Remove(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("🗑️ Removed stored API key for %s", name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validateProvider(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]

	validate, ok := h.validators[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider: "+name)
		return
	}

	creds, err := h.store.Get(r.Context(), name)
	if err != nil || creds == nil {
		// no stored key: the environment key is validated instead. A store
		// failure also lands here so env-backed setups work without Redis.
		envKey, fromEnv := h.envKeys[name]
		if !fromEnv {
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
			} else {
				writeError(w, http.StatusNotFound, "no credentials stored for "+name)
			}
			return
		}
		models, verr := validate(r.Context(), envKey)
		if verr != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"provider": name,
				"status":   model.CredentialError,
				"error":    apierr.MessageFor(verr),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"provider": name,
			"status":   model.CredentialEnvConfigured,
			"models":   models,
		})
		return
	}

	status := model.CredentialValid
	models, err := validate(r.Context(), creds.APIKey)
	if err != nil {
		status = model.CredentialError
	}
	creds.Status = status
	if err := h.store.Set(r.Context(), *creds); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": name,
		"status":   status,
		"models":   models,
	})
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
