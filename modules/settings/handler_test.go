package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/modules/common/configstore"
	"storyboard-server/modules/common/model"
)

func newTestRouter(validators map[string]Validator, envKeys map[string]string) *mux.Router {
	r := mux.NewRouter()
	NewHandler(configstore.New(nil), validators, envKeys).RegisterRoutes(r)
	return r
}

func TestValidateEnvProviderUsesConfiguredKey(t *testing.T) {
	var got string
	validators := map[string]Validator{
		"groq": func(_ context.Context, apiKey string) (model.ProviderModels, error) {
			got = apiKey
			return model.ProviderModels{TextModels: []string{"llama-3.3-70b-versatile"}}, nil
		},
	}
	r := newTestRouter(validators, map[string]string{"groq": "gsk_env_1234"})

	req := httptest.NewRequest(http.MethodPost, "/api/settings/providers/groq/validate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gsk_env_1234", got)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(model.CredentialEnvConfigured), resp.Status)
}

func TestValidateEnvProviderRejectsBadKey(t *testing.T) {
	validators := map[string]Validator{
		"veo": func(context.Context, string) (model.ProviderModels, error) {
			return model.ProviderModels{}, errors.New("401 unauthorized")
		},
	}
	r := newTestRouter(validators, map[string]string{"veo": "stale-key"})

	req := httptest.NewRequest(http.MethodPost, "/api/settings/providers/veo/validate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestValidateUnknownProvider(t *testing.T) {
	r := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/providers/nope/validate", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetProviderRequiresKey(t *testing.T) {
	r := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/settings/providers/groq",
		strings.NewReader(`{"apiKey": "  "}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "gsk_...wxyz", maskKey("gsk_abcdefghijklwxyz"))
}
