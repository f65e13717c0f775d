package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/handlertest"
	"github.com/cowalsky-lab/cowalsky/backend/internal/observability"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider/providertest"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
)

func newTestRouter(t *testing.T, p handlertest.Providers) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Personas: handlertest.Personas(),
		Bot:      handlertest.NewBot(t, p),
		Speech:   handlertest.NewSpeech(p),
		Metrics:  observability.NewMetrics("cowalsky_test").Handler(),
		Logger:   zerolog.Nop(),
	})
}

func TestHealthListsProviders(t *testing.T) {
	r := newTestRouter(t, handlertest.Providers{
		Text: []provider.TextProvider{&providertest.Text{ID: "ark"}, &providertest.Text{ID: "openai"}},
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status    string              `json:"status"`
		Providers map[string][]string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"ark", "openai"}, body.Providers["chat"])
	assert.Empty(t, body.Providers["image"])
}

func TestHealthReportsRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := chatsvc.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	p := handlertest.Providers{Text: []provider.TextProvider{&providertest.Text{ID: "ark"}}}
	r := NewRouter(Deps{
		Personas: handlertest.Personas(),
		Store:    store,
		Bot:      handlertest.NewBot(t, p),
		Logger:   zerolog.Nop(),
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, rr.Body.String(), `"store":"ok"`)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	mr.Close()
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"store":"unreachable"`)
	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
}

func TestHealthDegradedWithoutChat(t *testing.T) {
	r := newTestRouter(t, handlertest.Providers{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Contains(t, rr.Body.String(), `"status":"degraded"`)
}

func TestRouterServesSessionFlowAndMetrics(t *testing.T) {
	r := newTestRouter(t, handlertest.Providers{
		Text: []provider.TextProvider{&providertest.Text{ID: "ark", Reply: "Affirmative"}},
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
