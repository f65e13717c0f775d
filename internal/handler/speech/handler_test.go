package speech

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/handlertest"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider/providertest"
	speechsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
)

type fakeSpeechService struct {
	voice string
	text  string
}

func (f *fakeSpeechService) Enabled() bool       { return true }
func (f *fakeSpeechService) Providers() []string { return []string{"fake"} }

func (f *fakeSpeechService) Synthesize(_ context.Context, text, voice string) (*speechsvc.Result, error) {
	f.text = text
	f.voice = voice
	return &speechsvc.Result{
		Audio:    &provider.Audio{Data: []byte("audio"), Format: "mp3", MIMEType: "audio/mpeg"},
		Provider: "fake",
	}, nil
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func router(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	r := router(New(fakeSvc, nil))

	rr := post(r, "/speech/synthesize", `{"text":"hello there","voice":"nova"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("X-Speech-Provider") != "fake" {
		t.Fatalf("missing provider header")
	}
	if rr.Body.String() != "audio" || fakeSvc.voice != "nova" {
		t.Fatalf("unexpected body %q voice %q", rr.Body.String(), fakeSvc.voice)
	}
}

func TestSynthesizeResolvesPersonaVoice(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	botSvc := handlertest.NewBot(t, handlertest.Providers{})
	session, err := botSvc.StartSession(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}
	r := router(New(fakeSvc, botSvc))

	rr := post(r, "/speech/synthesize/"+session.ID, `{"text":"hello"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if fakeSvc.voice != "alloy" {
		t.Fatalf("expected persona voice alloy, got %q", fakeSvc.voice)
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	r := router(New(&fakeSpeechService{}, nil))

	rr := post(r, "/speech/synthesize", `{"text":"  "}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSynthesizeFallsBackAcrossProviders(t *testing.T) {
	svc := handlertest.NewSpeech(handlertest.Providers{Speech: []provider.SpeechProvider{
		&providertest.Speech{ID: "openai", Err: errors.New("quota")},
		&providertest.Speech{ID: "volcengine", Audio: &provider.Audio{Data: []byte("mp3"), Format: "mp3"}},
	}})
	r := router(New(svc, nil))

	rr := post(r, "/speech/synthesize", `{"text":"brrr"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if rr.Header().Get("X-Speech-Provider") != "volcengine" || rr.Header().Get("X-Speech-Fallback") != "true" {
		t.Fatalf("expected volcengine fallback, got headers %v", rr.Header())
	}
	if rr.Header().Get("Content-Type") != "audio/mp3" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
}

func TestSynthesizeBothFail(t *testing.T) {
	svc := handlertest.NewSpeech(handlertest.Providers{Speech: []provider.SpeechProvider{
		&providertest.Speech{ID: "openai", Err: errors.New("quota")},
		&providertest.Speech{ID: "volcengine", Err: errors.New("down")},
	}})
	r := router(New(svc, nil))

	rr := post(r, "/speech/synthesize", `{"text":"brrr"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestSynthesizeWithoutProviders(t *testing.T) {
	r := router(New(handlertest.NewSpeech(handlertest.Providers{}), nil))

	rr := post(r, "/speech/synthesize", `{"text":"brrr"}`)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

