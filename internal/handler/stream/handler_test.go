package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/handlertest"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider/providertest"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
)

func setup(t *testing.T, text ...provider.TextProvider) (*chi.Mux, *bot.Service) {
	t.Helper()
	botSvc := handlertest.NewBot(t, handlertest.Providers{Text: text})
	r := chi.NewRouter()
	New(botSvc).RegisterRoutes(r)
	return r, botSvc
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func eventNames(events []StreamResponse) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Event)
	}
	return names
}

func TestStreamSendsExchange(t *testing.T) {
	r, botSvc := setup(t, &providertest.Text{ID: "ark", Reply: "Herring o'clock"})
	session, err := botSvc.StartSession(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stream/"+session.ID+"?message="+url.QueryEscape("lunch?"), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	if !strings.Contains(resp.Body.String(), "event: message\n") {
		t.Fatalf("expected named message event, got %s", resp.Body.String())
	}

	events := readEvents(t, resp.Body.String())
	if got := strings.Join(eventNames(events), ","); got != "start,message,end" {
		t.Fatalf("unexpected event order %s", got)
	}
	if events[0].Content != "Cowalsky is thinking..." {
		t.Fatalf("unexpected start content %q", events[0].Content)
	}
	if events[1].Provider != "ark" || !strings.HasPrefix(events[1].Content, "Herring o'clock") {
		t.Fatalf("unexpected message event %+v", events[1])
	}
}

func TestStreamEmitsWarningsBeforeMessage(t *testing.T) {
	r, botSvc := setup(t,
		&providertest.Text{ID: "ark", Err: errors.New("rate limited")},
		&providertest.Text{ID: "openai", Reply: "Backup fish"},
	)
	session, err := botSvc.StartSession(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stream/"+session.ID+"?message=hi", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := readEvents(t, resp.Body.String())
	if got := strings.Join(eventNames(events), ","); got != "start,warning,message,end" {
		t.Fatalf("unexpected event order %s", got)
	}
	if events[1].Content != "ark took a dive: rate limited\nSwitching to openai fallback..." {
		t.Fatalf("unexpected warning %q", events[1].Content)
	}
	if events[2].Provider != "openai" {
		t.Fatalf("expected openai to answer, got %q", events[2].Provider)
	}
}

// bodyCheck answers with whatever the response body held when it was called.
type bodyCheck struct {
	resp *httptest.ResponseRecorder
}

func (b *bodyCheck) Name() string { return "openai" }

func (b *bodyCheck) Generate(context.Context, provider.TextRequest) (string, error) {
	if strings.Contains(b.resp.Body.String(), "event: warning\n") {
		return "warning already sent", nil
	}
	return "warning still pending", nil
}

func TestStreamSendsWarningBeforeFallbackAnswers(t *testing.T) {
	resp := httptest.NewRecorder()
	r, botSvc := setup(t,
		&providertest.Text{ID: "ark", Err: errors.New("rate limited")},
		&bodyCheck{resp: resp},
	)
	session, err := botSvc.StartSession(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID+"?message=hi", nil))

	events := readEvents(t, resp.Body.String())
	if got := strings.Join(eventNames(events), ","); got != "start,warning,message,end" {
		t.Fatalf("unexpected event order %s", got)
	}
	if !strings.HasPrefix(events[2].Content, "warning already sent") {
		t.Fatalf("warning was not flushed before the fallback ran: %q", events[2].Content)
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	r, _ := setup(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/abc", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	r, _ := setup(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/missing?message=hi", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
