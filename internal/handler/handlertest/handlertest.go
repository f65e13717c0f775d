// Package handlertest builds services backed by canned providers for handler tests.
package handlertest

import (
	"bytes"
	"mime/multipart"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/flavor"
	speechsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
)

// Providers selects the canned providers of each chain.
type Providers struct {
	Text   []provider.TextProvider
	Vision []provider.VisionProvider
	Images []provider.ImageProvider
	Speech []provider.SpeechProvider
}

// Dispatcher returns a dispatcher with a short attempt timeout.
func Dispatcher() *provider.Dispatcher {
	return provider.NewDispatcher(time.Second, nil, zerolog.Nop())
}

// Personas returns the seeded persona catalog.
func Personas() persona.Store {
	return persona.NewMemoryStore(persona.Seed())
}

// NewBot creates a bot service over an in-memory store.
func NewBot(t *testing.T, p Providers) *bot.Service {
	t.Helper()
	d := Dispatcher()
	return bot.NewService(bot.Options{
		Store:     chatsvc.NewMemoryStore(time.Hour),
		Personas:  Personas(),
		Text:      provider.NewTextChain(d, p.Text...),
		Vision:    provider.NewVisionChain(d, p.Vision...),
		Images:    provider.NewImageChain(d, p.Images...),
		Decorator: flavor.NewDecorator(flavor.LengthPicker{}),
		Logger:    zerolog.Nop(),
	})
}

// NewSpeech creates a speech service over the canned speech providers.
func NewSpeech(p Providers) *speechsvc.Service {
	return speechsvc.NewService(provider.NewSpeechChain(Dispatcher(), p.Speech...))
}

// Multipart encodes a single file field and returns the body and its content type.
func Multipart(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}
