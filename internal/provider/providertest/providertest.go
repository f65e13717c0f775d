// Package providertest provides canned providers for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

// Text answers every request with Reply or Err.
type Text struct {
	ID    string
	Reply string
	Err   error

	mu    sync.Mutex
	calls []provider.TextRequest
}

func (t *Text) Name() string { return t.ID }

func (t *Text) Generate(_ context.Context, req provider.TextRequest) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, req)
	return t.Reply, t.Err
}

// Calls returns the requests seen so far.
func (t *Text) Calls() []provider.TextRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]provider.TextRequest(nil), t.calls...)
}

// Vision answers every request with Reply or Err.
type Vision struct {
	ID    string
	Reply string
	Err   error

	mu   sync.Mutex
	last provider.VisionRequest
}

func (v *Vision) Name() string { return v.ID }

func (v *Vision) Describe(_ context.Context, req provider.VisionRequest) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = req
	return v.Reply, v.Err
}

// Last returns the most recent request.
func (v *Vision) Last() provider.VisionRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// Images answers every request with Image or Err.
type Images struct {
	ID    string
	Image *provider.Image
	Err   error
}

func (i *Images) Name() string { return i.ID }

func (i *Images) GenerateImage(context.Context, string) (*provider.Image, error) {
	return i.Image, i.Err
}

// Speech answers every request with Audio or Err.
type Speech struct {
	ID    string
	Audio *provider.Audio
	Err   error
}

func (s *Speech) Name() string { return s.ID }

func (s *Speech) Synthesize(context.Context, provider.SpeechRequest) (*provider.Audio, error) {
	return s.Audio, s.Err
}
