// Package provider wraps the hosted generation APIs behind small interfaces
// and dispatches each request over a primary/secondary fallback chain.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrNoProvider is returned when a chain has no configured provider.
	ErrNoProvider = errors.New("no provider configured")
	// ErrNotConfigured marks a provider slot whose credentials are missing.
	ErrNotConfigured = errors.New("provider credentials not configured")
	// ErrMalformedResponse is returned when a provider answers without a usable payload.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Named is implemented by every provider.
type Named interface {
	Name() string
}

// Turn is one earlier conversation entry passed as context.
type Turn struct {
	FromUser bool
	Text     string
}

// TextRequest is a text generation request.
type TextRequest struct {
	System  string
	History []Turn
	Prompt  string
}

// TextProvider generates a text reply.
type TextProvider interface {
	Named
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// VisionRequest asks a multimodal model about one image.
type VisionRequest struct {
	Image       []byte
	MIMEType    string
	Instruction string
}

// VisionProvider describes images.
type VisionProvider interface {
	Named
	Describe(ctx context.Context, req VisionRequest) (string, error)
}

// Image is a generated picture. Either Data or URL is set.
type Image struct {
	Data          []byte `json:"-"`
	MIMEType      string `json:"mimeType,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// ImageProvider generates pictures from a prompt.
type ImageProvider interface {
	Named
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// SpeechRequest is a text-to-speech request.
type SpeechRequest struct {
	Text  string
	Voice string
}

// Audio is synthesized speech.
type Audio struct {
	Data     []byte
	Format   string
	MIMEType string
}

// SpeechProvider synthesizes speech.
type SpeechProvider interface {
	Named
	Synthesize(ctx context.Context, req SpeechRequest) (*Audio, error)
}
