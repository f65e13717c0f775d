// Package speech reads bot replies aloud through the speech fallback chain.
package speech

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

// ErrEmptyText 表示待合成文本为空。
var ErrEmptyText = errors.New("TTS text is empty")

// maxTextRunes bounds one synthesis request.
const maxTextRunes = 1024

// Result is synthesized audio with the chain outcome.
type Result struct {
	Audio    *provider.Audio
	Provider string
	Warnings []string
}

// Service 语音合成服务。
type Service struct {
	chain *provider.SpeechChain
}

// NewService wraps a speech chain.
func NewService(chain *provider.SpeechChain) *Service {
	return &Service{chain: chain}
}

// Enabled reports whether any TTS provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil && len(s.chain.Names()) > 0
}

// Providers lists the configured TTS providers in dispatch order.
func (s *Service) Providers() []string {
	if s == nil || s.chain == nil {
		return nil
	}
	return s.chain.Names()
}

// Synthesize renders text with the requested voice.
func (s *Service) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	cleaned := SpeakableText(text)
	if cleaned == "" {
		return nil, ErrEmptyText
	}
	if !s.Enabled() {
		return nil, provider.ErrNoProvider
	}

	audio, outcome, err := s.chain.Synthesize(ctx, provider.SpeechRequest{Text: cleaned, Voice: voice})
	if err != nil {
		return nil, err
	}
	return &Result{Audio: audio, Provider: outcome.Provider, Warnings: outcome.Warnings}, nil
}

// SpeakableText drops emoji and other symbols the voices read out literally,
// collapses whitespace and truncates to maxTextRunes.
func SpeakableText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	count := 0
	lastSpace := true
	for _, r := range text {
		if count >= maxTextRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			if lastSpace {
				continue
			}
			b.WriteRune(' ')
			lastSpace = true
		case unicode.Is(unicode.So, r) || unicode.Is(unicode.Co, r) || r == '\u200d' || r == '\ufe0f':
			continue
		default:
			b.WriteRune(r)
			lastSpace = false
		}
		count++
	}
	return strings.TrimSpace(b.String())
}
