package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

// OpenAISynthesizer calls the OpenAI speech endpoint.
type OpenAISynthesizer struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAISynthesizer creates the OpenAI TTS provider.
func NewOpenAISynthesizer(cfg config.OpenAIConfig) (*OpenAISynthesizer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s tts: %w, set OPENAI_API_KEY", config.ProviderOpenAI, provider.ErrNotConfigured)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(opts...),
		model:  cfg.TTSModel,
		voice:  cfg.TTSVoice,
	}, nil
}

// Name returns the provider name.
func (s *OpenAISynthesizer) Name() string { return config.ProviderOpenAI }

// Synthesize renders req.Text as MP3.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, req provider.SpeechRequest) (*provider.Audio, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(resolveOpenAIVoice(req.Voice, s.voice)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return &provider.Audio{Data: data, Format: "mp3", MIMEType: "audio/mpeg"}, nil
}
