package bot

import (
	"context"
	"strings"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

const (
	ocrInstruction = "Extract all readable text from this image. Reply with the text only, keeping line breaks. If there is no text, reply with nothing."
	scanSystem     = "You are Cowalsky, the analytical penguin on security duty. Explain the pasted network scan output in plain words. List the open ports and the likely services, then point out anything risky."

	// NoTextFound is returned by ExtractText when the image has no text.
	NoTextFound = "No text found."
)

// ToolOptions selects the persona and penguin mode for the tool replies.
type ToolOptions struct {
	PersonaID   string
	PenguinMode bool
}

// ImageResult is a generated image with the chain outcome.
type ImageResult struct {
	Image    *provider.Image `json:"image"`
	Provider string          `json:"provider"`
	Warnings []string        `json:"warnings,omitempty"`
}

// GenerateImage runs the image chain. Failures come back as *ReplyError.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	img, outcome, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("image generation failed")
		return nil, newReplyError(imageFailedPrefix, outcome, err)
	}
	return &ImageResult{Image: img, Provider: outcome.Provider, Warnings: outcome.Warnings}, nil
}

// TextResult is a tool reply with the chain outcome.
type TextResult struct {
	Text     string   `json:"text"`
	Provider string   `json:"provider"`
	Warnings []string `json:"warnings,omitempty"`
}

// AnalyzeImage describes an uploaded image in the persona's detective voice.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, mimeType string, opts ToolOptions) (*TextResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	p, err := s.persona(opts.PersonaID)
	if err != nil {
		return nil, err
	}

	instruction := p.VisionPrompt
	if instruction == "" {
		instruction = persona.DefaultVisionPrompt
	}

	text, outcome, err := s.vision.Describe(ctx, provider.VisionRequest{
		Image:       image,
		MIMEType:    mimeType,
		Instruction: instruction,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("image analysis failed")
		return nil, newReplyError(visionFailedPrefix, outcome, err)
	}

	return &TextResult{
		Text:     s.decorator.Penguinify(text, p.Endings, opts.PenguinMode),
		Provider: outcome.Provider,
		Warnings: outcome.Warnings,
	}, nil
}

// ExtractText reads the text in an image through the vision chain.
func (s *Service) ExtractText(ctx context.Context, image []byte, mimeType string) (*TextResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	text, outcome, err := s.vision.Describe(ctx, provider.VisionRequest{
		Image:       image,
		MIMEType:    mimeType,
		Instruction: ocrInstruction,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("ocr failed")
		return nil, newReplyError(toolFailedPrefix, outcome, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = NoTextFound
	}
	return &TextResult{Text: text, Provider: outcome.Provider, Warnings: outcome.Warnings}, nil
}

// ExplainScan explains pasted network scan output through the text chain.
func (s *Service) ExplainScan(ctx context.Context, scan string, opts ToolOptions) (*TextResult, error) {
	if strings.TrimSpace(scan) == "" {
		return nil, ErrEmptyMessage
	}
	p, err := s.persona(opts.PersonaID)
	if err != nil {
		return nil, err
	}

	text, outcome, err := s.text.Generate(ctx, provider.TextRequest{
		System: scanSystem,
		Prompt: scan,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("scan explanation failed")
		return nil, newReplyError(toolFailedPrefix, outcome, err)
	}

	return &TextResult{
		Text:     s.decorator.Penguinify(text, p.Endings, opts.PenguinMode),
		Provider: outcome.Provider,
		Warnings: outcome.Warnings,
	}, nil
}
