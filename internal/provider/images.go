package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
)

// ImageGenerator calls an OpenAI-compatible images endpoint. Ark exposes the
// same endpoint, so both image slots share this implementation.
type ImageGenerator struct {
	name           string
	client         openai.Client
	model          string
	size           string
	responseFormat string
}

// ImageGeneratorConfig configures an ImageGenerator.
type ImageGeneratorConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	Size           string
	ResponseFormat string
}

// NewImageGenerator creates an ImageGenerator. SDK retries are disabled so
// a failure moves straight to the fallback provider.
func NewImageGenerator(c ImageGeneratorConfig) *ImageGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithMaxRetries(0),
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	return &ImageGenerator{
		name:           c.Name,
		client:         openai.NewClient(opts...),
		model:          c.Model,
		size:           c.Size,
		responseFormat: c.ResponseFormat,
	}
}

// NewImageProvider builds the image generator behind an image slot.
func NewImageProvider(name string, cfg *config.Config) (*ImageGenerator, error) {
	switch name {
	case config.ProviderArk:
		if !cfg.Ark.ImageEnabled() {
			return nil, fmt.Errorf("%s: %w, set ARK_API_KEY and ARK_IMAGE_MODEL", name, ErrNotConfigured)
		}
		return NewImageGenerator(ImageGeneratorConfig{
			Name:           name,
			APIKey:         cfg.Ark.APIKey,
			BaseURL:        cfg.Ark.BaseURL,
			Model:          cfg.Ark.ImageModel,
			Size:           cfg.Ark.ImageSize,
			ResponseFormat: "b64_json",
		}), nil
	case config.ProviderOpenAI:
		if !cfg.OpenAI.Enabled() {
			return nil, fmt.Errorf("%s: %w, set OPENAI_API_KEY", name, ErrNotConfigured)
		}
		return NewImageGenerator(ImageGeneratorConfig{
			Name:           name,
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.ImageModel,
			Size:           cfg.OpenAI.ImageSize,
			ResponseFormat: cfg.OpenAI.ImageResponseFormat,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported image provider %q", name)
	}
}

// Name returns the provider name.
func (g *ImageGenerator) Name() string { return g.name }

// GenerateImage requests a single image for prompt.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
	}
	if g.size != "" {
		params.Size = openai.ImageGenerateParamsSize(g.size)
	}
	if g.responseFormat != "" {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormat(g.responseFormat)
	}

	resp, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, ErrMalformedResponse
	}

	first := resp.Data[0]
	img := &Image{RevisedPrompt: first.RevisedPrompt, URL: first.URL}
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base64 image: %v", ErrMalformedResponse, err)
		}
		img.Data = data
		img.MIMEType = http.DetectContentType(data)
	}
	if len(img.Data) == 0 && img.URL == "" {
		return nil, ErrMalformedResponse
	}
	return img, nil
}
