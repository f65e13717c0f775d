package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
)

// NewTextModel creates the eino chat model behind a chat slot.
func NewTextModel(ctx context.Context, name string, cfg *config.Config) (model.BaseChatModel, error) {
	timeout := cfg.Dispatch.Timeout

	switch name {
	case config.ProviderArk:
		if !cfg.Ark.Enabled() {
			return nil, fmt.Errorf("%s: %w, set ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY) and ARK_MODEL", name, ErrNotConfigured)
		}
		return newArkModel(ctx, cfg.Ark, cfg.Ark.Model)
	case config.ProviderOpenAI:
		if !cfg.OpenAI.Enabled() {
			return nil, fmt.Errorf("%s: %w, set OPENAI_API_KEY", name, ErrNotConfigured)
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Timeout:     timeout,
		})
	case config.ProviderDeepSeek:
		if !cfg.DeepSeek.Enabled() {
			return nil, fmt.Errorf("%s: %w, set DEEPSEEK_API_KEY", name, ErrNotConfigured)
		}
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  cfg.DeepSeek.APIKey,
			Model:   cfg.DeepSeek.Model,
			BaseURL: cfg.DeepSeek.BaseURL,
			Timeout: timeout,
		})
	case config.ProviderOllama:
		if !cfg.Ollama.Enabled() {
			return nil, fmt.Errorf("%s: %w, set OLLAMA_BASE_URL and OLLAMA_MODEL", name, ErrNotConfigured)
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", name)
	}
}

// NewVisionModel creates the multimodal eino chat model behind a vision slot.
func NewVisionModel(ctx context.Context, name string, cfg *config.Config) (model.BaseChatModel, error) {
	switch name {
	case config.ProviderArk:
		if !cfg.Ark.VisionEnabled() {
			return nil, fmt.Errorf("%s: %w, set ARK_API_KEY and ARK_VISION_MODEL", name, ErrNotConfigured)
		}
		return newArkModel(ctx, cfg.Ark, cfg.Ark.VisionModelName())
	case config.ProviderOpenAI:
		if !cfg.OpenAI.Enabled() {
			return nil, fmt.Errorf("%s: %w, set OPENAI_API_KEY", name, ErrNotConfigured)
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.VisionModel,
			MaxTokens: cfg.OpenAI.MaxTokens,
			Timeout:   cfg.Dispatch.Timeout,
		})
	case config.ProviderOllama:
		visionModel := cfg.Ollama.VisionModel
		if cfg.Ollama.BaseURL == "" || visionModel == "" {
			return nil, fmt.Errorf("%s: %w, set OLLAMA_BASE_URL and OLLAMA_VISION_MODEL", name, ErrNotConfigured)
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   visionModel,
			Timeout: cfg.Dispatch.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported vision provider %q", name)
	}
}

func newArkModel(ctx context.Context, c config.ArkConfig, modelName string) (model.BaseChatModel, error) {
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       modelName,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
	})
}
