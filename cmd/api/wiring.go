package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
)

// sweepInterval 内存存储清理过期会话的周期
const sweepInterval = time.Minute

type chains struct {
	text   *provider.TextChain
	vision *provider.VisionChain
	images *provider.ImageChain
	speech *provider.SpeechChain
}

// buildChains 按配置槽位创建各条回退链；未配置的服务商记录告警后跳过
func buildChains(ctx context.Context, cfg *config.Config, d *provider.Dispatcher, log zerolog.Logger) chains {
	skip := func(kind, name string, err error) {
		log.Warn().Err(err).Str("kind", kind).Str("provider", name).Msg("provider skipped")
	}

	var text []provider.TextProvider
	for _, name := range slots(cfg.Dispatch.ChatPrimary, cfg.Dispatch.ChatSecondary) {
		m, err := provider.NewTextModel(ctx, name, cfg)
		if err == nil {
			var cm *provider.ChatModel
			if cm, err = provider.NewChatModel(ctx, name, m); err == nil {
				text = append(text, cm)
				continue
			}
		}
		skip(provider.KindChat, name, err)
	}

	var vision []provider.VisionProvider
	for _, name := range slots(cfg.Dispatch.VisionPrimary, cfg.Dispatch.VisionSecondary) {
		m, err := provider.NewVisionModel(ctx, name, cfg)
		if err == nil {
			var cm *provider.ChatModel
			if cm, err = provider.NewChatModel(ctx, name, m); err == nil {
				vision = append(vision, cm)
				continue
			}
		}
		skip(provider.KindVision, name, err)
	}

	var images []provider.ImageProvider
	for _, name := range slots(cfg.Dispatch.ImagePrimary, cfg.Dispatch.ImageSecondary) {
		g, err := provider.NewImageProvider(name, cfg)
		if err != nil {
			skip(provider.KindImage, name, err)
			continue
		}
		images = append(images, g)
	}

	var voices []provider.SpeechProvider
	for _, name := range slots(cfg.Speech.Primary, cfg.Speech.Secondary) {
		s, err := newSpeechProvider(name, cfg)
		if err != nil {
			skip(provider.KindSpeech, name, err)
			continue
		}
		voices = append(voices, s)
	}

	return chains{
		text:   provider.NewTextChain(d, text...),
		vision: provider.NewVisionChain(d, vision...),
		images: provider.NewImageChain(d, images...),
		speech: provider.NewSpeechChain(d, voices...),
	}
}

func newSpeechProvider(name string, cfg *config.Config) (provider.SpeechProvider, error) {
	switch name {
	case config.ProviderOpenAI:
		return speech.NewOpenAISynthesizer(cfg.OpenAI)
	case config.ProviderVolcengine:
		return speech.NewVolcengineSynthesizer(cfg.Speech)
	default:
		return nil, fmt.Errorf("unsupported speech provider %q", name)
	}
}

func slots(primary, secondary string) []string {
	out := make([]string, 0, 2)
	for _, name := range []string{primary, secondary} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// openStore 按驱动打开会话存储，返回的 close 函数负责释放资源
func openStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (chatsvc.Store, func(), error) {
	switch cfg.Driver {
	case config.StoreRedis:
		store, err := chatsvc.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepLoop(sweepCtx, store, log)
		log.Info().Dur("ttl", cfg.SessionTTL).Msg("using redis session store")
		return store, func() {
			cancel()
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close redis store")
			}
		}, nil
	default:
		store := chatsvc.NewMemoryStore(cfg.SessionTTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepLoop(sweepCtx, store, log)
		log.Info().Dur("ttl", cfg.SessionTTL).Msg("using in-memory session store")
		return store, cancel, nil
	}
}

// sweepLoop 定期清理闲置会话，过期通知经 OnExpire 送达 bot 服务
func sweepLoop(ctx context.Context, store chatsvc.Expirer, log zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
			}
			if n > 0 {
				log.Debug().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}

// loadPersonas 读取 PERSONA_FILE，未配置时使用内置角色
func loadPersonas(cfg config.PersonaConfig, log zerolog.Logger) (persona.Store, error) {
	if cfg.File == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	log.Info().Str("file", cfg.File).Int("count", len(items)).Msg("personas loaded")
	return persona.NewMemoryStore(items), nil
}

func sessionDefaults(cfg config.PersonaConfig) chat.Settings {
	defaults := chat.DefaultSettings()
	if theme, ok := chat.ParseTheme(cfg.Theme); ok {
		defaults.Theme = theme
	}
	defaults.PenguinMode = cfg.PenguinMode
	defaults.SigmaMode = cfg.SigmaMode
	return defaults
}
