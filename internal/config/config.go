package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted in the dispatch slots.
const (
	ProviderArk        = "ark"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderOllama     = "ollama"
	ProviderVolcengine = "volcengine"
	ProviderNone       = "none"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Dispatch DispatchConfig
	Ark      ArkConfig
	OpenAI   OpenAIConfig
	DeepSeek DeepSeekConfig
	Ollama   OllamaConfig
	Speech   SpeechConfig
	Store    StoreConfig
	Geo      GeoConfig
	Persona  PersonaConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Server: server}
	sections := []struct {
		prefix string
		target any
	}{
		{"log", &cfg.Log},
		{"", &cfg.Dispatch},
		{"ark", &cfg.Ark},
		{"openai", &cfg.OpenAI},
		{"deepseek", &cfg.DeepSeek},
		{"ollama", &cfg.Ollama},
		{"speech", &cfg.Speech},
		{"", &cfg.Store},
		{"geo", &cfg.Geo},
		{"", &cfg.Persona},
	}
	for _, section := range sections {
		if err := envconfig.Process(section.prefix, section.target); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

type serverEnv struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var env serverEnv
	if err := envconfig.Process("", &env); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	port := strings.TrimSpace(env.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"json"`
	Output     string `envconfig:"OUTPUT" default:"stdout"`
	FilePath   string `envconfig:"FILE_PATH" default:"logs/cowalsky.log"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"rfc3339"`
}

// DispatchConfig names the provider slots of each fallback chain.
type DispatchConfig struct {
	ChatPrimary     string        `envconfig:"CHAT_PRIMARY" default:"ark"`
	ChatSecondary   string        `envconfig:"CHAT_SECONDARY" default:"openai"`
	VisionPrimary   string        `envconfig:"VISION_PRIMARY" default:"ark"`
	VisionSecondary string        `envconfig:"VISION_SECONDARY" default:"openai"`
	ImagePrimary    string        `envconfig:"IMAGE_PRIMARY" default:"ark"`
	ImageSecondary  string        `envconfig:"IMAGE_SECONDARY" default:"openai"`
	Timeout         time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"60s"`
	HistoryLimit    int           `envconfig:"CHAT_HISTORY_LIMIT" default:"0"`
	SuffixSelection string        `envconfig:"SUFFIX_SELECTION" default:"length"`
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey      string   `envconfig:"API_KEY"`
	AccessKey   string   `envconfig:"ACCESS_KEY"`
	SecretKey   string   `envconfig:"SECRET_KEY"`
	Model       string   `envconfig:"MODEL"`
	VisionModel string   `envconfig:"VISION_MODEL"`
	ImageModel  string   `envconfig:"IMAGE_MODEL"`
	ImageSize   string   `envconfig:"IMAGE_SIZE" default:"1024x1024"`
	BaseURL     string   `envconfig:"BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `envconfig:"REGION" default:"cn-beijing"`
	Temperature *float32 `envconfig:"TEMPERATURE"`
	TopP        *float32 `envconfig:"TOP_P"`
	MaxTokens   *int     `envconfig:"MAX_TOKENS"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && c.hasCredentials()
}

// VisionEnabled reports whether a multimodal endpoint is configured.
func (c ArkConfig) VisionEnabled() bool {
	return c.VisionModelName() != "" && c.hasCredentials()
}

// VisionModelName falls back to the chat model when no vision model is set.
func (c ArkConfig) VisionModelName() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return c.Model
}

// ImageEnabled reports whether image generation is configured. The
// OpenAI-compatible images endpoint only accepts API keys.
func (c ArkConfig) ImageEnabled() bool {
	return c.APIKey != "" && c.ImageModel != ""
}

func (c ArkConfig) hasCredentials() bool {
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

// OpenAIConfig 描述 OpenAI 兼容接口配置。
type OpenAIConfig struct {
	APIKey              string   `envconfig:"API_KEY"`
	BaseURL             string   `envconfig:"BASE_URL"`
	Model               string   `envconfig:"MODEL" default:"gpt-4o-mini"`
	VisionModel         string   `envconfig:"VISION_MODEL" default:"gpt-4o-mini"`
	ImageModel          string   `envconfig:"IMAGE_MODEL" default:"gpt-image-1"`
	ImageSize           string   `envconfig:"IMAGE_SIZE" default:"1024x1024"`
	ImageResponseFormat string   `envconfig:"IMAGE_RESPONSE_FORMAT"`
	TTSModel            string   `envconfig:"TTS_MODEL" default:"gpt-4o-mini-tts"`
	TTSVoice            string   `envconfig:"TTS_VOICE" default:"alloy"`
	Temperature         *float32 `envconfig:"TEMPERATURE"`
	MaxTokens           *int     `envconfig:"MAX_TOKENS"`
}

// Enabled 表示是否提供了 API Key。
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// DeepSeekConfig 描述 DeepSeek 配置。
type DeepSeekConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	Model   string `envconfig:"MODEL" default:"deepseek-chat"`
	BaseURL string `envconfig:"BASE_URL" default:"https://api.deepseek.com/"`
}

// Enabled 表示是否提供了 API Key。
func (c DeepSeekConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// OllamaConfig 描述本地 Ollama 配置。
type OllamaConfig struct {
	BaseURL     string `envconfig:"BASE_URL"`
	Model       string `envconfig:"MODEL"`
	VisionModel string `envconfig:"VISION_MODEL"`
}

// Enabled 表示是否配置了服务地址与模型。
func (c OllamaConfig) Enabled() bool {
	return c.BaseURL != "" && c.Model != ""
}

// SpeechConfig 描述语音合成配置。
type SpeechConfig struct {
	Primary     string        `envconfig:"PRIMARY" default:"openai"`
	Secondary   string        `envconfig:"SECONDARY" default:"volcengine"`
	AppID       string        `envconfig:"APP_ID"`
	AccessToken string        `envconfig:"ACCESS_TOKEN"`
	Cluster     string        `envconfig:"CLUSTER" default:"volcano_tts"`
	Voice       string        `envconfig:"TTS_VOICE" default:"BV001_streaming"`
	Speed       float32       `envconfig:"TTS_SPEED" default:"1.0"`
	Volume      float32       `envconfig:"TTS_VOLUME" default:"1.0"`
	BaseURL     string        `envconfig:"BASE_URL" default:"https://openspeech.bytedance.com"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// VolcengineEnabled 表示是否提供了火山引擎语音凭证。
func (c SpeechConfig) VolcengineEnabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// StoreConfig selects where session logs live while a session is alive.
type StoreConfig struct {
	Driver     string        `envconfig:"STORE_DRIVER" default:"memory"`
	RedisURL   string        `envconfig:"REDIS_URL"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"40m"`
}

// GeoConfig 描述 IP 地理位置查询配置。
type GeoConfig struct {
	BaseURL string        `envconfig:"BASE_URL" default:"http://ip-api.com/json"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

// PersonaConfig points at an optional YAML persona catalog and the session defaults.
type PersonaConfig struct {
	File        string `envconfig:"PERSONA_FILE"`
	Theme       string `envconfig:"THEME_DEFAULT" default:"light"`
	PenguinMode bool   `envconfig:"PENGUIN_MODE_DEFAULT" default:"true"`
	SigmaMode   bool   `envconfig:"SIGMA_MODE_DEFAULT" default:"false"`
}

func (c *Config) validate() error {
	c.Dispatch.normalize()
	c.Speech.Primary = normalizeName(c.Speech.Primary)
	c.Speech.Secondary = normalizeName(c.Speech.Secondary)
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	textProviders := []string{ProviderArk, ProviderOpenAI, ProviderDeepSeek, ProviderOllama}
	imageProviders := []string{ProviderArk, ProviderOpenAI}
	speechProviders := []string{ProviderOpenAI, ProviderVolcengine}

	slots := []struct {
		name      string
		primary   string
		secondary string
		allowed   []string
	}{
		{"CHAT", c.Dispatch.ChatPrimary, c.Dispatch.ChatSecondary, textProviders},
		{"VISION", c.Dispatch.VisionPrimary, c.Dispatch.VisionSecondary, []string{ProviderArk, ProviderOpenAI, ProviderOllama}},
		{"IMAGE", c.Dispatch.ImagePrimary, c.Dispatch.ImageSecondary, imageProviders},
		{"SPEECH", c.Speech.Primary, c.Speech.Secondary, speechProviders},
	}
	for _, slot := range slots {
		if err := validateSlot(slot.name+"_PRIMARY", slot.primary, slot.allowed); err != nil {
			return err
		}
		if err := validateSlot(slot.name+"_SECONDARY", slot.secondary, slot.allowed); err != nil {
			return err
		}
		if slot.primary != "" && slot.primary == slot.secondary {
			return fmt.Errorf("%s_PRIMARY and %s_SECONDARY must differ, both are %q", slot.name, slot.name, slot.primary)
		}
	}

	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("invalid PROVIDER_TIMEOUT value: %s", c.Dispatch.Timeout)
	}
	if c.Dispatch.HistoryLimit < 0 {
		c.Dispatch.HistoryLimit = 0
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER value: %q", c.Store.Driver)
	}
	return nil
}

func (d *DispatchConfig) normalize() {
	d.ChatPrimary = normalizeName(d.ChatPrimary)
	d.ChatSecondary = normalizeName(d.ChatSecondary)
	d.VisionPrimary = normalizeName(d.VisionPrimary)
	d.VisionSecondary = normalizeName(d.VisionSecondary)
	d.ImagePrimary = normalizeName(d.ImagePrimary)
	d.ImageSecondary = normalizeName(d.ImageSecondary)
}

// normalizeName lowercases a slot value and maps "none" to the empty slot.
func normalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == ProviderNone {
		return ""
	}
	return name
}

func validateSlot(key, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, name := range allowed {
		if value == name {
			return nil
		}
	}
	return fmt.Errorf("invalid %s value %q: expected one of %s", key, value, strings.Join(allowed, ", "))
}
