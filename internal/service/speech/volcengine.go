package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

const (
	volcengineTTSPath   = "/api/v1/tts"
	volcengineSuccess   = 3000
	volcengineUserID    = "cowalsky"
	maxVolcengineBodyMB = 16
)

// VolcengineSynthesizer 调用火山引擎 HTTP 语音合成接口。
type VolcengineSynthesizer struct {
	cfg     config.SpeechConfig
	appID   string
	token   string
	client  *http.Client
	baseURL string
}

type volcengineTTSRequest struct {
	App struct {
		AppID   string `json:"appid"`
		Token   string `json:"token"`
		Cluster string `json:"cluster"`
	} `json:"app"`
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		VoiceType   string  `json:"voice_type"`
		Encoding    string  `json:"encoding"`
		SpeedRatio  float32 `json:"speed_ratio,omitempty"`
		VolumeRatio float32 `json:"volume_ratio,omitempty"`
	} `json:"audio"`
	Request struct {
		ReqID     string `json:"reqid"`
		Text      string `json:"text"`
		TextType  string `json:"text_type"`
		Operation string `json:"operation"`
	} `json:"request"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// NewVolcengineSynthesizer 创建火山引擎语音合成客户端。
func NewVolcengineSynthesizer(cfg config.SpeechConfig) (*VolcengineSynthesizer, error) {
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if appID == "" || token == "" {
		return nil, fmt.Errorf("%s tts: %w: SPEECH_APP_ID and SPEECH_ACCESS_TOKEN are required", config.ProviderVolcengine, provider.ErrNotConfigured)
	}

	return &VolcengineSynthesizer{
		cfg:     cfg,
		appID:   appID,
		token:   token,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Name returns the provider name.
func (s *VolcengineSynthesizer) Name() string { return config.ProviderVolcengine }

// Synthesize 发送一次合成请求，返回 MP3 音频。
func (s *VolcengineSynthesizer) Synthesize(ctx context.Context, req provider.SpeechRequest) (*provider.Audio, error) {
	payload := s.buildRequest(req)
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+volcengineTTSPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build TTS request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// 火山引擎要求 "Bearer;" 与 token 之间使用分号。
	httpReq.Header.Set("Authorization", "Bearer;"+s.token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxVolcengineBodyMB<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS response: %w", err)
	}

	var msg ttsServerMessage
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("TTS response status %d: %w", resp.StatusCode, provider.ErrMalformedResponse)
	}
	if msg.Code != volcengineSuccess {
		return nil, fmt.Errorf("TTS API error %d: %s", msg.Code, msg.Message)
	}

	audio, err := decodeBase64Audio(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS audio is empty: %w", provider.ErrMalformedResponse)
	}
	return &provider.Audio{Data: audio, Format: "mp3", MIMEType: "audio/mpeg"}, nil
}

func (s *VolcengineSynthesizer) buildRequest(req provider.SpeechRequest) volcengineTTSRequest {
	var payload volcengineTTSRequest
	payload.App.AppID = s.appID
	payload.App.Token = s.token
	payload.App.Cluster = s.cfg.Cluster
	payload.User.UID = volcengineUserID
	payload.Audio.VoiceType = resolveVolcengineVoice(req.Voice, s.cfg.Voice)
	payload.Audio.Encoding = "mp3"
	payload.Audio.SpeedRatio = s.cfg.Speed
	payload.Audio.VolumeRatio = s.cfg.Volume
	payload.Request.ReqID = uuid.NewString()
	payload.Request.Text = req.Text
	payload.Request.TextType = "plain"
	payload.Request.Operation = "query"
	return payload
}

func decodeBase64Audio(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(data)
}
