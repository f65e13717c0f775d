package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	speechsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
)

const (
	defaultReadTimeout = 60 * time.Second
	pingInterval       = 54 * time.Second
	writeTimeout       = 10 * time.Second
)

// Speaker 为回复合成语音
type Speaker interface {
	Enabled() bool
	Synthesize(ctx context.Context, text, voice string) (*speechsvc.Result, error)
}

// Handler WebSocket聊天处理器
type Handler struct {
	bot         *bot.Service
	speaker     Speaker
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// New 创建WebSocket处理器；speaker 可为 nil，此时忽略朗读开关
func New(botSvc *bot.Service, speaker Speaker) *Handler {
	return &Handler{
		bot:         botSvc,
		speaker:     speaker,
		readTimeout: defaultReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// SettingsMessage 会话开关与音色
type SettingsMessage struct {
	chat.SettingsPatch
	Voice string `json:"voice,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	persona   persona.Persona
	settings  chat.Settings
	voice     string
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, p, err := h.bot.SessionPersona(r.Context(), sessionID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	logger := zerolog.Ctx(r.Context()).With().Str("session", sessionID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger.Info().Msg("websocket connected")

	// 升级后的连接不跟随 HTTP 请求的生命周期
	ctx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(r.Context())))
	defer cancel()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connectionState{
		sessionID: sessionID,
		persona:   p,
		settings:  session.Settings,
		voice:     p.VoiceID,
	}

	h.sendInfo(ctx, conn, sessionID, map[string]any{
		"type":     "connected",
		"persona":  p.ID,
		"settings": state.settings,
	})

	for {
		// 回复可能耗时超过 readTimeout，每次读取前重新计时
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(ctx, conn, "session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "settings":
		h.handleSettingsMessage(ctx, conn, state, msg.Data)
	default:
		h.sendError(ctx, conn, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := sonic.Unmarshal(raw, &text); err != nil {
		h.sendError(ctx, conn, "invalid text payload")
		return
	}

	exchange, err := h.bot.Send(ctx, state.sessionID, text.Text)
	if err != nil {
		if errors.Is(err, bot.ErrEmptyMessage) {
			h.sendError(ctx, conn, bot.EmptyInputReply)
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("websocket exchange failed")
		h.sendError(ctx, conn, err.Error())
		return
	}

	h.sendInfo(ctx, conn, state.sessionID, map[string]any{
		"type":    "user",
		"message": exchange.UserMessage,
	})
	for _, warning := range exchange.Warnings {
		h.sendInfo(ctx, conn, state.sessionID, map[string]any{
			"type": "warning",
			"text": warning,
		})
	}
	h.sendInfo(ctx, conn, state.sessionID, map[string]any{
		"type":     "bot",
		"message":  exchange.BotMessage,
		"provider": exchange.Provider,
		"failed":   exchange.Failed,
	})

	if state.settings.Speak {
		h.sendTTS(ctx, conn, state, exchange.BotMessage.Content)
	}
}

func (h *Handler) sendTTS(ctx context.Context, conn *websocket.Conn, state *connectionState, text string) {
	if h.speaker == nil || !h.speaker.Enabled() {
		return
	}

	result, err := h.speaker.Synthesize(ctx, text, state.voice)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("websocket tts failed")
		h.sendInfo(ctx, conn, state.sessionID, map[string]any{
			"type":  "tts",
			"error": "synthesis failed",
		})
		return
	}

	h.sendInfo(ctx, conn, state.sessionID, map[string]any{
		"type":      "tts",
		"audioData": base64.StdEncoding.EncodeToString(result.Audio.Data),
		"format":    result.Audio.Format,
		"provider":  result.Provider,
		"warnings":  result.Warnings,
	})
}

func (h *Handler) handleSettingsMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg SettingsMessage
	if err := sonic.Unmarshal(raw, &cfg); err != nil {
		h.sendError(ctx, conn, "invalid settings payload")
		return
	}
	if cfg.Theme != nil {
		if _, ok := chat.ParseTheme(*cfg.Theme); !ok {
			h.sendError(ctx, conn, "theme must be light or dark")
			return
		}
	}

	session, err := h.bot.UpdateSettings(ctx, state.sessionID, cfg.SettingsPatch)
	if err != nil {
		h.sendError(ctx, conn, err.Error())
		return
	}
	state.settings = session.Settings
	if v := strings.TrimSpace(cfg.Voice); v != "" {
		state.voice = v
	}

	h.sendInfo(ctx, conn, state.sessionID, map[string]any{
		"type":     "settings",
		"settings": state.settings,
		"voice":    state.voice,
	})
}

func (h *Handler) sendInfo(ctx context.Context, conn *websocket.Conn, sessionID string, data map[string]any) {
	h.write(ctx, conn, outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, message string) {
	h.write(ctx, conn, outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, msg outgoingMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
