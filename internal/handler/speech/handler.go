package speech

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	speechsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Enabled() bool
	Providers() []string
	Synthesize(ctx context.Context, text, voice string) (*speechsvc.Result, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	bot       *bot.Service
}

// New 创建语音处理器；botSvc 用于按会话解析 persona 的默认音色，可为 nil
func New(speechSvc SpeechService, botSvc *bot.Service) *Handler {
	return &Handler{speechSvc: speechSvc, bot: botSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Post("/synthesize/{sessionID}", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = h.resolveVoiceFromSession(r.Context(), chi.URLParam(r, "sessionID"))
	}

	result, err := h.speechSvc.Synthesize(r.Context(), req.Text, voice)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("speech synthesis failed")
		respond.Error(w, r, err)
		return
	}

	format := result.Audio.Format
	if format == "" {
		format = "mp3"
	}
	mimeType := result.Audio.MIMEType
	if mimeType == "" {
		mimeType = "audio/" + format
	}
	w.Header().Set("X-Speech-Provider", result.Provider)
	if len(result.Warnings) > 0 {
		// 告警含换行，响应头里只标记发生了回退
		w.Header().Set("X-Speech-Fallback", "true")
	}
	utils.RespondBinary(w, http.StatusOK, mimeType, "speech."+format, result.Audio.Data)
}

func (h *Handler) resolveVoiceFromSession(ctx context.Context, sessionID string) string {
	if h.bot == nil || strings.TrimSpace(sessionID) == "" {
		return ""
	}
	_, p, err := h.bot.SessionPersona(ctx, sessionID)
	if err != nil {
		return ""
	}
	return p.VoiceID
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.speechSvc.Enabled() {
		status = "disabled"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"service":   "speech",
		"providers": h.speechSvc.Providers(),
	})
}
