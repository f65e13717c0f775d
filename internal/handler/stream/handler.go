package stream

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// SSE event names, in the order a client sees them.
const (
	EventStart   = "start"
	EventWarning = "warning"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Handler streams one exchange as Server-Sent Events
type Handler struct {
	bot *bot.Service
}

// New creates a new stream handler
func New(botSvc *bot.Service) *Handler {
	return &Handler{bot: botSvc}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Provider  string `json:"provider,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")
	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, bot.EmptyInputReply)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	_, p, err := h.bot.SessionPersona(ctx, sessionID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if !h.send(ctx, w, flusher, StreamResponse{
		Event:     EventStart,
		SessionID: sessionID,
		Content:   p.Name + " is thinking...",
	}) {
		return
	}

	// 回退告警在切换服务商时立即推送
	streamed := 0
	hooked := provider.WithWarningHook(ctx, func(warning string) {
		streamed++
		h.send(ctx, w, flusher, StreamResponse{
			Event:     EventWarning,
			SessionID: sessionID,
			Content:   warning,
		})
	})

	exchange, err := h.bot.Send(hooked, sessionID, userMessage)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session", sessionID).Msg("stream exchange failed")
		h.send(ctx, w, flusher, StreamResponse{
			Event:     EventError,
			SessionID: sessionID,
			Error:     err.Error(),
		})
		return
	}

	for _, warning := range exchange.Warnings[min(streamed, len(exchange.Warnings)):] {
		if !h.send(ctx, w, flusher, StreamResponse{
			Event:     EventWarning,
			SessionID: sessionID,
			Content:   warning,
		}) {
			return
		}
	}

	if !h.send(ctx, w, flusher, StreamResponse{
		Event:     EventMessage,
		SessionID: sessionID,
		Content:   exchange.BotMessage.Content,
		Provider:  exchange.Provider,
		MessageID: exchange.BotMessage.ID,
		Failed:    exchange.Failed,
	}) {
		return
	}

	h.send(ctx, w, flusher, StreamResponse{
		Event:     EventEnd,
		SessionID: sessionID,
		Finished:  true,
	})

	zerolog.Ctx(ctx).Debug().Str("session", sessionID).Str("persona", p.ID).Msg("stream completed")
}

// send 发送一条 SSE 事件；返回 false 表示客户端已断开
func (h *Handler) send(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, response StreamResponse) bool {
	if err := utils.SendSSEEvent(w, flusher, response.Event, response); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("sse client gone")
		return false
	}
	return true
}
