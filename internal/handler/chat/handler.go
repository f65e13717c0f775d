package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	bot *bot.Service
}

// New 创建聊天处理器
func New(botSvc *bot.Service) *Handler {
	return &Handler{bot: botSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleEndSession)
		r.Patch("/settings", h.handleUpdateSettings)
		r.Get("/messages", h.handleListMessages)
		r.Post("/messages", h.handleSendMessage)
	})
}

type createSessionRequest struct {
	PersonaID string         `json:"personaId"`
	Settings  *chat.Settings `json:"settings,omitempty"`
}

// handleCreateSession 创建会话，未指定 persona 时使用默认企鹅
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.bot.StartSession(r.Context(), payload.PersonaID, payload.Settings)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleGetSession 查询会话
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.bot.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleEndSession 结束会话并清空对话记录
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateSettings 更新主题和模式开关
func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch chat.SettingsPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Theme != nil {
		if _, ok := chat.ParseTheme(*patch.Theme); !ok {
			utils.RespondError(w, http.StatusBadRequest, "theme must be light or dark")
			return
		}
	}

	session, err := h.bot.UpdateSettings(r.Context(), chi.URLParam(r, "sessionID"), patch)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleListMessages 按插入顺序返回对话记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.bot.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 发送一条用户消息并返回企鹅的回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exchange, err := h.bot.Send(r.Context(), chi.URLParam(r, "sessionID"), payload.Content)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, exchange)
}
