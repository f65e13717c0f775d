package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// Handler 角色目录的HTTP处理器
type Handler struct {
	personas persona.Store
}

func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes 注册角色目录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/{personaID}", h.handleGet)
}

// handleList 按目录顺序列出角色，空目录返回 []
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items := h.personas.List()
	if items == nil {
		items = []persona.Persona{}
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		respond.Error(w, r, bot.ErrPersonaNotFound)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
