package images

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/media"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// DownloadName is the attachment name of a generated image.
const DownloadName = "cowalsky_creation.png"

// Handler 图片生成与识图的HTTP处理器
type Handler struct {
	bot *bot.Service
}

// New 创建图片处理器
func New(botSvc *bot.Service) *Handler {
	return &Handler{bot: botSvc}
}

// RegisterRoutes 注册图片相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/images", h.handleGenerate)
	r.Post("/images/analyze", h.handleAnalyze)
}

type generateResponse struct {
	Image         string   `json:"image,omitempty"`
	MIMEType      string   `json:"mimeType,omitempty"`
	URL           string   `json:"url,omitempty"`
	RevisedPrompt string   `json:"revisedPrompt,omitempty"`
	Provider      string   `json:"provider"`
	Warnings      []string `json:"warnings,omitempty"`
}

// handleGenerate 生成图片；Accept: image/png 时直接下载 PNG
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.bot.GenerateImage(r.Context(), payload.Prompt)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	img := result.Image
	if wantsPNG(r) && len(img.Data) > 0 {
		png, err := media.ToPNG(img.Data)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		w.Header().Set("X-Image-Provider", result.Provider)
		utils.RespondBinary(w, http.StatusOK, "image/png", DownloadName, png)
		return
	}

	// 只有 URL 时无法转码，退回 JSON
	resp := generateResponse{
		MIMEType:      img.MIMEType,
		URL:           img.URL,
		RevisedPrompt: img.RevisedPrompt,
		Provider:      result.Provider,
		Warnings:      result.Warnings,
	}
	if len(img.Data) > 0 {
		resp.Image = base64.StdEncoding.EncodeToString(img.Data)
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleAnalyze 以企鹅侦探的口吻描述上传的图片
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, err := utils.ReadUpload(w, r, "image")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	mimeType, err := media.SniffImage(data)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	opts, err := toolOptions(r, h.bot)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	result, err := h.bot.AnalyzeImage(r.Context(), data, mimeType, opts)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func wantsPNG(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "image/png") || r.URL.Query().Get("download") == "png"
}

// toolOptions 从表单读取 persona 与企鹅模式；给出 sessionId 时沿用会话设置
func toolOptions(r *http.Request, botSvc *bot.Service) (bot.ToolOptions, error) {
	opts := bot.ToolOptions{
		PersonaID:   r.FormValue("personaId"),
		PenguinMode: botSvc.Defaults().PenguinMode,
	}
	if sessionID := r.FormValue("sessionId"); sessionID != "" {
		session, p, err := botSvc.SessionPersona(r.Context(), sessionID)
		if err != nil {
			return bot.ToolOptions{}, err
		}
		opts.PersonaID = p.ID
		opts.PenguinMode = session.Settings.PenguinMode
	}
	if raw := r.FormValue("penguinMode"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			opts.PenguinMode = v
		}
	}
	return opts, nil
}
