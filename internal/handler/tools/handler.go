package tools

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/respond"
	"github.com/cowalsky-lab/cowalsky/backend/internal/media"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/geo"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// Locator 查询 IP 地理位置
type Locator interface {
	Lookup(ctx context.Context, ip string) (*geo.Location, error)
}

// Handler 辅助工具的HTTP处理器
type Handler struct {
	bot     *bot.Service
	locator Locator
}

// New 创建工具处理器
func New(botSvc *bot.Service, locator Locator) *Handler {
	return &Handler{bot: botSvc, locator: locator}
}

// RegisterRoutes 注册工具相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tools", func(tr chi.Router) {
		tr.Post("/ocr", h.handleOCR)
		tr.Post("/scan", h.handleScan)
		tr.Get("/geo", h.handleGeo)
		tr.Post("/qr", h.handleQR)
		tr.Post("/exif", h.handleExif)
	})
}

// handleOCR 识别图片中的文字
func (h *Handler) handleOCR(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.bot.ExtractText(r.Context(), data, mimeType)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

type scanRequest struct {
	Text        string `json:"text"`
	PersonaID   string `json:"personaId,omitempty"`
	PenguinMode *bool  `json:"penguinMode,omitempty"`
}

// handleScan 解释粘贴的端口扫描结果
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var payload scanRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := bot.ToolOptions{PersonaID: payload.PersonaID, PenguinMode: h.bot.Defaults().PenguinMode}
	if payload.PenguinMode != nil {
		opts.PenguinMode = *payload.PenguinMode
	}

	result, err := h.bot.ExplainScan(r.Context(), payload.Text, opts)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// handleGeo 查询 IP 位置；未提供 ip 时使用调用方地址
func (h *Handler) handleGeo(w http.ResponseWriter, r *http.Request) {
	if h.locator == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "geolocation unavailable")
		return
	}

	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		ip = callerIP(r)
	}

	loc, err := h.locator.Lookup(r.Context(), ip)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, loc)
}

type qrRequest struct {
	Content string `json:"content"`
	Size    int    `json:"size,omitempty"`
}

// handleQR 生成二维码 PNG
func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	var payload qrRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	png, err := media.QRCode(payload.Content, payload.Size)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondBinary(w, http.StatusOK, "image/png", "", png)
}

// handleExif 读取照片的相机、时间和 GPS 信息
func (h *Handler) handleExif(w http.ResponseWriter, r *http.Request) {
	data, err := utils.ReadUpload(w, r, "image")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	info, err := media.ReadExif(data)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

// callerIP 取 RealIP 中间件处理后的远端地址
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
