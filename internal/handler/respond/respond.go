// Package respond maps service errors to HTTP responses.
package respond

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/media"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/geo"
	speechsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	var replyErr *bot.ReplyError
	var chainErr *provider.ChainError
	switch {
	case errors.As(err, &replyErr), errors.As(err, &chainErr):
		return http.StatusBadGateway
	case errors.Is(err, chatsvc.ErrSessionNotFound),
		errors.Is(err, bot.ErrPersonaNotFound),
		errors.Is(err, chatsvc.ErrPersonaRequired):
		return http.StatusNotFound
	case errors.Is(err, bot.ErrEmptyMessage),
		errors.Is(err, bot.ErrEmptyPrompt),
		errors.Is(err, bot.ErrEmptyImage),
		errors.Is(err, speechsvc.ErrEmptyText),
		errors.Is(err, geo.ErrInvalidIP),
		errors.Is(err, geo.ErrPrivateIP),
		errors.Is(err, media.ErrEmptyQRContent),
		errors.Is(err, media.ErrQRContentTooBig),
		errors.Is(err, media.ErrUnsupportedImage),
		errors.Is(err, utils.ErrEmptyBody),
		errors.Is(err, utils.ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrNoExif):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, geo.ErrLookup):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error": ...}; rendered provider failures carry their warnings.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	var replyErr *bot.ReplyError
	if errors.As(err, &replyErr) {
		utils.RespondErrorWithWarnings(w, status, replyErr.Reply, replyErr.Warnings)
		return
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		message = "internal error"
	}
	utils.RespondError(w, status, message)
}
