package chat

import (
	"context"
	"errors"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSpeaker  = errors.New("invalid speaker")
)

// Store keeps sessions and their conversation logs while the session is alive.
// Appends to one session are serialised and read back in append order.
type Store interface {
	CreateSession(ctx context.Context, personaID string, settings chat.Settings) (chat.Session, error)
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	UpdateSettings(ctx context.Context, sessionID string, patch chat.SettingsPatch) (chat.Session, error)
	SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error)
	LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Expirer is implemented by stores whose sessions lapse after an idle TTL.
// The hook runs once per lapsed session and must not call back into the store.
type Expirer interface {
	OnExpire(fn func(sessionID string))
	Sweep(ctx context.Context) (int, error)
}

func validateMessage(message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}
	if !message.Speaker.Valid() {
		return ErrInvalidSpeaker
	}
	return nil
}
