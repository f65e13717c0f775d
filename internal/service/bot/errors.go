package bot

import (
	"errors"

	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

// User-visible replies.
const (
	ChatFailedReply    = "Eek! My ice broke, can’t think right now."
	EmptyInputReply    = "Say something, even penguins need words!"
	imageFailedPrefix  = "❌ Both image generators failed: "
	visionFailedPrefix = "🐧 Oops, slipped analyzing that image: "
	toolFailedPrefix   = "Error: "
)

var (
	// ErrEmptyMessage carries the empty input warning as its message.
	ErrEmptyMessage    = errors.New(EmptyInputReply)
	ErrEmptyPrompt     = errors.New("prompt is required")
	ErrEmptyImage      = errors.New("image is required")
	ErrPersonaNotFound = errors.New("persona not found")
)

// ReplyError is a provider failure already rendered for the user.
type ReplyError struct {
	Reply    string
	Warnings []string
	Err      error
}

func (e *ReplyError) Error() string { return e.Reply }

func (e *ReplyError) Unwrap() error { return e.Err }

func newReplyError(prefix string, outcome provider.Outcome, err error) *ReplyError {
	return &ReplyError{
		Reply:    prefix + lastError(err).Error(),
		Warnings: outcome.Warnings,
		Err:      err,
	}
}

// lastError picks the error of the final attempt, the one a user saw last.
func lastError(err error) error {
	var chainErr *provider.ChainError
	if errors.As(err, &chainErr) {
		if last := chainErr.Last(); last != nil {
			return last
		}
	}
	return err
}
