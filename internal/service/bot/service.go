// Package bot runs the user-facing operations: chat exchanges, image
// generation and the image and text tools built on the provider chains.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/flavor"
)

// Recorder receives session and message counts.
type Recorder interface {
	SessionStarted()
	SessionEnded()
	MessageAppended(speaker string)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()        {}
func (nopRecorder) SessionEnded()          {}
func (nopRecorder) MessageAppended(string) {}

// Options wires a Service.
type Options struct {
	Store        chatsvc.Store
	Personas     persona.Store
	Text         *provider.TextChain
	Vision       *provider.VisionChain
	Images       *provider.ImageChain
	Decorator    *flavor.Decorator
	Defaults     chat.Settings
	HistoryLimit int
	Recorder     Recorder
	Logger       zerolog.Logger
}

// Service implements the chat and tool operations.
type Service struct {
	store        chatsvc.Store
	personas     persona.Store
	text         *provider.TextChain
	vision       *provider.VisionChain
	images       *provider.ImageChain
	decorator    *flavor.Decorator
	defaults     chat.Settings
	historyLimit int
	recorder     Recorder
	logger       zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serialises exchanges of one session. refs counts holders and
// waiters; the entry leaves the map when it drops to zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a Service. Missing chains behave as chains with no provider.
func NewService(opts Options) *Service {
	s := &Service{
		store:        opts.Store,
		personas:     opts.Personas,
		text:         opts.Text,
		vision:       opts.Vision,
		images:       opts.Images,
		decorator:    opts.Decorator,
		defaults:     opts.Defaults,
		historyLimit: opts.HistoryLimit,
		recorder:     opts.Recorder,
		logger:       opts.Logger,
		locks:        make(map[string]*sessionLock),
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.decorator == nil {
		s.decorator = flavor.NewDecorator(nil)
	}
	if s.defaults.Theme == "" {
		s.defaults = chat.DefaultSettings()
	}

	empty := provider.NewDispatcher(0, nil, opts.Logger)
	if s.text == nil {
		s.text = provider.NewTextChain(empty)
	}
	if s.vision == nil {
		s.vision = provider.NewVisionChain(empty)
	}
	if s.images == nil {
		s.images = provider.NewImageChain(empty)
	}
	if e, ok := s.store.(chatsvc.Expirer); ok {
		e.OnExpire(s.sessionExpired)
	}
	return s
}

// Defaults returns the settings new sessions start with.
func (s *Service) Defaults() chat.Settings { return s.defaults }

// StartSession opens a session for personaID; empty selects the default persona.
func (s *Service) StartSession(ctx context.Context, personaID string, settings *chat.Settings) (chat.Session, error) {
	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	initial := s.defaults
	if settings != nil {
		initial = *settings
		if theme, ok := chat.ParseTheme(string(initial.Theme)); ok {
			initial.Theme = theme
		} else {
			initial.Theme = s.defaults.Theme
		}
	}

	session, err := s.store.CreateSession(ctx, p.ID, initial)
	if err != nil {
		return chat.Session{}, err
	}
	s.recorder.SessionStarted()
	s.logger.Info().Str("session", session.ID).Str("persona", p.ID).Msg("session started")
	return session, nil
}

// EndSession drops the session and its conversation log.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if err := s.store.EndSession(ctx, sessionID); err != nil {
		return err
	}
	s.recorder.SessionEnded()
	s.logger.Info().Str("session", sessionID).Msg("session ended")
	return nil
}

func (s *Service) sessionExpired(sessionID string) {
	s.recorder.SessionEnded()
	s.logger.Info().Str("session", sessionID).Msg("session expired")
}

// Session returns the stored session.
func (s *Service) Session(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// SessionPersona returns the session together with the persona it is bound to.
func (s *Service) SessionPersona(ctx context.Context, sessionID string) (chat.Session, persona.Persona, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Session{}, persona.Persona{}, err
	}
	p, err := s.persona(session.PersonaID)
	if err != nil {
		return chat.Session{}, persona.Persona{}, err
	}
	return session, p, nil
}

// UpdateSettings applies toggles to a session.
func (s *Service) UpdateSettings(ctx context.Context, sessionID string, patch chat.SettingsPatch) (chat.Session, error) {
	return s.store.UpdateSettings(ctx, sessionID, patch)
}

// Transcript returns the conversation log in insertion order.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.LoadTranscript(ctx, sessionID)
}

// Exchange is the result of one user→bot turn.
type Exchange struct {
	UserMessage chat.Message `json:"userMessage"`
	BotMessage  chat.Message `json:"botMessage"`
	Provider    string       `json:"provider,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
	Failed      bool         `json:"failed"`
}

// Send appends the user entry, asks the text chain and appends the bot entry.
// Exchanges of one session never interleave. A provider failure still yields
// an exchange whose bot entry is ChatFailedReply.
func (s *Service) Send(ctx context.Context, sessionID, content string) (*Exchange, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := s.personas.FindByID(session.PersonaID)
	if !ok {
		return nil, ErrPersonaNotFound
	}

	history, err := s.history(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Speaker:   chat.SpeakerUser,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	s.recorder.MessageAppended(string(chat.SpeakerUser))

	exchange := &Exchange{UserMessage: userMsg}
	reply, outcome, genErr := s.text.Generate(ctx, provider.TextRequest{
		System:  p.SystemPrompt,
		History: history,
		Prompt:  content,
	})
	exchange.Warnings = outcome.Warnings

	if genErr != nil {
		if isCallerGone(ctx, genErr) {
			s.logger.Warn().Err(genErr).Str("session", sessionID).Msg("client went away during generation")
		} else {
			s.logger.Error().Err(genErr).Str("session", sessionID).Msg("chat generation failed")
		}
		reply = ChatFailedReply
		exchange.Failed = true
	} else {
		reply = s.decorator.Decorate(content, reply, flavor.Options{
			PenguinMode: session.Settings.PenguinMode,
			SigmaMode:   session.Settings.SigmaMode,
			Endings:     p.Endings,
			Roasts:      p.Roasts,
		})
		exchange.Provider = outcome.Provider
	}

	// 使用独立 context 写入回复，避免客户端断开后日志只剩半轮对话。
	botMsg, err := s.store.SaveMessage(context.WithoutCancel(ctx), chat.Message{
		SessionID: sessionID,
		Speaker:   chat.SpeakerBot,
		Content:   reply,
		Provider:  exchange.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save bot message: %w", err)
	}
	s.recorder.MessageAppended(string(chat.SpeakerBot))
	exchange.BotMessage = botMsg

	s.logger.Debug().
		Str("session", sessionID).
		Str("provider", exchange.Provider).
		Int("warnings", len(exchange.Warnings)).
		Msg("exchange completed")
	return exchange, nil
}

func (s *Service) history(ctx context.Context, sessionID string) ([]provider.Turn, error) {
	if s.historyLimit <= 0 {
		return nil, nil
	}
	transcript, err := s.store.LoadTranscript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(transcript) > s.historyLimit {
		transcript = transcript[len(transcript)-s.historyLimit:]
	}

	turns := make([]provider.Turn, 0, len(transcript))
	for _, msg := range transcript {
		turns = append(turns, provider.Turn{FromUser: msg.Speaker == chat.SpeakerUser, Text: msg.Content})
	}
	return turns, nil
}

func (s *Service) lockSession(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

// ProviderNames lists the configured providers per chain, in dispatch order.
func (s *Service) ProviderNames() map[string][]string {
	return map[string][]string{
		provider.KindChat:   s.text.Names(),
		provider.KindVision: s.vision.Names(),
		provider.KindImage:  s.images.Names(),
	}
}

func (s *Service) persona(id string) (persona.Persona, error) {
	p, ok := s.personas.FindByID(id)
	if !ok {
		return persona.Persona{}, ErrPersonaNotFound
	}
	return p, nil
}

func isCallerGone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
