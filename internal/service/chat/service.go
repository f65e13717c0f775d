package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
)

type memorySession struct {
	session  chat.Session
	messages []chat.Message
	touched  time.Time
}

// MemoryStore 为进程内会话存储，会话在闲置超过 ttl 后失效。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
	onExpire func(sessionID string)
}

// NewMemoryStore bootstraps the in-memory store. A zero ttl keeps sessions until ended.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions an anonymous session bound to a persona.
func (s *MemoryStore) CreateSession(_ context.Context, personaID string, settings chat.Settings) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		Settings:  settings,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &memorySession{
		session:  session,
		messages: make([]chat.Message, 0, 16),
		touched:  now,
	}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return entry.session, nil
}

// UpdateSettings applies patch to the session toggles.
func (s *MemoryStore) UpdateSettings(_ context.Context, sessionID string, patch chat.SettingsPatch) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	entry.session.Settings = patch.Apply(entry.session.Settings)
	return entry.session, nil
}

// SaveMessage appends a message to the session history.
func (s *MemoryStore) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(message.SessionID)
	if err != nil {
		return chat.Message{}, err
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	entry.messages = append(entry.messages, message)
	return message, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *MemoryStore) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(sessionID)
	if err != nil {
		return nil, err
	}

	copied := make([]chat.Message, len(entry.messages))
	copy(copied, entry.messages)
	return copied, nil
}

// EndSession drops the session and its conversation log.
func (s *MemoryStore) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(sessionID); err != nil {
		return err
	}
	delete(s.sessions, sessionID)
	return nil
}

// OnExpire registers fn to be told about every session dropped by the TTL.
func (s *MemoryStore) OnExpire(fn func(sessionID string)) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep(context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.touched) > s.ttl {
			s.expireLocked(id)
			dropped++
		}
	}
	return dropped, nil
}

func (s *MemoryStore) expireLocked(sessionID string) {
	delete(s.sessions, sessionID)
	if s.onExpire != nil {
		s.onExpire(sessionID)
	}
}

// lookupLocked 查找会话并刷新活跃时间，调用方需持有写锁。
func (s *MemoryStore) lookupLocked(sessionID string) (*memorySession, error) {
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	if s.ttl > 0 && now.Sub(entry.touched) > s.ttl {
		s.expireLocked(sessionID)
		return nil, ErrSessionNotFound
	}
	entry.touched = now
	return entry, nil
}
