package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
)

const (
	sessionPrefix     = "cowalsky:session:"
	sessionIndexKey   = "cowalsky:sessions"
	messagesSuffix    = ":messages"
	maxWatchRetries   = 3
	defaultSessionTTL = 40 * time.Minute
)

// RedisStore keeps sessions in Redis with a sliding TTL so several API
// replicas can serve one conversation. A sorted set scores every session by
// the time its TTL runs out, which lets Sweep report lapsed sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	hookMu   sync.RWMutex
	onExpire func(sessionID string)
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the redis store")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// HealthCheck pings Redis.
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func sessionKey(sessionID string) string  { return sessionPrefix + sessionID }
func messagesKey(sessionID string) string { return sessionPrefix + sessionID + messagesSuffix }

// deadline is the index score of a session touched now.
func (r *RedisStore) deadline() float64 {
	return float64(r.now().Add(r.ttl).UnixMilli())
}

// touch slides the index entry of a live session. XX keeps a lapsed
// session that was already swept from coming back.
func (r *RedisStore) touch(ctx context.Context, cmd redis.Cmdable, sessionID string) {
	cmd.ZAddXX(ctx, sessionIndexKey, redis.Z{Score: r.deadline(), Member: sessionID})
}

// OnExpire registers fn to be told about every session dropped by the TTL.
func (r *RedisStore) OnExpire(fn func(sessionID string)) {
	r.hookMu.Lock()
	r.onExpire = fn
	r.hookMu.Unlock()
}

// Sweep drops index entries whose session key Redis has already expired.
// ZREM decides which replica reports a session, so each one is reported once.
func (r *RedisStore) Sweep(ctx context.Context) (int, error) {
	due, err := r.client.ZRangeByScore(ctx, sessionIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(r.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan session index: %w", err)
	}

	r.hookMu.RLock()
	hook := r.onExpire
	r.hookMu.RUnlock()

	dropped := 0
	for _, id := range due {
		exists, err := r.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return dropped, fmt.Errorf("failed to check session: %w", err)
		}
		if exists > 0 {
			continue
		}
		removed, err := r.client.ZRem(ctx, sessionIndexKey, id).Result()
		if err != nil {
			return dropped, fmt.Errorf("failed to drop session index entry: %w", err)
		}
		if removed == 0 {
			continue
		}
		dropped++
		if hook != nil {
			hook(id)
		}
	}
	return dropped, nil
}

// CreateSession stores a new session.
func (r *RedisStore) CreateSession(ctx context.Context, personaID string, settings chat.Settings) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}

	data, err := sonic.Marshal(session)
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, r.ttl)
		pipe.ZAdd(ctx, sessionIndexKey, redis.Z{Score: r.deadline(), Member: session.ID})
		return nil
	})
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// GetSession loads a session and slides its TTL.
func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	data, err := r.client.GetEx(ctx, sessionKey(sessionID), r.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return chat.Session{}, ErrSessionNotFound
		}
		return chat.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var session chat.Session
	if err := sonic.Unmarshal(data, &session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	r.client.Expire(ctx, messagesKey(sessionID), r.ttl)
	r.touch(ctx, r.client, sessionID)
	return session, nil
}

// UpdateSettings applies patch under an optimistic WATCH transaction.
func (r *RedisStore) UpdateSettings(ctx context.Context, sessionID string, patch chat.SettingsPatch) (chat.Session, error) {
	key := sessionKey(sessionID)
	var updated chat.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}

		var session chat.Session
		if err := sonic.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		session.Settings = patch.Apply(session.Settings)

		encoded, err := sonic.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			pipe.Expire(ctx, messagesKey(sessionID), r.ttl)
			r.touch(ctx, pipe, sessionID)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return chat.Session{}, err
			}
			return chat.Session{}, fmt.Errorf("failed to update settings: %w", err)
		}
		return updated, nil
	}
	return chat.Session{}, fmt.Errorf("failed to update settings: %w", redis.TxFailedErr)
}

// SaveMessage appends to the session list. RPUSH keeps server arrival order.
func (r *RedisStore) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}

	exists, err := r.client.Exists(ctx, sessionKey(message.SessionID)).Result()
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	data, err := sonic.Marshal(message)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(message.SessionID), data)
		pipe.Expire(ctx, messagesKey(message.SessionID), r.ttl)
		pipe.Expire(ctx, sessionKey(message.SessionID), r.ttl)
		r.touch(ctx, pipe, message.SessionID)
		return nil
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	return message, nil
}

// LoadTranscript returns the session log in append order.
func (r *RedisStore) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := r.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raw, err := r.client.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := sonic.UnmarshalString(item, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// EndSession deletes the session and its log.
func (r *RedisStore) EndSession(ctx context.Context, sessionID string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, sessionKey(sessionID), messagesKey(sessionID))
		pipe.ZRem(ctx, sessionIndexKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if del.Val() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
