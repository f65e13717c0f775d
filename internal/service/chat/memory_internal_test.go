package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
)

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	var expired []string
	store.OnExpire(func(id string) { expired = append(expired, id) })

	ctx := context.Background()
	idle, err := store.CreateSession(ctx, "cowalsky", chat.DefaultSettings())
	require.NoError(t, err)
	active, err := store.CreateSession(ctx, "cowalsky", chat.DefaultSettings())
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second)
	_, err = store.GetSession(ctx, active.ID)
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{idle.ID}, expired)

	_, err = store.GetSession(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.GetSession(ctx, active.ID)
	assert.NoError(t, err)
}

func TestMemoryStoreLazyExpiryFiresHookOnce(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	expired := 0
	store.OnExpire(func(string) { expired++ })

	ctx := context.Background()
	session, err := store.CreateSession(ctx, "cowalsky", chat.DefaultSettings())
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, err = store.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, expired)
}

func TestMemoryStoreEndSessionIsNotExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	expired := 0
	store.OnExpire(func(string) { expired++ })

	ctx := context.Background()
	session, err := store.CreateSession(ctx, "cowalsky", chat.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, store.EndSession(ctx, session.ID))
	assert.Zero(t, expired)
}
