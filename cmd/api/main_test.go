package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NewServeMux()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBuildChainsSkipsUnconfiguredProviders(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{
			ChatPrimary:   config.ProviderArk,
			ChatSecondary: config.ProviderOpenAI,
			ImagePrimary:  config.ProviderArk,
			Timeout:       time.Second,
		},
		Speech: config.SpeechConfig{Primary: config.ProviderOpenAI, Secondary: config.ProviderVolcengine},
	}
	d := provider.NewDispatcher(time.Second, nil, zerolog.Nop())

	got := buildChains(context.Background(), cfg, d, zerolog.Nop())

	assert.Empty(t, got.text.Names())
	assert.Empty(t, got.vision.Names())
	assert.Empty(t, got.images.Names())
	assert.Empty(t, got.speech.Names())
}

func TestBuildChainsOrdersConfiguredProviders(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{
			ImagePrimary:   config.ProviderOpenAI,
			ImageSecondary: config.ProviderArk,
			Timeout:        time.Second,
		},
		OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Speech: config.SpeechConfig{
			Primary:     config.ProviderVolcengine,
			Secondary:   config.ProviderOpenAI,
			AppID:       "app",
			AccessToken: "token",
		},
	}
	d := provider.NewDispatcher(time.Second, nil, zerolog.Nop())

	got := buildChains(context.Background(), cfg, d, zerolog.Nop())

	assert.Equal(t, []string{"openai"}, got.images.Names())
	assert.Equal(t, []string{"volcengine", "openai"}, got.speech.Names())
}

func TestLoadPersonasFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas:\n  - id: cowalsky\n    name: Cowalsky\n"), 0o600))

	store, err := loadPersonas(config.PersonaConfig{File: path}, zerolog.Nop())
	require.NoError(t, err)

	p, ok := store.FindByID("")
	require.True(t, ok)
	assert.Equal(t, "Cowalsky", p.Name)
}

func TestOpenStoreMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, config.StoreConfig{Driver: config.StoreMemory, SessionTTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore()

	_, ok := store.(*chatsvc.MemoryStore)
	assert.True(t, ok)
}

func TestSessionDefaults(t *testing.T) {
	got := sessionDefaults(config.PersonaConfig{Theme: "DARK", PenguinMode: false, SigmaMode: true})

	assert.Equal(t, chat.Settings{Theme: chat.ThemeDark, PenguinMode: false, SigmaMode: true}, got)
}
