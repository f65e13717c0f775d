package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler"
	"github.com/cowalsky-lab/cowalsky/backend/internal/logger"
	"github.com/cowalsky-lab/cowalsky/backend/internal/observability"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/flavor"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/geo"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	base, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	if envErr != nil {
		base.Debug().Err(envErr).Msg("no .env file loaded, continuing with system environment variables only")
	}

	if err := run(ctx, cfg, base); err != nil {
		base.Fatal().Err(err).Msg("server error")
	}
}

func run(ctx context.Context, cfg *config.Config, base zerolog.Logger) error {
	metrics := observability.NewMetrics("cowalsky")
	dispatcher := provider.NewDispatcher(cfg.Dispatch.Timeout, metrics, logger.Component(base, "dispatch"))

	personaStore, err := loadPersonas(cfg.Persona, logger.Component(base, "persona"))
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Store, logger.Component(base, "store"))
	if err != nil {
		return err
	}
	defer closeStore()

	chains := buildChains(ctx, cfg, dispatcher, logger.Component(base, "provider"))

	botService := bot.NewService(bot.Options{
		Store:        store,
		Personas:     personaStore,
		Text:         chains.text,
		Vision:       chains.vision,
		Images:       chains.images,
		Decorator:    flavor.NewDecorator(flavor.NewPicker(flavor.ParseSelection(cfg.Dispatch.SuffixSelection))),
		Defaults:     sessionDefaults(cfg.Persona),
		HistoryLimit: cfg.Dispatch.HistoryLimit,
		Recorder:     metrics,
		Logger:       logger.Component(base, "bot"),
	})

	deps := handler.Deps{
		Personas: personaStore,
		Bot:      botService,
		Speech:   speech.NewService(chains.speech),
		Locator:  geo.NewClient(cfg.Geo),
		Metrics:  metrics.Handler(),
		Logger:   logger.Component(base, "http"),
	}
	if hc, ok := store.(handler.HealthChecker); ok {
		deps.Store = hc
	}
	router := handler.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	base.Info().
		Str("addr", cfg.Server.Addr).
		Strs("chat", chains.text.Names()).
		Strs("vision", chains.vision.Names()).
		Strs("image", chains.images.Names()).
		Strs("speech", chains.speech.Names()).
		Msg("Cowalsky backend listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
