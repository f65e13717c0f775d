package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Chain kinds, used as metric labels and in warnings.
const (
	KindChat   = "chat"
	KindVision = "vision"
	KindImage  = "image"
	KindSpeech = "speech"
)

// maxChainLength bounds every chain to a primary and one secondary.
const maxChainLength = 2

// Observer receives one event per provider call and per fallback switch.
type Observer interface {
	ObserveAttempt(kind, provider string, err error, took time.Duration)
	ObserveFallback(kind, from, to string)
}

// Attempt records a failed provider call.
type Attempt struct {
	Provider string
	Err      error
}

// Outcome describes how a dispatch went.
type Outcome struct {
	// Provider is the provider that produced the result, empty on failure.
	Provider string
	// Attempts lists the failed calls in order.
	Attempts []Attempt
	// Warnings are the user-facing notices emitted when switching providers.
	Warnings []string
}

// FellBack reports whether the result came from the secondary provider.
func (o Outcome) FellBack() bool {
	return o.Provider != "" && len(o.Attempts) > 0
}

// ChainError is returned when every provider of a chain failed.
type ChainError struct {
	Kind     string
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for i, a := range e.Attempts {
		role := "primary"
		if i > 0 {
			role = "fallback"
		}
		if len(e.Attempts) == 1 {
			role = "provider"
		}
		parts = append(parts, fmt.Sprintf("%s %s error: %v", role, a.Provider, a.Err))
	}
	return e.Kind + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Last returns the error of the final attempt.
func (e *ChainError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Dispatcher runs fallback chains. Every attempt is bounded by timeout.
type Dispatcher struct {
	timeout  time.Duration
	observer Observer
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher. observer may be nil.
func NewDispatcher(timeout time.Duration, observer Observer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{timeout: timeout, observer: observer, logger: logger}
}

type warningHookKey struct{}

// WithWarningHook returns a context whose dispatches pass every fallback
// warning to fn before the next provider is tried. fn runs on the
// dispatching goroutine.
func WithWarningHook(ctx context.Context, fn func(warning string)) context.Context {
	return context.WithValue(ctx, warningHookKey{}, fn)
}

func warningHook(ctx context.Context) func(string) {
	fn, _ := ctx.Value(warningHookKey{}).(func(string))
	return fn
}

type step[T any] struct {
	name string
	call func(context.Context) (T, error)
}

// run tries each step in order and stops at the first success. A cancelled
// caller context ends the chain without starting the next step.
func run[T any](ctx context.Context, d *Dispatcher, kind string, steps []step[T]) (T, Outcome, error) {
	var (
		zero    T
		outcome Outcome
	)
	if len(steps) == 0 {
		return zero, outcome, ErrNoProvider
	}

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			outcome.Attempts = append(outcome.Attempts, Attempt{Provider: s.name, Err: err})
			break
		}

		value, err := attempt(ctx, d, kind, s)
		if err == nil {
			outcome.Provider = s.name
			return value, outcome, nil
		}
		outcome.Attempts = append(outcome.Attempts, Attempt{Provider: s.name, Err: err})

		if i+1 >= len(steps) || ctx.Err() != nil {
			break
		}
		next := steps[i+1].name
		warning := fallbackWarning(kind, s.name, err, next)
		outcome.Warnings = append(outcome.Warnings, warning)
		if hook := warningHook(ctx); hook != nil {
			hook(warning)
		}
		if d.observer != nil {
			d.observer.ObserveFallback(kind, s.name, next)
		}
		d.logger.Warn().Str("kind", kind).Str("from", s.name).Str("to", next).Err(err).Msg("provider failed, switching to fallback")
	}

	return zero, outcome, &ChainError{Kind: kind, Attempts: outcome.Attempts}
}

func attempt[T any](ctx context.Context, d *Dispatcher, kind string, s step[T]) (value T, err error) {
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			var empty T
			value = empty
			err = fmt.Errorf("%s panicked: %v", s.name, r)
		}
		if d.observer != nil {
			d.observer.ObserveAttempt(kind, s.name, err, time.Since(start))
		}
		if err == nil {
			d.logger.Debug().Str("kind", kind).Str("provider", s.name).Dur("took", time.Since(start)).Msg("provider call succeeded")
		}
	}()

	return s.call(callCtx)
}

func fallbackWarning(kind, from string, err error, to string) string {
	switch kind {
	case KindChat:
		return fmt.Sprintf("%s took a dive: %v\nSwitching to %s fallback...", from, err, to)
	case KindImage:
		return fmt.Sprintf("%s image hiccup: %v\nSwitching to %s fallback...", from, err, to)
	default:
		return fmt.Sprintf("%s %s slipped: %v\nSwitching to %s fallback...", from, kind, err, to)
	}
}

// chainOf keeps the first maxChainLength non-nil providers.
func chainOf[P Named](providers []P) []P {
	kept := make([]P, 0, maxChainLength)
	for _, p := range providers {
		if any(p) == nil {
			continue
		}
		kept = append(kept, p)
		if len(kept) == maxChainLength {
			break
		}
	}
	return kept
}

func namesOf[P Named](providers []P) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return names
}

// TextChain dispatches text generation.
type TextChain struct {
	d         *Dispatcher
	providers []TextProvider
}

// NewTextChain builds a chain from up to two providers; nil entries are skipped.
func NewTextChain(d *Dispatcher, providers ...TextProvider) *TextChain {
	return &TextChain{d: d, providers: chainOf(providers)}
}

// Names lists the configured providers in order.
func (c *TextChain) Names() []string { return namesOf(c.providers) }

// Generate returns the first successful reply.
func (c *TextChain) Generate(ctx context.Context, req TextRequest) (string, Outcome, error) {
	steps := make([]step[string], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		steps = append(steps, step[string]{name: p.Name(), call: func(ctx context.Context) (string, error) {
			return p.Generate(ctx, req)
		}})
	}
	return run(ctx, c.d, KindChat, steps)
}

// VisionChain dispatches image description.
type VisionChain struct {
	d         *Dispatcher
	providers []VisionProvider
}

// NewVisionChain builds a chain from up to two providers; nil entries are skipped.
func NewVisionChain(d *Dispatcher, providers ...VisionProvider) *VisionChain {
	return &VisionChain{d: d, providers: chainOf(providers)}
}

// Names lists the configured providers in order.
func (c *VisionChain) Names() []string { return namesOf(c.providers) }

// Describe returns the first successful description.
func (c *VisionChain) Describe(ctx context.Context, req VisionRequest) (string, Outcome, error) {
	steps := make([]step[string], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		steps = append(steps, step[string]{name: p.Name(), call: func(ctx context.Context) (string, error) {
			return p.Describe(ctx, req)
		}})
	}
	return run(ctx, c.d, KindVision, steps)
}

// ImageChain dispatches image generation.
type ImageChain struct {
	d         *Dispatcher
	providers []ImageProvider
}

// NewImageChain builds a chain from up to two providers; nil entries are skipped.
func NewImageChain(d *Dispatcher, providers ...ImageProvider) *ImageChain {
	return &ImageChain{d: d, providers: chainOf(providers)}
}

// Names lists the configured providers in order.
func (c *ImageChain) Names() []string { return namesOf(c.providers) }

// GenerateImage returns the first successfully generated image.
func (c *ImageChain) GenerateImage(ctx context.Context, prompt string) (*Image, Outcome, error) {
	steps := make([]step[*Image], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		steps = append(steps, step[*Image]{name: p.Name(), call: func(ctx context.Context) (*Image, error) {
			img, err := p.GenerateImage(ctx, prompt)
			if err != nil {
				return nil, err
			}
			if img == nil || (len(img.Data) == 0 && img.URL == "") {
				return nil, ErrMalformedResponse
			}
			return img, nil
		}})
	}
	return run(ctx, c.d, KindImage, steps)
}

// SpeechChain dispatches speech synthesis.
type SpeechChain struct {
	d         *Dispatcher
	providers []SpeechProvider
}

// NewSpeechChain builds a chain from up to two providers; nil entries are skipped.
func NewSpeechChain(d *Dispatcher, providers ...SpeechProvider) *SpeechChain {
	return &SpeechChain{d: d, providers: chainOf(providers)}
}

// Names lists the configured providers in order.
func (c *SpeechChain) Names() []string { return namesOf(c.providers) }

// Synthesize returns the first successful synthesis.
func (c *SpeechChain) Synthesize(ctx context.Context, req SpeechRequest) (*Audio, Outcome, error) {
	steps := make([]step[*Audio], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		steps = append(steps, step[*Audio]{name: p.Name(), call: func(ctx context.Context) (*Audio, error) {
			audio, err := p.Synthesize(ctx, req)
			if err != nil {
				return nil, err
			}
			if audio == nil || len(audio.Data) == 0 {
				return nil, ErrMalformedResponse
			}
			return audio, nil
		}})
	}
	return run(ctx, c.d, KindSpeech, steps)
}
