package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/model/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
	chatsvc "github.com/cowalsky-lab/cowalsky/backend/internal/service/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/flavor"
)

type stubText struct {
	name    string
	reply   string
	err     error
	mu      sync.Mutex
	calls   int
	lastReq provider.TextRequest
}

func (s *stubText) Name() string { return s.name }

func (s *stubText) Generate(_ context.Context, req provider.TextRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReq = req
	return s.reply, s.err
}

type stubVision struct {
	name    string
	reply   string
	err     error
	lastReq provider.VisionRequest
}

func (s *stubVision) Name() string { return s.name }

func (s *stubVision) Describe(_ context.Context, req provider.VisionRequest) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

type stubImages struct {
	name string
	img  *provider.Image
	err  error
}

func (s *stubImages) Name() string { return s.name }

func (s *stubImages) GenerateImage(context.Context, string) (*provider.Image, error) {
	return s.img, s.err
}

type countingRecorder struct {
	mu       sync.Mutex
	started  int
	ended    int
	messages map[string]int
}

func (r *countingRecorder) SessionStarted() { r.mu.Lock(); r.started++; r.mu.Unlock() }
func (r *countingRecorder) SessionEnded()   { r.mu.Lock(); r.ended++; r.mu.Unlock() }
func (r *countingRecorder) MessageAppended(speaker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = map[string]int{}
	}
	r.messages[speaker]++
}

type fixture struct {
	svc      *Service
	recorder *countingRecorder
}

func newFixture(t *testing.T, text []provider.TextProvider, vision []provider.VisionProvider, images []provider.ImageProvider, historyLimit int) fixture {
	t.Helper()
	d := provider.NewDispatcher(time.Second, nil, zerolog.Nop())
	rec := &countingRecorder{}
	svc := NewService(Options{
		Store:        chatsvc.NewMemoryStore(time.Hour),
		Personas:     persona.NewMemoryStore(persona.Seed()),
		Text:         provider.NewTextChain(d, text...),
		Vision:       provider.NewVisionChain(d, vision...),
		Images:       provider.NewImageChain(d, images...),
		Decorator:    flavor.NewDecorator(flavor.LengthPicker{}),
		HistoryLimit: historyLimit,
		Recorder:     rec,
		Logger:       zerolog.Nop(),
	})
	return fixture{svc: svc, recorder: rec}
}

func TestSendPenguinifiesReply(t *testing.T) {
	primary := &stubText{name: "ark", reply: "Ice is frozen water"}
	f := newFixture(t, []provider.TextProvider{primary}, nil, nil, 0)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultID, session.PersonaID)

	exchange, err := f.svc.Send(ctx, session.ID, "what is ice?")
	require.NoError(t, err)

	reply := "Ice is frozen water"
	want := reply + "\n\n– said the penguin, " + persona.PenguinEndings[len([]rune(reply))%len(persona.PenguinEndings)]
	assert.Equal(t, want, exchange.BotMessage.Content)
	assert.Equal(t, "ark", exchange.Provider)
	assert.Equal(t, "ark", exchange.BotMessage.Provider)
	assert.False(t, exchange.Failed)
	assert.Equal(t, "what is ice?", primary.lastReq.Prompt)
	assert.NotEmpty(t, primary.lastReq.System)
	assert.Empty(t, primary.lastReq.History)

	transcript, err := f.svc.Transcript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, chat.SpeakerUser, transcript[0].Speaker)
	assert.Equal(t, chat.SpeakerBot, transcript[1].Speaker)
	assert.Equal(t, 1, f.recorder.started)
	assert.Equal(t, 1, f.recorder.messages["user"])
	assert.Equal(t, 1, f.recorder.messages["bot"])
}

func TestSendSigmaModeRoastsPrompt(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{&stubText{name: "ark", reply: "42"}}, nil, nil, 0)
	ctx := context.Background()

	off := false
	on := true
	session, err := f.svc.StartSession(ctx, persona.DefaultID, &chat.Settings{Theme: "Dark", PenguinMode: off, SigmaMode: on})
	require.NoError(t, err)
	assert.Equal(t, chat.ThemeDark, session.Settings.Theme)

	prompt := "meaning of life?"
	exchange, err := f.svc.Send(ctx, session.ID, prompt)
	require.NoError(t, err)
	want := "42\n\n😈 Sigma Mode: " + persona.SigmaRoasts[len([]rune(prompt))%len(persona.SigmaRoasts)]
	assert.Equal(t, want, exchange.BotMessage.Content)
}

func TestSendFallsBackWithWarning(t *testing.T) {
	primary := &stubText{name: "ark", err: errors.New("quota")}
	secondary := &stubText{name: "openai", reply: "hi"}
	f := newFixture(t, []provider.TextProvider{primary, secondary}, nil, nil, 0)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	exchange, err := f.svc.Send(ctx, session.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "openai", exchange.Provider)
	require.Len(t, exchange.Warnings, 1)
	assert.True(t, strings.HasPrefix(exchange.Warnings[0], "ark took a dive: quota"))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestSendBothFailAppendsEek(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{
		&stubText{name: "ark", err: errors.New("down")},
		&stubText{name: "openai", err: errors.New("down too")},
	}, nil, nil, 0)
	ctx := context.Background()

	on := true
	session, err := f.svc.StartSession(ctx, "", &chat.Settings{PenguinMode: true, SigmaMode: on})
	require.NoError(t, err)

	exchange, err := f.svc.Send(ctx, session.ID, "hello")
	require.NoError(t, err)
	assert.True(t, exchange.Failed)
	assert.Equal(t, ChatFailedReply, exchange.BotMessage.Content)
	assert.Empty(t, exchange.Provider)

	transcript, err := f.svc.Transcript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, ChatFailedReply, transcript[1].Content)
}

func TestSendWithoutProvidersNeverPanics(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	exchange, err := f.svc.Send(ctx, session.ID, "anyone home?")
	require.NoError(t, err)
	assert.Equal(t, ChatFailedReply, exchange.BotMessage.Content)

	_, err = f.svc.GenerateImage(ctx, "penguin")
	var replyErr *ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, "❌ Both image generators failed: no provider configured", replyErr.Reply)

	_, err = f.svc.AnalyzeImage(ctx, []byte("img"), "image/png", ToolOptions{})
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, "🐧 Oops, slipped analyzing that image: no provider configured", replyErr.Reply)

	_, err = f.svc.ExtractText(ctx, []byte("img"), "image/png")
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, "Error: no provider configured", replyErr.Reply)

	_, err = f.svc.ExplainScan(ctx, "22/tcp open ssh", ToolOptions{})
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, "Error: no provider configured", replyErr.Reply)
}

func TestSendEmptyReplySlipped(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{&stubText{name: "ark", reply: ""}}, nil, nil, 0)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	exchange, err := f.svc.Send(ctx, session.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, flavor.EmptyReply, exchange.BotMessage.Content)
}

func TestSendRejectsEmptyInput(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, session.ID, "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, EmptyInputReply, err.Error())

	transcript, err := f.svc.Transcript(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestSendUnknownSession(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	_, err := f.svc.Send(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, chatsvc.ErrSessionNotFound)
}

func TestSendUnknownSessionsLeaveNoLocks(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		_, err := f.svc.Send(ctx, fmt.Sprintf("bogus-%d", i), "hi")
		require.ErrorIs(t, err, chatsvc.ErrSessionNotFound)
	}

	f.svc.locksMu.Lock()
	defer f.svc.locksMu.Unlock()
	assert.Empty(t, f.svc.locks)
}

func TestExpiredSessionBalancesRecorder(t *testing.T) {
	store := chatsvc.NewMemoryStore(10 * time.Millisecond)
	rec := &countingRecorder{}
	svc := NewService(Options{
		Store:    store,
		Personas: persona.NewMemoryStore(persona.Seed()),
		Text:     provider.NewTextChain(provider.NewDispatcher(time.Second, nil, zerolog.Nop()), &stubText{name: "ark", reply: "ok"}),
		Recorder: rec,
		Logger:   zerolog.Nop(),
	})
	ctx := context.Background()

	swept, err := svc.StartSession(ctx, "", nil)
	require.NoError(t, err)
	_, err = svc.Send(ctx, swept.ID, "hi")
	require.NoError(t, err)
	lazy, err := svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = svc.Send(ctx, lazy.ID, "still there?")
	assert.ErrorIs(t, err, chatsvc.ErrSessionNotFound)
	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.started)
	assert.Equal(t, 2, rec.ended)
	assert.Empty(t, svc.locks)
}

func TestSendPassesLimitedHistory(t *testing.T) {
	primary := &stubText{name: "ark", reply: "ok"}
	f := newFixture(t, []provider.TextProvider{primary}, nil, nil, 2)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, session.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, session.ID, "second")
	require.NoError(t, err)

	require.Len(t, primary.lastReq.History, 2)
	assert.True(t, primary.lastReq.History[0].FromUser)
	assert.Equal(t, "first", primary.lastReq.History[0].Text)
	assert.False(t, primary.lastReq.History[1].FromUser)
}

func TestSendConcurrentExchangesStayPaired(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{&stubText{name: "ark", reply: "ack"}}, nil, nil, 0)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Send(ctx, session.ID, "ping")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	transcript, err := f.svc.Transcript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 20)
	for i := 0; i < len(transcript); i += 2 {
		assert.Equal(t, chat.SpeakerUser, transcript[i].Speaker)
		assert.Equal(t, chat.SpeakerBot, transcript[i+1].Speaker)
	}
}

func TestEndSessionClearsLog(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{&stubText{name: "ark", reply: "ok"}}, nil, nil, 0)
	ctx := context.Background()
	session, err := f.svc.StartSession(ctx, "", nil)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, session.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, f.svc.EndSession(ctx, session.ID))
	_, err = f.svc.Transcript(ctx, session.ID)
	assert.ErrorIs(t, err, chatsvc.ErrSessionNotFound)
	assert.Equal(t, 1, f.recorder.ended)
}

func TestStartSessionUnknownPersona(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	_, err := f.svc.StartSession(context.Background(), "gunter", nil)
	assert.ErrorIs(t, err, ErrPersonaNotFound)
}

func TestGenerateImageFallback(t *testing.T) {
	f := newFixture(t, nil, nil, []provider.ImageProvider{
		&stubImages{name: "ark", err: errors.New("safety filter")},
		&stubImages{name: "openai", img: &provider.Image{URL: "https://example.com/p.png"}},
	}, 0)

	result, err := f.svc.GenerateImage(context.Background(), "penguin in space")
	require.NoError(t, err)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "https://example.com/p.png", result.Image.URL)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "ark image hiccup: safety filter\nSwitching to openai fallback...", result.Warnings[0])
}

func TestGenerateImageBothFailUsesLastError(t *testing.T) {
	f := newFixture(t, nil, nil, []provider.ImageProvider{
		&stubImages{name: "ark", err: errors.New("first")},
		&stubImages{name: "openai", err: errors.New("second")},
	}, 0)

	_, err := f.svc.GenerateImage(context.Background(), "penguin")
	var replyErr *ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, "❌ Both image generators failed: second", replyErr.Reply)
	assert.Len(t, replyErr.Warnings, 1)
}

func TestGenerateImageEmptyPrompt(t *testing.T) {
	f := newFixture(t, nil, nil, nil, 0)
	_, err := f.svc.GenerateImage(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestAnalyzeImageUsesDetectivePrompt(t *testing.T) {
	vision := &stubVision{name: "openai", reply: "A fish. Suspicious."}
	f := newFixture(t, nil, []provider.VisionProvider{vision}, nil, 0)

	result, err := f.svc.AnalyzeImage(context.Background(), []byte("png"), "image/png", ToolOptions{PenguinMode: true})
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultVisionPrompt, vision.lastReq.Instruction)
	assert.True(t, strings.HasPrefix(result.Text, "A fish. Suspicious.\n\n– said the penguin, "))

	_, err = f.svc.AnalyzeImage(context.Background(), nil, "", ToolOptions{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestExtractText(t *testing.T) {
	f := newFixture(t, nil, []provider.VisionProvider{&stubVision{name: "ark", reply: "  STOP\n"}}, nil, 0)
	result, err := f.svc.ExtractText(context.Background(), []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "STOP", result.Text)

	f = newFixture(t, nil, []provider.VisionProvider{&stubVision{name: "ark", reply: ""}}, nil, 0)
	result, err = f.svc.ExtractText(context.Background(), []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, NoTextFound, result.Text)
}

func TestExplainScan(t *testing.T) {
	text := &stubText{name: "deepseek", reply: "Port 22 runs SSH."}
	f := newFixture(t, []provider.TextProvider{text}, nil, nil, 0)

	result, err := f.svc.ExplainScan(context.Background(), "22/tcp open ssh", ToolOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Port 22 runs SSH.", result.Text)
	assert.Equal(t, scanSystem, text.lastReq.System)
	assert.Equal(t, "deepseek", result.Provider)
}

func TestProviderNames(t *testing.T) {
	f := newFixture(t, []provider.TextProvider{&stubText{name: "ark"}, &stubText{name: "openai"}}, nil, nil, 0)
	names := f.svc.ProviderNames()
	assert.Equal(t, []string{"ark", "openai"}, names[provider.KindChat])
	assert.Empty(t, names[provider.KindImage])
}
