package app

import (
	"context"
	"time"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/adapters"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/metrics"
	"github.com/megamake/roleplay/internal/platform/policy"
)

type fakeClock struct {
	now      time.Time
	deadline chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:      time.Date(2026, 10, 18, 9, 5, 7, 0, time.UTC),
		deadline: make(chan time.Time, 1),
	}
}

func (c *fakeClock) NowUTC() time.Time                  { return c.now }
func (c *fakeClock) After(time.Duration) <-chan time.Time { return c.deadline }
func (c *fakeClock) fire()                              { c.deadline <- c.now }

type fakeTranscriber struct {
	text  string
	err   error
	hosts []string

	calls int
	last  ports.TranscribeRequest
}

func (f *fakeTranscriber) Name() string           { return "fake" }
func (f *fakeTranscriber) NetworkHosts() []string { return f.hosts }
func (f *fakeTranscriber) Transcribe(ctx context.Context, req ports.TranscribeRequest) (ports.TranscribeResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return ports.TranscribeResult{}, f.err
	}
	return ports.TranscribeResult{Text: f.text}, nil
}

type fakeCompleter struct {
	reply string
	err   error

	calls   int
	history [][]contractsim.TurnV1
}

func (f *fakeCompleter) Name() string           { return "fake" }
func (f *fakeCompleter) NetworkHosts() []string { return nil }
func (f *fakeCompleter) Verify(ctx context.Context) (ports.VerifyResult, error) {
	return ports.VerifyResult{OK: true, Message: "fake ok"}, nil
}
func (f *fakeCompleter) ListModels(ctx context.Context) ([]ports.ModelInfo, error) {
	return []ports.ModelInfo{{ID: "gpt-4"}, {ID: "gpt-3.5-turbo"}}, nil
}
func (f *fakeCompleter) Complete(ctx context.Context, req ports.CompleteRequest) (ports.CompleteResult, error) {
	f.calls++
	f.history = append(f.history, req.Messages)
	if f.err != nil {
		return ports.CompleteResult{}, f.err
	}
	return ports.CompleteResult{Text: f.reply}, nil
}

type fakeSynthesizer struct {
	err error

	calls int
	last  ports.SynthesizeRequest
}

func (f *fakeSynthesizer) Name() string           { return "fake" }
func (f *fakeSynthesizer) NetworkHosts() []string { return nil }
func (f *fakeSynthesizer) Synthesize(ctx context.Context, req ports.SynthesizeRequest) (ports.SynthesizeResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return ports.SynthesizeResult{}, f.err
	}
	return ports.SynthesizeResult{Audio: []byte("mp3:" + req.Text), MIME: "audio/mpeg"}, nil
}

type fixture struct {
	svc   *Service
	clock *fakeClock
	stt   *fakeTranscriber
	chat  *fakeCompleter
	tts   *fakeSynthesizer
}

func newFixture() *fixture {
	f := &fixture{
		clock: newFakeClock(),
		stt:   &fakeTranscriber{text: "Hello Sam"},
		chat:  &fakeCompleter{reply: "We've always done it this way."},
		tts:   &fakeSynthesizer{},
	}
	f.svc = &Service{
		Clock:       f.clock,
		Sessions:    adapters.NewMemorySessionStore(),
		Transcriber: f.stt,
		Completer:   f.chat,
		Synthesizer: f.tts,
		Policy:      policy.Policy{NetEnabled: true, AllowDomains: []string{"api.openai.com"}},
		Settings: Settings{
			TranscriptionModel: "whisper-1",
			ChatModel:          "gpt-4",
			SpeechModel:        "tts-1",
			Voice:              "echo",
			SampleRate:         16000,
			Channels:           1,
			Window:             5 * time.Second,
			IdleTTL:            2 * time.Hour,
		},
		Metrics: metrics.New(),
	}
	return f
}

func (f *fixture) start() string {
	res, err := f.svc.StartSession(StartSessionRequest{})
	if err != nil {
		panic(err)
	}
	return res.View.SessionID
}

func uploadPayload() contractsim.AudioPayloadV1 {
	return contractsim.AudioPayloadV1{
		Source:      contractsim.AudioSourceUpload,
		Filename:    "hello.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte("ID3"),
	}
}
