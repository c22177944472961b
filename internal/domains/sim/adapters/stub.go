package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/audio"
)

// StubTranscriber, StubCompleter and StubSynthesizer are local,
// deterministic adapters used for offline UI/flow validation (provider "stub").

type StubTranscriber struct{}

func NewStubTranscriber() StubTranscriber { return StubTranscriber{} }

func (StubTranscriber) Name() string           { return "stub" }
func (StubTranscriber) NetworkHosts() []string { return nil }

// Transcribe reports the payload size instead of recognizing speech.
func (StubTranscriber) Transcribe(ctx context.Context, req ports.TranscribeRequest) (ports.TranscribeResult, error) {
	_ = ctx
	return ports.TranscribeResult{
		Text: fmt.Sprintf("(stub transcription of %s, %d bytes)", emptyDash(req.Audio.Filename), len(req.Audio.Data)),
	}, nil
}

type StubCompleter struct{}

func NewStubCompleter() StubCompleter { return StubCompleter{} }

func (StubCompleter) Name() string           { return "stub" }
func (StubCompleter) NetworkHosts() []string { return nil }

func (StubCompleter) Verify(ctx context.Context) (ports.VerifyResult, error) {
	_ = ctx
	return ports.VerifyResult{OK: true, Message: "stub provider: ok"}, nil
}

func (StubCompleter) ListModels(ctx context.Context) ([]ports.ModelInfo, error) {
	_ = ctx
	return []ports.ModelInfo{{ID: "stub-model", OwnedBy: "roleplay"}}, nil
}

var stubReplies = []string{
	"We've always done it this way.",
	"This isn't going to work here. I don't have the staff.",
	"That's a lawsuit waiting to happen.",
	"Remember the TB testing? That was a mess for months.",
	"Fine. Send me something in writing and I'll review it. No promises.",
}

// Complete cycles through canned replies by completed-turn count, so a given
// history always yields the same answer.
func (StubCompleter) Complete(ctx context.Context, req ports.CompleteRequest) (ports.CompleteResult, error) {
	_ = ctx
	users := 0
	for _, m := range req.Messages {
		if strings.EqualFold(string(m.Role), "user") {
			users++
		}
	}
	if users == 0 {
		return ports.CompleteResult{}, fmt.Errorf("stub: no user turn to reply to")
	}
	return ports.CompleteResult{
		Text:  stubReplies[(users-1)%len(stubReplies)],
		Model: req.Model,
	}, nil
}

type StubSynthesizer struct {
	SampleRate int
}

func NewStubSynthesizer() StubSynthesizer { return StubSynthesizer{SampleRate: 16000} }

func (StubSynthesizer) Name() string           { return "stub" }
func (StubSynthesizer) NetworkHosts() []string { return nil }

// Synthesize returns silence: 50ms per word, as WAV.
func (s StubSynthesizer) Synthesize(ctx context.Context, req ports.SynthesizeRequest) (ports.SynthesizeResult, error) {
	_ = ctx
	rate := s.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	words := len(strings.Fields(req.Text))
	pcm := make([]int16, words*rate/20)
	b, err := audio.EncodeWAV(pcm, rate, 1)
	if err != nil {
		return ports.SynthesizeResult{}, err
	}
	return ports.SynthesizeResult{Audio: b, MIME: "audio/wav"}, nil
}

func emptyDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
