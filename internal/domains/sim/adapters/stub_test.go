package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/audio"
)

func TestStubCompleterIsDeterministic(t *testing.T) {
	req := ports.CompleteRequest{Messages: []contractsim.TurnV1{
		{Role: contractsim.RoleSystem, Content: "p"},
		{Role: contractsim.RoleUser, Content: "hi"},
	}}
	a, err := NewStubCompleter().Complete(context.Background(), req)
	require.NoError(t, err)
	b, err := NewStubCompleter().Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "We've always done it this way.", a.Text)

	_, err = NewStubCompleter().Complete(context.Background(), ports.CompleteRequest{})
	assert.Error(t, err)
}

func TestStubSynthesizerReturnsWAV(t *testing.T) {
	res, err := NewStubSynthesizer().Synthesize(context.Background(), ports.SynthesizeRequest{Text: "one two"})
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", res.MIME)

	info, err := audio.ReadInfo(res.Audio)
	require.NoError(t, err)
	assert.Equal(t, 1600, info.NumFrames)
}

func TestNewSpeech(t *testing.T) {
	s, err := NewSpeech(SpeechOptions{Provider: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub", s.Completer.Name())
	assert.Nil(t, s.Transcriber.NetworkHosts())

	s, err = NewSpeech(SpeechOptions{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Synthesizer.Name())

	_, err = NewSpeech(SpeechOptions{Provider: "gemini"})
	assert.Error(t, err)
}
