package ports

import (
	"context"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

// Hosted is implemented by every adapter that talks to a hosted service.
// The app layer checks NetworkHosts against the network policy before each call.
type Hosted interface {
	// Name is a stable identifier like "openai" or "stub".
	Name() string

	// NetworkHosts returns the hostnames the adapter contacts; nil for local adapters.
	NetworkHosts() []string
}

// Transcriber is the outbound port for speech-to-text.
type Transcriber interface {
	Hosted

	// Transcribe returns best-effort plain text for the payload. Any text,
	// including "", is a successful result.
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error)
}

type TranscribeRequest struct {
	Model string
	Audio contractsim.AudioPayloadV1
}

type TranscribeResult struct {
	Text string `json:"text"`
}

// Synthesizer is the outbound port for text-to-speech.
type Synthesizer interface {
	Hosted

	Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error)
}

type SynthesizeRequest struct {
	Model string
	Voice string
	Text  string
}

type SynthesizeResult struct {
	Audio []byte
	MIME  string
}
