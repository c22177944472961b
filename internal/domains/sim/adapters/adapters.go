package adapters

import (
	"fmt"
	"time"

	"github.com/megamake/roleplay/internal/domains/sim/ports"
)

// Speech bundles the three hosted-service adapters a session needs.
type Speech struct {
	Transcriber ports.Transcriber
	Completer   ports.Completer
	Synthesizer ports.Synthesizer
}

// SpeechOptions selects and configures the adapters.
type SpeechOptions struct {
	Provider string // "openai" or "stub"
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// NewSpeech returns the adapters for opts.Provider.
func NewSpeech(opts SpeechOptions) (Speech, error) {
	switch opts.Provider {
	case "stub":
		return Speech{
			Transcriber: NewStubTranscriber(),
			Completer:   NewStubCompleter(),
			Synthesizer: NewStubSynthesizer(),
		}, nil
	case "openai", "":
		c := NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.Timeout)
		return Speech{
			Transcriber: NewOpenAITranscriber(c),
			Completer:   NewOpenAICompleter(c),
			Synthesizer: NewOpenAISynthesizer(c),
		}, nil
	default:
		return Speech{}, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}
