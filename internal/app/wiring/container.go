package wiring

import (
	"fmt"

	"github.com/sirupsen/logrus"

	simadapters "github.com/megamake/roleplay/internal/domains/sim/adapters"
	simapi "github.com/megamake/roleplay/internal/domains/sim/api"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/domains/sim/ports"

	"github.com/megamake/roleplay/internal/platform/clock"
	"github.com/megamake/roleplay/internal/platform/config"
	"github.com/megamake/roleplay/internal/platform/logging"
	"github.com/megamake/roleplay/internal/platform/metrics"
	"github.com/megamake/roleplay/internal/platform/policy"
)

// Container is the in-process DI container.
type Container struct {
	Config  *config.Config
	Clock   clock.Clock
	Log     *logrus.Logger
	Metrics *metrics.Metrics
	Policy  policy.Policy

	Tokens ports.SessionTokens
	Sim    simapi.API
}

// New builds every adapter from cfg. A nil log is replaced by a discarding one.
func New(cfg *config.Config, log *logrus.Logger) (Container, error) {
	if cfg == nil {
		return Container{}, fmt.Errorf("internal error: config is nil")
	}
	if log == nil {
		log = logging.Discard()
	}

	clk := clock.SystemUTC{}
	m := metrics.New()
	pol := policy.Policy{
		NetEnabled:   cfg.Network.Enabled,
		AllowDomains: cfg.Network.AllowDomains,
	}

	// Hosted speech and chat adapters
	speech, err := simadapters.NewSpeech(simadapters.SpeechOptions{
		Provider: cfg.OpenAI.Provider,
		BaseURL:  cfg.OpenAI.BaseURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.OpenAI.Timeout(),
	})
	if err != nil {
		return Container{}, err
	}
	if stub, ok := speech.Synthesizer.(simadapters.StubSynthesizer); ok {
		stub.SampleRate = cfg.Audio.SampleRate
		speech.Synthesizer = stub
	}

	// Sessions
	tokens, err := simadapters.NewJWTSessionTokens(cfg.Session.CookieSecret, cfg.Session.IdleTTL())
	if err != nil {
		return Container{}, err
	}

	sim := simapi.New(simapi.Dependencies{
		Clock:       clk,
		Sessions:    simadapters.NewMemorySessionStore(),
		Transcriber: speech.Transcriber,
		Completer:   speech.Completer,
		Synthesizer: speech.Synthesizer,
		Policy:      pol,
		Settings: simapp.Settings{
			TranscriptionModel: cfg.OpenAI.TranscriptionModel,
			ChatModel:          cfg.OpenAI.ChatModel,
			SpeechModel:        cfg.OpenAI.SpeechModel,
			Voice:              cfg.OpenAI.Voice,
			SampleRate:         cfg.Audio.SampleRate,
			Channels:           cfg.Audio.Channels,
			Window:             cfg.Audio.Window(),
			IdleTTL:            cfg.Session.IdleTTL(),
		},
		Log:     log,
		Metrics: m,
	})

	return Container{
		Config:  cfg,
		Clock:   clk,
		Log:     log,
		Metrics: m,
		Policy:  pol,
		Tokens:  tokens,
		Sim:     sim,
	}, nil
}
