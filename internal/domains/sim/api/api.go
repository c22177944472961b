package api

import (
	"context"

	"github.com/sirupsen/logrus"

	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/clock"
	"github.com/megamake/roleplay/internal/platform/metrics"
	"github.com/megamake/roleplay/internal/platform/policy"
)

// API is the stable boundary for the simulator domain.
// CLI and server handlers should call into this interface.
type API interface {
	// Sessions
	StartSession(req simapp.StartSessionRequest) (simapp.StartSessionResult, error)
	GetSession(req simapp.GetSessionRequest) (simapp.GetSessionResult, error)
	EndSession(req simapp.EndSessionRequest) (simapp.EndSessionResult, error)
	ReapIdle(req simapp.ReapIdleRequest) (simapp.ReapIdleResult, error)

	// Turns
	Turn(ctx context.Context, req simapp.TurnRequest) (simapp.TurnResult, error)
	StreamTurn(ctx context.Context, req simapp.StreamTurnRequest) (simapp.TurnResult, error)
	RetryReply(ctx context.Context, req simapp.RetryReplyRequest) (simapp.TurnResult, error)

	Export(req simapp.ExportRequest) (simapp.ExportResult, error)
	Persona() string

	// Provider
	Verify(ctx context.Context) (simapp.VerifyResult, error)
	ListModels(ctx context.Context) (simapp.ListModelsResult, error)
}

// Dependencies are injected by wiring.Container.
type Dependencies struct {
	Clock    clock.Clock
	Sessions ports.SessionStore

	Transcriber ports.Transcriber
	Completer   ports.Completer
	Synthesizer ports.Synthesizer

	Policy   policy.Policy
	Settings simapp.Settings

	Log     *logrus.Logger
	Metrics *metrics.Metrics
}

func New(deps Dependencies) API {
	return &simAPI{
		svc: &simapp.Service{
			Clock:       deps.Clock,
			Sessions:    deps.Sessions,
			Transcriber: deps.Transcriber,
			Completer:   deps.Completer,
			Synthesizer: deps.Synthesizer,
			Policy:      deps.Policy,
			Settings:    deps.Settings,
			Log:         deps.Log,
			Metrics:     deps.Metrics,
		},
	}
}

type simAPI struct {
	svc *simapp.Service
}

func (a *simAPI) StartSession(req simapp.StartSessionRequest) (simapp.StartSessionResult, error) {
	return a.svc.StartSession(req)
}

func (a *simAPI) GetSession(req simapp.GetSessionRequest) (simapp.GetSessionResult, error) {
	return a.svc.GetSession(req)
}

func (a *simAPI) EndSession(req simapp.EndSessionRequest) (simapp.EndSessionResult, error) {
	return a.svc.EndSession(req)
}

func (a *simAPI) ReapIdle(req simapp.ReapIdleRequest) (simapp.ReapIdleResult, error) {
	return a.svc.ReapIdle(req)
}

func (a *simAPI) Turn(ctx context.Context, req simapp.TurnRequest) (simapp.TurnResult, error) {
	return a.svc.Turn(ctx, req)
}

func (a *simAPI) StreamTurn(ctx context.Context, req simapp.StreamTurnRequest) (simapp.TurnResult, error) {
	return a.svc.StreamTurn(ctx, req)
}

func (a *simAPI) RetryReply(ctx context.Context, req simapp.RetryReplyRequest) (simapp.TurnResult, error) {
	return a.svc.RetryReply(ctx, req)
}

func (a *simAPI) Export(req simapp.ExportRequest) (simapp.ExportResult, error) {
	return a.svc.Export(req)
}

func (a *simAPI) Persona() string {
	return a.svc.Persona()
}

func (a *simAPI) Verify(ctx context.Context) (simapp.VerifyResult, error) {
	return a.svc.Verify(ctx)
}

func (a *simAPI) ListModels(ctx context.Context) (simapp.ListModelsResult, error) {
	return a.svc.ListModels(ctx)
}
