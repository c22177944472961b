package ports

import (
	"context"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

// Completer is the outbound port for chat completion.
//
// The orchestrator hands over the full ordered history on every call,
// persona first; adapters must not drop or reorder turns, including turns
// with empty content.
type Completer interface {
	Hosted

	// Verify checks whether the credential is usable.
	Verify(ctx context.Context) (VerifyResult, error)

	// ListModels returns the models visible to the credential (best-effort).
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Complete returns the next assistant utterance.
	Complete(ctx context.Context, req CompleteRequest) (CompleteResult, error)
}

// VerifyResult is returned by Completer.Verify.
type VerifyResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"ownedBy,omitempty"`
}

type CompleteRequest struct {
	Model    string
	Messages []contractsim.TurnV1
}

type CompleteResult struct {
	Text              string `json:"text"`
	Model             string `json:"model,omitempty"`
	ProviderRequestID string `json:"provider_request_id,omitempty"`
	TotalTokens       *int   `json:"total_tokens,omitempty"`
}
