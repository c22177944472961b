package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/megamake/roleplay/internal/domains/sim/ports"
)

type VerifyResult struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
}

type ListModelsResult struct {
	Provider string            `json:"provider"`
	Models   []ports.ModelInfo `json:"models"`
}

// Verify checks whether the configured credential is usable.
func (s *Service) Verify(ctx context.Context) (VerifyResult, error) {
	if s.Completer == nil {
		return VerifyResult{}, fmt.Errorf("internal error: sim Completer is nil")
	}
	name := s.Completer.Name()

	if err := s.Policy.RequireAll(s.Completer.NetworkHosts()); err != nil {
		return VerifyResult{Provider: name, OK: false, Message: err.Error()}, err
	}

	vr, err := s.Completer.Verify(ctx)
	if err != nil {
		return VerifyResult{Provider: name, OK: false, Message: err.Error()}, err
	}
	return VerifyResult{Provider: name, OK: vr.OK, Message: vr.Message}, nil
}

// ListModels lists the models visible to the credential, sorted by id.
func (s *Service) ListModels(ctx context.Context) (ListModelsResult, error) {
	if s.Completer == nil {
		return ListModelsResult{}, fmt.Errorf("internal error: sim Completer is nil")
	}
	if err := s.Policy.RequireAll(s.Completer.NetworkHosts()); err != nil {
		return ListModelsResult{}, err
	}

	models, err := s.Completer.ListModels(ctx)
	if err != nil {
		return ListModelsResult{}, err
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return ListModelsResult{Provider: s.Completer.Name(), Models: models}, nil
}
