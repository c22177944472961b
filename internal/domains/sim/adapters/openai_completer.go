package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/megamake/roleplay/internal/domains/sim/ports"
)

// OpenAICompleter implements ports.Completer with the Chat Completions API.
type OpenAICompleter struct {
	OpenAIClient
}

func NewOpenAICompleter(c OpenAIClient) OpenAICompleter {
	return OpenAICompleter{OpenAIClient: c}
}

func (p OpenAICompleter) Name() string { return "openai" }

// Verify is implemented as "can we list models" (lightweight read-only call).
func (p OpenAICompleter) Verify(ctx context.Context) (ports.VerifyResult, error) {
	models, err := p.ListModels(ctx)
	if err != nil {
		return ports.VerifyResult{OK: false, Message: err.Error()}, err
	}
	return ports.VerifyResult{OK: true, Message: fmt.Sprintf("ok (%d models visible)", len(models))}, nil
}

func (p OpenAICompleter) ListModels(ctx context.Context) ([]ports.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL()+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, _, err := p.do(req, "list models", 2_000_000)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			ID      string `json:"id"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai: list models parse failed: %w", err)
	}

	out := make([]ports.ModelInfo, 0, len(parsed.Data))
	for _, it := range parsed.Data {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			continue
		}
		out = append(out, ports.ModelInfo{ID: id, OwnedBy: it.OwnedBy})
	}
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p OpenAICompleter) Complete(ctx context.Context, req ports.CompleteRequest) (ports.CompleteResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return ports.CompleteResult{}, fmt.Errorf("openai: chat model is required")
	}

	// Every turn is sent, in order, including empty user content.
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, _, err := p.postJSON(ctx, "/v1/chat/completions", "chat completion", map[string]any{
		"model":    model,
		"messages": msgs,
	}, "application/json", 8_000_000)
	if err != nil {
		return ports.CompleteResult{}, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.CompleteResult{}, fmt.Errorf("openai: chat completion parse failed: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return ports.CompleteResult{}, fmt.Errorf("openai: chat completion returned no message content")
	}

	res := ports.CompleteResult{
		Text:              *parsed.Choices[0].Message.Content,
		Model:             parsed.Model,
		ProviderRequestID: parsed.ID,
	}
	if parsed.Usage != nil {
		n := parsed.Usage.TotalTokens
		res.TotalTokens = &n
	}
	return res, nil
}
