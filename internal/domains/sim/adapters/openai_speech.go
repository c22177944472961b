package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/megamake/roleplay/internal/domains/sim/ports"
)

// OpenAITranscriber implements ports.Transcriber with /v1/audio/transcriptions.
type OpenAITranscriber struct {
	OpenAIClient
}

func NewOpenAITranscriber(c OpenAIClient) OpenAITranscriber {
	return OpenAITranscriber{OpenAIClient: c}
}

func (OpenAITranscriber) Name() string { return "openai" }

func (p OpenAITranscriber) Transcribe(ctx context.Context, req ports.TranscribeRequest) (ports.TranscribeResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return ports.TranscribeResult{}, fmt.Errorf("openai: transcription model is required")
	}

	filename := strings.TrimSpace(req.Audio.Filename)
	if filename == "" {
		filename = "audio.wav"
	}
	contentType := strings.TrimSpace(req.Audio.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model", model); err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build transcription form: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build transcription form: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build transcription form: %w", err)
	}
	if _, err := part.Write(req.Audio.Data); err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build transcription form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build transcription form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	body, _, err := p.do(httpReq, "transcription", 2_000_000)
	if err != nil {
		return ports.TranscribeResult{}, err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ports.TranscribeResult{}, fmt.Errorf("openai: transcription parse failed: %w", err)
	}
	return ports.TranscribeResult{Text: parsed.Text}, nil
}

// OpenAISynthesizer implements ports.Synthesizer with /v1/audio/speech.
type OpenAISynthesizer struct {
	OpenAIClient
}

func NewOpenAISynthesizer(c OpenAIClient) OpenAISynthesizer {
	return OpenAISynthesizer{OpenAIClient: c}
}

func (OpenAISynthesizer) Name() string { return "openai" }

func (p OpenAISynthesizer) Synthesize(ctx context.Context, req ports.SynthesizeRequest) (ports.SynthesizeResult, error) {
	if strings.TrimSpace(req.Model) == "" || strings.TrimSpace(req.Voice) == "" {
		return ports.SynthesizeResult{}, fmt.Errorf("openai: speech model and voice are required")
	}

	body, hdr, err := p.postJSON(ctx, "/v1/audio/speech", "speech", map[string]any{
		"model":           req.Model,
		"voice":           req.Voice,
		"input":           req.Text,
		"response_format": "mp3",
	}, "audio/mpeg", 32_000_000)
	if err != nil {
		return ports.SynthesizeResult{}, err
	}

	mime := "audio/mpeg"
	if ct := strings.TrimSpace(hdr.Get("Content-Type")); strings.HasPrefix(ct, "audio/") {
		mime = ct
	}
	return ports.SynthesizeResult{Audio: body, MIME: mime}, nil
}
