package app

import (
	"context"
	"fmt"
	"time"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	"github.com/megamake/roleplay/internal/platform/audio"
	"github.com/megamake/roleplay/internal/platform/clock"
)

// StreamFilename is the name under which a captured window is uploaded.
const StreamFilename = "speech.wav"

// CollectWindow drains blocks until window has elapsed on clk and returns
// everything that arrived. It never returns before the deadline, even if
// the producer closes the channel early; only ctx cancellation ends it
// sooner. Device status strings become warnings.
func CollectWindow(ctx context.Context, clk clock.Clock, blocks <-chan domain.Block, window time.Duration) (domain.Capture, error) {
	if clk == nil {
		clk = clock.SystemUTC{}
	}
	deadline := clk.After(window)

	var out domain.Capture
	in := blocks
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-deadline:
			return out, nil
		case b, ok := <-in:
			if !ok {
				// Producer is gone; keep waiting for the deadline.
				in = nil
				continue
			}
			out.Blocks++
			if b.Status != "" {
				out.Warnings = append(out.Warnings, b.Status)
			}
			out.Samples = append(out.Samples, b.Samples...)
		}
	}
}

// PackageCapture converts a capture window into the WAV payload sent to
// transcription.
func PackageCapture(c domain.Capture, sampleRate, channels int) (contractsim.AudioPayloadV1, error) {
	if channels <= 0 {
		channels = 1
	}
	samples := c.Samples
	if rem := len(samples) % channels; rem != 0 {
		samples = samples[:len(samples)-rem]
	}
	wav, err := audio.EncodeWAV(audio.FloatToPCM16(samples), sampleRate, channels)
	if err != nil {
		return contractsim.AudioPayloadV1{}, fmt.Errorf("package capture: %w", err)
	}
	return contractsim.AudioPayloadV1{
		Source:      contractsim.AudioSourceStream,
		Filename:    StreamFilename,
		ContentType: "audio/wav",
		Data:        wav,
	}, nil
}

// StreamTurnRequest runs one turn from a live block stream.
type StreamTurnRequest struct {
	SessionID string
	Blocks    <-chan domain.Block

	// Window overrides Settings.Window when positive.
	Window time.Duration
}

// StreamTurn collects one capture window, packages it as WAV and runs the
// turn. Capture warnings are carried on the result. A session waiting for a
// retried reply is refused before capture starts.
func (s *Service) StreamTurn(ctx context.Context, req StreamTurnRequest) (TurnResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return TurnResult{}, err
	}
	sess.Lock()
	pending := sess.History.PendingReply()
	sess.Unlock()
	if pending {
		return TurnResult{}, errPendingReply()
	}

	window := req.Window
	if window <= 0 {
		window = s.Settings.Window
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	rate := s.Settings.SampleRate
	if rate <= 0 {
		rate = 16000
	}

	capture, err := CollectWindow(ctx, s.Clock, req.Blocks, window)
	if err != nil {
		return TurnResult{}, err
	}
	if s.Metrics != nil {
		s.Metrics.CapturedSeconds.Observe(capture.Seconds(rate))
		s.Metrics.CaptureWarnings.Add(float64(len(capture.Warnings)))
	}
	s.logger().WithField("session_id", req.SessionID).
		WithField("seconds", capture.Seconds(rate)).
		WithField("blocks", capture.Blocks).
		Debug("capture window closed")

	payload, err := PackageCapture(capture, rate, s.Settings.Channels)
	if err != nil {
		return TurnResult{}, err
	}
	return s.Turn(ctx, TurnRequest{
		SessionID: req.SessionID,
		Audio:     payload,
		Warnings:  capture.Warnings,
	})
}
