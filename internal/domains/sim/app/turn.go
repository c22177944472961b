package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
)

// Pipeline stage names, used in errors, logs and metrics.
const (
	StageTranscribe = "transcribe"
	StageComplete   = "complete"
	StageSynthesize = "synthesize"
)

// TurnRequest runs one user turn from an audio payload.
type TurnRequest struct {
	SessionID string
	Audio     contractsim.AudioPayloadV1

	// Warnings gathered during acquisition; passed through to the result.
	Warnings []string
}

// TurnResult carries what presentation needs. On a synthesis failure Result
// still holds both texts and the error is returned alongside it.
type TurnResult struct {
	Result contractsim.TurnResultV1
}

type RetryReplyRequest struct {
	SessionID string
}

// Turn runs acquisition output through transcription, completion and
// synthesis for one session. State changes per stage:
//
//   - transcription fails: nothing is appended;
//   - completion fails: the user turn and line stay, the session now has a
//     pending reply (see RetryReply);
//   - synthesis fails: both turns and lines stay, texts are returned.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if err := s.requirePipeline(); err != nil {
		return TurnResult{}, err
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return TurnResult{}, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.History.PendingReply() {
		return TurnResult{}, errPendingReply()
	}

	source := string(req.Audio.Source)
	if source == "" {
		source = string(contractsim.AudioSourceUpload)
	}
	log := s.logger().WithFields(logrus.Fields{
		"session_id": sess.ID,
		"turn":       sess.History.CompletedTurns() + 1,
		"source":     source,
	})

	userText, err := s.transcribe(ctx, log, req.Audio)
	if err != nil {
		s.Metrics.ObserveTurn(source, "failed")
		return TurnResult{}, err
	}

	if err := sess.History.AppendUser(userText); err != nil {
		return TurnResult{}, apperrors.NewInternal("append user turn", err)
	}
	sess.Transcript.AppendUser(userText)

	return s.reply(ctx, log, sess, source, userText, req.Warnings)
}

// RetryReply re-issues completion and synthesis for a user turn whose
// completion failed earlier.
func (s *Service) RetryReply(ctx context.Context, req RetryReplyRequest) (TurnResult, error) {
	if err := s.requirePipeline(); err != nil {
		return TurnResult{}, err
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return TurnResult{}, err
	}

	sess.Lock()
	defer sess.Unlock()

	userText, ok := sess.History.LastUser()
	if !ok {
		return TurnResult{}, apperrors.NewUsage("there is no unanswered turn to retry")
	}

	log := s.logger().WithFields(logrus.Fields{
		"session_id": sess.ID,
		"turn":       sess.History.CompletedTurns() + 1,
		"source":     "retry",
	})
	return s.reply(ctx, log, sess, "retry", userText, nil)
}

// reply runs completion and synthesis for the pending user turn. The caller
// holds the session lock.
func (s *Service) reply(ctx context.Context, log *logrus.Entry, sess *domain.Session, source, userText string, warnings []string) (TurnResult, error) {
	res := contractsim.TurnResultV1{
		Turn:     sess.History.CompletedTurns() + 1,
		UserText: userText,
		Warnings: warnings,
	}

	assistantText, err := s.complete(ctx, log, sess.History.Turns())
	if err != nil {
		res.TranscriptN = sess.Transcript.Len()
		s.Metrics.ObserveTurn(source, "failed")
		return TurnResult{Result: res}, err
	}

	if err := sess.History.AppendAssistant(assistantText); err != nil {
		return TurnResult{}, apperrors.NewInternal("append assistant turn", err)
	}
	sess.Transcript.AppendAssistant(assistantText)
	res.AssistantText = assistantText
	res.TranscriptN = sess.Transcript.Len()

	speech, err := s.synthesize(ctx, log, assistantText)
	if err != nil {
		s.Metrics.ObserveTurn(source, "no_audio")
		return TurnResult{Result: res}, err
	}
	res.Audio = speech.Audio
	res.AudioMIME = speech.MIME

	s.Metrics.ObserveTurn(source, "ok")
	log.WithField("transcript_n", res.TranscriptN).Info("turn completed")
	return TurnResult{Result: res}, nil
}

func (s *Service) transcribe(ctx context.Context, log *logrus.Entry, audio contractsim.AudioPayloadV1) (string, error) {
	if err := s.Policy.RequireAll(s.Transcriber.NetworkHosts()); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := s.Transcriber.Transcribe(ctx, ports.TranscribeRequest{
		Model: s.Settings.TranscriptionModel,
		Audio: audio,
	})
	s.observe(log, StageTranscribe, start, err)
	if err != nil {
		return "", apperrors.NewUpstream(StageTranscribe, err)
	}
	return out.Text, nil
}

func (s *Service) complete(ctx context.Context, log *logrus.Entry, history []contractsim.TurnV1) (string, error) {
	if err := s.Policy.RequireAll(s.Completer.NetworkHosts()); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := s.Completer.Complete(ctx, ports.CompleteRequest{
		Model:    s.Settings.ChatModel,
		Messages: history,
	})
	s.observe(log, StageComplete, start, err)
	if err != nil {
		return "", apperrors.NewUpstream(StageComplete, err)
	}
	return out.Text, nil
}

func (s *Service) synthesize(ctx context.Context, log *logrus.Entry, text string) (ports.SynthesizeResult, error) {
	if err := s.Policy.RequireAll(s.Synthesizer.NetworkHosts()); err != nil {
		return ports.SynthesizeResult{}, err
	}
	start := time.Now()
	out, err := s.Synthesizer.Synthesize(ctx, ports.SynthesizeRequest{
		Model: s.Settings.SpeechModel,
		Voice: s.Settings.Voice,
		Text:  text,
	})
	s.observe(log, StageSynthesize, start, err)
	if err != nil {
		return ports.SynthesizeResult{}, apperrors.NewUpstream(StageSynthesize, err)
	}
	return out, nil
}

func (s *Service) observe(log *logrus.Entry, stage string, start time.Time, err error) {
	d := time.Since(start)
	s.Metrics.ObserveStage(stage, d, err)

	entry := log.WithFields(logrus.Fields{"stage": stage, "duration_ms": d.Milliseconds()})
	if err != nil {
		entry.WithError(err).Error("stage failed")
		return
	}
	entry.Debug("stage done")
}

func errPendingReply() error {
	return apperrors.NewUsage("the previous turn has no reply yet; retry it before speaking again")
}

func (s *Service) requirePipeline() error {
	switch {
	case s.Transcriber == nil:
		return fmt.Errorf("internal error: sim Transcriber is nil")
	case s.Completer == nil:
		return fmt.Errorf("internal error: sim Completer is nil")
	case s.Synthesizer == nil:
		return fmt.Errorf("internal error: sim Synthesizer is nil")
	}
	return nil
}
