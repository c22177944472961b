package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/clock"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
	"github.com/megamake/roleplay/internal/platform/logging"
	"github.com/megamake/roleplay/internal/platform/metrics"
	"github.com/megamake/roleplay/internal/platform/policy"
)

// Settings are the per-process model and capture choices.
type Settings struct {
	TranscriptionModel string
	ChatModel          string
	SpeechModel        string
	Voice              string

	SampleRate int
	Channels   int
	Window     time.Duration

	IdleTTL time.Duration
}

// Service implements the simulator use-cases (sessions, turns, export).
//
// It orchestrates ports:
// - SessionStore (live sessions, in memory)
// - Transcriber, Completer, Synthesizer (hosted speech and chat services)
type Service struct {
	Clock    clock.Clock
	Sessions ports.SessionStore

	Transcriber ports.Transcriber
	Completer   ports.Completer
	Synthesizer ports.Synthesizer

	// Policy is checked before every hosted call.
	Policy policy.Policy

	Settings Settings

	Log     *logrus.Logger
	Metrics *metrics.Metrics
}

type StartSessionRequest struct{}

type StartSessionResult struct {
	View contractsim.SessionViewV1
}

type GetSessionRequest struct {
	SessionID string
}

type GetSessionResult struct {
	View contractsim.SessionViewV1
}

type EndSessionRequest struct {
	SessionID string

	// Reason labels the ended-sessions metric ("user", "idle").
	Reason string
}

type EndSessionResult struct {
	Existed bool
}

type ReapIdleRequest struct{}

type ReapIdleResult struct {
	Expired []string
}

// StartSession creates a session holding only the persona turn.
func (s *Service) StartSession(req StartSessionRequest) (StartSessionResult, error) {
	_ = req
	if s.Sessions == nil {
		return StartSessionResult{}, fmt.Errorf("internal error: sim Sessions store is nil")
	}

	sess, err := s.Sessions.Create(s.now())
	if err != nil {
		return StartSessionResult{}, apperrors.NewInternal("failed to create session", err)
	}
	if s.Metrics != nil {
		s.Metrics.SessionsStarted.Inc()
		s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))
	}
	s.logger().WithField("session_id", sess.ID).Info("session started")

	sess.Lock()
	defer sess.Unlock()
	return StartSessionResult{View: s.render(sess)}, nil
}

// GetSession renders the current state of a session. The export filename in
// the view is taken from the clock at render time.
func (s *Service) GetSession(req GetSessionRequest) (GetSessionResult, error) {
	sess, err := s.session(req.SessionID)
	if err != nil {
		return GetSessionResult{}, err
	}
	sess.Lock()
	defer sess.Unlock()
	return GetSessionResult{View: s.render(sess)}, nil
}

// EndSession destroys a session. Ending an unknown session is not an error.
func (s *Service) EndSession(req EndSessionRequest) (EndSessionResult, error) {
	if s.Sessions == nil {
		return EndSessionResult{}, fmt.Errorf("internal error: sim Sessions store is nil")
	}
	existed := s.Sessions.Delete(req.SessionID)
	if existed {
		reason := req.Reason
		if reason == "" {
			reason = "user"
		}
		if s.Metrics != nil {
			s.Metrics.SessionsEnded.WithLabelValues(reason).Inc()
			s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))
		}
		s.logger().WithFields(logrus.Fields{"session_id": req.SessionID, "reason": reason}).Info("session ended")
	}
	return EndSessionResult{Existed: existed}, nil
}

// ReapIdle removes sessions not seen for longer than Settings.IdleTTL.
func (s *Service) ReapIdle(req ReapIdleRequest) (ReapIdleResult, error) {
	_ = req
	if s.Sessions == nil {
		return ReapIdleResult{}, fmt.Errorf("internal error: sim Sessions store is nil")
	}
	ttl := s.Settings.IdleTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	expired := s.Sessions.Expire(s.now().Add(-ttl))
	if len(expired) > 0 {
		if s.Metrics != nil {
			s.Metrics.SessionsEnded.WithLabelValues("idle").Add(float64(len(expired)))
			s.Metrics.ActiveSessions.Set(float64(s.Sessions.Len()))
		}
		s.logger().WithField("count", len(expired)).Info("idle sessions reaped")
	}
	return ReapIdleResult{Expired: expired}, nil
}

// Persona returns the fixed character definition.
func (s *Service) Persona() string {
	return domain.PersonaTurn().Content
}

// render must be called with the session lock held.
func (s *Service) render(sess *domain.Session) contractsim.SessionViewV1 {
	turns := sess.History.Turns()
	view := contractsim.SessionViewV1{
		SessionID:    sess.ID,
		CreatedTS:    sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		Turns:        turns[1:],
		Transcript:   sess.Transcript.Lines(),
		PendingReply: sess.History.PendingReply(),
	}
	if !sess.Transcript.Empty() {
		view.ExportFilename = domain.ExportFilename(s.now())
	}
	return view
}

func (s *Service) session(id string) (*domain.Session, error) {
	if s.Sessions == nil {
		return nil, fmt.Errorf("internal error: sim Sessions store is nil")
	}
	if id == "" {
		return nil, apperrors.NewNotFound("no session; start one first")
	}
	sess, ok := s.Sessions.Get(id, s.now())
	if !ok {
		return nil, apperrors.NewNotFound("session not found or expired: " + id)
	}
	return sess, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.NowUTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Discard()
}
