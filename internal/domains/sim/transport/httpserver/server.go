package httpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	simapi "github.com/megamake/roleplay/internal/domains/sim/api"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/domains/sim/ports"
	"github.com/megamake/roleplay/internal/platform/clock"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
	"github.com/megamake/roleplay/internal/platform/logging"
	"github.com/megamake/roleplay/internal/platform/metrics"
)

// SessionCookie holds the signed session token.
const SessionCookie = "roleplay_session"

// Server is the HTTP transport adapter for the simulator domain.
type Server struct {
	Sim     simapi.API
	Tokens  ports.SessionTokens
	Clock   clock.Clock
	Log     *logrus.Logger
	Metrics *metrics.Metrics

	// MaxUploadBytes bounds uploaded audio files.
	MaxUploadBytes int64
	// QueueBlocks is the capacity of the per-connection capture queue.
	QueueBlocks int
	// SecureCookie marks the session cookie Secure (serve behind TLS).
	SecureCookie bool

	// SampleRate and Window tell the browser how to capture: the PCM rate it
	// must downsample to and how long one recording lasts. They must match
	// the simulator's capture settings.
	SampleRate int
	Window     time.Duration

	NetEnabled   bool
	AllowDomains []string
}

func (s Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":            true,
			"time":          s.now().Format(time.RFC3339Nano),
			"net_enabled":   s.NetEnabled,
			"allow_domains": s.AllowDomains,
		})
	})
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	// Sessions
	mux.HandleFunc("POST /api/sim/session", s.handleSessionStart)
	mux.HandleFunc("GET /api/sim/session", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/sim/session", s.handleSessionEnd)

	// Turns
	mux.HandleFunc("POST /api/sim/turn", s.handleTurn)
	mux.HandleFunc("POST /api/sim/retry", s.handleRetry)
	mux.HandleFunc("GET /api/sim/stream", s.handleStream)

	mux.HandleFunc("GET /api/sim/transcript", s.handleTranscript)
	mux.HandleFunc("GET /api/sim/persona", s.handlePersona)
	mux.HandleFunc("GET /api/sim/config", s.handleConfig)

	registerUI(mux)
	return s.instrument(mux)
}

func (s Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}

	// Starting over replaces the browser's previous session.
	if old, err := s.sessionID(r); err == nil {
		_, _ = s.Sim.EndSession(simapp.EndSessionRequest{SessionID: old, Reason: "restart"})
	}

	res, err := s.Sim.StartSession(simapp.StartSessionRequest{})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	c, err := s.sessionCookie(res.View.SessionID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	http.SetCookie(w, c)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": res.View})
}

func (s Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	id, err := s.sessionID(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	res, err := s.Sim.GetSession(simapp.GetSessionRequest{SessionID: id})
	s.renewCookie(w.Header(), id, err)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": res.View})
}

func (s Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	existed := false
	if id, err := s.sessionID(r); err == nil {
		res, err := s.Sim.EndSession(simapp.EndSessionRequest{SessionID: id, Reason: "user"})
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		existed = res.Existed
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "existed": existed})
}

func (s Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	id, err := s.sessionID(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	maxBytes := s.maxUploadBytes()
	// Room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		s.writeError(w, r, apperrors.NewUsage("invalid upload: "+err.Error()), nil)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	f, hdr, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, r, apperrors.NewUsage("missing form file 'audio'"), nil)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		s.writeError(w, r, apperrors.New(apperrors.KindIO, "failed reading upload", err), nil)
		return
	}
	if int64(len(data)) > maxBytes {
		s.writeError(w, r, apperrors.NewUsage(fmt.Sprintf("audio file exceeds %d bytes", maxBytes)), nil)
		return
	}

	res, err := s.Sim.Turn(r.Context(), simapp.TurnRequest{
		SessionID: id,
		Audio: contractsim.AudioPayloadV1{
			Source:      contractsim.AudioSourceUpload,
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		},
	})
	s.renewCookie(w.Header(), id, err)
	if err != nil {
		s.writeError(w, r, err, &res.Result)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": res.Result})
}

func (s Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	id, err := s.sessionID(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	res, err := s.Sim.RetryReply(r.Context(), simapp.RetryReplyRequest{SessionID: id})
	s.renewCookie(w.Header(), id, err)
	if err != nil {
		s.writeError(w, r, err, &res.Result)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": res.Result})
}

func (s Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	id, err := s.sessionID(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	res, err := s.Sim.Export(simapp.ExportRequest{
		SessionID: id,
		Filename:  strings.TrimSpace(r.URL.Query().Get("filename")),
	})
	s.renewCookie(w.Header(), id, err)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	exp := res.Export
	w.Header().Set("Content-Type", exp.MIME+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Content)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, exp.Content)
}

func (s Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "persona": s.Sim.Persona()})
}

// handleConfig serves the capture settings the browser needs.
func (s Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	rate := s.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	window := s.Window
	if window <= 0 {
		window = 5 * time.Second
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"sample_rate":      rate,
		"window_ms":        window.Milliseconds(),
		"max_upload_bytes": s.maxUploadBytes(),
		"export_timezone":  "UTC",
	})
}

// sessionID resolves the session bound to the request's cookie.
func (s Server) sessionID(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return "", apperrors.NewNotFound("no session; start one first")
	}
	id, err := s.Tokens.Parse(c.Value, s.now())
	if err != nil {
		return "", apperrors.NewNotFound("session cookie is invalid or expired; start a new session")
	}
	return id, nil
}

// sessionCookie signs a fresh token for id. The token expires one idle TTL
// from now, so callers re-issue it on every request that reaches a live
// session.
func (s Server) sessionCookie(id string) (*http.Cookie, error) {
	token, err := s.Tokens.Issue(id, s.now())
	if err != nil {
		return nil, apperrors.NewInternal("failed to issue session token", err)
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// renewCookie adds a re-signed session cookie to h unless the session is
// gone (err is a not-found error).
func (s Server) renewCookie(h http.Header, id string, err error) {
	if apperrors.IsNotFound(err) {
		return
	}
	c, err := s.sessionCookie(id)
	if err != nil {
		s.logger().WithError(err).Warn("session cookie not renewed")
		return
	}
	if v := c.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}

func (s Server) ready(w http.ResponseWriter) bool {
	if s.Sim == nil || s.Tokens == nil {
		writeJSON(w, 500, map[string]any{"ok": false, "error": "server misconfigured: Sim API or session tokens are nil"})
		return false
	}
	return true
}

// writeError maps an error kind to a status code. A partial turn result
// (texts without audio, or the retained user text) is sent along when present.
func (s Server) writeError(w http.ResponseWriter, r *http.Request, err error, partial *contractsim.TurnResultV1) {
	status := StatusFor(err)
	body := map[string]any{
		"ok":    false,
		"error": err.Error(),
		"kind":  string(apperrors.KindOf(err)),
	}
	if stage := apperrors.StageOf(err); stage != "" {
		body["stage"] = stage
	}
	if partial != nil && (partial.UserText != "" || partial.AssistantText != "" || partial.Turn > 0) {
		body["result"] = partial
	}

	entry := s.logger().WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status >= 500 {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Info("request rejected")
	}
	writeJSON(w, status, body)
}

// StatusFor maps error kinds onto HTTP status codes.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindUsage:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindPolicy:
		return http.StatusForbidden
	case apperrors.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s Server) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return 25 << 20
}

func (s Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock.NowUTC()
	}
	return time.Now().UTC()
}

func (s Server) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Discard()
}

// instrument counts requests by route pattern and status code.
func (s Server) instrument(mux *http.ServeMux) http.Handler {
	if s.Metrics == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		s.Metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	b, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"error":"failed to marshal json"}`))
		return
	}
	_, _ = w.Write(append(b, '\n'))
}
