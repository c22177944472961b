package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simapi "github.com/megamake/roleplay/internal/domains/sim/api"
	"github.com/megamake/roleplay/internal/domains/sim/adapters"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	"github.com/megamake/roleplay/internal/platform/audio"
	"github.com/megamake/roleplay/internal/platform/clock"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
	"github.com/megamake/roleplay/internal/platform/metrics"
	"github.com/megamake/roleplay/internal/platform/policy"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	return newTestServerWithClock(t, clock.SystemUTC{})
}

// manualClock only moves when told to; deadlines use real time.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) NowUTC() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestServerWithClock(t *testing.T, clk clock.Clock) (*httptest.Server, *http.Client) {
	t.Helper()

	speech, err := adapters.NewSpeech(adapters.SpeechOptions{Provider: "stub"})
	require.NoError(t, err)
	tokens, err := adapters.NewJWTSessionTokens("test-secret", 2*time.Hour)
	require.NoError(t, err)
	m := metrics.New()

	sim := simapi.New(simapi.Dependencies{
		Clock:       clk,
		Sessions:    adapters.NewMemorySessionStore(),
		Transcriber: speech.Transcriber,
		Completer:   speech.Completer,
		Synthesizer: speech.Synthesizer,
		Policy:      policy.Policy{NetEnabled: true},
		Settings: simapp.Settings{
			TranscriptionModel: "whisper-1",
			ChatModel:          "gpt-4",
			SpeechModel:        "tts-1",
			Voice:              "echo",
			SampleRate:         16000,
			Channels:           1,
			Window:             200 * time.Millisecond,
			IdleTTL:            2 * time.Hour,
		},
		Metrics: m,
	})

	srv := httptest.NewServer(Server{
		Sim:            sim,
		Tokens:         tokens,
		Clock:          clk,
		Metrics:        m,
		MaxUploadBytes: 1 << 20,
		QueueBlocks:    8,
	}.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func upload(t *testing.T, c *http.Client, base, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", name)
	require.NoError(t, err)
	_, _ = fw.Write(data)
	require.NoError(t, mw.Close())

	resp, err := c.Post(base+"/api/sim/turn", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestHealthAndUI(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["ok"])

	resp, err = c.Get(srv.URL + "/ui")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Sam Richards")

	assert.Contains(t, string(body), "Download (UTC)")

	resp, err = c.Get(srv.URL + "/ui/app.js")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "text/javascript; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "/api/sim/config")
}

func TestConfigServesCaptureSettings(t *testing.T) {
	srv := httptest.NewServer(Server{SampleRate: 48000, Window: 10 * time.Second, MaxUploadBytes: 1 << 20}.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sim/config")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, float64(48000), out["sample_rate"])
	assert.Equal(t, float64(10000), out["window_ms"])
	assert.Equal(t, float64(1<<20), out["max_upload_bytes"])
	assert.Equal(t, "UTC", out["export_timezone"])
}

func TestConfigDefaults(t *testing.T) {
	srv := httptest.NewServer(Server{}.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sim/config")
	require.NoError(t, err)
	out := decode(t, resp)
	assert.Equal(t, float64(16000), out["sample_rate"])
	assert.Equal(t, float64(5000), out["window_ms"])
}

func TestSessionCookieSlidesWithActivity(t *testing.T) {
	clk := &manualClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	srv, c := newTestServerWithClock(t, clk)

	resp, err := c.Post(srv.URL+"/api/sim/session", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	// Active for longer than the idle TTL, one request every 30 minutes.
	for i := 1; i <= 6; i++ {
		clk.advance(30 * time.Minute)
		resp, err = c.Get(srv.URL + "/api/sim/session")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "after %d minutes", i*30)
		assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))
		resp.Body.Close()
	}

	// Idle past the TTL.
	clk.advance(2*time.Hour + time.Minute)
	resp, err = c.Get(srv.URL + "/api/sim/session")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Set-Cookie"))
	resp.Body.Close()
}

func TestRequestsWithoutSession(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Get(srv.URL + "/api/sim/session")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode(t, resp)["kind"])

	resp = upload(t, c, srv.URL, "a.wav", []byte("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadTurnAndExport(t *testing.T) {
	srv, c := newTestServer(t)

	resp, err := c.Post(srv.URL+"/api/sim/session", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u, _ := url.Parse(srv.URL)
	require.Len(t, c.Jar.Cookies(u), 1)
	assert.Equal(t, SessionCookie, c.Jar.Cookies(u)[0].Name)
	resp.Body.Close()

	// Nothing to export before the first turn.
	resp, err = c.Get(srv.URL + "/api/sim/transcript")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = upload(t, c, srv.URL, "hello.wav", []byte("RIFF...."))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	result := out["result"].(map[string]any)
	assert.Equal(t, "(stub transcription of hello.wav, 8 bytes)", result["user_text"])
	assert.Equal(t, "We've always done it this way.", result["assistant_text"])
	assert.Equal(t, "audio/wav", result["audio_mime"])
	assert.NotEmpty(t, result["audio"])

	resp, err = c.Get(srv.URL + "/api/sim/session")
	require.NoError(t, err)
	view := decode(t, resp)["session"].(map[string]any)
	filename := view["export_filename"].(string)
	assert.Regexp(t, `^transcript_\d{8}-\d{6}\.txt$`, filename)
	assert.Len(t, view["transcript"], 2)

	resp, err = c.Get(srv.URL + "/api/sim/transcript?filename=" + url.QueryEscape(filename))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+filename+`"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "Nurse: (stub transcription of hello.wav, 8 bytes)\nSam Richards: We've always done it this way.", string(body))

	resp, err = c.Post(srv.URL+"/api/sim/retry", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadRejectsMissingFileAndOversize(t *testing.T) {
	srv, c := newTestServer(t)
	resp, err := c.Post(srv.URL+"/api/sim/session", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Post(srv.URL+"/api/sim/turn", "text/plain", strings.NewReader("nope"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Over the file limit but inside the multipart allowance, so the whole
	// body is read and the handler's own size check rejects it.
	resp = upload(t, c, srv.URL, "big.wav", make([]byte, 1<<20+100))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEndSessionClearsCookie(t *testing.T) {
	srv, c := newTestServer(t)
	resp, err := c.Post(srv.URL+"/api/sim/session", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sim/session", nil)
	resp, err = c.Do(req)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, resp)["existed"])

	resp, err = c.Get(srv.URL + "/api/sim/session")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestForgedCookieIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/sim/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "eyJhbGciOiJub25lIn0.e30."})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	srv, c := newTestServer(t)
	resp, err := c.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `roleplay_http_requests_total{method="GET",route="GET /health",status_code="200"} 1`)
}

func TestStreamTurn(t *testing.T) {
	srv, c := newTestServer(t)
	resp, err := c.Post(srv.URL+"/api/sim/session", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	u, _ := url.Parse(srv.URL)
	hdr := http.Header{}
	for _, ck := range c.Jar.Cookies(u) {
		hdr.Add("Cookie", ck.Name+"="+ck.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sim/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m serverMessage
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, "info", m.Type)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "record"}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, audio.EncodeFloat32LE(make([]float32, 800))))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "status", Message: "input overflow"}))

	var warnings []string
	for {
		var msg serverMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "warning" {
			warnings = append(warnings, msg.Message)
			continue
		}
		if msg.Type == "info" {
			continue
		}
		require.Equal(t, "turn", msg.Type, msg.Message)
		require.NotNil(t, msg.Result)
		assert.Equal(t, "(stub transcription of speech.wav, 1644 bytes)", msg.Result.UserText)
		assert.Equal(t, "We've always done it this way.", msg.Result.AssistantText)
		break
	}
	assert.Equal(t, []string{"input overflow"}, warnings)
}

func TestStreamRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sim/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBlockQueueOverflow(t *testing.T) {
	q := newBlockQueue(1)
	q.push(domainBlock(1))
	assert.Len(t, q.blocks, 0, "blocks before the first record are discarded")

	q.reset()
	q.push(domainBlock(1))
	q.push(domainBlock(2)) // dropped
	first := <-q.blocks
	assert.Empty(t, first.Status)

	q.push(domainBlock(3))
	next := <-q.blocks
	assert.Equal(t, OverflowWarning, next.Status)
	assert.Len(t, next.Samples, 3)

	q.push(domainBlock(1))
	assert.Empty(t, (<-q.blocks).Status)
}

func TestCommandGateAdmitsOneCommandAtATime(t *testing.T) {
	q := newBlockQueue(4)
	g := newCommandGate()

	require.True(t, g.submit("record", q))
	assert.Equal(t, "record", <-g.cmds)
	q.push(domainBlock(2))

	// A turn is running: neither command is admitted and the capture keeps its input.
	assert.False(t, g.submit("record", q))
	assert.False(t, g.submit("retry", q))
	assert.Len(t, q.blocks, 1)
	assert.Len(t, g.cmds, 0)

	g.done()
	require.True(t, g.submit("retry", q))
	assert.Equal(t, "retry", <-g.cmds)
	assert.Len(t, q.blocks, 1, "retry does not reset the capture queue")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperrors.NewUsage("x")))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperrors.NewNotFound("x")))
	assert.Equal(t, http.StatusForbidden, StatusFor(apperrors.NewPolicy("x")))
	assert.Equal(t, http.StatusBadGateway, StatusFor(apperrors.NewUpstream("complete", io.EOF)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(io.EOF))
}

func domainBlock(n int) domain.Block {
	return domain.Block{Samples: make([]float32, n)}
}
