package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/domains/sim/domain"
	"github.com/megamake/roleplay/internal/platform/audio"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
)

// OverflowWarning is attached to the first block accepted after the capture
// queue had to drop input.
const OverflowWarning = "input overflow"

const (
	streamWriteWait  = 10 * time.Second
	streamMaxMessage = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 16 << 10,
}

// clientMessage is a text frame sent by the browser.
type clientMessage struct {
	Type    string `json:"type"` // "record", "retry", "status"
	Message string `json:"message,omitempty"`
}

// serverMessage is a text frame sent to the browser.
type serverMessage struct {
	Type    string                    `json:"type"` // "info", "warning", "turn", "error"
	Message string                    `json:"message,omitempty"`
	Stage   string                    `json:"stage,omitempty"`
	Result  *contractsim.TurnResultV1 `json:"result,omitempty"`
}

// handleStream runs the streaming variant over one WebSocket.
//
// A single reader goroutine is the producer: binary frames are little-endian
// float32 PCM and become blocks on a bounded queue. When the queue is full
// the block is dropped and the next accepted block carries an overflow
// status. A "record" message drains the queue and starts a capture window;
// the connection loop is the consumer and the only writer. One command runs
// at a time; record or retry messages arriving during a turn are ignored.
func (s Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	id, err := s.sessionID(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	_, err = s.Sim.GetSession(simapp.GetSessionRequest{SessionID: id})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	hdr := http.Header{}
	s.renewCookie(hdr, id, nil)

	conn, err := upgrader.Upgrade(w, r, hdr)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger().WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamMaxMessage)

	log := s.logger().WithField("session_id", id)
	log.Info("stream connected")
	defer log.Info("stream closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	q := newBlockQueue(s.QueueBlocks)
	gate := newCommandGate()
	go s.readStream(cancel, conn, q, gate, log)

	send := func(m serverMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(m); err != nil {
			log.WithError(err).Debug("stream write failed")
			cancel()
			return false
		}
		return true
	}

	if !send(serverMessage{Type: "info", Message: "connected"}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-gate.cmds:
			ok := s.runStreamCommand(ctx, id, cmd, q, send)
			gate.done()
			if !ok {
				return
			}
		}
	}
}

// runStreamCommand runs one record or retry and reports its outcome. It
// returns false when the connection is finished.
func (s Server) runStreamCommand(ctx context.Context, id, cmd string, q *blockQueue, send func(serverMessage) bool) bool {
	var (
		res simapp.TurnResult
		err error
	)
	switch cmd {
	case "record":
		if !send(serverMessage{Type: "info", Message: "recording"}) {
			return false
		}
		res, err = s.Sim.StreamTurn(ctx, simapp.StreamTurnRequest{SessionID: id, Blocks: q.blocks})
	case "retry":
		res, err = s.Sim.RetryReply(ctx, simapp.RetryReplyRequest{SessionID: id})
	default:
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	for _, wmsg := range res.Result.Warnings {
		if !send(serverMessage{Type: "warning", Message: wmsg}) {
			return false
		}
	}
	if err != nil {
		m := serverMessage{Type: "error", Message: err.Error(), Stage: apperrors.StageOf(err)}
		if res.Result.Turn > 0 {
			partial := res.Result
			m.Result = &partial
		}
		return send(m)
	}
	result := res.Result
	return send(serverMessage{Type: "turn", Result: &result})
}

func (s Server) readStream(cancel context.CancelFunc, conn *websocket.Conn, q *blockQueue, gate *commandGate, log *logrus.Entry) {
	defer cancel()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("stream read failed")
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			q.push(domain.Block{Samples: audio.DecodeFloat32LE(data)})
		case websocket.TextMessage:
			var m clientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				log.WithError(err).Debug("ignoring malformed stream message")
				continue
			}
			switch m.Type {
			case "status":
				if m.Message != "" {
					q.push(domain.Block{Status: m.Message})
				}
			case "record", "retry":
				if !gate.submit(m.Type, q) {
					log.WithField("command", m.Type).Debug("stream command ignored; a turn is running")
				}
			}
		}
	}
}

// commandGate admits one stream command at a time. The reader submits,
// the connection loop calls done when the command has finished.
type commandGate struct {
	busy atomic.Bool
	cmds chan string
}

func newCommandGate() *commandGate {
	return &commandGate{cmds: make(chan string, 1)}
}

// submit hands cmd to the connection loop unless a command is still
// running. A record resets q only when it is admitted, so a running
// capture window keeps its blocks.
func (g *commandGate) submit(cmd string, q *blockQueue) bool {
	if !g.busy.CompareAndSwap(false, true) {
		return false
	}
	if cmd == "record" {
		q.reset()
	}
	g.cmds <- cmd
	return true
}

func (g *commandGate) done() { g.busy.Store(false) }

// blockQueue is the bounded producer side of the capture channel.
type blockQueue struct {
	blocks    chan domain.Block
	accepting atomic.Bool
	overflow  atomic.Bool
}

func newBlockQueue(capacity int) *blockQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &blockQueue{blocks: make(chan domain.Block, capacity)}
}

// push never blocks. Blocks arriving before the first record are discarded.
func (q *blockQueue) push(b domain.Block) {
	if !q.accepting.Load() {
		return
	}
	if q.overflow.Load() && b.Status == "" {
		b.Status = OverflowWarning
	}
	select {
	case q.blocks <- b:
		if b.Status == OverflowWarning {
			q.overflow.Store(false)
		}
	default:
		q.overflow.Store(true)
	}
}

// reset drops stale input and starts accepting blocks for a new window.
func (q *blockQueue) reset() {
	for {
		select {
		case <-q.blocks:
		default:
			q.overflow.Store(false)
			q.accepting.Store(true)
			return
		}
	}
}
