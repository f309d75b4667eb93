package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/callrelay/internal/app/orch"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  64 * 1024,
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 64,
	}
}

type SignalWSController struct {
	Sup     *orch.Supervisor
	Limiter *JoinRateLimiter

	opts     Options
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewSignalWSController(sup *orch.Supervisor, limiter *JoinRateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Sup:      sup,
		Limiter:  limiter,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsSignalConn implements core.SignalConnection over a websocket.
type WsSignalConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(id domain.ConnID, ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{id: id, conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) ID() domain.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Serve upgrades the request and runs the connection until either side closes
// it. The disconnect lifecycle always runs on the way out, even after a panic
// in one of the pumps.
func (ctl *SignalWSController) Serve(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	header http.Header,
	pid domain.ParticipantID,
	cid domain.ConnID,
) {
	ws, err := ctl.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWsSignalConn(cid, ws, ctl.opts.SendBuffer)
	log.Info().Str("module", "signal").Str("participant", string(pid)).Str("conn", string(cid)).Msg("new WS connection")

	if err := ctl.Sup.Connect(pid, conn); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("participant", string(pid)).Msg("connect")
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() { ctl.writePump(ctx, conn) })
	wg.Go(func() {
		defer cancel()
		ctl.readPump(ctx, pid, conn)
	})
	if rec := wg.WaitAndRecover(); rec != nil {
		log.Error().Err(rec.AsError()).Str("module", "signal").Str("participant", string(pid)).Msg("pump panic")
	}
	conn.Close()

	if err := ctl.Sup.Disconnect(pid, cid); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("participant", string(pid)).Msg("disconnect")
	}
	if ctl.Limiter != nil {
		ctl.Limiter.ForgetIdle(pid)
	}
	log.Info().Str("module", "signal").Str("participant", string(pid)).Str("conn", string(cid)).Msg("WS connection closed")
}
