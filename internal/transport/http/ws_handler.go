package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

// errSubscriberEvicted ends a connection whose subscriber fell behind the store.
var errSubscriberEvicted = errors.New("subscriber fell behind")

// WSOptions tunes per-connection limits.
type WSOptions struct {
	RateLimitPerMinute int
	MaxMessageBytes    int64
	WriteTimeout       time.Duration
	// OriginPatterns lists cross-origin hosts allowed to connect, in the
	// websocket library's pattern syntax. Same-host requests are always allowed.
	OriginPatterns []string
}

// WSHandler streams snapshots to websocket clients and accepts actions.
type WSHandler struct {
	store CallStore
	opts  WSOptions
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(store CallStore, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{store: store, opts: opts, log: logger}
}

// Handle upgrades the request. The first frame is the current state.
// GET /ws
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := websocket.Accept(upgradeWriter{c.Writer}, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.store.Subscribe()
	defer h.store.Unsubscribe(sub)
	log := h.log.With().Str("subscriber_id", sub.ID).Str("client", c.GetString(ContextKeyClient)).Logger()

	cur, err := h.store.Current(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("read current state")
		conn.Close(websocket.StatusTryAgainLater, "call store unavailable")
		return
	}
	if err := h.write(ctx, conn, stateOutbound(&cur)); err != nil {
		log.Warn().Err(err).Msg("write initial state")
		return
	}

	limiter := newRateLimiter(h.opts.RateLimitPerMinute, time.Minute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, limiter, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub, cur.Seq, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if errors.Is(err, errSubscriberEvicted) {
		log.Warn().Msg("ws subscriber evicted")
		conn.Close(websocket.StatusTryAgainLater, err.Error())
		return
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, limiter *rateLimiter, log *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			if err := h.write(ctx, conn, errorOutbound(proto.ErrCodeRateLimited, "too many actions")); err != nil {
				return err
			}
			continue
		}

		ev, err := proto.DecodeAction(inbound)
		if err != nil {
			log.Debug().Err(err).Str("type", inbound.Type).Msg("invalid action payload")
			if err := h.write(ctx, conn, errorOutbound(proto.ErrCodeBadRequest, err.Error())); err != nil {
				return err
			}
			continue
		}

		r, err := h.store.Dispatch(ctx, ev)
		if err != nil {
			if errors.Is(err, callstate.ErrStoreClosed) {
				_ = h.write(ctx, conn, errorOutbound(proto.ErrCodeUnavailable, "call store closed"))
			}
			return err
		}
		if r.Ignored != "" {
			if err := h.write(ctx, conn, ignoredOutbound(ev, r.Ignored)); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *callstate.Subscriber, after uint64, log *zerolog.Logger) error {
	for {
		select {
		case snap, ok := <-sub.Snapshots:
			if !ok {
				if sub.Evicted() {
					return errSubscriberEvicted
				}
				return nil
			}
			if snap.Seq <= after {
				continue
			}
			for _, frame := range outboundFromSnapshot(snap) {
				if err := h.write(ctx, conn, frame); err != nil {
					log.Error().Err(err).Uint64("seq", snap.Seq).Msg("write ws snapshot")
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	if h.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, out)
}

// upgradeWriter hijacks the connection beneath gin's writer. gin refuses to
// hijack once its header is marked written, and the websocket library forces
// that write before hijacking.
type upgradeWriter struct {
	gin.ResponseWriter
}

func (w upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if u, ok := w.ResponseWriter.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		if hj, ok := u.Unwrap().(stdhttp.Hijacker); ok {
			return hj.Hijack()
		}
	}
	return w.ResponseWriter.Hijack()
}
