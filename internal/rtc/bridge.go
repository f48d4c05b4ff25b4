package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
)

// PeerConnection is the part of *webrtc.PeerConnection the bridge uses.
type PeerConnection interface {
	OnConnectionStateChange(func(webrtc.PeerConnectionState))
	OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	Close() error
}

// Dispatcher accepts call events, usually a *callstate.Store.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev callstate.Event) (callstate.Result, error)
}

// DefaultConfiguration uses a public STUN server.
func DefaultConfiguration() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// Configuration builds a pion configuration from ICE server URLs, falling
// back to DefaultConfiguration when none are given.
func Configuration(iceURLs []string) webrtc.Configuration {
	if len(iceURLs) == 0 {
		return DefaultConfiguration()
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceURLs}},
	}
}

// ConnState maps a pion connection state. ok is false for the unknown state.
func ConnState(s webrtc.PeerConnectionState) (callstate.ConnState, bool) {
	switch s {
	case webrtc.PeerConnectionStateNew:
		return callstate.ConnNew, true
	case webrtc.PeerConnectionStateConnecting:
		return callstate.ConnConnecting, true
	case webrtc.PeerConnectionStateConnected:
		return callstate.ConnConnected, true
	case webrtc.PeerConnectionStateDisconnected:
		return callstate.ConnDisconnected, true
	case webrtc.PeerConnectionStateFailed:
		return callstate.ConnFailed, true
	case webrtc.PeerConnectionStateClosed:
		return callstate.ConnClosed, true
	default:
		return "", false
	}
}

// Bridge forwards peer connection callbacks to a dispatcher. Every event is
// tagged with the local stream of the call the connection was bound to, so the
// store ignores a connection that outlived its session.
type Bridge struct {
	ctx   context.Context
	pc    PeerConnection
	local callstate.StreamHandle
	d     Dispatcher
	log   *zerolog.Logger

	detached atomic.Bool

	mu     sync.Mutex
	stream string
}

// Bind registers the bridge callbacks on pc, which carries the call whose
// local stream is local. Events are dispatched with ctx.
func Bind(ctx context.Context, pc PeerConnection, local callstate.StreamHandle, d Dispatcher, logger *zerolog.Logger) *Bridge {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("module", "rtc").Str("local_stream", string(local)).Logger()
	b := &Bridge{ctx: ctx, pc: pc, local: local, d: d, log: &l}

	pc.OnConnectionStateChange(b.connectionStateChanged)
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		b.log.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		b.remoteStream(track.StreamID())
	})
	return b
}

func (b *Bridge) connectionStateChanged(s webrtc.PeerConnectionState) {
	cs, ok := ConnState(s)
	if !ok {
		return
	}
	b.log.Info().Str("peer_connection_state", s.String()).Msg("peer state")
	b.dispatch(callstate.UpdateConnectionState(cs))
}

// remoteStream reports a stream once, however many tracks it carries.
func (b *Bridge) remoteStream(id string) {
	if id == "" {
		return
	}
	b.mu.Lock()
	if b.stream == id {
		b.mu.Unlock()
		return
	}
	b.stream = id
	b.mu.Unlock()

	b.dispatch(callstate.SetRemoteStream(callstate.StreamHandle(id)))
}

func (b *Bridge) dispatch(ev callstate.Event) {
	if b.detached.Load() {
		return
	}
	if _, err := b.d.Dispatch(b.ctx, ev.From(b.local)); err != nil {
		b.log.Warn().Err(err).Str("event", ev.Kind.String()).Msg("dispatch failed")
	}
}

// Close stops forwarding and closes the peer connection. The state changes
// the close triggers are not reported.
func (b *Bridge) Close() error {
	b.detached.Store(true)
	return b.pc.Close()
}

var _ PeerConnection = (*webrtc.PeerConnection)(nil)

// NewPeerConnection creates a pion peer connection for the call whose local
// stream is local and attaches it to d and r.
func NewPeerConnection(ctx context.Context, conf webrtc.Configuration, local callstate.StreamHandle, d Dispatcher, r *Releaser, logger *zerolog.Logger) (*webrtc.PeerConnection, error) {
	if local == "" {
		return nil, errors.New("rtc: peer connection needs a local stream")
	}
	pc, err := webrtc.NewPeerConnection(conf)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	Attach(ctx, pc, local, d, r, logger)
	return pc, nil
}

// Attach binds pc and closes it once the store releases local.
func Attach(ctx context.Context, pc PeerConnection, local callstate.StreamHandle, d Dispatcher, r *Releaser, logger *zerolog.Logger) *Bridge {
	b := Bind(ctx, pc, local, d, logger)
	r.Track(local, b)
	return b
}
