package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/config"
	"github.com/vovakirdan/wirechat-callstate/internal/rtc"
	transporthttp "github.com/vovakirdan/wirechat-callstate/internal/transport/http"
)

// App wires the call store, the media releaser and the HTTP surface.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           *callstate.Store
	releaser        *rtc.Releaser
	rtcConf         webrtc.Configuration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}

	releaser := rtc.NewReleaser(logger)
	handler := callstate.EffectHandlerFunc(func(e callstate.Effect) {
		logger.Info().
			Str("effect", e.Kind.String()).
			Str("peer_id", e.PeerID).
			Str("local_stream", string(e.LocalStream)).
			Str("remote_stream", string(e.RemoteStream)).
			Msg("call effect")
		releaser.HandleEffect(e)
	})

	store := callstate.NewStore(logger, handler, cfg.SubscriberBuffer)
	server := transporthttp.NewServer(store, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           store,
		releaser:        releaser,
		rtcConf:         rtc.Configuration(cfg.ICEServers),
		log:             logger,
	}, nil
}

// Store exposes the call store for in-process collaborators.
func (a *App) Store() *callstate.Store { return a.store }

// Releaser lets an in-process media layer register peer connections.
func (a *App) Releaser() *rtc.Releaser { return a.releaser }

// NewPeerConnection creates a peer connection for an in-process media layer.
// Its state changes drive the current call, and it is closed when the store
// releases local.
func (a *App) NewPeerConnection(ctx context.Context, local callstate.StreamHandle) (*webrtc.PeerConnection, error) {
	return rtc.NewPeerConnection(ctx, a.rtcConf, local, a.store, a.releaser, a.log)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	storeCtx, stopStore := context.WithCancel(context.Background())
	storeDone := make(chan struct{})
	go func() {
		defer close(storeDone)
		a.store.Run(storeCtx)
	}()
	defer func() {
		stopStore()
		<-storeDone
		a.releaser.Wait()
		a.log.Info().Msg("call store stopped")
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting http server")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Closing the store first ends websocket streams so Shutdown does not wait on them.
		stopStore()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
