package rtc

import (
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
)

// Releaser closes media resources when the store releases their stream.
type Releaser struct {
	mu      sync.Mutex
	closers map[callstate.StreamHandle]io.Closer
	log     *zerolog.Logger
	wg      sync.WaitGroup
}

func NewReleaser(logger *zerolog.Logger) *Releaser {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Releaser{
		closers: make(map[callstate.StreamHandle]io.Closer),
		log:     logger,
	}
}

// Track registers c to be closed when stream is released.
func (r *Releaser) Track(stream callstate.StreamHandle, c io.Closer) {
	if stream == "" || c == nil {
		return
	}
	r.mu.Lock()
	r.closers[stream] = c
	r.mu.Unlock()
}

// HandleEffect implements callstate.EffectHandler. Closing happens off the
// store loop: a closing peer connection reports its state back to the store.
func (r *Releaser) HandleEffect(e callstate.Effect) {
	if e.Kind != callstate.EffectReleaseMedia {
		return
	}
	for _, stream := range []callstate.StreamHandle{e.LocalStream, e.RemoteStream} {
		if stream == "" {
			continue
		}
		r.mu.Lock()
		c, ok := r.closers[stream]
		delete(r.closers, stream)
		r.mu.Unlock()
		if !ok {
			continue
		}

		r.wg.Add(1)
		go func(stream callstate.StreamHandle, c io.Closer) {
			defer r.wg.Done()
			if err := c.Close(); err != nil {
				r.log.Error().Err(err).Str("module", "rtc").Str("stream", string(stream)).Msg("close error")
				return
			}
			r.log.Info().Str("module", "rtc").Str("stream", string(stream)).Str("peer_id", e.PeerID).Msg("media released")
		}(stream, c)
	}
}

// Wait blocks until pending closes finish.
func (r *Releaser) Wait() {
	r.wg.Wait()
}

// Pending returns the number of tracked streams.
func (r *Releaser) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closers)
}
