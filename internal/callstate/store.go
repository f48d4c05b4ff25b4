package callstate

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/utils"
)

// ErrStoreClosed is returned once the store loop has stopped.
var ErrStoreClosed = errors.New("call store closed")

const defaultSubscriberBuffer = 16

// EffectHandler carries out effects for an in-process media layer. It runs on
// the store loop and must not call back into the store.
type EffectHandler interface {
	HandleEffect(Effect)
}

// EffectHandlerFunc adapts a function to EffectHandler.
type EffectHandlerFunc func(Effect)

func (f EffectHandlerFunc) HandleEffect(e Effect) { f(e) }

// Snapshot is published to subscribers after every committed event.
type Snapshot struct {
	Seq     uint64
	Event   EventKind
	State   State
	Effects []Effect
}

// Subscriber receives snapshots until it is unsubscribed or the store stops.
// A subscriber too slow to take a snapshot with effects is evicted: its
// channel is closed and Evicted reports true.
type Subscriber struct {
	ID        string
	Snapshots chan *Snapshot

	evicted atomic.Bool
}

// Evicted reports whether the store closed the subscriber for falling behind.
func (sub *Subscriber) Evicted() bool {
	return sub.evicted.Load()
}

type request struct {
	ev    Event
	reply chan Result
}

// Store owns the current call state and admits one event at a time.
type Store struct {
	requests    chan request
	reads       chan chan Snapshot
	subscribe   chan *Subscriber
	unsubscribe chan *Subscriber
	done        chan struct{}

	handler EffectHandler
	bufSize int
	log     *zerolog.Logger

	// owned by Run
	state State
	seq   uint64
	subs  map[*Subscriber]struct{}
}

// NewStore creates a store in the initial state. handler may be nil.
func NewStore(logger *zerolog.Logger, handler EffectHandler, subscriberBuffer int) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = defaultSubscriberBuffer
	}
	return &Store{
		requests:    make(chan request),
		reads:       make(chan chan Snapshot),
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan *Subscriber),
		done:        make(chan struct{}),
		handler:     handler,
		bufSize:     subscriberBuffer,
		log:         logger,
		state:       Initial(),
		subs:        make(map[*Subscriber]struct{}),
	}
}

// Run processes events until ctx is cancelled. All subscriber channels are
// closed on return.
func (s *Store) Run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			for sub := range s.subs {
				close(sub.Snapshots)
				delete(s.subs, sub)
			}
			return
		case req := <-s.requests:
			req.reply <- s.apply(req.ev)
		case reply := <-s.reads:
			reply <- Snapshot{Seq: s.seq, State: s.state}
		case sub := <-s.subscribe:
			s.subs[sub] = struct{}{}
			s.log.Debug().Str("subscriber_id", sub.ID).Int("subscribers", len(s.subs)).Msg("subscriber added")
		case sub := <-s.unsubscribe:
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.Snapshots)
				s.log.Debug().Str("subscriber_id", sub.ID).Int("subscribers", len(s.subs)).Msg("subscriber removed")
			}
		}
	}
}

// Dispatch applies ev and returns the result once it has been committed.
func (s *Store) Dispatch(ctx context.Context, ev Event) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case s.requests <- request{ev: ev, reply: reply}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.done:
		return Result{}, ErrStoreClosed
	}
	return <-reply, nil
}

// State returns the current state.
func (s *Store) State(ctx context.Context) (State, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return State{}, err
	}
	return snap.State, nil
}

// Current returns the current state with the sequence number of the last
// published snapshot. Subscribers can skip snapshots at or below it.
func (s *Store) Current(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.reads <- reply:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrStoreClosed
	}
	return <-reply, nil
}

// Subscribe registers a new subscriber. After the store has stopped the
// returned subscriber's channel is already closed.
func (s *Store) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:        utils.NewID(),
		Snapshots: make(chan *Snapshot, s.bufSize),
	}
	select {
	case s.subscribe <- sub:
	case <-s.done:
		close(sub.Snapshots)
	}
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (s *Store) Unsubscribe(sub *Subscriber) {
	select {
	case s.unsubscribe <- sub:
	case <-s.done:
	}
}

func (s *Store) apply(ev Event) Result {
	prev := s.state
	r := Reduce(prev, ev)
	s.state = r.State

	if r.Ignored != "" {
		s.log.Warn().
			Str("event", ev.Kind.String()).
			Str("status", string(prev.Status)).
			Str("reason", r.Ignored).
			Msg("call event ignored")
	} else {
		s.log.Debug().
			Str("event", ev.Kind.String()).
			Str("from", string(prev.Status)).
			Str("to", string(r.State.Status)).
			Msg("call transition")
	}

	if s.handler != nil {
		for _, eff := range r.Effects {
			s.handler.HandleEffect(eff)
		}
	}

	if r.State == prev && len(r.Effects) == 0 {
		return r
	}

	s.seq++
	snap := &Snapshot{Seq: s.seq, Event: ev.Kind, State: r.State, Effects: r.Effects}
	for sub := range s.subs {
		select {
		case sub.Snapshots <- snap:
		default:
			if len(snap.Effects) == 0 {
				// Drop if slow consumer, the next snapshot carries the state.
				s.log.Debug().Str("subscriber_id", sub.ID).Uint64("seq", snap.Seq).Msg("snapshot dropped")
				continue
			}
			// Effects are never repeated.
			delete(s.subs, sub)
			sub.evicted.Store(true)
			close(sub.Snapshots)
			s.log.Warn().Str("subscriber_id", sub.ID).Uint64("seq", snap.Seq).Msg("slow subscriber evicted")
		}
	}
	return r
}
