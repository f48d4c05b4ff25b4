package callstate

// Messages attached to terminal statuses.
const (
	MsgPeerEnded        = "Call ended by other user"
	MsgRejected         = "Call was rejected"
	MsgBusy             = "User is busy"
	MsgConnectionFailed = "Connection failed"
	MsgLocalEnd         = "You ended the call"
	MsgInitiateFailed   = "Failed to initiate call"
	MsgAcceptFailed     = "Failed to accept call"
	MsgAnswerFailed     = "Failed to process call answer"
)

// Reasons reported in Result.Ignored.
const (
	ReasonUnrecognized   = "unrecognized event"
	ReasonNoOffer        = "offer without payload"
	ReasonInCall         = "already in a call"
	ReasonDuplicateOffer = "duplicate offer from current peer"
	ReasonNoSession      = "no active session"
	ReasonStaleInitiate  = "stale initiate completion"
	ReasonStaleAccept    = "stale accept completion"
	ReasonNotRinging     = "no incoming call"
	ReasonOfferPending   = "incoming call pending"
	ReasonForeignSession = "event from another session's connection"
)

// Transition returns the state that follows state after ev. It has no side
// effects and never mutates state.
func Transition(state State, ev Event) State {
	return Reduce(state, ev).State
}

// Reduce is Transition plus the effects the surrounding layers must carry out.
func Reduce(s State, ev Event) Result {
	switch ev.Kind {
	case EventReceiveOffer:
		return receiveOffer(s, ev)
	case EventReceiveEnd:
		return dropCall(s, StatusEnded, MsgPeerEnded)
	case EventReceiveReject:
		return dropCall(s, StatusRejected, MsgRejected)
	case EventReceiveBusy:
		return dropCall(s, StatusBusy, MsgBusy)
	case EventSetRemoteStream:
		return setRemoteStream(s, ev)
	case EventUpdateConnectionState:
		return updateConnState(s, ev)
	case EventInitiateRequested:
		if s.Incoming != nil {
			return Result{State: s, Ignored: ReasonOfferPending}
		}
		s.Status = StatusCalling
		s.IsInitiating = true
		s.Error = ""
		return Result{State: s}
	case EventInitiateSucceeded:
		return initiateSucceeded(s, ev)
	case EventInitiateFailed:
		wasInitiating := s.IsInitiating
		s.IsInitiating = false
		if !wasInitiating || s.Status != StatusCalling {
			return Result{State: s, Ignored: ReasonStaleInitiate}
		}
		return dropCall(s, StatusFailed, orDefault(ev.Message, MsgInitiateFailed))
	case EventAcceptRequested:
		if s.Status != StatusRinging {
			return Result{State: s, Ignored: ReasonNotRinging}
		}
		s.IsAccepting = true
		s.Error = ""
		return Result{State: s}
	case EventAcceptSucceeded:
		return acceptSucceeded(s, ev)
	case EventAcceptFailed:
		wasAccepting := s.IsAccepting
		s.IsAccepting = false
		if !wasAccepting || s.Status != StatusRinging {
			return Result{State: s, Ignored: ReasonStaleAccept}
		}
		return dropCall(s, StatusFailed, orDefault(ev.Message, MsgAcceptFailed))
	case EventRejectSucceeded:
		if s.Status != StatusRinging {
			return Result{State: s, Ignored: ReasonNotRinging}
		}
		s.Incoming = nil
		s.Status = StatusIdle
		s.Error = ""
		return Result{State: s}
	case EventEndSucceeded:
		return dropCall(s, StatusEnded, MsgLocalEnd)
	case EventReceiveAnswerSucceeded:
		// The connection state change, not the answer, moves the status.
		return Result{State: s}
	case EventReceiveAnswerFailed:
		return dropCall(s, StatusFailed, orDefault(ev.Message, MsgAnswerFailed))
	case EventReceiveIceFailed:
		return Result{State: s}
	case EventClearCall:
		r := Result{State: Initial()}
		if s.Session != nil {
			r.Effects = []Effect{releaseSession(s.Session)}
		}
		return r
	default:
		return Result{State: s, Ignored: ReasonUnrecognized}
	}
}

func receiveOffer(s State, ev Event) Result {
	if ev.Offer == nil {
		return Result{State: s, Ignored: ReasonNoOffer}
	}
	if s.Session != nil || s.Status != StatusIdle {
		if s.handling(ev.Offer.CallerID) {
			return Result{State: s, Ignored: ReasonDuplicateOffer}
		}
		return Result{
			State:   s,
			Effects: []Effect{{Kind: EffectSendBusy, PeerID: ev.Offer.CallerID}},
			Ignored: ReasonInCall,
		}
	}

	incoming := *ev.Offer
	s.Incoming = &incoming
	s.Status = StatusRinging
	s.Error = ""
	return Result{State: s}
}

// dropCall moves to a terminal status and forgets the whole call context.
func dropCall(s State, status Status, msg string) Result {
	var effects []Effect
	if s.Session != nil {
		effects = append(effects, releaseSession(s.Session))
	}
	s.Session = nil
	s.Incoming = nil
	s.Status = status
	s.Error = msg
	return Result{State: s, Effects: effects}
}

func setRemoteStream(s State, ev Event) Result {
	if s.Session == nil {
		// The stream raced a teardown; nobody else will release it.
		r := Result{State: s, Ignored: ReasonNoSession}
		if ev.Stream != "" {
			r.Effects = []Effect{{Kind: EffectReleaseMedia, RemoteStream: ev.Stream}}
		}
		return r
	}
	if !s.owns(ev) {
		r := Result{State: s, Ignored: ReasonForeignSession}
		if ev.Stream != "" && ev.Stream != s.Session.RemoteStream {
			r.Effects = []Effect{{Kind: EffectReleaseMedia, RemoteStream: ev.Stream}}
		}
		return r
	}

	session := *s.Session
	prev := session.RemoteStream
	session.RemoteStream = ev.Stream
	s.Session = &session

	r := Result{State: s}
	if prev != "" && prev != ev.Stream {
		r.Effects = []Effect{{Kind: EffectReleaseMedia, PeerID: session.Peer.ID, RemoteStream: prev}}
	}
	return r
}

func updateConnState(s State, ev Event) Result {
	if s.Session == nil {
		return Result{State: s, Ignored: ReasonNoSession}
	}
	if !s.owns(ev) {
		return Result{State: s, Ignored: ReasonForeignSession}
	}

	session := *s.Session
	prev := session.ConnState
	session.ConnState = ev.ConnState
	s.Session = &session

	switch {
	case ev.ConnState == ConnConnected && prev != ConnConnected:
		s.Status = StatusConnected
		s.Error = ""
	case ev.ConnState == ConnFailed:
		return dropCall(s, StatusFailed, MsgConnectionFailed)
	}
	// disconnected keeps the status: reconnection is up to the media layer.
	return Result{State: s}
}

func initiateSucceeded(s State, ev Event) Result {
	wasInitiating := s.IsInitiating
	s.IsInitiating = false
	if !wasInitiating || s.Status != StatusCalling {
		return staleCompletion(s, ev, ReasonStaleInitiate)
	}

	var effects []Effect
	if s.Session != nil {
		effects = append(effects, releaseSession(s.Session))
	}
	s.Session = newSession(ev.Peer, ev.CallKind, ev.Stream)
	s.Status = StatusCalling
	s.Error = ""
	return Result{State: s, Effects: effects}
}

func acceptSucceeded(s State, ev Event) Result {
	wasAccepting := s.IsAccepting
	s.IsAccepting = false
	if !wasAccepting || s.Status != StatusRinging {
		return staleCompletion(s, ev, ReasonStaleAccept)
	}

	peer, kind := ev.Peer, ev.CallKind
	if in := s.Incoming; in != nil {
		if peer.ID == "" {
			peer.ID = in.CallerID
		}
		if peer.Name == "" {
			peer.Name = in.CallerName
		}
		if kind == "" {
			kind = in.Kind
		}
	}

	s.Session = newSession(peer, kind, ev.Stream)
	s.Incoming = nil
	// Still calling: only the connection state may flip to connected.
	s.Status = StatusCalling
	s.Error = ""
	return Result{State: s}
}

// staleCompletion drops a completion that no longer matches the state. The
// local stream it acquired is handed back for release.
func staleCompletion(s State, ev Event, reason string) Result {
	r := Result{State: s, Ignored: reason}
	if ev.Stream != "" {
		r.Effects = []Effect{{Kind: EffectReleaseMedia, PeerID: ev.Peer.ID, LocalStream: ev.Stream}}
	}
	return r
}

// owns reports whether ev belongs to the current session. Events without an
// owner are accepted.
func (s State) owns(ev Event) bool {
	return ev.Owner == "" || ev.Owner == s.Session.LocalStream
}

func newSession(peer Peer, kind Kind, local StreamHandle) *Session {
	return &Session{
		Peer:        peer,
		Kind:        kind,
		LocalStream: local,
		ConnState:   ConnNew,
	}
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
