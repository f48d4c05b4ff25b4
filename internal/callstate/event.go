package callstate

// EventKind describes what happened, either on the network or locally.
type EventKind int

const (
	// EventUnknown is never produced by the constructors below. Reducing it is a no-op.
	EventUnknown EventKind = iota
	// EventReceiveOffer reports a CALL_OFFER from a remote caller.
	EventReceiveOffer
	// EventReceiveEnd reports that the peer hung up.
	EventReceiveEnd
	// EventReceiveReject reports that the peer declined our call.
	EventReceiveReject
	// EventReceiveBusy reports that the peer is already in a call.
	EventReceiveBusy
	// EventSetRemoteStream attaches the peer's media stream.
	EventSetRemoteStream
	// EventUpdateConnectionState reports a peer connection state change.
	EventUpdateConnectionState
	// EventInitiateRequested marks an outgoing call request as in flight.
	EventInitiateRequested
	// EventInitiateSucceeded carries the result of a successful outgoing call request.
	EventInitiateSucceeded
	// EventInitiateFailed reports that the outgoing call request failed.
	EventInitiateFailed
	// EventAcceptRequested marks an accept request as in flight.
	EventAcceptRequested
	// EventAcceptSucceeded carries the result of a successful accept.
	EventAcceptSucceeded
	// EventAcceptFailed reports that accepting the incoming call failed.
	EventAcceptFailed
	// EventRejectSucceeded reports that the incoming call was declined.
	EventRejectSucceeded
	// EventEndSucceeded reports that we hung up.
	EventEndSucceeded
	// EventReceiveAnswerSucceeded acknowledges the peer's answer.
	EventReceiveAnswerSucceeded
	// EventReceiveAnswerFailed reports that applying the peer's answer failed.
	EventReceiveAnswerFailed
	// EventReceiveIceFailed reports a failed ICE candidate. Best effort, never fatal.
	EventReceiveIceFailed
	// EventClearCall resets to the initial state.
	EventClearCall
)

var eventNames = [...]string{
	EventUnknown:                "unknown",
	EventReceiveOffer:           "receive_offer",
	EventReceiveEnd:             "receive_end",
	EventReceiveReject:          "receive_reject",
	EventReceiveBusy:            "receive_busy",
	EventSetRemoteStream:        "set_remote_stream",
	EventUpdateConnectionState:  "update_connection_state",
	EventInitiateRequested:      "initiate_requested",
	EventInitiateSucceeded:      "initiate_succeeded",
	EventInitiateFailed:         "initiate_failed",
	EventAcceptRequested:        "accept_requested",
	EventAcceptSucceeded:        "accept_succeeded",
	EventAcceptFailed:           "accept_failed",
	EventRejectSucceeded:        "reject_succeeded",
	EventEndSucceeded:           "end_succeeded",
	EventReceiveAnswerSucceeded: "receive_answer_succeeded",
	EventReceiveAnswerFailed:    "receive_answer_failed",
	EventReceiveIceFailed:       "receive_ice_failed",
	EventClearCall:              "clear_call",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return eventNames[EventUnknown]
	}
	return eventNames[k]
}

// ParseEventKind maps a wire name back to its kind. Unknown names yield EventUnknown.
func ParseEventKind(name string) EventKind {
	for k, n := range eventNames {
		if n == name && k != int(EventUnknown) {
			return EventKind(k)
		}
	}
	return EventUnknown
}

// Event is a single input to the state machine. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind      EventKind
	Offer     *IncomingCall // ReceiveOffer
	Peer      Peer          // InitiateSucceeded, AcceptSucceeded
	CallKind  Kind          // InitiateSucceeded, AcceptSucceeded
	Stream    StreamHandle  // SetRemoteStream; local stream for *Succeeded
	ConnState ConnState     // UpdateConnectionState
	Message   string        // *Failed
	// Owner is the local stream of the peer connection that produced a
	// SetRemoteStream or UpdateConnectionState. Empty means unchecked.
	Owner StreamHandle
}

func ReceiveOffer(callerID, callerName string, kind Kind, sdp string) Event {
	return Event{
		Kind: EventReceiveOffer,
		Offer: &IncomingCall{
			CallerID:   callerID,
			CallerName: callerName,
			Kind:       kind,
			SDP:        sdp,
		},
	}
}

func ReceiveEnd() Event    { return Event{Kind: EventReceiveEnd} }
func ReceiveReject() Event { return Event{Kind: EventReceiveReject} }
func ReceiveBusy() Event   { return Event{Kind: EventReceiveBusy} }

func SetRemoteStream(stream StreamHandle) Event {
	return Event{Kind: EventSetRemoteStream, Stream: stream}
}

func UpdateConnectionState(cs ConnState) Event {
	return Event{Kind: EventUpdateConnectionState, ConnState: cs}
}

// From ties a connection-sourced event to the session whose local stream is
// owner. The store drops it once that session is gone.
func (ev Event) From(owner StreamHandle) Event {
	ev.Owner = owner
	return ev
}

func InitiateRequested() Event { return Event{Kind: EventInitiateRequested} }

func InitiateSucceeded(peer Peer, kind Kind, local StreamHandle) Event {
	return Event{Kind: EventInitiateSucceeded, Peer: peer, CallKind: kind, Stream: local}
}

func InitiateFailed(msg string) Event { return Event{Kind: EventInitiateFailed, Message: msg} }

func AcceptRequested() Event { return Event{Kind: EventAcceptRequested} }

func AcceptSucceeded(peer Peer, kind Kind, local StreamHandle) Event {
	return Event{Kind: EventAcceptSucceeded, Peer: peer, CallKind: kind, Stream: local}
}

func AcceptFailed(msg string) Event { return Event{Kind: EventAcceptFailed, Message: msg} }

func RejectSucceeded() Event        { return Event{Kind: EventRejectSucceeded} }
func EndSucceeded() Event           { return Event{Kind: EventEndSucceeded} }
func ReceiveAnswerSucceeded() Event { return Event{Kind: EventReceiveAnswerSucceeded} }

func ReceiveAnswerFailed(msg string) Event {
	return Event{Kind: EventReceiveAnswerFailed, Message: msg}
}

func ReceiveIceFailed() Event { return Event{Kind: EventReceiveIceFailed} }
func ClearCall() Event        { return Event{Kind: EventClearCall} }
