package callstate

import "strings"

// Status is the lifecycle label of the call state machine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusCalling   Status = "calling"
	StatusRinging   Status = "ringing"
	StatusConnected Status = "connected"
	StatusEnded     Status = "ended"
	StatusRejected  Status = "rejected"
	StatusBusy      Status = "busy"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends the current call context.
func (s Status) Terminal() bool {
	switch s {
	case StatusEnded, StatusRejected, StatusBusy, StatusFailed:
		return true
	default:
		return false
	}
}

// ConnState mirrors the peer connection lifecycle reported by the media layer.
type ConnState string

const (
	ConnNew          ConnState = "new"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
	ConnFailed       ConnState = "failed"
	ConnClosed       ConnState = "closed"
)

// ParseConnState returns the connection state for s, ok=false if unknown.
func ParseConnState(s string) (ConnState, bool) {
	switch cs := ConnState(strings.ToLower(strings.TrimSpace(s))); cs {
	case ConnNew, ConnConnecting, ConnConnected, ConnDisconnected, ConnFailed, ConnClosed:
		return cs, true
	default:
		return "", false
	}
}

// Kind is the media kind of a call.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ParseKind accepts "audio"/"video" in any case ("AUDIO" is what browsers send).
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAudio, KindVideo:
		return k, true
	default:
		return "", false
	}
}

// StreamHandle is an opaque reference to a media stream owned by the media
// layer. The store never looks inside it. Empty means no stream.
type StreamHandle string

// Peer identifies the other side of a call.
type Peer struct {
	ID        string
	Name      string
	AvatarURL string
	Gender    string
}

// Session is a call being placed, ringing out, or connected.
type Session struct {
	Peer         Peer
	Kind         Kind
	LocalStream  StreamHandle
	RemoteStream StreamHandle
	ConnState    ConnState
}

// IncomingCall is an offer that has not been accepted or rejected yet.
type IncomingCall struct {
	CallerID   string
	CallerName string
	Kind       Kind
	// SDP is handed unmodified to the signaling layer on accept.
	SDP string
}

// State is the full call state read by views.
//
// Session and Incoming are shared between snapshots and must be treated as
// read-only; transitions allocate new records instead of editing them.
type State struct {
	Status       Status
	Session      *Session
	Incoming     *IncomingCall
	Error        string
	IsInitiating bool
	IsAccepting  bool
}

// Initial returns the idle state with no call context.
func Initial() State {
	return State{Status: StatusIdle}
}

// Busy reports whether a call context (placed, ringing or connected) exists.
func (s State) Busy() bool {
	return s.Session != nil || s.Incoming != nil || s.Status != StatusIdle
}

// handling reports whether peerID is the peer of the current call context.
func (s State) handling(peerID string) bool {
	if peerID == "" {
		return false
	}
	if s.Session != nil && s.Session.Peer.ID == peerID {
		return true
	}
	return s.Incoming != nil && s.Incoming.CallerID == peerID
}
