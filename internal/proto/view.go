package proto

import "github.com/vovakirdan/wirechat-callstate/internal/callstate"

// StateView is the JSON rendering of callstate.State.
type StateView struct {
	Status       string        `json:"status"`
	Session      *SessionView  `json:"session"`
	IncomingCall *IncomingView `json:"incoming_call"`
	Error        *string       `json:"error"`
	IsInitiating bool          `json:"is_initiating"`
	IsAccepting  bool          `json:"is_accepting"`
}

type SessionView struct {
	PeerID          string `json:"peer_id"`
	PeerUsername    string `json:"peer_username"`
	PeerAvatarURL   string `json:"peer_avatar_url,omitempty"`
	PeerGender      string `json:"peer_gender,omitempty"`
	CallType        string `json:"call_type"`
	LocalStream     string `json:"local_stream,omitempty"`
	RemoteStream    string `json:"remote_stream,omitempty"`
	ConnectionState string `json:"connection_state"`
}

type IncomingView struct {
	CallerID       string `json:"caller_id"`
	CallerUsername string `json:"caller_username"`
	CallType       string `json:"call_type"`
	SDP            string `json:"sdp"`
}

// EffectView is the JSON rendering of callstate.Effect. Busy replies carry
// the signaling frame to relay.
type EffectView struct {
	Kind         string  `json:"kind" yaml:"kind"`
	PeerID       string  `json:"peer_id,omitempty" yaml:"peer_id,omitempty"`
	LocalStream  string  `json:"local_stream,omitempty" yaml:"local_stream,omitempty"`
	RemoteStream string  `json:"remote_stream,omitempty" yaml:"remote_stream,omitempty"`
	Signal       *Signal `json:"signal,omitempty" yaml:"signal,omitempty"`
}

// StateFrame is the data of a "state" event.
type StateFrame struct {
	Seq   uint64    `json:"seq"`
	Event string    `json:"event,omitempty"`
	State StateView `json:"state"`
}

func NewStateView(s callstate.State) StateView {
	v := StateView{
		Status:       string(s.Status),
		IsInitiating: s.IsInitiating,
		IsAccepting:  s.IsAccepting,
	}
	if s.Error != "" {
		msg := s.Error
		v.Error = &msg
	}
	if ss := s.Session; ss != nil {
		v.Session = &SessionView{
			PeerID:          ss.Peer.ID,
			PeerUsername:    ss.Peer.Name,
			PeerAvatarURL:   ss.Peer.AvatarURL,
			PeerGender:      ss.Peer.Gender,
			CallType:        string(ss.Kind),
			LocalStream:     string(ss.LocalStream),
			RemoteStream:    string(ss.RemoteStream),
			ConnectionState: string(ss.ConnState),
		}
	}
	if in := s.Incoming; in != nil {
		v.IncomingCall = &IncomingView{
			CallerID:       in.CallerID,
			CallerUsername: in.CallerName,
			CallType:       string(in.Kind),
			SDP:            in.SDP,
		}
	}
	return v
}

func NewEffectView(e callstate.Effect) EffectView {
	v := EffectView{
		Kind:         e.Kind.String(),
		PeerID:       e.PeerID,
		LocalStream:  string(e.LocalStream),
		RemoteStream: string(e.RemoteStream),
	}
	if e.Kind == callstate.EffectSendBusy {
		sig := BusySignal(e.PeerID)
		v.Signal = &sig
	}
	return v
}

func NewEffectViews(effects []callstate.Effect) []EffectView {
	views := make([]EffectView, 0, len(effects))
	for _, e := range effects {
		views = append(views, NewEffectView(e))
	}
	return views
}

// IgnoredFrame tells the sender that a guard dropped its action.
type IgnoredFrame struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
