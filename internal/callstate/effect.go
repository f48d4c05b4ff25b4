package callstate

// EffectKind is an instruction for the layer that owns the network and media.
// The reducer only describes effects; it never performs them.
type EffectKind int

const (
	// EffectReleaseMedia means the store dropped its references to the
	// listed streams and the media layer may stop and close them.
	EffectReleaseMedia EffectKind = iota
	// EffectSendBusy asks the signaling layer to answer an offer with CALL_BUSY.
	EffectSendBusy
)

func (k EffectKind) String() string {
	switch k {
	case EffectReleaseMedia:
		return "release_media"
	case EffectSendBusy:
		return "send_busy"
	default:
		return "unknown"
	}
}

// Effect is emitted alongside a transition.
type Effect struct {
	Kind         EffectKind
	PeerID       string
	LocalStream  StreamHandle
	RemoteStream StreamHandle
}

func releaseSession(s *Session) Effect {
	return Effect{
		Kind:         EffectReleaseMedia,
		PeerID:       s.Peer.ID,
		LocalStream:  s.LocalStream,
		RemoteStream: s.RemoteStream,
	}
}

// Result is the outcome of reducing one event.
type Result struct {
	State   State
	Effects []Effect
	// Ignored names the guard that dropped the event, empty when it applied.
	Ignored string
}
