package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
)

// Signaling frame types exchanged between peers.
const (
	SignalOffer        = "CALL_OFFER"
	SignalAnswer       = "CALL_ANSWER"
	SignalIceCandidate = "ICE_CANDIDATE"
	SignalEnd          = "CALL_END"
	SignalReject       = "CALL_REJECT"
	SignalBusy         = "CALL_BUSY"
)

// Signal is a peer-to-peer signaling frame as relayed by the chat server.
type Signal struct {
	Type           string          `json:"type"`
	CallerID       ID              `json:"callerId,omitempty"`
	CallerUsername string          `json:"callerUsername,omitempty"`
	CalleeID       ID              `json:"calleeId,omitempty"`
	SDP            string          `json:"sdp,omitempty"`
	CallType       string          `json:"callType,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

// Event maps the frame to a store event. ok is false for frames that belong
// to the media layer (answers and ICE candidates).
func (s Signal) Event() (ev callstate.Event, ok bool, err error) {
	switch s.Type {
	case SignalOffer:
		if s.CallerID == "" {
			return callstate.Event{}, false, fmt.Errorf("%w: %s requires callerId", ErrBadPayload, s.Type)
		}
		ck, err := callKind(s.CallType)
		if err != nil {
			return callstate.Event{}, false, err
		}
		return callstate.ReceiveOffer(s.CallerID.String(), s.CallerUsername, ck, s.SDP), true, nil
	case SignalEnd:
		return callstate.ReceiveEnd(), true, nil
	case SignalReject:
		return callstate.ReceiveReject(), true, nil
	case SignalBusy:
		return callstate.ReceiveBusy(), true, nil
	case SignalAnswer, SignalIceCandidate:
		return callstate.Event{}, false, nil
	default:
		return callstate.Event{}, false, fmt.Errorf("%w: %q", ErrUnknownSignal, s.Type)
	}
}

// BusySignal is the reply to an offer that arrived during another call.
func BusySignal(calleeID string) Signal {
	return Signal{Type: SignalBusy, CalleeID: ID(calleeID)}
}
