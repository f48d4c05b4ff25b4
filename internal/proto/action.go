package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
)

// DecodeAction turns an inbound action into a store event. Unknown types
// decode to the unrecognized event so newer collaborators do not break older
// stores.
func DecodeAction(in Inbound) (callstate.Event, error) {
	kind := callstate.ParseEventKind(in.Type)

	switch kind {
	case callstate.EventReceiveOffer:
		var d OfferData
		if err := decodeData(in, &d); err != nil {
			return callstate.Event{}, err
		}
		if d.CallerID == "" {
			return callstate.Event{}, fmt.Errorf("%w: %s requires caller_id", ErrBadPayload, in.Type)
		}
		ck, err := callKind(d.CallType)
		if err != nil {
			return callstate.Event{}, err
		}
		return callstate.ReceiveOffer(d.CallerID.String(), d.CallerUsername, ck, d.SDP), nil

	case callstate.EventInitiateSucceeded, callstate.EventAcceptSucceeded:
		var d PeerData
		if err := decodeData(in, &d); err != nil {
			return callstate.Event{}, err
		}
		ck, err := callKind(d.CallType)
		if err != nil {
			return callstate.Event{}, err
		}
		peer := callstate.Peer{
			ID:        d.PeerID.String(),
			Name:      d.PeerUsername,
			AvatarURL: d.PeerAvatarURL,
			Gender:    d.PeerGender,
		}
		local := callstate.StreamHandle(d.LocalStream)
		if kind == callstate.EventInitiateSucceeded {
			return callstate.InitiateSucceeded(peer, ck, local), nil
		}
		return callstate.AcceptSucceeded(peer, ck, local), nil

	case callstate.EventSetRemoteStream:
		var d StreamData
		if err := decodeData(in, &d); err != nil {
			return callstate.Event{}, err
		}
		return callstate.SetRemoteStream(callstate.StreamHandle(d.Stream)).From(callstate.StreamHandle(d.LocalStream)), nil

	case callstate.EventUpdateConnectionState:
		var d ConnStateData
		if err := decodeData(in, &d); err != nil {
			return callstate.Event{}, err
		}
		cs, ok := callstate.ParseConnState(d.State)
		if !ok {
			return callstate.Event{}, fmt.Errorf("%w: connection state %q", ErrBadPayload, d.State)
		}
		return callstate.UpdateConnectionState(cs).From(callstate.StreamHandle(d.LocalStream)), nil

	case callstate.EventInitiateFailed, callstate.EventAcceptFailed, callstate.EventReceiveAnswerFailed:
		var d FailureData
		if err := decodeData(in, &d); err != nil {
			return callstate.Event{}, err
		}
		switch kind {
		case callstate.EventInitiateFailed:
			return callstate.InitiateFailed(d.Message), nil
		case callstate.EventAcceptFailed:
			return callstate.AcceptFailed(d.Message), nil
		default:
			return callstate.ReceiveAnswerFailed(d.Message), nil
		}

	default:
		// Payload-free actions and the unrecognized event.
		return callstate.Event{Kind: kind}, nil
	}
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(ev callstate.Event) (Inbound, error) {
	var data any
	switch ev.Kind {
	case callstate.EventReceiveOffer:
		if ev.Offer == nil {
			return Inbound{}, fmt.Errorf("%w: offer without payload", ErrBadPayload)
		}
		data = OfferData{
			CallerID:       ID(ev.Offer.CallerID),
			CallerUsername: ev.Offer.CallerName,
			CallType:       string(ev.Offer.Kind),
			SDP:            ev.Offer.SDP,
		}
	case callstate.EventInitiateSucceeded, callstate.EventAcceptSucceeded:
		data = PeerData{
			PeerID:        ID(ev.Peer.ID),
			PeerUsername:  ev.Peer.Name,
			PeerAvatarURL: ev.Peer.AvatarURL,
			PeerGender:    ev.Peer.Gender,
			CallType:      string(ev.CallKind),
			LocalStream:   string(ev.Stream),
		}
	case callstate.EventSetRemoteStream:
		data = StreamData{Stream: string(ev.Stream), LocalStream: string(ev.Owner)}
	case callstate.EventUpdateConnectionState:
		data = ConnStateData{State: string(ev.ConnState), LocalStream: string(ev.Owner)}
	case callstate.EventInitiateFailed, callstate.EventAcceptFailed, callstate.EventReceiveAnswerFailed:
		if ev.Message != "" {
			data = FailureData{Message: ev.Message}
		}
	}

	in := Inbound{Type: ev.Kind.String()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Inbound{}, fmt.Errorf("encode %s: %w", in.Type, err)
		}
		in.Data = raw
	}
	return in, nil
}

func decodeData(in Inbound, dst any) error {
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(in.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, in.Type, err)
	}
	return nil
}

// callKind parses an optional call type. Empty means "not given".
func callKind(s string) (callstate.Kind, error) {
	if s == "" {
		return "", nil
	}
	k, ok := callstate.ParseKind(s)
	if !ok {
		return "", fmt.Errorf("%w: call type %q", ErrBadPayload, s)
	}
	return k, nil
}
