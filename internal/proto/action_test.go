package proto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
)

func TestDecodeOfferAcceptsNumericCaller(t *testing.T) {
	in := Inbound{
		Type: "receive_offer",
		Data: json.RawMessage(`{"caller_id":42,"caller_username":"Alice","call_type":"AUDIO","sdp":"v=0"}`),
	}
	ev, err := DecodeAction(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != callstate.EventReceiveOffer || ev.Offer == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Offer.CallerID != "42" || ev.Offer.CallerName != "Alice" || ev.Offer.Kind != callstate.KindAudio || ev.Offer.SDP != "v=0" {
		t.Fatalf("unexpected offer: %+v", ev.Offer)
	}
}

func TestDecodeUnknownTypeIsUnrecognized(t *testing.T) {
	ev, err := DecodeAction(Inbound{Type: "hold_call", Data: json.RawMessage(`{"x":1}`)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != callstate.EventUnknown {
		t.Fatalf("expected unknown kind, got %v", ev.Kind)
	}
	if got := callstate.Transition(callstate.Initial(), ev); got != callstate.Initial() {
		t.Fatalf("unknown action changed state: %+v", got)
	}
}

func TestDecodeBadPayloads(t *testing.T) {
	cases := []Inbound{
		{Type: "receive_offer", Data: json.RawMessage(`{"caller_username":"Alice"}`)},
		{Type: "receive_offer", Data: json.RawMessage(`{"caller_id":true}`)},
		{Type: "receive_offer", Data: json.RawMessage(`{"caller_id":"1","call_type":"screen"}`)},
		{Type: "update_connection_state", Data: json.RawMessage(`{"state":"checking"}`)},
		{Type: "set_remote_stream", Data: json.RawMessage(`[1,2]`)},
	}
	for _, in := range cases {
		if _, err := DecodeAction(in); !errors.Is(err, ErrBadPayload) {
			t.Fatalf("%s %s: expected ErrBadPayload, got %v", in.Type, in.Data, err)
		}
	}
}

func TestDecodePayloadFreeActions(t *testing.T) {
	for _, name := range []string{"receive_end", "initiate_requested", "clear_call", "receive_ice_failed"} {
		ev, err := DecodeAction(Inbound{Type: name})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if ev.Kind.String() != name {
			t.Fatalf("%s decoded as %v", name, ev.Kind)
		}
	}
}

func TestEncodeDecodeKeepsEvents(t *testing.T) {
	events := []callstate.Event{
		callstate.ReceiveOffer("7", "Bob", callstate.KindVideo, "sdp"),
		callstate.AcceptSucceeded(callstate.Peer{ID: "7", Name: "Bob", AvatarURL: "a.png", Gender: "m"}, callstate.KindVideo, "cam"),
		callstate.SetRemoteStream("remote"),
		callstate.UpdateConnectionState(callstate.ConnDisconnected),
		callstate.UpdateConnectionState(callstate.ConnFailed).From("cam"),
		callstate.SetRemoteStream("remote-2").From("mic"),
		callstate.InitiateFailed("no microphone"),
		callstate.AcceptFailed(""),
		callstate.ClearCall(),
	}
	for _, ev := range events {
		in, err := EncodeAction(ev)
		if err != nil {
			t.Fatalf("encode %v: %v", ev.Kind, err)
		}
		back, err := DecodeAction(in)
		if err != nil {
			t.Fatalf("decode %v: %v", ev.Kind, err)
		}
		if back.Kind != ev.Kind || back.Peer != ev.Peer || back.Stream != ev.Stream ||
			back.ConnState != ev.ConnState || back.Message != ev.Message || back.CallKind != ev.CallKind || back.Owner != ev.Owner {
			t.Fatalf("round trip changed %v: %+v", ev.Kind, back)
		}
		if ev.Offer != nil && *back.Offer != *ev.Offer {
			t.Fatalf("offer changed: %+v", back.Offer)
		}
	}
}

func TestDecodeConnectionOwner(t *testing.T) {
	ev, err := DecodeAction(Inbound{
		Type: "update_connection_state",
		Data: json.RawMessage(`{"state":"failed","local_stream":"mic-a"}`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ConnState != callstate.ConnFailed || ev.Owner != "mic-a" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
