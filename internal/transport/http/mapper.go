package http

import (
	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

// outboundFromSnapshot renders a snapshot as a state frame followed by one
// frame per effect.
func outboundFromSnapshot(snap *callstate.Snapshot) []proto.Outbound {
	frames := make([]proto.Outbound, 0, 1+len(snap.Effects))
	frames = append(frames, stateOutbound(snap))
	for _, eff := range snap.Effects {
		frames = append(frames, proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventEffect,
			Data:  proto.NewEffectView(eff),
		})
	}
	return frames
}

func stateOutbound(snap *callstate.Snapshot) proto.Outbound {
	frame := proto.StateFrame{
		Seq:   snap.Seq,
		State: proto.NewStateView(snap.State),
	}
	if snap.Event != callstate.EventUnknown {
		frame.Event = snap.Event.String()
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventState,
		Data:  frame,
	}
}

func ignoredOutbound(ev callstate.Event, reason string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventIgnored,
		Data:  proto.IgnoredFrame{Event: ev.Kind.String(), Reason: reason},
	}
}

func errorOutbound(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

func newDispatchResponse(r callstate.Result) DispatchResponse {
	return DispatchResponse{
		State:   proto.NewStateView(r.State),
		Effects: proto.NewEffectViews(r.Effects),
		Ignored: r.Ignored,
	}
}
