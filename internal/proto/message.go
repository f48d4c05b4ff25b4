package proto

import (
	"encoding/json"
	"errors"
)

// Inbound is the envelope for actions coming from a collaborator.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventState   = "state"
	EventEffect  = "effect"
	EventIgnored = "ignored"

	ErrCodeBadRequest  = "bad_request"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeUnavailable = "unavailable"
)

var (
	// ErrBadPayload is returned when action data does not fit its type.
	ErrBadPayload = errors.New("bad payload")
	// ErrUnknownSignal is returned for signaling frames of an unknown type.
	ErrUnknownSignal = errors.New("unknown signal type")
)

// OfferData carries an incoming call offer.
type OfferData struct {
	CallerID       ID     `json:"caller_id"`
	CallerUsername string `json:"caller_username"`
	CallType       string `json:"call_type"`
	SDP            string `json:"sdp"`
}

// PeerData is the payload of initiate_succeeded and accept_succeeded.
type PeerData struct {
	PeerID        ID     `json:"peer_id"`
	PeerUsername  string `json:"peer_username"`
	PeerAvatarURL string `json:"peer_avatar_url,omitempty"`
	PeerGender    string `json:"peer_gender,omitempty"`
	CallType      string `json:"call_type"`
	LocalStream   string `json:"local_stream,omitempty"`
}

// StreamData names the remote stream of set_remote_stream.
type StreamData struct {
	Stream string `json:"stream"`
	// LocalStream names the call the reporting connection belongs to.
	LocalStream string `json:"local_stream,omitempty"`
}

// ConnStateData is the payload of update_connection_state.
type ConnStateData struct {
	State       string `json:"state"`
	LocalStream string `json:"local_stream,omitempty"`
}

// FailureData carries the optional message of a *_failed action.
type FailureData struct {
	Message string `json:"message,omitempty"`
}

// Outbound is the envelope for messages sent to a collaborator.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
