package signaling

import (
	"encoding/json"
	"fmt"
)

// Message is the envelope for every websocket frame exchanged with the
// broker, in both directions.
type Message struct {
	Type    string          `json:"type"`
	PeerID  string          `json:"peer_id,omitempty"`
	Target  string          `json:"target,omitempty"`
	From    string          `json:"from,omitempty"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to broker.
const (
	MessageTypeRegister = "register"
	MessageTypeConnect  = "connect"
	MessageTypeSignal   = "signal"
	MessageTypeLeave    = "leave"
)

// Broker to client.
const (
	MessageTypeRegistered = "registered"
	MessageTypeIncoming   = "incoming"
	MessageTypePeerLeft   = "peer_left"
	MessageTypeError      = "error"
)

// Error codes carried in error messages.
const (
	CodeUnavailableID   = "unavailable-id"
	CodePeerUnavailable = "peer-unavailable"
	CodeInvalidMessage  = "invalid-message"
	CodeNotRegistered   = "not-registered"
)

// SignalPayload is the WebRTC negotiation data relayed between peers: an SDP
// offer/answer or a trickled ICE candidate.
type SignalPayload struct {
	Type         string          `json:"type,omitempty"`
	SDP          string          `json:"sdp,omitempty"`
	ICECandidate json.RawMessage `json:"ice_candidate,omitempty"`
}

// NewSignal wraps payload in a signal message addressed to target.
func NewSignal(target string, payload *SignalPayload) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode signal payload: %w", err)
	}
	return &Message{Type: MessageTypeSignal, Target: target, Payload: raw}, nil
}

// DecodeSignal extracts the negotiation payload of a signal message.
func (m *Message) DecodeSignal() (*SignalPayload, error) {
	if len(m.Payload) == 0 {
		return nil, fmt.Errorf("signal from %q has no payload", m.From)
	}
	var p SignalPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode signal payload: %w", err)
	}
	return &p, nil
}

// ErrorMessage is a broker error as seen by the client.
type ErrorMessage struct {
	Code   string
	Error  string
	Target string
}
