package signaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrRegisterFailed wraps a broker refusal of our identity.
var ErrRegisterFailed = errors.New("registration refused")

// Event is one broker message after decoding. Exactly one of the fields
// after Type is meaningful, depending on Type.
type Event struct {
	Type   string
	PeerID string
	From   string
	Signal *SignalPayload
	Error  *ErrorMessage
}

// Handler decodes broker messages onto a single channel, preserving the
// order the broker sent them in.
type Handler struct {
	incoming <-chan *Message
	Events   chan *Event
	done     chan struct{}
}

// NewHandler creates a handler reading from incoming, usually
// Client.Incoming().
func NewHandler(incoming <-chan *Message) *Handler {
	return &Handler{
		incoming: incoming,
		Events:   make(chan *Event, 64),
		done:     make(chan struct{}),
	}
}

// Start routes messages until the incoming channel closes.
func (h *Handler) Start() {
	defer close(h.done)

	for msg := range h.incoming {
		ev := &Event{Type: msg.Type, PeerID: msg.PeerID, From: msg.From}
		switch msg.Type {
		case MessageTypeRegistered, MessageTypeIncoming, MessageTypePeerLeft:

		case MessageTypeSignal:
			payload, err := msg.DecodeSignal()
			if err != nil {
				log.Warn().Str("module", "signaling").Str("peer", msg.From).Err(err).Msg("bad signal")
				continue
			}
			ev.Signal = payload

		case MessageTypeError:
			ev.Error = &ErrorMessage{Code: msg.Code, Error: msg.Error, Target: msg.Target}

		default:
			log.Debug().Str("module", "signaling").Str("type", msg.Type).Msg("ignoring unknown message")
			continue
		}
		h.Events <- ev
	}
}

// Done is closed when the broker connection has gone away.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Register claims peerID at the broker (empty lets the broker choose) and
// waits for the outcome. It must run before anything else consumes Events.
func Register(ctx context.Context, c *Client, h *Handler, peerID string) (string, error) {
	if err := c.Send(&Message{Type: MessageTypeRegister, PeerID: peerID}); err != nil {
		return "", err
	}

	for {
		select {
		case ev := <-h.Events:
			switch ev.Type {
			case MessageTypeRegistered:
				return ev.PeerID, nil
			case MessageTypeError:
				return "", fmt.Errorf("%w: %s: %s", ErrRegisterFailed, ev.Error.Code, ev.Error.Error)
			}
			log.Debug().Str("module", "signaling").Str("type", ev.Type).Msg("ignoring message before registration")
		case <-h.Done():
			return "", ErrClientClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
