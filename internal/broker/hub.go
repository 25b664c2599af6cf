// Package broker is the identity broker peers use to find each other and
// exchange WebRTC negotiation messages. It never sees pose data.
package broker

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/signaling"
)

type envelope struct {
	client *Client
	msg    *signaling.Message
}

// Hub owns every registered identity. All state is touched only by Run.
type Hub struct {
	peers map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan envelope
	done       chan struct{}

	newID func() string
}

// NewHub creates a Hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		peers:      make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan envelope, 64),
		done:       make(chan struct{}),
		newID:      uuid.NewString,
	}
}

// Run processes hub events until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			log.Debug().Str("module", "broker").Str("remote", client.remote()).Msg("client connected")

		case client := <-h.unregister:
			h.drop(client)

		case env := <-h.inbound:
			h.handle(env.client, env.msg)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// enqueue reports false once the hub has stopped.
func (h *Hub) enqueue(c *Client, msg *signaling.Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbound <- envelope{client: c, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// Peers returns the number of registered identities. Only for use from the
// hub goroutine or tests.
func (h *Hub) Peers() int {
	return len(h.peers)
}

func (h *Hub) handle(from *Client, msg *signaling.Message) {
	// Messages read before a disconnect can still be queued behind it.
	if from.dropped {
		log.Debug().Str("module", "broker").Str("peer", from.ID).Str("type", msg.Type).Msg("ignoring message from disconnected client")
		return
	}

	switch msg.Type {
	case signaling.MessageTypeRegister:
		h.handleRegister(from, msg)

	case signaling.MessageTypeConnect:
		if !h.requireRegistered(from) {
			return
		}
		target, ok := h.peers[msg.Target]
		if !ok || target == from {
			h.refusePeer(from, msg.Target)
			return
		}
		from.partners[target.ID] = struct{}{}
		target.partners[from.ID] = struct{}{}
		log.Info().Str("module", "broker").Str("from", from.ID).Str("target", target.ID).Msg("connect")
		h.deliver(target, &signaling.Message{Type: signaling.MessageTypeIncoming, From: from.ID})

	case signaling.MessageTypeSignal:
		if !h.requireRegistered(from) {
			return
		}
		target, ok := h.peers[msg.Target]
		if !ok {
			h.refusePeer(from, msg.Target)
			return
		}
		h.deliver(target, &signaling.Message{
			Type:    signaling.MessageTypeSignal,
			From:    from.ID,
			Payload: msg.Payload,
		})

	case signaling.MessageTypeLeave:
		if !h.requireRegistered(from) {
			return
		}
		if target, ok := h.peers[msg.Target]; ok {
			delete(from.partners, target.ID)
			delete(target.partners, from.ID)
			h.deliver(target, &signaling.Message{Type: signaling.MessageTypePeerLeft, From: from.ID})
		}

	default:
		log.Warn().Str("module", "broker").Str("type", msg.Type).Msg("unknown message type")
		h.deliver(from, &signaling.Message{
			Type:  signaling.MessageTypeError,
			Code:  signaling.CodeInvalidMessage,
			Error: "unknown message type " + msg.Type,
		})
	}
}

func (h *Hub) handleRegister(from *Client, msg *signaling.Message) {
	if from.ID != "" {
		h.deliver(from, &signaling.Message{
			Type:  signaling.MessageTypeError,
			Code:  signaling.CodeInvalidMessage,
			Error: "already registered as " + from.ID,
		})
		return
	}

	id := msg.PeerID
	if id == "" {
		id = h.newID()
	}
	if _, taken := h.peers[id]; taken {
		log.Info().Str("module", "broker").Str("peer", id).Msg("identity taken")
		h.deliver(from, &signaling.Message{
			Type:  signaling.MessageTypeError,
			Code:  signaling.CodeUnavailableID,
			Error: "identity " + id + " is already in use",
		})
		return
	}

	from.ID = id
	h.peers[id] = from
	log.Info().Str("module", "broker").Str("peer", id).Int("peers", len(h.peers)).Msg("registered")
	h.deliver(from, &signaling.Message{Type: signaling.MessageTypeRegistered, PeerID: id})
}

func (h *Hub) requireRegistered(c *Client) bool {
	if c.ID != "" {
		return true
	}
	h.deliver(c, &signaling.Message{
		Type:  signaling.MessageTypeError,
		Code:  signaling.CodeNotRegistered,
		Error: "register before connecting",
	})
	return false
}

func (h *Hub) refusePeer(c *Client, target string) {
	log.Info().Str("module", "broker").Str("from", c.ID).Str("target", target).Msg("peer unavailable")
	h.deliver(c, &signaling.Message{
		Type:   signaling.MessageTypeError,
		Code:   signaling.CodePeerUnavailable,
		Error:  "could not connect to peer " + target,
		Target: target,
	})
}

func (h *Hub) drop(c *Client) {
	if c.dropped {
		return
	}
	c.dropped = true

	if c.ID != "" && h.peers[c.ID] == c {
		delete(h.peers, c.ID)
		for id := range c.partners {
			if p, ok := h.peers[id]; ok {
				delete(p.partners, c.ID)
				h.deliver(p, &signaling.Message{Type: signaling.MessageTypePeerLeft, From: c.ID})
			}
		}
		log.Info().Str("module", "broker").Str("peer", c.ID).Int("peers", len(h.peers)).Msg("unregistered")
	}
	close(c.Send)
}

// deliver never blocks the hub; a client too slow to drain its queue loses
// messages.
func (h *Hub) deliver(c *Client, msg *signaling.Message) {
	select {
	case c.Send <- msg:
	default:
		log.Warn().Str("module", "broker").Str("peer", c.ID).Str("type", msg.Type).Msg("send queue full, dropping")
	}
}
