package webrtc

import (
	"context"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/config"
	"github.com/BioHazard786/posebridge/internal/dns"
	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/signaling"
)

// peerFactory is replaced in tests.
type peerFactory func(cfg *config.Config) (*pion.PeerConnection, error)

// Transport connects to peers by identity through the broker.
type Transport struct {
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	localID string
	newPC   peerFactory

	mu     sync.Mutex
	accept link.AcceptFunc
	peers  map[string]*peer
	closed bool
}

// Open connects to the broker and claims peerID (empty lets the broker
// assign one).
func Open(ctx context.Context, cfg *config.Config, peerID string) (*Transport, error) {
	client := signaling.NewClient(cfg.BrokerURL, dns.NewResolver())
	if err := client.Connect(ctx); err != nil {
		return nil, link.NewConnectError(peerID, link.ReasonBrokerError, err)
	}

	handler := signaling.NewHandler(client.Incoming())
	go handler.Start()

	id, err := signaling.Register(ctx, client, handler, peerID)
	if err != nil {
		client.Close()
		return nil, link.NewConnectError(peerID, link.ReasonBrokerError, err)
	}
	log.Info().Str("module", "webrtc").Str("peer", id).Msg("registered with broker")

	t := &Transport{
		cfg:     cfg,
		client:  client,
		handler: handler,
		localID: id,
		newPC:   NewPeerConnection,
		peers:   make(map[string]*peer),
	}
	go t.route()
	return t, nil
}

// LocalID is the identity the broker registered for us.
func (t *Transport) LocalID() string {
	return t.localID
}

// Listen implements link.Transport.
func (t *Transport) Listen(accept link.AcceptFunc) {
	t.mu.Lock()
	t.accept = accept
	t.mu.Unlock()
}

// Dial implements link.Transport. The broker reports an unknown target
// asynchronously, so that failure arrives through sink.Failed.
func (t *Transport) Dial(ctx context.Context, target string, sink link.Sink) (link.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, link.ErrNoBroker
	}
	t.mu.Unlock()

	select {
	case <-t.handler.Done():
		return nil, link.ErrNoBroker
	default:
	}

	pc, err := t.newPC(t.cfg)
	if err != nil {
		return nil, err
	}
	p := t.newPeer(pc, target, true, sink)
	if err := p.createDataChannel(); err != nil {
		_ = pc.Close()
		return nil, err
	}

	t.replacePeer(target, p)

	if err := t.client.Send(&signaling.Message{Type: signaling.MessageTypeConnect, Target: target}); err != nil {
		t.removePeer(target, p)
		_ = pc.Close()
		return nil, fmt.Errorf("%w: %v", link.ErrNoBroker, err)
	}
	if err := p.offer(); err != nil {
		t.removePeer(target, p)
		_ = pc.Close()
		return nil, err
	}

	log.Debug().Str("module", "webrtc").Str("peer", target).Msg("offer sent")
	return p, nil
}

// Close tears down every peer and the broker connection.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	peers := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.peers = map[string]*peer{}
	t.mu.Unlock()

	for _, p := range peers {
		_ = p.Close()
	}
	t.client.Close()
}

// Done is closed when the broker connection is lost.
func (t *Transport) Done() <-chan struct{} {
	return t.handler.Done()
}

func (t *Transport) newPeer(pc *pion.PeerConnection, remote string, initiator bool, sink link.Sink) *peer {
	var p *peer
	signal := func(payload *signaling.SignalPayload) error {
		msg, err := signaling.NewSignal(remote, payload)
		if err != nil {
			return err
		}
		return t.client.Send(msg)
	}
	leave := func() {
		t.removePeer(remote, p)
		_ = t.client.Send(&signaling.Message{Type: signaling.MessageTypeLeave, Target: remote})
	}
	p = newPeer(pc, remote, initiator, sink, signal, leave)
	return p
}

func (t *Transport) replacePeer(remote string, p *peer) {
	t.mu.Lock()
	old := t.peers[remote]
	t.peers[remote] = p
	t.mu.Unlock()
	if old != nil {
		// a leave here would reach the remote's new peer, not the old one
		old.release()
	}
}

func (t *Transport) removePeer(remote string, p *peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peers[remote] == p {
		delete(t.peers, remote)
	}
}

func (t *Transport) lookup(remote string) *peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[remote]
}

// route consumes broker events in the order the broker sent them until the
// broker connection drops. An offer always follows the incoming event that
// announced its peer, and a peer_left never overtakes a later incoming.
func (t *Transport) route() {
	for {
		select {
		case ev := <-t.handler.Events:
			t.dispatch(ev)
		case <-t.handler.Done():
			// drain what the handler queued before the connection went away
			for {
				select {
				case ev := <-t.handler.Events:
					t.dispatch(ev)
				default:
					log.Warn().Str("module", "webrtc").Msg("broker connection closed")
					return
				}
			}
		}
	}
}

func (t *Transport) dispatch(ev *signaling.Event) {
	switch ev.Type {
	case signaling.MessageTypeIncoming:
		t.handleIncoming(ev.From)

	case signaling.MessageTypeSignal:
		p := t.lookup(ev.From)
		if p == nil {
			log.Debug().Str("module", "webrtc").Str("peer", ev.From).Msg("signal for unknown peer")
			return
		}
		if err := p.handleSignal(ev.Signal); err != nil {
			log.Warn().Str("module", "webrtc").Str("peer", ev.From).Err(err).Msg("signal")
			p.fail(err)
		}

	case signaling.MessageTypePeerLeft:
		if p := t.lookup(ev.From); p != nil {
			log.Info().Str("module", "webrtc").Str("peer", ev.From).Msg("peer left")
			p.closed()
			t.removePeer(ev.From, p)
			p.release()
		}

	case signaling.MessageTypeError:
		t.handleBrokerError(ev.Error)

	default:
		log.Debug().Str("module", "webrtc").Str("type", ev.Type).Msg("ignoring broker event")
	}
}

func (t *Transport) handleIncoming(from string) {
	t.mu.Lock()
	accept := t.accept
	t.mu.Unlock()

	if accept == nil {
		log.Info().Str("module", "webrtc").Str("peer", from).Msg("not accepting peers")
		_ = t.client.Send(&signaling.Message{Type: signaling.MessageTypeLeave, Target: from})
		return
	}

	pc, err := t.newPC(t.cfg)
	if err != nil {
		log.Error().Str("module", "webrtc").Str("peer", from).Err(err).Msg("inbound peer connection")
		return
	}

	// No pion callback fires before the offer is applied, and offers are
	// routed by this goroutine, so the sink can be filled in after accept.
	p := t.newPeer(pc, from, false, nil)
	p.sink = accept(from, p)
	t.replacePeer(from, p)
	log.Info().Str("module", "webrtc").Str("peer", from).Msg("inbound peer")
}

func (t *Transport) handleBrokerError(e *signaling.ErrorMessage) {
	if e.Code == signaling.CodePeerUnavailable && e.Target != "" {
		if p := t.lookup(e.Target); p != nil {
			p.fail(link.NewConnectError(e.Target, link.ReasonUnreachable, fmt.Errorf("%s", e.Error)))
			return
		}
	}
	log.Warn().Str("module", "webrtc").Str("code", e.Code).Str("error", e.Error).Msg("broker error")
}
