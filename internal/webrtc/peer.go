// Package webrtc implements link.Transport on top of pion WebRTC data
// channels, negotiated through the identity broker.
package webrtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/config"
	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/signaling"
	"github.com/BioHazard786/posebridge/internal/utils"
)

// ChannelLabel names the data channel carrying pose messages.
const ChannelLabel = "pose"

var (
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrConnectionFailed = errors.New("peer connection failed")
)

// NewPeerConnection builds a peer connection with the configured STUN and
// TURN servers, forcing relay when asked or when the network looks like it
// needs it.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

// peer is one negotiated link to a remote identity. It implements link.Conn.
type peer struct {
	remote    string
	initiator bool
	pc        *pion.PeerConnection
	sink      link.Sink
	signal    func(*signaling.SignalPayload) error
	leave     func()

	mu         sync.Mutex
	dc         *pion.DataChannel
	pending    []pion.ICECandidateInit
	haveRemote bool
	done       bool
	terminal   sync.Once
}

func newPeer(pc *pion.PeerConnection, remote string, initiator bool, sink link.Sink,
	signal func(*signaling.SignalPayload) error, leave func()) *peer {
	p := &peer{
		remote:    remote,
		initiator: initiator,
		pc:        pc,
		sink:      sink,
		signal:    signal,
		leave:     leave,
	}
	p.setupHandlers()
	return p
}

func (p *peer) setupHandlers() {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		if err := p.signal(&signaling.SignalPayload{ICECandidate: raw}); err != nil {
			log.Debug().Str("module", "webrtc").Str("peer", p.remote).Err(err).Msg("trickle candidate")
		}
	})

	p.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		log.Debug().Str("module", "webrtc").Str("peer", p.remote).Str("state", state.String()).Msg("peer connection state")
		switch state {
		case pion.PeerConnectionStateFailed:
			p.fail(ErrConnectionFailed)
		case pion.PeerConnectionStateClosed:
			p.closed()
		}
	})

	if !p.initiator {
		p.pc.OnDataChannel(func(dc *pion.DataChannel) {
			if dc.Label() != ChannelLabel {
				log.Warn().Str("module", "webrtc").Str("peer", p.remote).Str("label", dc.Label()).Msg("ignoring unexpected data channel")
				return
			}
			p.attach(dc)
		})
	}
}

func (p *peer) createDataChannel() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	p.attach(dc)
	return nil
}

func (p *peer) attach(dc *pion.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		if p.isDone() {
			return
		}
		p.sink.Opened()
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		if p.isDone() {
			return
		}
		p.sink.Message(msg.Data, msg.IsString)
	})
	dc.OnClose(p.closed)
	dc.OnError(func(err error) {
		p.fail(err)
	})
}

// offer starts negotiation from the dialing side.
func (p *peer) offer() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	desc := p.pc.LocalDescription()
	return p.signal(&signaling.SignalPayload{Type: desc.Type.String(), SDP: desc.SDP})
}

// handleSignal applies an SDP or trickled candidate from the remote side.
func (p *peer) handleSignal(payload *signaling.SignalPayload) error {
	if payload.SDP != "" {
		if err := p.handleSDP(payload); err != nil {
			return err
		}
	}
	if len(payload.ICECandidate) > 0 {
		var ice pion.ICECandidateInit
		if err := json.Unmarshal(payload.ICECandidate, &ice); err != nil {
			return fmt.Errorf("parse ICE candidate: %w", err)
		}
		p.mu.Lock()
		if !p.haveRemote {
			p.pending = append(p.pending, ice)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		if err := p.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

func (p *peer) handleSDP(payload *signaling.SignalPayload) error {
	switch payload.Type {
	case "offer":
		if p.initiator {
			return fmt.Errorf("%w: offer to dialing side", ErrUnexpectedSignal)
		}
		if err := p.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: payload.SDP}); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		if err := p.flushCandidates(); err != nil {
			return err
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		desc := p.pc.LocalDescription()
		return p.signal(&signaling.SignalPayload{Type: desc.Type.String(), SDP: desc.SDP})

	case "answer":
		if !p.initiator {
			return fmt.Errorf("%w: answer to answering side", ErrUnexpectedSignal)
		}
		if err := p.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: payload.SDP}); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		return p.flushCandidates()

	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedSignal, payload.Type)
	}
}

func (p *peer) flushCandidates() error {
	p.mu.Lock()
	p.haveRemote = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ice := range pending {
		if err := p.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

// Send implements link.Conn.
func (p *peer) Send(data []byte) error {
	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()
	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return link.ErrNotOpen
	}
	return dc.Send(data)
}

// Close implements link.Conn. Nothing is reported to the sink afterwards.
func (p *peer) Close() error {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return nil
	}
	p.done = true
	p.mu.Unlock()

	p.leave()
	return p.pc.Close()
}

// release drops the peer without telling the broker, for a remote that has
// already left or been superseded by a newer peer under the same identity.
func (p *peer) release() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.mu.Unlock()

	_ = p.pc.Close()
}

func (p *peer) isDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *peer) fail(err error) {
	if p.isDone() {
		return
	}
	p.terminal.Do(func() { p.sink.Failed(err) })
}

func (p *peer) closed() {
	if p.isDone() {
		return
	}
	p.terminal.Do(p.sink.Closed)
}
