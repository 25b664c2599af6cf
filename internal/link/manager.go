// Package link supervises the single peer-to-peer connection between a
// tracker and a viewer.
//
// The Manager is not safe for concurrent use. Transport callbacks are turned
// into Events and handed to the post function; the owner feeds them back
// through Dispatch from the same goroutine that calls Connect, Send and Tick.
package link

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/timeutil"
)

// Connection is one link lifetime. Only the Manager mutates it.
type Connection struct {
	ID      uint64
	Remote  string
	Inbound bool

	state     State
	conn      Conn
	err       error
	startedAt time.Time
}

// State returns the connection's lifecycle state.
func (c *Connection) State() State { return c.state }

// Err is the failure that ended the connection, if any.
func (c *Connection) Err() error { return c.err }

// Options tune a Manager.
type Options struct {
	// ConnectTimeout bounds the connecting state; zero disables it.
	ConnectTimeout time.Duration
	Clock          timeutil.Clock
}

// Manager owns at most one Connection at a time.
type Manager struct {
	transport Transport
	post      func(Event)
	clock     timeutil.Clock
	timeout   time.Duration

	nextID  atomic.Uint64
	current *Connection
	state   State

	stateHandlers   []func(StateChange)
	inboundHandlers []func(*Connection)
	messageHandlers []func(Message)
}

// NewManager wires a Manager to transport. post must queue the Event for a
// later Dispatch call; it is called from transport goroutines.
func NewManager(transport Transport, post func(Event), opts Options) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	m := &Manager{
		transport: transport,
		post:      post,
		clock:     clock,
		timeout:   opts.ConnectTimeout,
		state:     Idle,
	}
	transport.Listen(m.accept)
	return m
}

// OnState registers a state stream handler.
func (m *Manager) OnState(fn func(StateChange)) {
	m.stateHandlers = append(m.stateHandlers, fn)
}

// OnInbound registers a handler for remote peers connecting to us.
func (m *Manager) OnInbound(fn func(*Connection)) {
	m.inboundHandlers = append(m.inboundHandlers, fn)
}

// OnMessage registers a handler for inbound payloads on the open connection.
func (m *Manager) OnMessage(fn func(Message)) {
	m.messageHandlers = append(m.messageHandlers, fn)
}

// State is the state of the current connection, or the terminal state of
// the last one.
func (m *Manager) State() State {
	return m.state
}

// Current returns the live connection, or nil.
func (m *Manager) Current() *Connection {
	return m.current
}

// Connect replaces any pending or open connection with a new one to target.
// The old connection is closed first and reports its terminal event before
// the new one reports anything.
func (m *Manager) Connect(ctx context.Context, target string) (*Connection, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrEmptyTarget
	}

	if m.current != nil {
		log.Info().Str("module", "link").Uint64("conn", m.current.ID).Str("peer", m.current.Remote).Msg("replacing connection")
		m.terminate(m.current, Closed, nil)
	}

	c := &Connection{
		ID:        m.nextID.Add(1),
		Remote:    target,
		state:     Idle,
		startedAt: m.clock.Now(),
	}
	m.current = c

	conn, err := m.transport.Dial(ctx, target, connSink{id: c.ID, post: m.post})
	if err != nil {
		cerr := classifyDialError(target, err)
		log.Error().Str("module", "link").Str("peer", target).Err(cerr).Msg("connect failed")
		m.terminate(c, Errored, cerr)
		return nil, cerr
	}

	c.conn = conn
	m.setState(c, Connecting, nil)
	log.Info().Str("module", "link").Uint64("conn", c.ID).Str("peer", target).Msg("connecting")
	return c, nil
}

// Send writes data on the open connection.
func (m *Manager) Send(data []byte) error {
	c := m.current
	if c == nil || c.state != Open {
		return ErrNotOpen
	}
	return c.conn.Send(data)
}

// Close closes the current connection, if any.
func (m *Manager) Close() {
	if m.current != nil {
		m.terminate(m.current, Closed, nil)
	}
}

// Tick expires a connection stuck in connecting past the connect timeout.
func (m *Manager) Tick(now time.Time) {
	c := m.current
	if c == nil || c.state != Connecting || m.timeout <= 0 {
		return
	}
	if now.Sub(c.startedAt) > m.timeout {
		err := NewConnectError(c.Remote, ReasonTimeout, nil)
		log.Warn().Str("module", "link").Uint64("conn", c.ID).Str("peer", c.Remote).Msg("connect timed out")
		m.terminate(c, Errored, err)
	}
}

// Dispatch applies one transport event. Events for connections that are no
// longer current are dropped, so nothing follows a terminal event.
func (m *Manager) Dispatch(ev Event) {
	if ev.Kind == EventInbound {
		m.handleInbound(ev)
		return
	}

	c := m.current
	if c == nil || c.ID != ev.ConnID {
		log.Debug().Str("module", "link").Uint64("conn", ev.ConnID).Stringer("event", ev.Kind).Msg("dropping event for stale connection")
		return
	}

	switch ev.Kind {
	case EventOpened:
		if c.state == Connecting {
			m.setState(c, Open, nil)
			log.Info().Str("module", "link").Uint64("conn", c.ID).Str("peer", c.Remote).Msg("open")
		}

	case EventMessage:
		if c.state != Open {
			return
		}
		msg := Message{ConnID: c.ID, Remote: c.Remote, Data: ev.Data, IsString: ev.IsString}
		for _, fn := range m.messageHandlers {
			fn(msg)
		}

	case EventClosed:
		log.Info().Str("module", "link").Uint64("conn", c.ID).Str("peer", c.Remote).Msg("closed by remote")
		m.terminate(c, Closed, nil)

	case EventFailed:
		log.Error().Str("module", "link").Uint64("conn", c.ID).Str("peer", c.Remote).Err(ev.Err).Msg("link error")
		m.terminate(c, Errored, ev.Err)
	}
}

// accept runs on a transport goroutine. It only reserves an id and queues
// the inbound event; the state change happens in Dispatch.
func (m *Manager) accept(remote string, conn Conn) Sink {
	id := m.nextID.Add(1)
	m.post(Event{ConnID: id, Kind: EventInbound, Remote: remote, Conn: conn})
	return connSink{id: id, post: m.post}
}

func (m *Manager) handleInbound(ev Event) {
	if m.current != nil {
		log.Info().Str("module", "link").Uint64("conn", m.current.ID).Str("peer", ev.Remote).Msg("inbound peer replaces connection")
		m.terminate(m.current, Closed, nil)
	}

	c := &Connection{
		ID:        ev.ConnID,
		Remote:    ev.Remote,
		Inbound:   true,
		state:     Idle,
		conn:      ev.Conn,
		startedAt: m.clock.Now(),
	}
	m.current = c
	m.setState(c, Connecting, nil)

	for _, fn := range m.inboundHandlers {
		fn(c)
	}
}

func (m *Manager) terminate(c *Connection, to State, err error) {
	if c.state.Terminal() {
		return
	}
	if m.current == c {
		m.current = nil
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil {
			log.Debug().Str("module", "link").Uint64("conn", c.ID).Err(cerr).Msg("close")
		}
	}
	m.setState(c, to, err)
}

func (m *Manager) setState(c *Connection, to State, err error) {
	from := c.state
	c.state = to
	if err != nil {
		c.err = err
	}
	m.state = to

	change := StateChange{
		ConnID:  c.ID,
		Remote:  c.Remote,
		Inbound: c.Inbound,
		From:    from,
		To:      to,
		Err:     err,
	}
	for _, fn := range m.stateHandlers {
		fn(change)
	}
}

func classifyDialError(target string, err error) *ConnectError {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewConnectError(target, ReasonTimeout, err)
	}
	return NewConnectError(target, ReasonBrokerError, err)
}
