package link

import "context"

// Conn is the transport's handle on one peer link.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Sink receives transport events for one connection. Implementations are
// safe to call from any goroutine.
type Sink interface {
	Opened()
	Message(data []byte, isString bool)
	Closed()
	Failed(err error)
}

// AcceptFunc is called by the transport when a remote peer connects to our
// identity. The returned Sink receives that connection's events.
type AcceptFunc func(remote string, conn Conn) Sink

// Transport is the peer-to-peer collaborator behind the Manager: connection
// brokering, NAT traversal and wire framing live there.
type Transport interface {
	// Dial starts a link to target. A returned error means the attempt
	// failed outright; later failures arrive through sink.Failed.
	Dial(ctx context.Context, target string, sink Sink) (Conn, error)

	// Listen registers the inbound accept hook.
	Listen(accept AcceptFunc)
}

// EventKind discriminates Event.
type EventKind int

const (
	EventInbound EventKind = iota
	EventOpened
	EventMessage
	EventClosed
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventInbound:
		return "inbound"
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a transport occurrence queued for the dispatch loop.
type Event struct {
	ConnID   uint64
	Kind     EventKind
	Remote   string
	Conn     Conn
	Data     []byte
	IsString bool
	Err      error
}

// connSink turns transport callbacks into Events tagged with a connection id.
type connSink struct {
	id   uint64
	post func(Event)
}

func (s connSink) Opened() {
	s.post(Event{ConnID: s.id, Kind: EventOpened})
}

func (s connSink) Message(data []byte, isString bool) {
	s.post(Event{ConnID: s.id, Kind: EventMessage, Data: data, IsString: isString})
}

func (s connSink) Closed() {
	s.post(Event{ConnID: s.id, Kind: EventClosed})
}

func (s connSink) Failed(err error) {
	s.post(Event{ConnID: s.id, Kind: EventFailed, Err: err})
}
