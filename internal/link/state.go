package link

import "fmt"

// State is the lifecycle state of the link.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Errored:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further events follow this state.
func (s State) Terminal() bool {
	return s == Closed || s == Errored
}

// Active reports whether the state holds a live or pending connection.
func (s State) Active() bool {
	return s == Connecting || s == Open
}

// StateChange is one entry of the state stream.
type StateChange struct {
	ConnID  uint64
	Remote  string
	Inbound bool
	From    State
	To      State
	Err     error
}

// Message is one inbound data channel payload.
type Message struct {
	ConnID   uint64
	Remote   string
	Data     []byte
	IsString bool
}
