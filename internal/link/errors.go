package link

import (
	"errors"
	"fmt"
)

var (
	ErrNotOpen     = errors.New("connection not open")
	ErrEmptyTarget = errors.New("target identity is empty")
	ErrEmptyRoom   = errors.New("room id is empty")
	ErrNoBroker    = errors.New("broker not connected")
	ErrPeerLeft    = errors.New("peer left")
)

// Reason classifies why a connect attempt failed.
type Reason string

const (
	ReasonUnreachable Reason = "unreachable"
	ReasonBrokerError Reason = "broker_error"
	ReasonTimeout     Reason = "timeout"
)

// ConnectError is returned (or reported through the state stream) when the
// broker cannot establish a link to Target.
type ConnectError struct {
	Target string
	Reason Reason
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect %s: %s: %v", e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("connect %s: %s", e.Target, e.Reason)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NewConnectError builds a ConnectError.
func NewConnectError(target string, reason Reason, err error) *ConnectError {
	return &ConnectError{Target: target, Reason: reason, Err: err}
}

// ReasonOf extracts the connect failure reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}
