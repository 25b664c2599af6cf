package xr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Platform failures that map to distinct session error kinds. Platforms wrap
// these so Acquire can classify them.
var (
	ErrNotSupported     = errors.New("not supported")
	ErrPermissionDenied = errors.New("permission denied")
)

var (
	ErrSessionActive = errors.New("AR session already active")
	ErrNotRequesting = errors.New("no AR session request pending")
	ErrNotRunning    = errors.New("AR session not running")
)

// Session request parameters.
const (
	ModeImmersiveAR          = "immersive-ar"
	FeatureHitTest           = "hit-test"
	FeatureLocalFloor        = "local-floor"
	ReferenceSpaceLocalFloor = "local-floor"
)

// SessionRequest is what the controller asks the platform for.
type SessionRequest struct {
	Mode             string
	RequiredFeatures []string
	ReferenceSpace   string
}

// DefaultRequest asks for an AR session with floor-anchored hit testing.
func DefaultRequest() SessionRequest {
	return SessionRequest{
		Mode:             ModeImmersiveAR,
		RequiredFeatures: []string{FeatureHitTest, FeatureLocalFloor},
		ReferenceSpace:   ReferenceSpaceLocalFloor,
	}
}

// Support is the result of probing the platform.
type Support struct {
	XR          bool
	ImmersiveAR bool
}

// Frame is one display refresh.
type Frame struct {
	Seq  uint64
	Time time.Time
}

// SessionSink receives platform events. Implementations post them to the
// dispatch loop.
type SessionSink interface {
	Frame(f Frame)
	Select()
	Ended()
}

// Platform is the XR runtime collaborator.
type Platform interface {
	Probe(ctx context.Context) (Support, error)
	RequestSession(ctx context.Context, req SessionRequest) (Session, error)
}

// Session is a live platform session. HitTest is the surface tracker: it is
// only valid after RequestHitTestSource succeeds.
type Session interface {
	RequestHitTestSource(ctx context.Context) error
	HitTest(f Frame) (Transform, bool)
	// Start begins delivering frames, selects and the end event to sink.
	Start(sink SessionSink)
	// StopFrames releases the frame source; no Frame calls follow it.
	StopFrames()
	// End asks the platform to end the session; Ended is delivered after.
	End()
}

// ErrorKind classifies session request failures.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotSupported
	KindPermissionDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotSupported:
		return "not_supported"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "other"
	}
}

// SessionError is returned when an AR session could not be started.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return "start AR session: " + e.Kind.String()
	}
	return fmt.Sprintf("start AR session: %s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// UserMessage is the short text shown to the user for this failure.
func (e *SessionError) UserMessage() string {
	switch e.Kind {
	case KindNotSupported:
		return "immersive-ar not supported"
	case KindPermissionDenied:
		return "camera permission denied"
	default:
		return "failed to start AR (see log)"
	}
}

// StatusLabel is the session pill text for this failure.
func (e *SessionError) StatusLabel() string {
	switch e.Kind {
	case KindNotSupported:
		return "unsupported"
	case KindPermissionDenied:
		return "blocked"
	default:
		return "error"
	}
}

func classify(err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrNotSupported):
		return &SessionError{Kind: KindNotSupported, Err: err}
	case errors.Is(err, ErrPermissionDenied):
		return &SessionError{Kind: KindPermissionDenied, Err: err}
	default:
		return &SessionError{Kind: KindOther, Err: err}
	}
}

// Acquire performs the blocking part of starting a session: support check,
// session request and hit-test source setup. It touches no controller state,
// so it runs off the dispatch loop and the result goes to Complete.
func Acquire(ctx context.Context, p Platform) (Session, error) {
	support, err := p.Probe(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if !support.XR || !support.ImmersiveAR {
		return nil, &SessionError{Kind: KindNotSupported, Err: ErrNotSupported}
	}

	session, err := p.RequestSession(ctx, DefaultRequest())
	if err != nil {
		return nil, classify(err)
	}

	if err := session.RequestHitTestSource(ctx); err != nil {
		session.End()
		return nil, classify(fmt.Errorf("hit-test source: %w", err))
	}
	return session, nil
}
