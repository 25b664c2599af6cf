package app

import (
	"github.com/BioHazard786/posebridge/internal/pose"
	"github.com/BioHazard786/posebridge/internal/xr"
)

// QuitEvent stops the loop.
type QuitEvent struct{}

// Tracker input.
type (
	// PoseInput sets the named axes.
	PoseInput struct{ Values map[pose.Axis]float64 }
	// PoseNudge moves one axis by Delta.
	PoseNudge struct {
		Axis  pose.Axis
		Delta float64
	}
	// PoseReset zeroes all axes.
	PoseReset struct{}
)

// Viewer input.
type (
	ConnectRequest    struct{ Room string }
	DisconnectRequest struct{}
	EnterARRequest    struct{}
	ExitARRequest     struct{}
	// SelectRequest is the user tapping to place the object.
	SelectRequest struct{}
	// AimInput turns the simulated camera.
	AimInput struct{ Yaw, Pitch float64 }
	// SurfaceToggle hides or shows the simulated floor.
	SurfaceToggle struct{}
	DebugToggle   struct{}
)

// XR platform events.
type (
	ProbeResult struct {
		Support xr.Support
		Err     error
	}
	SessionResult struct {
		Session xr.Session
		Err     error
	}
	FrameEvent        struct{ Frame xr.Frame }
	SelectEvent       struct{}
	SessionEndedEvent struct{}
)

// platformSink posts session events into the loop.
type platformSink struct {
	post func(any) bool
}

func (s platformSink) Frame(f xr.Frame) { s.post(FrameEvent{Frame: f}) }
func (s platformSink) Select()          { s.post(SelectEvent{}) }
func (s platformSink) Ended()           { s.post(SessionEndedEvent{}) }
