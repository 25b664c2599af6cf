// Package xr drives the viewer's AR session: hit-test reticle, placement of
// the virtual object, and applying received poses to it.
package xr

import (
	"github.com/rs/zerolog/log"
)

// State is the AR session lifecycle.
type State int

const (
	NotStarted State = iota
	Requesting
	Running
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Requesting:
		return "starting"
	case Running:
		return "running"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// HitState summarises the surface tracker for display.
type HitState int

const (
	HitNone HitState = iota
	HitSourceReady
	HitTracking
	HitNoSurface
)

func (h HitState) String() string {
	switch h {
	case HitSourceReady:
		return "source ok"
	case HitTracking:
		return "tracking"
	case HitNoSurface:
		return "no surface"
	default:
		return "none"
	}
}

// Scene is what gets rendered each frame.
type Scene struct {
	Frame   Frame
	Reticle ReticlePose
	Object  PlacedObject
}

// Renderer draws a frame. It must not block.
type Renderer interface {
	Render(s Scene)
}

// Snapshot is a read-only view of the controller for status displays.
type Snapshot struct {
	State      State
	Hit        HitState
	Reticle    ReticlePose
	Object     PlacedObject
	Frames     int
	Placements int
	LastError  *SessionError
}

// Controller is the AR session state machine. It is driven entirely from
// the dispatch goroutine.
type Controller struct {
	state    State
	session  Session
	sink     SessionSink
	renderer Renderer
	updater  *Updater

	reticle Reticle
	object  PlacedObject
	hit     HitState

	frames     int
	placements int
	lastErr    *SessionError
}

// NewController creates a controller. sink receives the platform's events
// once a session runs; renderer may be nil.
func NewController(sink SessionSink, renderer Renderer, updater *Updater) *Controller {
	if updater == nil {
		updater = &Updater{}
	}
	return &Controller{
		sink:     sink,
		renderer: renderer,
		updater:  updater,
		object:   newPlacedObject(),
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Updater returns the orientation updater fed by the pose channel.
func (c *Controller) Updater() *Updater {
	return c.updater
}

// Begin marks a session request as in flight. The caller then runs Acquire
// off the loop and hands the result to Complete.
func (c *Controller) Begin() error {
	switch c.state {
	case Requesting, Running:
		return ErrSessionActive
	}
	c.state = Requesting
	c.lastErr = nil
	log.Info().Str("module", "xr").Msg("requesting AR session")
	return nil
}

// Complete finishes a request started with Begin.
func (c *Controller) Complete(session Session, err error) error {
	if c.state != Requesting {
		if session != nil {
			session.End()
		}
		return ErrNotRequesting
	}

	if err != nil {
		se := classify(err)
		c.state = NotStarted
		c.lastErr = se
		log.Error().Str("module", "xr").Stringer("kind", se.Kind).Err(se.Err).Msg("AR session request failed")
		return se
	}

	c.session = session
	c.state = Running
	c.hit = HitSourceReady
	c.reticle = Reticle{}
	session.Start(c.sink)
	log.Info().Str("module", "xr").Msg("AR session started")
	return nil
}

// Frame runs the per-frame procedure. Frames outside Running are ignored.
func (c *Controller) Frame(f Frame) {
	if c.state != Running {
		return
	}
	c.frames++

	if t, ok := c.session.HitTest(f); ok {
		c.reticle.Visible = true
		c.reticle.Transform = t
		c.hit = HitTracking
	} else {
		c.reticle.Visible = false
		c.hit = HitNoSurface
	}

	c.updater.Apply(&c.object)

	if c.renderer != nil {
		c.renderer.Render(Scene{Frame: f, Reticle: c.reticle.Pose(), Object: c.object})
	}
}

// Select commits the reticle as the object's placement. It reports whether
// the object was placed; with no valid reticle it does nothing. Selecting
// again moves the object.
func (c *Controller) Select() bool {
	if c.state != Running || !c.reticle.Visible {
		return false
	}
	c.object.place(c.reticle.Transform)
	// a received pose owns rotation even between frames
	c.updater.Apply(&c.object)
	c.placements++
	p := c.object.Position
	log.Info().Str("module", "xr").Float64("x", p.X).Float64("y", p.Y).Float64("z", p.Z).Msg("object placed")
	return true
}

// Exit asks the platform to end the running session.
func (c *Controller) Exit() error {
	if c.state != Running {
		return ErrNotRunning
	}
	c.session.End()
	return nil
}

// Ended handles the platform's end event: the frame source is released and
// the placed object is reset.
func (c *Controller) Ended() {
	if c.state != Running {
		return
	}
	c.session.StopFrames()
	c.session = nil
	c.state = Ended
	c.hit = HitNone
	c.reticle.Visible = false
	c.object = newPlacedObject()
	log.Info().Str("module", "xr").Int("frames", c.frames).Msg("AR session ended")
}

// Snapshot returns the current status.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:      c.state,
		Hit:        c.hit,
		Reticle:    c.reticle.Pose(),
		Object:     c.object,
		Frames:     c.frames,
		Placements: c.placements,
		LastError:  c.lastErr,
	}
}
