package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/pose"
	"github.com/BioHazard786/posebridge/internal/posechan"
	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/BioHazard786/posebridge/internal/xr"
)

// Status pill labels, in display order.
const (
	PillXR          = "xr"
	PillImmersiveAR = "immersive-ar"
	PillSession     = "session"
	PillHitTest     = "hit-test"
	PillPeer        = "peer"
	PillPlaced      = "placed"
	PillData        = "data"
	PillFPS         = "fps"
)

// Aimer is implemented by sessions whose camera can be steered from input.
type Aimer interface {
	Aim(dYaw, dPitch float64)
}

// SurfaceSwitch is implemented by sessions whose floor can be hidden.
type SurfaceSwitch interface {
	SetSurface(ok bool)
	Surface() bool
}

// ViewerOptions configures the viewer role.
type ViewerOptions struct {
	Context        context.Context
	LocalID        string
	Transport      link.Transport
	Platform       xr.Platform
	Clock          timeutil.Clock
	ConnectTimeout time.Duration
	StaleAfter     time.Duration
	Renderer       xr.Renderer
	Post           func(any) bool
	Publish        func(ViewerView)
}

// ViewerView is what the viewer screen shows.
type ViewerView struct {
	LocalID string
	Room    string
	Pills   []Pill
	Toast   string
	Log     []LogEntry
	// LogTotal counts all entries ever logged, for printers that follow
	// the log incrementally.
	LogTotal int
	ShowLog  bool
	XR       xr.Snapshot
	Pose     pose.Pose
	HasPose  bool
	Aim      [2]float64
	Surface  bool
}

// Viewer joins a room, runs the AR session and applies received poses to
// the placed object.
type Viewer struct {
	opts  ViewerOptions
	ctx   context.Context
	clock timeutil.Clock

	links   *link.Manager
	channel *posechan.Channel
	ctrl    *xr.Controller
	session xr.Session

	room  string
	pills *Pills
	log   EventLog
	toast Toast
	// shownToast is the toast text last published.
	shownToast string
	fps        xr.FPSMeter
	showLog    bool
	started    time.Time
	now        time.Time
	dirty      bool
}

// NewViewer wires the viewer role.
func NewViewer(opts ViewerOptions) *Viewer {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	v := &Viewer{
		opts:    opts,
		ctx:     ctx,
		clock:   clock,
		pills:   NewPills(PillXR, PillImmersiveAR, PillSession, PillHitTest, PillPeer, PillPlaced, PillData, PillFPS),
		started: clock.Now(),
		now:     clock.Now(),
		dirty:   true,
	}
	v.links = link.NewManager(opts.Transport, func(ev link.Event) { opts.Post(ev) }, link.Options{
		ConnectTimeout: opts.ConnectTimeout,
		Clock:          clock,
	})
	v.channel = posechan.New(v.links, clock, opts.StaleAfter)
	v.ctrl = xr.NewController(platformSink{post: opts.Post}, opts.Renderer, nil)

	v.links.OnState(v.onLinkState)
	v.links.OnInbound(func(c *link.Connection) {
		v.addLog("inbound peer: " + c.Remote)
	})
	v.channel.OnReceive(v.ctrl.Updater().Observe)
	v.channel.OnLiveness(v.onLiveness)

	v.pills.Set(PillSession, xr.NotStarted.String(), PillPlain)
	v.pills.Set(PillHitTest, xr.HitNone.String(), PillPlain)
	v.pills.Set(PillPeer, link.Idle.String(), PillPlain)
	v.pills.Set(PillPlaced, "no", PillPlain)
	v.pills.Set(PillData, pose.Stale.String(), PillWarn)

	if opts.LocalID != "" {
		v.addLog("peer ready: " + opts.LocalID)
	}
	return v
}

// Start probes the platform off the loop.
func (v *Viewer) Start() {
	v.pills.Set(PillXR, "checking", PillWarn)
	go func() {
		support, err := v.opts.Platform.Probe(v.ctx)
		v.opts.Post(ProbeResult{Support: support, Err: err})
	}()
}

// Handle implements Handler.
func (v *Viewer) Handle(ev any) bool {
	v.now = v.clock.Now()

	switch e := ev.(type) {
	case QuitEvent:
		if v.ctrl.State() == xr.Running {
			v.session.StopFrames()
		}
		v.links.Close()
		return true

	case link.Event:
		v.links.Dispatch(e)

	case ProbeResult:
		v.onProbe(e)

	case ConnectRequest:
		v.connect(e.Room)

	case DisconnectRequest:
		v.links.Close()

	case EnterARRequest:
		v.enterAR()

	case SessionResult:
		v.onSessionResult(e)

	case ExitARRequest:
		if err := v.ctrl.Exit(); err != nil {
			v.notify("no AR session running")
		}

	case FrameEvent:
		v.onFrame(e.Frame)

	case SelectRequest, SelectEvent:
		if v.ctrl.Select() {
			v.pills.Set(PillPlaced, "yes", PillOK)
			v.notify("object placed")
		}

	case SessionEndedEvent:
		v.onSessionEnded()

	case AimInput:
		if a, ok := v.session.(Aimer); ok {
			a.Aim(e.Yaw, e.Pitch)
		}

	case SurfaceToggle:
		if s, ok := v.session.(SurfaceSwitch); ok {
			s.SetSurface(!s.Surface())
			if s.Surface() {
				v.addLog("surface visible")
			} else {
				v.addLog("surface hidden")
			}
		}

	case DebugToggle:
		v.showLog = !v.showLog

	default:
		log.Debug().Str("module", "app").Type("event", ev).Msg("viewer ignoring event")
		return false
	}

	v.dirty = true
	v.publish()
	return false
}

// Tick implements Handler. It runs once per display refresh.
func (v *Viewer) Tick(now time.Time) {
	v.now = now
	v.links.Tick(now)
	v.channel.Tick(now)
	v.fps.Tick(now)

	mode := PillPlain
	if _, ok := v.fps.FPS(); ok {
		mode = PillOK
	}
	if v.pills.Set(PillFPS, fpsValue(&v.fps), mode) {
		v.dirty = true
	}
	if toast := v.toast.Text(now); toast != v.shownToast {
		v.shownToast = toast
		v.dirty = true
	}
	v.publish()
}

func fpsValue(m *xr.FPSMeter) string {
	if n, ok := m.FPS(); ok {
		return fmt.Sprint(n)
	}
	return "--"
}

func (v *Viewer) connect(room string) {
	target, err := link.TrackerIdentity(room)
	if err != nil {
		v.notify("enter a room id")
		return
	}
	v.room, _ = link.NormalizeRoom(room)
	v.addLog(fmt.Sprintf("connecting to %s", target))

	if _, err := v.links.Connect(v.ctx, target); err != nil {
		reason, _ := link.ReasonOf(err)
		v.addLog(fmt.Sprintf("connect failed (%s)", reason))
	}
}

func (v *Viewer) onLinkState(c link.StateChange) {
	switch c.To {
	case link.Connecting:
		v.pills.Set(PillPeer, "connecting", PillWarn)
	case link.Open:
		v.pills.Set(PillPeer, "connected", PillOK)
		v.notify("peer connected")
		v.addLog("data channel open: " + c.Remote)
	case link.Closed:
		v.pills.Set(PillPeer, "closed", PillWarn)
		v.addLog("connection closed: " + c.Remote)
	case link.Errored:
		v.pills.Set(PillPeer, "error", PillErr)
		v.addLog(fmt.Sprintf("conn error: %v", c.Err))
		if reason, ok := link.ReasonOf(c.Err); ok && reason == link.ReasonUnreachable {
			v.notify("no tracker in that room")
		} else {
			v.notify("peer error (see log)")
		}
	}
	v.dirty = true
}

func (v *Viewer) onLiveness(l pose.Liveness) {
	mode := PillWarn
	if l == pose.Live {
		mode = PillOK
	}
	v.pills.Set(PillData, l.String(), mode)
	v.dirty = true
}

func (v *Viewer) onProbe(r ProbeResult) {
	if r.Err != nil {
		v.pills.Set(PillXR, "error", PillErr)
		v.pills.Set(PillImmersiveAR, "error", PillErr)
		v.addLog(fmt.Sprintf("XR probe failed: %v", r.Err))
		return
	}
	if !r.Support.XR {
		v.pills.Set(PillXR, "no", PillErr)
		v.pills.Set(PillImmersiveAR, "no", PillErr)
		v.addLog("XR not available")
		return
	}
	v.pills.Set(PillXR, "yes", PillOK)
	if r.Support.ImmersiveAR {
		v.pills.Set(PillImmersiveAR, "yes", PillOK)
	} else {
		v.pills.Set(PillImmersiveAR, "no", PillErr)
	}
	v.addLog(fmt.Sprintf("immersive-ar supported: %t", r.Support.ImmersiveAR))
}

func (v *Viewer) enterAR() {
	if err := v.ctrl.Begin(); err != nil {
		v.notify("AR session already active")
		return
	}
	v.pills.Set(PillSession, xr.Requesting.String(), PillWarn)
	go func() {
		s, err := xr.Acquire(v.ctx, v.opts.Platform)
		v.opts.Post(SessionResult{Session: s, Err: err})
	}()
}

func (v *Viewer) onSessionResult(r SessionResult) {
	err := v.ctrl.Complete(r.Session, r.Err)
	var se *xr.SessionError
	switch {
	case errors.As(err, &se):
		v.pills.Set(PillSession, se.StatusLabel(), PillErr)
		v.notify(se.UserMessage())
		v.addLog(fmt.Sprintf("requestSession error: %v", se))
		return
	case err != nil:
		log.Warn().Str("module", "app").Err(err).Msg("stale session result")
		return
	}

	v.session = r.Session
	v.pills.Set(PillSession, xr.Running.String(), PillOK)
	v.pills.Set(PillHitTest, xr.HitSourceReady.String(), PillOK)
	v.notify("move phone to find a surface")
	v.addLog("AR session started")
}

func (v *Viewer) onFrame(f xr.Frame) {
	v.ctrl.Frame(f)
	hit := v.ctrl.Snapshot().Hit
	mode := PillOK
	if hit == xr.HitNoSurface {
		mode = PillWarn
	}
	v.pills.Set(PillHitTest, hit.String(), mode)
}

func (v *Viewer) onSessionEnded() {
	if v.ctrl.State() != xr.Running {
		return
	}
	v.ctrl.Ended()
	v.session = nil
	v.pills.Set(PillSession, xr.Ended.String(), PillWarn)
	v.pills.Set(PillHitTest, xr.HitNone.String(), PillPlain)
	v.pills.Set(PillPlaced, "no", PillPlain)
	v.addLog("AR session ended")
}

// View returns the current screen state.
func (v *Viewer) View() ViewerView {
	view := ViewerView{
		LocalID:  v.opts.LocalID,
		Room:     v.room,
		Pills:    v.pills.List(),
		Toast:    v.toast.Text(v.now),
		Log:      v.log.Entries(),
		LogTotal: v.log.Total(),
		ShowLog:  v.showLog,
		XR:       v.ctrl.Snapshot(),
	}
	view.Pose, view.HasPose = v.channel.Last()
	if a, ok := v.session.(interface{ AimAngles() (float64, float64) }); ok {
		view.Aim[0], view.Aim[1] = a.AimAngles()
	}
	if s, ok := v.session.(SurfaceSwitch); ok {
		view.Surface = s.Surface()
	}
	return view
}

// Pill returns one status pill.
func (v *Viewer) Pill(label string) Pill {
	return v.pills.Get(label)
}

// Summary reports the session totals.
func (v *Viewer) Summary() Summary {
	s := v.channel.Stats()
	snap := v.ctrl.Snapshot()
	remote := ""
	if v.room != "" {
		remote, _ = link.TrackerIdentity(v.room)
	}
	return Summary{
		Role:       "viewer",
		Remote:     remote,
		Received:   s.Received,
		Rejected:   s.Rejected,
		Placements: snap.Placements,
		Frames:     snap.Frames,
		Duration:   v.clock.Since(v.started),
	}
}

func (v *Viewer) notify(msg string) {
	v.toast.Show(v.now, msg, DefaultToastDuration)
	v.shownToast = msg
	v.dirty = true
}

func (v *Viewer) addLog(msg string) {
	v.log.Add(v.clock.Now(), msg)
	log.Info().Str("module", "app").Str("role", "viewer").Msg(msg)
	v.dirty = true
}

func (v *Viewer) publish() {
	if v.opts.Publish == nil {
		return
	}
	if !v.dirty {
		return
	}
	v.dirty = false
	v.opts.Publish(v.View())
}
