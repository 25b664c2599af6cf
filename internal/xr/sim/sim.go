// Package sim is a software XR platform for terminals and tests: a clock
// driven frame source and a synthetic floor for hit testing.
package sim

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/BioHazard786/posebridge/internal/xr"
)

const (
	// EyeHeight is the simulated camera height above the floor, in metres.
	EyeHeight = 1.6
	// MaxRange is the furthest floor point the hit test reports.
	MaxRange = 6.0
)

// Platform simulates an AR capable device.
type Platform struct {
	Clock         timeutil.Clock
	FrameInterval time.Duration
	Support       xr.Support
	// DenyPermission makes session requests fail as a refused camera.
	DenyPermission bool
}

// New returns a platform that supports AR and ticks at interval.
func New(clock timeutil.Clock, interval time.Duration) *Platform {
	return &Platform{
		Clock:         clock,
		FrameInterval: interval,
		Support:       xr.Support{XR: true, ImmersiveAR: true},
	}
}

// Probe implements xr.Platform.
func (p *Platform) Probe(ctx context.Context) (xr.Support, error) {
	if err := ctx.Err(); err != nil {
		return xr.Support{}, err
	}
	return p.Support, nil
}

// RequestSession implements xr.Platform.
func (p *Platform) RequestSession(ctx context.Context, req xr.SessionRequest) (xr.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.Support.ImmersiveAR || req.Mode != xr.ModeImmersiveAR {
		return nil, fmt.Errorf("session mode %q: %w", req.Mode, xr.ErrNotSupported)
	}
	for _, f := range req.RequiredFeatures {
		if f != xr.FeatureHitTest && f != xr.FeatureLocalFloor {
			return nil, fmt.Errorf("feature %q: %w", f, xr.ErrNotSupported)
		}
	}
	if req.ReferenceSpace != xr.ReferenceSpaceLocalFloor {
		return nil, fmt.Errorf("reference space %q: %w", req.ReferenceSpace, xr.ErrNotSupported)
	}
	if p.DenyPermission {
		return nil, fmt.Errorf("camera access: %w", xr.ErrPermissionDenied)
	}

	log.Debug().Str("module", "xr.sim").Strs("features", req.RequiredFeatures).Msg("session granted")
	return &Session{
		clock:    p.Clock,
		interval: p.FrameInterval,
		features: slices.Clone(req.RequiredFeatures),
		surface:  true,
		aimPitch: -0.6,
	}, nil
}

// Session is a simulated AR session. Aim, SetSurface and HitTest belong to
// the dispatch goroutine; the frame source runs on its own.
type Session struct {
	clock    timeutil.Clock
	interval time.Duration
	features []string

	hitSource bool
	surface   bool
	aimYaw    float64
	aimPitch  float64

	mu      sync.Mutex
	sink    xr.SessionSink
	stop    chan struct{}
	stopped sync.Once
	ended   sync.Once
}

// RequestHitTestSource implements xr.Session.
func (s *Session) RequestHitTestSource(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !slices.Contains(s.features, xr.FeatureHitTest) {
		return fmt.Errorf("session lacks %s: %w", xr.FeatureHitTest, xr.ErrNotSupported)
	}
	s.hitSource = true
	return nil
}

// Start implements xr.Session.
func (s *Session) Start(sink xr.SessionSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.sink = sink
	s.stop = make(chan struct{})
	go s.run(sink, s.stop)
}

func (s *Session) run(sink xr.SessionSink, stop <-chan struct{}) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C():
			seq++
			sink.Frame(xr.Frame{Seq: seq, Time: now})
		}
	}
}

// StopFrames implements xr.Session.
func (s *Session) StopFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	s.stopped.Do(func() { close(s.stop) })
}

// End implements xr.Session. The end event is delivered asynchronously, as
// a platform would.
func (s *Session) End() {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return
	}
	s.ended.Do(func() { go sink.Ended() })
}

// Select forwards a controller select as a platform event.
func (s *Session) Select() {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.Select()
	}
}

// Aim turns the simulated camera by the given deltas in radians. Pitch is
// kept within straight down and straight up.
func (s *Session) Aim(dYaw, dPitch float64) {
	s.aimYaw += dYaw
	s.aimPitch = math.Max(-math.Pi/2, math.Min(math.Pi/2, s.aimPitch+dPitch))
}

// AimAngles returns the current camera yaw and pitch.
func (s *Session) AimAngles() (yaw, pitch float64) {
	return s.aimYaw, s.aimPitch
}

// SetSurface toggles whether the floor is detectable.
func (s *Session) SetSurface(ok bool) {
	s.surface = ok
}

// Surface reports whether the floor is detectable.
func (s *Session) Surface() bool {
	return s.surface
}

// HitTest implements xr.Session by casting the camera ray onto the floor.
func (s *Session) HitTest(xr.Frame) (xr.Transform, bool) {
	if !s.hitSource || !s.surface {
		return xr.Transform{}, false
	}
	return castFloor(s.aimYaw, s.aimPitch)
}

// castFloor intersects the view ray from eye height with the y=0 plane.
func castFloor(yaw, pitch float64) (xr.Transform, bool) {
	eye := r3.Vec{Y: EyeHeight}
	dir := r3.Vec{
		X: -math.Sin(yaw) * math.Cos(pitch),
		Y: math.Sin(pitch),
		Z: -math.Cos(yaw) * math.Cos(pitch),
	}
	if dir.Y > -1e-6 {
		return xr.Transform{}, false
	}
	hit := r3.Add(eye, r3.Scale(-eye.Y/dir.Y, dir))
	if r3.Norm(hit) > MaxRange {
		return xr.Transform{}, false
	}
	return xr.Compose(hit, xr.Euler{Y: yaw}.Quat()), true
}
