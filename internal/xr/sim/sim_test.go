package sim

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/BioHazard786/posebridge/internal/xr"
)

type chanSink struct {
	frames chan xr.Frame
	ended  chan struct{}
	once   sync.Once
}

func newChanSink() *chanSink {
	return &chanSink{frames: make(chan xr.Frame, 16), ended: make(chan struct{})}
}

func (s *chanSink) Frame(f xr.Frame) { s.frames <- f }
func (s *chanSink) Select()          {}
func (s *chanSink) Ended()           { s.once.Do(func() { close(s.ended) }) }

func TestCastFloor(t *testing.T) {
	_, ok := castFloor(0, 0)
	assert.False(t, ok, "level gaze never meets the floor")

	_, ok = castFloor(0, 0.3)
	assert.False(t, ok)

	// 45 degrees down from 1.6m lands 1.6m ahead
	m, ok := castFloor(0, -math.Pi/4)
	require.True(t, ok)
	p := m.Position()
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.InDelta(t, -1.6, p.Z, 1e-9)

	_, ok = castFloor(0, -0.05)
	assert.False(t, ok, "beyond range")
}

func TestRequestSession(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	t.Run("granted", func(t *testing.T) {
		p := New(clock, time.Second/60)
		s, err := xr.Acquire(context.Background(), p)
		require.NoError(t, err)
		_, ok := s.HitTest(xr.Frame{})
		assert.True(t, ok, "default aim looks at the floor")
	})

	t.Run("permission", func(t *testing.T) {
		p := New(clock, time.Second/60)
		p.DenyPermission = true
		_, err := xr.Acquire(context.Background(), p)
		var se *xr.SessionError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, xr.KindPermissionDenied, se.Kind)
	})

	t.Run("unsupported", func(t *testing.T) {
		p := New(clock, time.Second/60)
		p.Support.ImmersiveAR = false
		_, err := xr.Acquire(context.Background(), p)
		var se *xr.SessionError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, xr.KindNotSupported, se.Kind)
	})

	t.Run("unknown feature", func(t *testing.T) {
		p := New(clock, time.Second/60)
		_, err := p.RequestSession(context.Background(), xr.SessionRequest{
			Mode:             xr.ModeImmersiveAR,
			RequiredFeatures: []string{"anchors"},
			ReferenceSpace:   xr.ReferenceSpaceLocalFloor,
		})
		assert.ErrorIs(t, err, xr.ErrNotSupported)
	})
}

func TestSessionFrames(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	p := New(clock, 10*time.Millisecond)
	s, err := xr.Acquire(context.Background(), p)
	require.NoError(t, err)

	sink := newChanSink()
	s.Start(sink)

	// the frame goroutine registers its ticker asynchronously
	require.Eventually(t, func() bool {
		clock.Advance(10 * time.Millisecond)
		select {
		case f := <-sink.frames:
			return f.Seq >= 1
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	s.End()
	select {
	case <-sink.ended:
	case <-time.After(time.Second):
		t.Fatal("end event not delivered")
	}

	s.StopFrames()
	s.StopFrames()
}

func TestSurfaceToggle(t *testing.T) {
	p := New(timeutil.NewMockClock(time.Unix(0, 0)), time.Second)
	sess, err := xr.Acquire(context.Background(), p)
	require.NoError(t, err)
	s := sess.(*Session)

	s.SetSurface(false)
	_, ok := s.HitTest(xr.Frame{})
	assert.False(t, ok)

	s.SetSurface(true)
	s.Aim(0, 2)
	yaw, pitch := s.AimAngles()
	assert.Equal(t, 0.0, yaw)
	assert.Equal(t, math.Pi/2, pitch)
	_, ok = s.HitTest(xr.Frame{})
	assert.False(t, ok)
}
