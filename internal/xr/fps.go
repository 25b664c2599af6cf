package xr

import (
	"fmt"
	"math"
	"time"
)

const fpsWindow = 20

// FPSMeter averages the instantaneous frame rate over the last 20 intervals.
type FPSMeter struct {
	samples []float64
	last    time.Time
	started bool
}

// Tick records a frame at now.
func (m *FPSMeter) Tick(now time.Time) {
	if !m.started {
		m.last = now
		m.started = true
		return
	}
	dt := now.Sub(m.last)
	m.last = now
	if dt <= 0 {
		return
	}
	m.samples = append(m.samples, float64(time.Second)/float64(dt))
	if len(m.samples) > fpsWindow {
		m.samples = m.samples[1:]
	}
}

// FPS returns the rounded average, or false before any interval is known.
func (m *FPSMeter) FPS() (int, bool) {
	if len(m.samples) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range m.samples {
		sum += s
	}
	return int(math.Round(sum / float64(len(m.samples)))), true
}

func (m *FPSMeter) String() string {
	if fps, ok := m.FPS(); ok {
		return fmt.Sprintf("fps: %d", fps)
	}
	return "fps: --"
}
