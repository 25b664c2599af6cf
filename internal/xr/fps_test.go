package xr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFPSMeter(t *testing.T) {
	var m FPSMeter
	assert.Equal(t, "fps: --", m.String())

	now := time.Unix(0, 0)
	m.Tick(now)
	assert.Equal(t, "fps: --", m.String())

	for i := 0; i < 30; i++ {
		now = now.Add(20 * time.Millisecond)
		m.Tick(now)
	}
	fps, ok := m.FPS()
	assert.True(t, ok)
	assert.Equal(t, 50, fps)
	assert.Len(t, m.samples, fpsWindow)

	// only the last 20 intervals count
	for i := 0; i < 20; i++ {
		now = now.Add(10 * time.Millisecond)
		m.Tick(now)
	}
	assert.Equal(t, "fps: 100", m.String())
}
