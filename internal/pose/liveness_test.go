package pose

import (
	"testing"
	"time"

	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	m := NewMonitor(2 * time.Second)

	t.Run("stale before any pose", func(t *testing.T) {
		state, changed := m.Evaluate(clock.Now())
		assert.Equal(t, Stale, state)
		assert.False(t, changed)
	})

	t.Run("live immediately after a pose", func(t *testing.T) {
		assert.True(t, m.Observe(clock.Now()))
		assert.Equal(t, Live, m.State())
		state, changed := m.Evaluate(clock.Now())
		assert.Equal(t, Live, state)
		assert.False(t, changed)
	})

	t.Run("still live at exactly the threshold", func(t *testing.T) {
		clock.Advance(2 * time.Second)
		state, _ := m.Evaluate(clock.Now())
		assert.Equal(t, Live, state)
	})

	t.Run("stale past the threshold", func(t *testing.T) {
		clock.Advance(time.Millisecond)
		state, changed := m.Evaluate(clock.Now())
		assert.Equal(t, Stale, state)
		assert.True(t, changed)
	})

	t.Run("next arrival revives", func(t *testing.T) {
		assert.True(t, m.Observe(clock.Now()))
		assert.False(t, m.Observe(clock.Now()), "second arrival is not a transition")
		last, ok := m.LastReceivedAt()
		assert.True(t, ok)
		assert.Equal(t, clock.Now(), last)
	})
}

func TestNewMonitor_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultStaleAfter, NewMonitor(0).Threshold())
}
