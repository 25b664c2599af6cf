package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), clock.Now())
	assert.Equal(t, 1500*time.Millisecond, clock.Since(start))
}

func TestMockTicker(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(100 * time.Millisecond)

	t.Run("does not fire early", func(t *testing.T) {
		clock.Advance(50 * time.Millisecond)
		select {
		case <-ticker.C():
			t.Fatal("ticker fired before its interval")
		default:
		}
	})

	t.Run("fires when due", func(t *testing.T) {
		clock.Advance(50 * time.Millisecond)
		select {
		case got := <-ticker.C():
			assert.Equal(t, time.Unix(0, 0).Add(100*time.Millisecond), got)
		default:
			t.Fatal("ticker did not fire")
		}
	})

	t.Run("silent after stop", func(t *testing.T) {
		ticker.Stop()
		require.True(t, ticker.(*MockTicker).Stopped())
		clock.Advance(time.Second)
		select {
		case <-ticker.C():
			t.Fatal("stopped ticker fired")
		default:
		}
	})
}
