package utils

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldForceRelayFor(t *testing.T) {
	t.Run("plain LAN", func(t *testing.T) {
		assert.False(t, ShouldForceRelayFor([]InterfaceInfo{
			{Name: "lo", Up: true, Loopback: true, Addrs: []net.IP{net.ParseIP("127.0.0.1")}},
			{Name: "eth0", Up: true, Addrs: []net.IP{net.ParseIP("192.168.1.20")}},
		}))
	})

	t.Run("wireguard adapter", func(t *testing.T) {
		assert.True(t, ShouldForceRelayFor([]InterfaceInfo{{Name: "wg0", Up: true}}))
	})

	t.Run("down tunnel ignored", func(t *testing.T) {
		assert.False(t, ShouldForceRelayFor([]InterfaceInfo{{Name: "tun0", Up: false}}))
	})

	t.Run("cgnat address", func(t *testing.T) {
		assert.True(t, ShouldForceRelayFor([]InterfaceInfo{
			{Name: "en0", Up: true, Addrs: []net.IP{net.ParseIP("100.101.5.9")}},
		}))
	})
}

func TestFormatTimeDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatTimeDuration(42*time.Second))
	assert.Equal(t, "3m 5s", FormatTimeDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "1h 0m 1s", FormatTimeDuration(time.Hour+time.Second))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
}

func TestFormatAngle(t *testing.T) {
	assert.Equal(t, "+0.200 rad (+11.5°)", FormatAngle(0.2))
}
