package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/pose"
)

func TestParseTrackerLine(t *testing.T) {
	ev, err := ParseTrackerLine("yaw=0.2 pitch=-0.1")
	require.NoError(t, err)
	assert.Equal(t, PoseInput{Values: map[pose.Axis]float64{pose.Yaw: 0.2, pose.Pitch: -0.1}}, ev)

	ev, err = ParseTrackerLine(" RESET ")
	require.NoError(t, err)
	assert.Equal(t, PoseReset{}, ev)

	_, err = ParseTrackerLine("yaw=abc")
	assert.Error(t, err)
}

func TestParseViewerLine(t *testing.T) {
	tests := []struct {
		line string
		want any
	}{
		{"connect lab", ConnectRequest{Room: "lab"}},
		{"ar", EnterARRequest{}},
		{"place", SelectRequest{}},
		{"aim 0.1 -0.2", AimInput{Yaw: 0.1, Pitch: -0.2}},
		{"surface", SurfaceToggle{}},
		{"exit", ExitARRequest{}},
		{"quit", QuitEvent{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseViewerLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseViewerLine("fly away")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	_, err = ParseViewerLine("connect")
	assert.Error(t, err)
	_, err = ParseViewerLine("aim x 0")
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	in := strings.NewReader("# comment\n0.1 0.2 0.3\nbogus\n\nreset\n")
	var got []any
	var warnings []error

	ReadLines(context.Background(), in, ParseTrackerLine,
		func(ev any) bool { got = append(got, ev); return true },
		func(err error) { warnings = append(warnings, err) })

	require.Len(t, got, 3)
	assert.Equal(t, PoseInput{Values: map[pose.Axis]float64{pose.Yaw: 0.1, pose.Pitch: 0.2, pose.Roll: 0.3}}, got[0])
	assert.Equal(t, PoseReset{}, got[1])
	assert.Equal(t, QuitEvent{}, got[2], "end of input quits")
	assert.Len(t, warnings, 1)
}
