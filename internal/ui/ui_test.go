package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/pose"
)

type posts struct{ events []any }

func (p *posts) post(ev any) bool {
	p.events = append(p.events, ev)
	return true
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(keyMsg(k))
	}
	return m
}

func TestSlider(t *testing.T) {
	assert.Equal(t, "──●──", Slider(0, 5))
	assert.Equal(t, "●─┼──", Slider(-10, 5), "pinned to the low end")
	assert.Equal(t, "──┼─●", Slider(10, 5))
	assert.Len(t, []rune(Slider(1, 1)), 3)
}

func TestFeed_KeepsLatest(t *testing.T) {
	f := NewFeed[int]()
	f.Publish(1)
	f.Publish(2)
	f.Publish(3)

	msg := f.next()()
	assert.Equal(t, viewMsg[int]{view: 3}, msg)
}

func TestTrackerModel_Keys(t *testing.T) {
	p := &posts{}
	var m tea.Model = NewTrackerModel(p.post, NewFeed[app.TrackerView](), app.TrackerView{Room: "lab"})

	m = press(m, "right", "down", "left", "L", "up", "up", "0", "r")

	want := []any{
		app.PoseNudge{Axis: pose.Yaw, Delta: FineStep},
		app.PoseNudge{Axis: pose.Pitch, Delta: -FineStep},
		app.PoseNudge{Axis: pose.Pitch, Delta: CoarseStep},
		app.PoseInput{Values: map[pose.Axis]float64{pose.Roll: 0}},
		app.PoseReset{},
	}
	assert.Equal(t, want, p.events)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, app.QuitEvent{}, p.events[len(p.events)-1])
}

func TestTrackerModel_View(t *testing.T) {
	m := NewTrackerModel(func(any) bool { return true }, NewFeed[app.TrackerView](), app.TrackerView{})
	next, _ := m.Update(viewMsg[app.TrackerView]{view: app.TrackerView{
		Room:   "lab",
		Status: "phone connected: v1",
		Pose:   pose.Pose{Yaw: 0.5},
	}})

	out := next.View()
	assert.Contains(t, out, "room lab")
	assert.Contains(t, out, "phone connected: v1")
	assert.Contains(t, out, "+0.500 rad")
	assert.Contains(t, out, "pitch")
}

func TestViewerModel_RoomPrompt(t *testing.T) {
	p := &posts{}
	var m tea.Model = NewViewerModel(p.post, NewFeed[app.ViewerView](), app.ViewerView{})

	// while the prompt has focus, letters are typed, not commands
	m = press(m, "l", "a", "b", "enter")
	require.Len(t, p.events, 1)
	assert.Equal(t, app.ConnectRequest{Room: "lab"}, p.events[0])

	m = press(m, "a", " ", "left", "down", "s", "d", "x", "n")
	assert.Equal(t, []any{
		app.ConnectRequest{Room: "lab"},
		app.EnterARRequest{},
		app.SelectRequest{},
		app.AimInput{Yaw: AimStep},
		app.AimInput{Pitch: -AimStep},
		app.SurfaceToggle{},
		app.DebugToggle{},
		app.ExitARRequest{},
		app.DisconnectRequest{},
	}, p.events)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
}

func TestViewerModel_View(t *testing.T) {
	view := app.ViewerView{
		LocalID: "abc",
		Room:    "lab",
		Pills:   app.NewPills(app.PillPeer, app.PillData).List(),
		Toast:   "peer connected",
		ShowLog: true,
		Log:     []app.LogEntry{{At: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), Msg: "AR session started"}},
	}
	m := NewViewerModel(func(any) bool { return true }, NewFeed[app.ViewerView](), view)

	out := m.View()
	for _, want := range []string{"peer: --", "data: --", "peer connected", "[08:00:00] AR session started", "not placed"} {
		assert.Contains(t, out, want)
	}
}

func TestSummaryView(t *testing.T) {
	out := SummaryView("Session Summary", app.Summary{
		Role:       "viewer",
		Remote:     "lab-tracker",
		Received:   42,
		Rejected:   1,
		Frames:     600,
		Placements: 2,
		Duration:   75 * time.Second,
	})
	for _, want := range []string{"Session Summary", "lab-tracker", "42", "600", "1m 15s"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Poses sent")

	out = SummaryView("Session Summary", app.Summary{Role: "tracker", PosesSent: 7})
	assert.True(t, strings.Contains(out, "Poses sent"))
}
