package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/utils"
	"github.com/BioHazard786/posebridge/internal/xr"
)

// AimStep is how far one arrow key turns the simulated camera, in radians.
const AimStep = 0.05

const logLines = 8

type viewerKeys struct {
	Room       key.Binding
	Disconnect key.Binding
	EnterAR    key.Binding
	ExitAR     key.Binding
	Select     key.Binding
	AimLeft    key.Binding
	AimRight   key.Binding
	AimUp      key.Binding
	AimDown    key.Binding
	Surface    key.Binding
	Debug      key.Binding
	Quit       key.Binding
}

func (k viewerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Room, k.EnterAR, k.ExitAR, k.Select, k.AimLeft, k.Surface, k.Debug, k.Quit}
}

func (k viewerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Disconnect}}
}

var defaultViewerKeys = viewerKeys{
	Room:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "room")),
	Disconnect: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "disconnect")),
	EnterAR:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "start AR")),
	ExitAR:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "exit AR")),
	Select:     key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "place")),
	AimLeft:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("arrows", "aim")),
	AimRight:   key.NewBinding(key.WithKeys("right", "l")),
	AimUp:      key.NewBinding(key.WithKeys("up", "k")),
	AimDown:    key.NewBinding(key.WithKeys("down", "j")),
	Surface:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "surface")),
	Debug:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "log")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ViewerModel is the AR screen: status pills, the scene readout and the
// room prompt.
type ViewerModel struct {
	post func(any) bool
	feed *Feed[app.ViewerView]
	view app.ViewerView
	room textinput.Model
	keys viewerKeys
	help help.Model
	done bool
}

// NewViewerModel creates the AR screen. The room prompt starts focused when
// no room was given on the command line.
func NewViewerModel(post func(any) bool, feed *Feed[app.ViewerView], initial app.ViewerView) ViewerModel {
	ti := textinput.New()
	ti.Placeholder = "room id"
	ti.Prompt = IconRoom + " "
	ti.CharLimit = 64
	ti.SetValue(initial.Room)
	if initial.Room == "" {
		ti.Focus()
	}

	return ViewerModel{
		post: post,
		feed: feed,
		view: initial,
		room: ti,
		keys: defaultViewerKeys,
		help: help.New(),
	}
}

func (m ViewerModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.feed.next())
}

func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.room.Focused() {
			return m.editRoom(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case viewMsg[app.ViewerView]:
		m.view = msg.view
		return m, m.feed.next()
	}

	var cmd tea.Cmd
	m.room, cmd = m.room.Update(msg)
	return m, cmd
}

func (m ViewerModel) editRoom(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.done = true
		m.post(app.QuitEvent{})
		return m, tea.Quit
	case tea.KeyEnter:
		m.post(app.ConnectRequest{Room: m.room.Value()})
		m.room.Blur()
		return m, nil
	case tea.KeyEsc:
		m.room.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.room, cmd = m.room.Update(msg)
	return m, cmd
}

func (m ViewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.done = true
		m.post(app.QuitEvent{})
		return m, tea.Quit
	case key.Matches(msg, m.keys.Room):
		return m, m.room.Focus()
	case key.Matches(msg, m.keys.Disconnect):
		m.post(app.DisconnectRequest{})
	case key.Matches(msg, m.keys.EnterAR):
		m.post(app.EnterARRequest{})
	case key.Matches(msg, m.keys.ExitAR):
		m.post(app.ExitARRequest{})
	case key.Matches(msg, m.keys.Select):
		m.post(app.SelectRequest{})
	case key.Matches(msg, m.keys.AimLeft):
		m.post(app.AimInput{Yaw: AimStep})
	case key.Matches(msg, m.keys.AimRight):
		m.post(app.AimInput{Yaw: -AimStep})
	case key.Matches(msg, m.keys.AimUp):
		m.post(app.AimInput{Pitch: AimStep})
	case key.Matches(msg, m.keys.AimDown):
		m.post(app.AimInput{Pitch: -AimStep})
	case key.Matches(msg, m.keys.Surface):
		m.post(app.SurfaceToggle{})
	case key.Matches(msg, m.keys.Debug):
		m.post(app.DebugToggle{})
	}
	return m, nil
}

func (m ViewerModel) View() string {
	if m.done {
		return ""
	}
	v := m.view
	var b strings.Builder

	title := fmt.Sprintf("%s posebridge viewer", IconTarget)
	if v.LocalID != "" {
		title += " · " + utils.TruncateString(v.LocalID, 12)
	}
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.room.View())
	b.WriteString("\n\n")
	b.WriteString(PillsView(v.Pills))
	b.WriteString("\n\n")
	b.WriteString(BoxStyle.Render(SceneView(v)))
	b.WriteString("\n")

	if v.Toast != "" {
		b.WriteString(ToastStyle.Render(v.Toast))
		b.WriteString("\n")
	}
	if v.ShowLog {
		b.WriteString(LogView(v.Log, logLines))
		b.WriteString("\n")
	}
	b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// SceneView describes what the AR view would show.
func SceneView(v app.ViewerView) string {
	lines := []string{
		fmt.Sprintf("session  %s · frames %d", v.XR.State, v.XR.Frames),
	}

	if v.XR.State == xr.Running {
		lines = append(lines, fmt.Sprintf("camera   yaw %s  pitch %s",
			utils.FormatAngle(v.Aim[0]), utils.FormatAngle(v.Aim[1])))
		if v.XR.Reticle.Valid {
			lines = append(lines, "reticle  "+formatVec(v.XR.Reticle.Transform.Position()))
		} else {
			lines = append(lines, "reticle  "+MutedStyle.Render("searching for a surface"))
		}
	}

	obj := v.XR.Object
	if obj.Placed {
		lines = append(lines,
			fmt.Sprintf("%s object %s", IconCube, formatVec(obj.Position)),
			fmt.Sprintf("rotation x %s", utils.FormatAngle(obj.Rotation.X)),
			fmt.Sprintf("         y %s", utils.FormatAngle(obj.Rotation.Y)),
			fmt.Sprintf("         z %s", utils.FormatAngle(obj.Rotation.Z)),
		)
	} else {
		lines = append(lines, "object   "+MutedStyle.Render("not placed"))
	}

	if v.HasPose {
		lines = append(lines, "pose     "+v.Pose.String())
	}
	return strings.Join(lines, "\n")
}

// LogView renders the newest n log entries.
func LogView(entries []app.LogEntry, n int) string {
	if len(entries) > n {
		entries = entries[:n]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, MutedStyle.Render(e.String()))
	}
	return strings.Join(lines, "\n")
}

func formatVec(p r3.Vec) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f) m", p.X, p.Y, p.Z)
}
