package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/pose"
	"github.com/BioHazard786/posebridge/internal/utils"
)

// Slider steps in radians.
const (
	FineStep   = 0.05
	CoarseStep = 0.25
	sliderSpan = 33
)

type trackerKeys struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	CoarseLeft  key.Binding
	CoarseRight key.Binding
	Zero        key.Binding
	Reset       key.Binding
	Quit        key.Binding
}

func (k trackerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Left, k.CoarseLeft, k.Zero, k.Reset, k.Quit}
}

func (k trackerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultTrackerKeys = trackerKeys{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "axis")),
	Down:        key.NewBinding(key.WithKeys("down", "j")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "adjust")),
	Right:       key.NewBinding(key.WithKeys("right", "l")),
	CoarseLeft:  key.NewBinding(key.WithKeys("H", "shift+left"), key.WithHelp("H/L", "coarse")),
	CoarseRight: key.NewBinding(key.WithKeys("L", "shift+right")),
	Zero:        key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "zero axis")),
	Reset:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// TrackerModel is the host screen: three angle sliders and the link status.
type TrackerModel struct {
	post    func(any) bool
	feed    *Feed[app.TrackerView]
	view    app.TrackerView
	axis    int
	keys    trackerKeys
	help    help.Model
	spinner spinner.Model
	done    bool
}

// NewTrackerModel creates the host screen. Input is posted to the loop;
// views arrive through feed.
func NewTrackerModel(post func(any) bool, feed *Feed[app.TrackerView], initial app.TrackerView) TrackerModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	return TrackerModel{
		post:    post,
		feed:    feed,
		view:    initial,
		keys:    defaultTrackerKeys,
		help:    help.New(),
		spinner: s,
	}
}

func (m TrackerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.next())
}

func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case viewMsg[app.TrackerView]:
		m.view = msg.view
		return m, m.feed.next()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m TrackerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	axis := pose.Axes[m.axis]
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.done = true
		m.post(app.QuitEvent{})
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.axis = (m.axis + len(pose.Axes) - 1) % len(pose.Axes)
	case key.Matches(msg, m.keys.Down):
		m.axis = (m.axis + 1) % len(pose.Axes)
	case key.Matches(msg, m.keys.Left):
		m.post(app.PoseNudge{Axis: axis, Delta: -FineStep})
	case key.Matches(msg, m.keys.Right):
		m.post(app.PoseNudge{Axis: axis, Delta: FineStep})
	case key.Matches(msg, m.keys.CoarseLeft):
		m.post(app.PoseNudge{Axis: axis, Delta: -CoarseStep})
	case key.Matches(msg, m.keys.CoarseRight):
		m.post(app.PoseNudge{Axis: axis, Delta: CoarseStep})
	case key.Matches(msg, m.keys.Zero):
		m.post(app.PoseInput{Values: map[pose.Axis]float64{axis: 0}})
	case key.Matches(msg, m.keys.Reset):
		m.post(app.PoseReset{})
	}
	return m, nil
}

func (m TrackerModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s posebridge host · room %s", IconPhone, m.view.Room)))
	b.WriteString("\n")

	status := m.view.Status
	switch m.view.Link {
	case link.Open:
		status = SuccessStyle.Render(status)
	case link.Errored:
		status = ErrorStyle.Render(status)
	case link.Idle, link.Closed:
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status + "\n\n")

	rows := make([]string, 0, len(pose.Axes))
	for i, a := range pose.Axes {
		rows = append(rows, sliderRow(a, m.view.Pose.Get(a), i == m.axis))
	}
	b.WriteString(BoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	st := m.view.Stats
	b.WriteString(MutedStyle.Render(fmt.Sprintf("sent %d · dropped %d", st.Sent, st.Dropped)))
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func sliderRow(a pose.Axis, v float64, selected bool) string {
	label := fmt.Sprintf("%-5s", a)
	cursor := "  "
	if selected {
		label = TitleStyle.Render(label)
		cursor = TitleStyle.Render("▸ ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		cursor, label, " ", Slider(v, sliderSpan), "  ", utils.FormatAngle(v))
}

// Slider draws v on a track spanning -π..π. Values outside the track pin
// the knob to its end.
func Slider(v float64, width int) string {
	if width < 3 {
		width = 3
	}
	t := (math.Max(-math.Pi, math.Min(math.Pi, v)) + math.Pi) / (2 * math.Pi)
	knob := int(math.Round(t * float64(width-1)))
	mid := (width - 1) / 2

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == knob:
			b.WriteString("●")
		case i == mid:
			b.WriteString("┼")
		default:
			b.WriteString("─")
		}
	}
	return b.String()
}
