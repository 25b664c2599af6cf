package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/pose"
	"github.com/BioHazard786/posebridge/internal/posechan"
	"github.com/BioHazard786/posebridge/internal/timeutil"
)

// TrackerOptions configures the tracker role.
type TrackerOptions struct {
	Room      string
	Transport link.Transport
	Clock     timeutil.Clock
	// ConnectTimeout bounds how long an inbound viewer may take to open.
	ConnectTimeout time.Duration
	// Post queues an event on the loop; it must be safe from any goroutine.
	Post func(any) bool
	// Publish receives a fresh view after every change. It must not block.
	Publish func(TrackerView)
}

// TrackerView is what the tracker screen shows.
type TrackerView struct {
	Room     string
	Identity string
	Status   string
	Peer     string
	Link     link.State
	Pose     pose.Pose
	Stats    posechan.Stats
	Log      []LogEntry
	LogTotal int
}

// Tracker hosts a room and streams the local pose to whichever viewer joins.
type Tracker struct {
	opts     TrackerOptions
	room     string
	identity string
	clock    timeutil.Clock

	links   *link.Manager
	channel *posechan.Channel
	source  *pose.Source

	status  string
	peer    string
	log     EventLog
	started time.Time
	dirty   bool
}

// NewTracker wires the tracker role. The transport must already be
// registered under TrackerIdentity(room).
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	room, err := link.NormalizeRoom(opts.Room)
	if err != nil {
		return nil, NewError("host", err)
	}
	identity, _ := link.TrackerIdentity(room)
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	t := &Tracker{
		opts:     opts,
		room:     room,
		identity: identity,
		clock:    clock,
		started:  clock.Now(),
	}
	t.links = link.NewManager(opts.Transport, func(ev link.Event) { opts.Post(ev) }, link.Options{
		ConnectTimeout: opts.ConnectTimeout,
		Clock:          clock,
	})
	t.channel = posechan.New(t.links, clock, 0)
	t.source = pose.NewSource(clock, t.channel.Send)

	t.links.OnInbound(t.onInbound)
	t.links.OnState(t.onState)

	t.setStatus(fmt.Sprintf("hosting as %q — share room id %q with phone", identity, room))
	return t, nil
}

// Identity is the broker identity viewers connect to.
func (t *Tracker) Identity() string {
	return t.identity
}

func (t *Tracker) onInbound(c *link.Connection) {
	t.peer = c.Remote
	t.setStatus("phone connected: " + c.Remote)
}

func (t *Tracker) onState(c link.StateChange) {
	switch c.To {
	case link.Closed:
		t.setStatus("phone disconnected")
	case link.Errored:
		t.setStatus(fmt.Sprintf("peer error: %v", c.Err))
	case link.Open:
		t.addLog("data channel open: " + c.Remote)
	}
}

// Handle implements Handler.
func (t *Tracker) Handle(ev any) bool {
	switch e := ev.(type) {
	case QuitEvent:
		t.links.Close()
		return true
	case link.Event:
		t.links.Dispatch(e)
	case PoseInput:
		t.source.Apply(e.Values)
	case PoseNudge:
		t.source.Adjust(e.Axis, e.Delta)
	case PoseReset:
		t.source.Reset()
	default:
		log.Debug().Str("module", "app").Type("event", ev).Msg("tracker ignoring event")
		return false
	}
	t.dirty = true
	t.publish()
	return false
}

// Tick implements Handler.
func (t *Tracker) Tick(now time.Time) {
	t.links.Tick(now)
	t.publish()
}

// View returns the current screen state.
func (t *Tracker) View() TrackerView {
	return TrackerView{
		Room:     t.room,
		Identity: t.identity,
		Status:   t.status,
		Peer:     t.peer,
		Link:     t.links.State(),
		Pose:     t.source.Current(),
		Stats:    t.channel.Stats(),
		Log:      t.log.Entries(),
		LogTotal: t.log.Total(),
	}
}

// Summary reports the session totals.
func (t *Tracker) Summary() Summary {
	s := t.channel.Stats()
	return Summary{
		Role:      "tracker",
		Remote:    t.peer,
		PosesSent: s.Sent,
		Dropped:   s.Dropped,
		Duration:  t.clock.Since(t.started),
	}
}

func (t *Tracker) setStatus(s string) {
	if s == t.status {
		return
	}
	t.status = s
	t.addLog(s)
	log.Info().Str("module", "app").Str("role", "tracker").Msg(s)
}

func (t *Tracker) addLog(msg string) {
	t.log.Add(t.clock.Now(), msg)
	t.dirty = true
}

func (t *Tracker) publish() {
	if !t.dirty || t.opts.Publish == nil {
		return
	}
	t.dirty = false
	t.opts.Publish(t.View())
}
