// Package posechan carries poses over the link: encode on send, parse and
// track liveness on receive.
package posechan

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/pose"
	"github.com/BioHazard786/posebridge/internal/timeutil"
)

// Link is the part of link.Manager the channel needs.
type Link interface {
	Send(data []byte) error
	State() link.State
	OnMessage(fn func(link.Message))
}

// Stats counts channel traffic for the session summary.
type Stats struct {
	Sent     int
	Dropped  int
	Received int
	Rejected int
}

// Channel is a typed pose pipe. Like the Manager it belongs to the dispatch
// goroutine.
type Channel struct {
	link    Link
	clock   timeutil.Clock
	monitor *pose.Monitor

	stats    Stats
	last     pose.Pose
	haveLast bool

	receivers []func(pose.Pose)
	liveness  []func(pose.Liveness)
}

// New wires a Channel to l. staleAfter <= 0 uses pose.DefaultStaleAfter.
func New(l Link, clock timeutil.Clock, staleAfter time.Duration) *Channel {
	c := &Channel{
		link:    l,
		clock:   clock,
		monitor: pose.NewMonitor(staleAfter),
	}
	l.OnMessage(c.receive)
	return c
}

// Send transmits p if the link is open and drops it otherwise. Poses are
// never queued: a late orientation is worse than none.
func (c *Channel) Send(p pose.Pose) {
	if c.link.State() != link.Open {
		c.stats.Dropped++
		return
	}
	data, err := pose.Encode(p)
	if err != nil {
		c.stats.Dropped++
		log.Error().Str("module", "posechan").Err(err).Msg("encode pose")
		return
	}
	if err := c.link.Send(data); err != nil {
		c.stats.Dropped++
		log.Debug().Str("module", "posechan").Err(err).Msg("send dropped")
		return
	}
	c.stats.Sent++
}

// OnReceive registers fn for every valid inbound pose, in arrival order.
func (c *Channel) OnReceive(fn func(pose.Pose)) {
	c.receivers = append(c.receivers, fn)
}

// OnLiveness registers fn for liveness transitions.
func (c *Channel) OnLiveness(fn func(pose.Liveness)) {
	c.liveness = append(c.liveness, fn)
}

// Tick re-evaluates liveness; call it once per render tick.
func (c *Channel) Tick(now time.Time) {
	if state, changed := c.monitor.Evaluate(now); changed {
		log.Debug().Str("module", "posechan").Stringer("liveness", state).Msg("liveness changed")
		c.notify(state)
	}
}

// Liveness is the current data flag.
func (c *Channel) Liveness() pose.Liveness {
	return c.monitor.State()
}

// Last returns the most recent valid pose, if one has arrived.
func (c *Channel) Last() (pose.Pose, bool) {
	return c.last, c.haveLast
}

// LastReceivedAt is the arrival time of the most recent valid pose.
func (c *Channel) LastReceivedAt() (time.Time, bool) {
	return c.monitor.LastReceivedAt()
}

// Stats returns traffic counters.
func (c *Channel) Stats() Stats {
	return c.stats
}

func (c *Channel) receive(msg link.Message) {
	p, err := pose.DecodeMessage(msg.Data, msg.IsString)
	if err != nil {
		c.stats.Rejected++
		log.Warn().Str("module", "posechan").Str("peer", msg.Remote).Err(err).Msg("rejected pose")
		return
	}

	c.stats.Received++
	c.last = p
	c.haveLast = true
	if c.monitor.Observe(c.clock.Now()) {
		c.notify(pose.Live)
	}

	for _, fn := range c.receivers {
		fn(p)
	}
}

func (c *Channel) notify(state pose.Liveness) {
	for _, fn := range c.liveness {
		fn(state)
	}
}
