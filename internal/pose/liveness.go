package pose

import "time"

// Liveness says whether pose data is recent enough to be considered current.
type Liveness int

const (
	Stale Liveness = iota
	Live
)

func (l Liveness) String() string {
	if l == Live {
		return "live"
	}
	return "stale"
}

// DefaultStaleAfter is the gap after which data reads stale.
const DefaultStaleAfter = 2 * time.Second

// Monitor derives liveness from the time of the last received pose.
// Before the first arrival it reads Stale.
type Monitor struct {
	threshold time.Duration
	last      time.Time
	received  bool
	state     Liveness
}

// NewMonitor returns a Monitor; a non-positive threshold uses DefaultStaleAfter.
func NewMonitor(threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultStaleAfter
	}
	return &Monitor{threshold: threshold, state: Stale}
}

// Observe records an arrival. It reports whether the flag flipped to Live.
func (m *Monitor) Observe(at time.Time) bool {
	m.last = at
	m.received = true
	changed := m.state != Live
	m.state = Live
	return changed
}

// Evaluate recomputes the flag for now. It reports the flag and whether it
// changed since the previous Observe or Evaluate.
func (m *Monitor) Evaluate(now time.Time) (Liveness, bool) {
	next := Stale
	if m.received && now.Sub(m.last) <= m.threshold {
		next = Live
	}
	changed := next != m.state
	m.state = next
	return next, changed
}

// State is the flag as of the last Observe or Evaluate.
func (m *Monitor) State() Liveness {
	return m.state
}

// LastReceivedAt returns the last arrival time, if any.
func (m *Monitor) LastReceivedAt() (time.Time, bool) {
	return m.last, m.received
}

// Threshold is the configured staleness gap.
func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}
