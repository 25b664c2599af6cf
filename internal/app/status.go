package app

import (
	"fmt"
	"time"
)

// PillMode is the severity colour of a status pill.
type PillMode int

const (
	PillPlain PillMode = iota
	PillOK
	PillWarn
	PillErr
)

// Pill is one status indicator, e.g. "peer: connected".
type Pill struct {
	Label string
	Value string
	Mode  PillMode
}

func (p Pill) String() string {
	return fmt.Sprintf("%s: %s", p.Label, p.Value)
}

// Pills keeps indicators in a fixed display order.
type Pills struct {
	order []string
	byKey map[string]Pill
}

// NewPills creates pills with the given labels, each reading "--".
func NewPills(labels ...string) *Pills {
	p := &Pills{order: labels, byKey: make(map[string]Pill, len(labels))}
	for _, l := range labels {
		p.byKey[l] = Pill{Label: l, Value: "--"}
	}
	return p
}

// Set updates a pill and reports whether it changed.
func (p *Pills) Set(label, value string, mode PillMode) bool {
	next := Pill{Label: label, Value: value, Mode: mode}
	if p.byKey[label] == next {
		return false
	}
	p.byKey[label] = next
	return true
}

// Get returns one pill.
func (p *Pills) Get(label string) Pill {
	return p.byKey[label]
}

// List returns the pills in display order.
func (p *Pills) List() []Pill {
	out := make([]Pill, 0, len(p.order))
	for _, l := range p.order {
		out = append(out, p.byKey[l])
	}
	return out
}

// LogEntry is one line of the event log.
type LogEntry struct {
	At  time.Time
	Msg string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Msg)
}

const maxLogEntries = 200

// EventLog keeps the most recent entries, newest first.
type EventLog struct {
	entries []LogEntry
	total   int
}

// Add prepends msg.
func (l *EventLog) Add(at time.Time, msg string) {
	l.total++
	l.entries = append([]LogEntry{{At: at, Msg: msg}}, l.entries...)
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[:maxLogEntries]
	}
}

// Total counts every entry ever added, including evicted ones.
func (l *EventLog) Total() int {
	return l.total
}

// Entries returns a copy, newest first.
func (l *EventLog) Entries() []LogEntry {
	return append([]LogEntry(nil), l.entries...)
}

// DefaultToastDuration is how long a toast stays up.
const DefaultToastDuration = 1800 * time.Millisecond

// Toast is a short-lived notice.
type Toast struct {
	text  string
	until time.Time
}

// Show displays text until now+d.
func (t *Toast) Show(now time.Time, text string, d time.Duration) {
	t.text = text
	t.until = now.Add(d)
}

// Text returns the toast if it is still showing at now.
func (t *Toast) Text(now time.Time) string {
	if t.text == "" || !now.Before(t.until) {
		return ""
	}
	return t.text
}
