package pose

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BioHazard786/posebridge/internal/timeutil"
)

// Source samples the tracker's three angles and emits a Pose every time one
// of them changes.
type Source struct {
	clock   timeutil.Clock
	started time.Time
	current Pose
	emit    func(Pose)
	emitted int
}

// NewSource creates a Source starting at zero angles. emit runs synchronously
// on every change.
func NewSource(clock timeutil.Clock, emit func(Pose)) *Source {
	return &Source{
		clock:   clock,
		started: clock.Now(),
		emit:    emit,
	}
}

// Current returns the last sampled angles.
func (s *Source) Current() Pose {
	return s.current
}

// Emitted is the number of poses emitted so far.
func (s *Source) Emitted() int {
	return s.emitted
}

// Set samples one axis. It reports whether a Pose was emitted.
func (s *Source) Set(a Axis, v float64) bool {
	next := s.current
	next.set(a, v)
	return s.sample(next)
}

// Adjust nudges one axis by delta.
func (s *Source) Adjust(a Axis, delta float64) bool {
	return s.Set(a, s.current.Get(a)+delta)
}

// SetAll samples all three axes at once, emitting at most one Pose.
func (s *Source) SetAll(yaw, pitch, roll float64) bool {
	return s.sample(Pose{Yaw: yaw, Pitch: pitch, Roll: roll})
}

// Apply samples the axes named in values, leaving the others unchanged.
func (s *Source) Apply(values map[Axis]float64) bool {
	next := s.current
	for a, v := range values {
		next.set(a, v)
	}
	return s.sample(next)
}

// Reset returns all axes to zero.
func (s *Source) Reset() bool {
	return s.SetAll(0, 0, 0)
}

func (s *Source) sample(next Pose) bool {
	if next.SameAngles(s.current) {
		return false
	}
	next.SentAt = float64(s.clock.Since(s.started)) / float64(time.Millisecond)
	s.current = next
	s.emitted++
	if s.emit != nil {
		s.emit(next)
	}
	return true
}

// ParseInput reads one line of tracker input. Accepted forms:
//
//	yaw=0.2 pitch=-0.1 roll=0
//	p=-0.1
//	0.2 -0.1 0
func ParseInput(line string) (map[Axis]float64, error) {
	fields := strings.Fields(strings.NewReplacer(",", " ", ";", " ").Replace(line))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	values := make(map[Axis]float64, 3)
	if !strings.Contains(fields[0], "=") {
		if len(fields) != 3 {
			return nil, fmt.Errorf("expected 3 angles, got %d", len(fields))
		}
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("angle %d: %w", i+1, err)
			}
			values[Axes[i]] = v
		}
		return values, nil
	}

	for _, f := range fields {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("expected axis=value, got %q", f)
		}
		a, ok := ParseAxis(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown axis %q", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		values[a] = v
	}
	return values, nil
}
