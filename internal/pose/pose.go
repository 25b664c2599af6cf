// Package pose defines the orientation sample streamed from tracker to viewer,
// its wire codec, the tracker-side source and the viewer-side liveness monitor.
package pose

import "fmt"

// Pose is one orientation sample. Angles are radians and pass through
// uninterpreted: no clamping, no wrap-around at ±π.
type Pose struct {
	Yaw   float64
	Pitch float64
	Roll  float64

	// SentAt is the sender's monotonic clock in milliseconds.
	SentAt float64
}

// Axis names one of the three angles.
type Axis int

const (
	Yaw Axis = iota
	Pitch
	Roll
)

// Axes lists the axes in display order.
var Axes = []Axis{Yaw, Pitch, Roll}

func (a Axis) String() string {
	switch a {
	case Yaw:
		return "yaw"
	case Pitch:
		return "pitch"
	case Roll:
		return "roll"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis maps a name to an Axis.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "yaw", "y":
		return Yaw, true
	case "pitch", "p":
		return Pitch, true
	case "roll", "r":
		return Roll, true
	}
	return 0, false
}

// Get returns the angle for axis.
func (p Pose) Get(a Axis) float64 {
	switch a {
	case Pitch:
		return p.Pitch
	case Roll:
		return p.Roll
	default:
		return p.Yaw
	}
}

func (p *Pose) set(a Axis, v float64) {
	switch a {
	case Pitch:
		p.Pitch = v
	case Roll:
		p.Roll = v
	default:
		p.Yaw = v
	}
}

// SameAngles reports whether both poses carry identical angles.
func (p Pose) SameAngles(o Pose) bool {
	return p.Yaw == o.Yaw && p.Pitch == o.Pitch && p.Roll == o.Roll
}

func (p Pose) String() string {
	return fmt.Sprintf("yaw=%.3f pitch=%.3f roll=%.3f", p.Yaw, p.Pitch, p.Roll)
}
