package xr

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/BioHazard786/posebridge/internal/pose"
)

// Reticle marks the current hit-test result. When not Visible, Transform
// holds the last hit and must not be used.
type Reticle struct {
	Visible   bool
	Transform Transform
}

// ReticlePose is the per-frame view consumers get of the reticle.
type ReticlePose struct {
	Transform Transform
	Valid     bool
}

// Pose reports the reticle with validity.
func (r Reticle) Pose() ReticlePose {
	return ReticlePose{Transform: r.Transform, Valid: r.Visible}
}

// PlacedObject is the virtual object anchored in the viewer's world.
// Position and Orientation come from placement, Rotation from poses.
type PlacedObject struct {
	Position    r3.Vec
	Orientation quat.Number
	Rotation    Euler
	Placed      bool
	Visible     bool
	Attached    bool
}

func newPlacedObject() PlacedObject {
	return PlacedObject{Orientation: quat.Number{Real: 1}}
}

// place copies the translation and rotation of t onto the object.
func (o *PlacedObject) place(t Transform) {
	o.Position = t.Position()
	o.Orientation = t.Orientation()
	o.Rotation = EulerFromQuat(o.Orientation)
	o.Attached = true
	o.Visible = true
	o.Placed = true
}

// Updater applies the latest received pose to the object every frame.
type Updater struct {
	last pose.Pose
	have bool
}

// Observe records an inbound pose.
func (u *Updater) Observe(p pose.Pose) {
	u.last = p
	u.have = true
}

// Received reports whether any pose has been observed.
func (u *Updater) Received() bool {
	return u.have
}

// Apply overwrites the object's rotation with the last pose: pitch about X,
// yaw about Y, roll about Z. Position is never touched.
func (u *Updater) Apply(o *PlacedObject) {
	if !u.have {
		return
	}
	o.Rotation = Euler{X: u.last.Pitch, Y: u.last.Yaw, Z: u.last.Roll}
	o.Orientation = o.Rotation.Quat()
}
