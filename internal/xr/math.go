package xr

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a 4x4 affine matrix in column-major order, the layout XR
// platforms hand out hit-test poses in. Translation lives in elements 12-14.
type Transform [16]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Compose builds a rigid transform from a position and a unit quaternion.
func Compose(pos r3.Vec, q quat.Number) Transform {
	x, y, z, w := q.Imag, q.Jmag, q.Kmag, q.Real
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	return Transform{
		1 - (yy + zz), xy + wz, xz - wy, 0,
		xy - wz, 1 - (xx + zz), yz + wx, 0,
		xz + wy, yz - wx, 1 - (xx + yy), 0,
		pos.X, pos.Y, pos.Z, 1,
	}
}

// Position is the translation component.
func (t Transform) Position() r3.Vec {
	return r3.Vec{X: t[12], Y: t[13], Z: t[14]}
}

// at returns the element at row r, column c (both 1-based, like m11..m33).
func (t Transform) at(r, c int) float64 {
	return t[(c-1)*4+(r-1)]
}

// rotation returns the upper 3x3 with any scale divided out of each column.
func (t Transform) rotation() [3][3]float64 {
	var m [3][3]float64
	for c := 0; c < 3; c++ {
		col := r3.Vec{X: t[c*4], Y: t[c*4+1], Z: t[c*4+2]}
		if n := r3.Norm(col); n > 0 {
			col = r3.Scale(1/n, col)
		}
		m[0][c], m[1][c], m[2][c] = col.X, col.Y, col.Z
	}
	return m
}

// Orientation extracts the rotation as a unit quaternion.
func (t Transform) Orientation() quat.Number {
	m := t.rotation()
	m11, m12, m13 := m[0][0], m[0][1], m[0][2]
	m21, m22, m23 := m[1][0], m[1][1], m[1][2]
	m31, m32, m33 := m[2][0], m[2][1], m[2][2]

	var q quat.Number
	switch trace := m11 + m22 + m33; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m32 - m23) * s, Jmag: (m13 - m31) * s, Kmag: (m21 - m12) * s}
	case m11 > m22 && m11 > m33:
		s := 2 * math.Sqrt(1+m11-m22-m33)
		q = quat.Number{Real: (m32 - m23) / s, Imag: 0.25 * s, Jmag: (m12 + m21) / s, Kmag: (m13 + m31) / s}
	case m22 > m33:
		s := 2 * math.Sqrt(1+m22-m11-m33)
		q = quat.Number{Real: (m13 - m31) / s, Imag: (m12 + m21) / s, Jmag: 0.25 * s, Kmag: (m23 + m32) / s}
	default:
		s := 2 * math.Sqrt(1+m33-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: (m13 + m31) / s, Jmag: (m23 + m32) / s, Kmag: 0.25 * s}
	}
	return q
}

// Euler is an intrinsic rotation applied in X, Y, Z order, in radians.
type Euler struct {
	X, Y, Z float64
}

// Quat converts e to a unit quaternion.
func (e Euler) Quat() quat.Number {
	qx := quat.Number{Real: math.Cos(e.X / 2), Imag: math.Sin(e.X / 2)}
	qy := quat.Number{Real: math.Cos(e.Y / 2), Jmag: math.Sin(e.Y / 2)}
	qz := quat.Number{Real: math.Cos(e.Z / 2), Kmag: math.Sin(e.Z / 2)}
	return quat.Mul(quat.Mul(qx, qy), qz)
}

// EulerFromQuat decomposes a unit quaternion into XYZ Euler angles.
func EulerFromQuat(q quat.Number) Euler {
	t := Compose(r3.Vec{}, q)
	m11, m12, m13 := t.at(1, 1), t.at(1, 2), t.at(1, 3)
	m22, m23 := t.at(2, 2), t.at(2, 3)
	m32, m33 := t.at(3, 2), t.at(3, 3)

	e := Euler{Y: math.Asin(clamp(m13, -1, 1))}
	if math.Abs(m13) < 0.9999999 {
		e.X = math.Atan2(-m23, m33)
		e.Z = math.Atan2(-m12, m11)
	} else {
		e.X = math.Atan2(m32, m22)
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
