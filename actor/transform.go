package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Apply maps a local point into world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(point))
}

// ApplyInverse maps a world point into local space
func (t Transform) ApplyInverse(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(point.Sub(t.Position))
}

// normalized returns the transform with a unit rotation; the zero quaternion becomes identity.
func (t Transform) normalized() Transform {
	if t.Rotation.Len() < 1e-12 {
		t.Rotation = mgl64.QuatIdent()
		return t
	}
	t.Rotation = t.Rotation.Normalize()
	return t
}
