package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaxAngularSpeed caps the angular velocity an impulse can produce (rad/s)
const DefaultMaxAngularSpeed = 30.0

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	Transform Transform

	Velocity        mgl64.Vec3 // Linear velocity (m/s)
	AngularVelocity mgl64.Vec3 // rad/s

	// InvMass is 0 for bodies of infinite mass (ground, walls)
	InvMass    float64
	Elasticity float64 // 0 = no rebound, 1 = perfect restitution
	Friction   float64

	// MaxAngularSpeed clamps ApplyImpulseAngular; 0 means DefaultMaxAngularSpeed
	MaxAngularSpeed float64

	// Collision shape
	Shape ShapeInterface

	// Inertia of the shape for a unit mass, in local space
	inertiaLocal        mgl64.Mat3
	inverseInertiaLocal mgl64.Mat3
}

// NewRigidBody creates a new rigid body with the given inverse mass
func NewRigidBody(transform Transform, shape ShapeInterface, invMass float64) *RigidBody {
	rb := &RigidBody{
		Transform: transform.normalized(),
		Shape:     shape,
		InvMass:   invMass,
	}
	rb.inertiaLocal = shape.ComputeInertia(1.0)
	rb.inverseInertiaLocal = rb.inertiaLocal.Inv()

	return rb
}

// NewStaticBody creates a body of infinite mass
func NewStaticBody(transform Transform, shape ShapeInterface) *RigidBody {
	return NewRigidBody(transform, shape, 0)
}

// NewRigidBodyFromDensity derives the inverse mass from the shape volume
func NewRigidBodyFromDensity(transform Transform, shape ShapeInterface, density float64) *RigidBody {
	mass := shape.ComputeMass(density)
	invMass := 0.0
	if mass > 0 && !math.IsInf(mass, 1) {
		invMass = 1.0 / mass
	}
	return NewRigidBody(transform, shape, invMass)
}

func (rb *RigidBody) HasInfiniteMass() bool {
	return rb.InvMass == 0
}

// Mass returns +Inf for bodies of infinite mass
func (rb *RigidBody) Mass() float64 {
	if rb.HasInfiniteMass() {
		return math.Inf(1)
	}
	return 1.0 / rb.InvMass
}

func (rb *RigidBody) CentreOfMassWorld() mgl64.Vec3 {
	return rb.Transform.Apply(rb.Shape.CentreOfMass())
}

// LocalToWorld maps a point from body space (centred on the centre of mass) to world space
func (rb *RigidBody) LocalToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return rb.CentreOfMassWorld().Add(rb.Transform.Rotation.Rotate(point))
}

// WorldToLocal maps a world point into body space
func (rb *RigidBody) WorldToLocal(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Transform.Rotation.Conjugate().Rotate(point.Sub(rb.CentreOfMassWorld()))
}

// InverseInertiaWorld returns R * I_local^(-1) * R^T scaled by the inverse mass
func (rb *RigidBody) InverseInertiaWorld() mgl64.Mat3 {
	if rb.HasInfiniteMass() {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.inverseInertiaLocal).Mul3(R.Transpose()).Mul(rb.InvMass)
}

// ApplyImpulse applies impulse at a world-space point
func (rb *RigidBody) ApplyImpulse(point, impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.ApplyImpulseLinear(impulse)

	r := point.Sub(rb.CentreOfMassWorld())
	rb.ApplyImpulseAngular(r.Cross(impulse))
}

// ApplyImpulseLinear changes the linear velocity by impulse / mass
func (rb *RigidBody) ApplyImpulseLinear(impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InvMass))
}

// ApplyImpulseAngular changes the angular velocity by I^(-1) * impulse
func (rb *RigidBody) ApplyImpulseAngular(impulse mgl64.Vec3) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.AngularVelocity = rb.AngularVelocity.Add(rb.InverseInertiaWorld().Mul3x1(impulse))

	maxSpeed := rb.MaxAngularSpeed
	if maxSpeed <= 0 {
		maxSpeed = DefaultMaxAngularSpeed
	}
	if speed := rb.AngularVelocity.Len(); speed > maxSpeed {
		rb.AngularVelocity = rb.AngularVelocity.Mul(maxSpeed / speed)
	}
}

// Update integrates position, orientation and the gyroscopic term over dt
func (rb *RigidBody) Update(dt float64) {
	if rb.HasInfiniteMass() {
		return
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// Rotations happen around the centre of mass
	centre := rb.CentreOfMassWorld()
	centreToPosition := rb.Transform.Position.Sub(centre)

	// ========== GYROSCOPIC TERM ==========
	// I * dω/dt = -ω × (I * ω)
	R := rb.Transform.Rotation.Mat4().Mat3()
	inertia := R.Mul3(rb.inertiaLocal).Mul3(R.Transpose())
	inverseInertia := R.Mul3(rb.inverseInertiaLocal).Mul3(R.Transpose())
	alpha := inverseInertia.Mul3x1(rb.AngularVelocity.Cross(inertia.Mul3x1(rb.AngularVelocity)).Mul(-1))
	rb.AngularVelocity = rb.AngularVelocity.Add(alpha.Mul(dt))

	// ========== UPDATE QUATERNION ==========
	dq := deltaRotation(rb.AngularVelocity, dt)
	rb.Transform.Rotation = dq.Mul(rb.Transform.Rotation).Normalize()
	rb.Transform.Position = centre.Add(dq.Rotate(centreToPosition))
}

// Predict returns the transform reached after dt of ballistic motion, without
// touching the body. The gyroscopic term is ignored.
func (rb *RigidBody) Predict(dt float64) Transform {
	if rb.HasInfiniteMass() {
		return rb.Transform
	}

	centre := rb.CentreOfMassWorld()
	centreToPosition := rb.Transform.Position.Sub(centre)
	dq := deltaRotation(rb.AngularVelocity, dt)

	return Transform{
		Position: centre.Add(rb.Velocity.Mul(dt)).Add(dq.Rotate(centreToPosition)),
		Rotation: dq.Mul(rb.Transform.Rotation).Normalize(),
	}
}

// SupportWorld returns the furthest point of the shape along direction, in world space
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	return SupportAt(rb.Shape, rb.Transform, direction)
}

// ComputeAABB returns the world bounds at the current transform
func (rb *RigidBody) ComputeAABB() AABB {
	return rb.Shape.ComputeAABB(rb.Transform)
}

// SupportAt is SupportWorld for an arbitrary transform
func SupportAt(shape ShapeInterface, transform Transform, direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := transform.Rotation.Conjugate().Rotate(direction)
	return transform.Apply(shape.Support(localDirection))
}

func deltaRotation(angularVelocity mgl64.Vec3, dt float64) mgl64.Quat {
	dAngle := angularVelocity.Mul(dt)
	angle := dAngle.Len()
	if angle < 1e-12 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(angle, dAngle.Mul(1/angle))
}
