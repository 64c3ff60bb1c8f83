package impulse

import (
	"fmt"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// effectiveMassEpsilon is the smallest inverse effective mass an impulse is computed for
const effectiveMassEpsilon = 1e-10

// Contact is a collision event between two bodies, valid for the step it was found in.
type Contact struct {
	HandleA actor.Handle
	HandleB actor.Handle

	// Contact points in body space, relative to each centre of mass
	LocalPointA mgl64.Vec3
	LocalPointB mgl64.Vec3

	// Normal is the world contact normal, pointing from A toward B
	Normal mgl64.Vec3
	// SeparationDistance is negative when the bodies overlap
	SeparationDistance float64
	// TimeOfImpact is the time into the step at which the bodies touch
	TimeOfImpact float64
}

// ResolveContact applies the restitution and friction impulses of c, and pushes the
// bodies apart when they already overlap at the start of the step.
// It panics with ErrInfiniteMassPair if neither body can move.
func ResolveContact(bodies *actor.Arena, c Contact) {
	bodyA, bodyB := bodies.Pair(c.HandleA, c.HandleB)
	if bodyA.HasInfiniteMass() && bodyB.HasInfiniteMass() {
		panic(fmt.Errorf("%w: %v, %v", ErrInfiniteMassPair, c.HandleA, c.HandleB))
	}

	pointA := bodyA.LocalToWorld(c.LocalPointA)
	pointB := bodyB.LocalToWorld(c.LocalPointB)
	normal := c.Normal

	elasticity := bodyA.Elasticity * bodyB.Elasticity
	friction := bodyA.Friction * bodyB.Friction

	invInertiaA := bodyA.InverseInertiaWorld()
	invInertiaB := bodyB.InverseInertiaWorld()

	ra := pointA.Sub(bodyA.CentreOfMassWorld())
	rb := pointB.Sub(bodyB.CentreOfMassWorld())

	// ========== NORMAL IMPULSE ==========
	velocityA := bodyA.Velocity.Add(bodyA.AngularVelocity.Cross(ra))
	velocityB := bodyB.Velocity.Add(bodyB.AngularVelocity.Cross(rb))
	vab := velocityA.Sub(velocityB)
	closingSpeed := vab.Dot(normal)

	totalInvMass := bodyA.InvMass + bodyB.InvMass

	// only approaching bodies exchange impulses
	if closingSpeed > 0 {
		angularFactor := angularTerm(invInertiaA, ra, normal).Add(angularTerm(invInertiaB, rb, normal)).Dot(normal)
		if denominator := totalInvMass + angularFactor; denominator > effectiveMassEpsilon {
			j := (1 + elasticity) * closingSpeed / denominator
			impulse := normal.Mul(j)

			bodyA.ApplyImpulse(pointA, impulse.Mul(-1))
			bodyB.ApplyImpulse(pointB, impulse)
		}

		// ========== FRICTION ==========
		velocityTangent := vab.Sub(normal.Mul(closingSpeed))
		if speed := velocityTangent.Len(); friction > 0 && speed > effectiveMassEpsilon {
			direction := velocityTangent.Mul(1 / speed)
			invInertia := angularTerm(invInertiaA, ra, direction).Add(angularTerm(invInertiaB, rb, direction)).Dot(direction)

			if denominator := totalInvMass + invInertia; denominator > effectiveMassEpsilon {
				impulse := velocityTangent.Mul(friction / denominator)

				bodyA.ApplyImpulse(pointA, impulse.Mul(-1))
				bodyB.ApplyImpulse(pointB, impulse)
			}
		}
	}

	// ========== POSITIONAL CORRECTION ==========
	// Already overlapping at the start of the step: move both bodies out
	// in proportion to their inverse mass.
	if c.TimeOfImpact == 0 {
		ds := pointB.Sub(pointA)
		if ds.Dot(normal) >= 0 {
			return
		}

		tA := bodyA.InvMass / totalInvMass
		tB := bodyB.InvMass / totalInvMass

		bodyA.Transform.Position = bodyA.Transform.Position.Add(ds.Mul(tA))
		bodyB.Transform.Position = bodyB.Transform.Position.Sub(ds.Mul(tB))
	}
}

// angularTerm returns (I⁻¹ · (r × d)) × r
func angularTerm(invInertia mgl64.Mat3, r, d mgl64.Vec3) mgl64.Vec3 {
	return invInertia.Mul3x1(r.Cross(d)).Cross(r)
}
