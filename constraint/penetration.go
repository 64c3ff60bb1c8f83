package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
)

// Penetration keeps two bodies from moving into each other at a contact.
//
// AxisA holds the contact normal in body A's frame, pointing from A toward B.
// Row 0 is the non-penetration row; rows 1 and 2 resist sliding along a tangent
// basis of the normal and stay zero when the combined friction is zero.
type Penetration struct {
	solverState
	friction float64
}

func NewPenetration(config Config, params *Params) *Penetration {
	return &Penetration{solverState: newSolverState(config, 3, params)}
}

func (p *Penetration) PreSolve(bodies *actor.Arena, dt float64) {
	bodyA, bodyB := bodies.Pair(p.HandleA, p.HandleB)

	a := bodyA.LocalToWorld(p.AnchorA)
	b := bodyB.LocalToWorld(p.AnchorB)
	ra := a.Sub(bodyA.CentreOfMassWorld())
	rb := b.Sub(bodyB.CentreOfMassWorld())
	normal := bodyA.Transform.Rotation.Rotate(p.AxisA)

	p.friction = bodyA.Friction * bodyB.Friction

	p.jacobian.Zero()
	p.setRow(0, normal, ra, rb)
	if p.friction > 0 {
		u, v := actor.TangentBasis(normal)
		p.setRow(1, u, ra, rb)
		p.setRow(2, v, ra, rb)
	}

	p.warmStart(bodyA, bodyB)

	c := math.Min(0, b.Sub(a).Dot(normal)+p.params.ContactSlop)
	p.bias = baumgarte(p.params.ContactBaumgarte, c, dt)
}

func (p *Penetration) Solve(bodies *actor.Arena, dt float64) {
	bodyA, bodyB := bodies.Pair(p.HandleA, p.HandleB)

	previous := p.cached.Clone()

	// the accumulated normal impulse never pulls the bodies together
	lo := []float64{-previous.At(0), math.Inf(-1), math.Inf(-1)}
	lambda := p.solveRows(bodyA, bodyB, lo)

	next := previous.Add(lambda)
	if p.params.ClampFriction && p.friction > 0 {
		limit := p.friction * next.At(0)
		for i := 1; i < 3; i++ {
			next.Set(i, math.Max(-limit, math.Min(limit, next.At(i))))
		}
	}

	p.ApplyImpulses(bodyA, bodyB, p.jacobian.Transpose().MulVec(next.Sub(previous)))
	p.cached.CopyFrom(next)
	p.warmStarted = false
}

func (p *Penetration) PostSolve() {
	p.sanitize()
}

// Friction returns the combined friction used by the last PreSolve
func (p *Penetration) Friction() float64 {
	return p.friction
}
