package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
)

// Distance keeps the anchors of two bodies at RestLength from each other.
//
// The position constraint is C = |b - a|² - RestLength², whose single Jacobian row is
// [2(a-b), ra×2(a-b), 2(b-a), rb×2(b-a)].
type Distance struct {
	solverState
	RestLength float64
}

func NewDistance(config Config, restLength float64, params *Params) *Distance {
	return &Distance{
		solverState: newSolverState(config, 1, params),
		RestLength:  restLength,
	}
}

func (d *Distance) PreSolve(bodies *actor.Arena, dt float64) {
	bodyA, bodyB := bodies.Pair(d.HandleA, d.HandleB)

	a := bodyA.LocalToWorld(d.AnchorA)
	b := bodyB.LocalToWorld(d.AnchorB)
	r := b.Sub(a)
	ra := a.Sub(bodyA.CentreOfMassWorld())
	rb := b.Sub(bodyB.CentreOfMassWorld())

	d.jacobian.Zero()
	d.setRow(0, r.Mul(2), ra, rb)

	d.warmStart(bodyA, bodyB)

	c := r.Dot(r) - d.RestLength*d.RestLength
	if math.Abs(c) <= d.params.JointSlop {
		c = 0
	} else {
		c -= math.Copysign(d.params.JointSlop, c)
	}
	d.bias = baumgarte(d.params.JointBaumgarte, c, dt)
}

func (d *Distance) Solve(bodies *actor.Arena, dt float64) {
	bodyA, bodyB := bodies.Pair(d.HandleA, d.HandleB)

	lambda := d.solveRows(bodyA, bodyB, nil)
	d.ApplyImpulses(bodyA, bodyB, d.jacobian.Transpose().MulVec(lambda))
	d.cached.CopyFrom(d.cached.Add(lambda))
	d.warmStarted = false
}

func (d *Distance) PostSolve() {
	d.sanitize()
}

// JointError returns the signed deviation of the anchor distance from RestLength
func (d *Distance) JointError(bodies *actor.Arena) float64 {
	a := bodies.Get(d.HandleA).LocalToWorld(d.AnchorA)
	b := bodies.Get(d.HandleB).LocalToWorld(d.AnchorB)
	return b.Sub(a).Len() - d.RestLength
}
