// Package constraint implements the impulse-based joint and contact constraints and
// the arena that solves them once per simulation step.
//
// Every constraint couples two bodies and follows the same lifecycle each step:
// PreSolve rebuilds the Jacobian and applies last step's impulse (warm start),
// Solve is run once per solver sweep and accumulates the impulse, and PostSolve
// keeps the accumulated impulse for the next step.
package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/linalg"
	"github.com/go-gl/mathgl/mgl64"
)

type Constraint interface {
	PreSolve(bodies *actor.Arena, dt float64)
	Solve(bodies *actor.Arena, dt float64)
	PostSolve()
	// Bodies returns the two handles the constraint couples
	Bodies() (actor.Handle, actor.Handle)
}

// Params holds the stabilization terms shared by every constraint of an arena.
type Params struct {
	ContactBaumgarte float64
	ContactSlop      float64
	JointBaumgarte   float64
	JointSlop        float64
	// WarmStartLimit bounds each cached multiplier between steps
	WarmStartLimit float64
	// ClampFriction box-clamps the friction rows to μ times the normal impulse
	ClampFriction bool
}

func DefaultParams() Params {
	return Params{
		ContactBaumgarte: 0.25,
		ContactSlop:      0.02,
		JointBaumgarte:   0.05,
		JointSlop:        0.01,
		WarmStartLimit:   1e5,
	}
}

// Config links a constraint to its two bodies. Anchors are in body space,
// relative to each body's centre of mass; axes are in body space too.
type Config struct {
	HandleA actor.Handle
	HandleB actor.Handle
	AnchorA mgl64.Vec3
	AnchorB mgl64.Vec3
	AxisA   mgl64.Vec3
	AxisB   mgl64.Vec3
}

func (c Config) Bodies() (actor.Handle, actor.Handle) {
	return c.HandleA, c.HandleB
}

// Velocities returns the generalized velocity [vA, ωA, vB, ωB]
func (c Config) Velocities(bodyA, bodyB *actor.RigidBody) *linalg.VecN {
	q := linalg.NewVecN(linalg.DOF)
	q.SetVec3(0, bodyA.Velocity)
	q.SetVec3(3, bodyA.AngularVelocity)
	q.SetVec3(6, bodyB.Velocity)
	q.SetVec3(9, bodyB.AngularVelocity)
	return q
}

// InverseMassMatrix returns the 12×12 block diagonal of inverse masses and world inverse inertias
func (c Config) InverseMassMatrix(bodyA, bodyB *actor.RigidBody) *linalg.MatMN {
	m := linalg.NewMatN(linalg.DOF)
	m.SetBlock3(0, 0, mgl64.Ident3().Mul(bodyA.InvMass))
	m.SetBlock3(3, 3, bodyA.InverseInertiaWorld())
	m.SetBlock3(6, 6, mgl64.Ident3().Mul(bodyB.InvMass))
	m.SetBlock3(9, 9, bodyB.InverseInertiaWorld())
	return m
}

// ApplyImpulses applies a generalized impulse [pA, LA, pB, LB] to both bodies
func (c Config) ApplyImpulses(bodyA, bodyB *actor.RigidBody, impulses *linalg.VecN) {
	bodyA.ApplyImpulseLinear(impulses.Vec3(0))
	bodyA.ApplyImpulseAngular(impulses.Vec3(3))
	bodyB.ApplyImpulseLinear(impulses.Vec3(6))
	bodyB.ApplyImpulseAngular(impulses.Vec3(9))
}

// solverState is the per-instance accumulator shared by every constraint kind
type solverState struct {
	Config

	params   *Params
	jacobian *linalg.MatMN
	cached   *linalg.VecN
	bias     float64

	// set by PreSolve once the cached impulse went into the bodies
	warmStarted bool
}

func newSolverState(config Config, rows int, params *Params) solverState {
	if params == nil {
		defaults := DefaultParams()
		params = &defaults
	}
	return solverState{
		Config:   config,
		params:   params,
		jacobian: linalg.NewJacobian(rows),
		cached:   linalg.NewVecN(rows),
	}
}

// Jacobian returns a copy of the current Jacobian
func (s *solverState) Jacobian() *linalg.MatMN {
	return s.jacobian.Clone()
}

// CachedImpulse returns a copy of the accumulated multipliers
func (s *solverState) CachedImpulse() *linalg.VecN {
	return s.cached.Clone()
}

// setRow writes the pattern [-d, ra×(-d), d, rb×d] into row
func (s *solverState) setRow(row int, direction, ra, rb mgl64.Vec3) {
	negative := direction.Mul(-1)
	s.jacobian.SetVec3(row, 0, negative)
	s.jacobian.SetVec3(row, 3, ra.Cross(negative))
	s.jacobian.SetVec3(row, 6, direction)
	s.jacobian.SetVec3(row, 9, rb.Cross(direction))
}

// warmStart applies Jᵀ·λ_cached at most once between two solves
func (s *solverState) warmStart(bodyA, bodyB *actor.RigidBody) {
	if s.warmStarted {
		return
	}
	s.warmStarted = true

	s.ApplyImpulses(bodyA, bodyB, s.jacobian.Transpose().MulVec(s.cached))
}

// solveRows returns the multipliers bringing J·q to -bias on the first row
// and to zero on the others, each projected onto [lo[i], +inf).
func (s *solverState) solveRows(bodyA, bodyB *actor.RigidBody, lo []float64) *linalg.VecN {
	jt := s.jacobian.Transpose()
	system := s.jacobian.Mul(s.InverseMassMatrix(bodyA, bodyB).Mul(jt))

	rhs := s.jacobian.MulVec(s.Velocities(bodyA, bodyB)).Scale(-1)
	rhs.Set(0, rhs.At(0)-s.bias)

	return linalg.GaussSeidelBounded(system, rhs, linalg.DefaultIterations, lo, nil)
}

// sanitize drops non-finite multipliers and bounds the rest for the next warm start
func (s *solverState) sanitize() {
	limit := s.params.WarmStartLimit
	raw := s.cached.Raw()
	for i, x := range raw {
		switch {
		case math.IsNaN(x) || math.IsInf(x, 0):
			raw[i] = 0
		case limit > 0:
			raw[i] = math.Max(-limit, math.Min(limit, x))
		}
	}
	s.warmStarted = false
}

func baumgarte(beta, c, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return beta * c / dt
}
