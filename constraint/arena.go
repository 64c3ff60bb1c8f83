package constraint

import (
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Arena owns the active constraints and solves them in insertion order.
// Gauss-Seidel results depend on that order, so it never changes except by removal.
type Arena struct {
	params      *Params
	constraints []Constraint
}

func NewArena(params Params) *Arena {
	return &Arena{params: &params}
}

func (a *Arena) Params() Params {
	return *a.params
}

// SetParams updates the parameters seen by every constraint created by this arena
func (a *Arena) SetParams(params Params) {
	*a.params = params
}

func (a *Arena) Add(c Constraint) {
	a.constraints = append(a.constraints, c)
}

// AddDistance joins two bodies at the given world anchors. The rest length is the
// current distance between the anchors.
func (a *Arena) AddDistance(bodies *actor.Arena, handleA, handleB actor.Handle, anchorA, anchorB mgl64.Vec3) *Distance {
	bodyA, bodyB := bodies.Pair(handleA, handleB)

	d := NewDistance(Config{
		HandleA: handleA,
		HandleB: handleB,
		AnchorA: bodyA.WorldToLocal(anchorA),
		AnchorB: bodyB.WorldToLocal(anchorB),
	}, anchorB.Sub(anchorA).Len(), a.params)
	a.Add(d)

	return d
}

// AddPenetration adds a contact constraint between the world points pointA on A and
// pointB on B, with normal pointing from A toward B.
func (a *Arena) AddPenetration(bodies *actor.Arena, handleA, handleB actor.Handle, pointA, pointB, normal mgl64.Vec3) *Penetration {
	bodyA, bodyB := bodies.Pair(handleA, handleB)

	p := NewPenetration(Config{
		HandleA: handleA,
		HandleB: handleB,
		AnchorA: bodyA.WorldToLocal(pointA),
		AnchorB: bodyB.WorldToLocal(pointB),
		AxisA:   bodyA.Transform.Rotation.Conjugate().Rotate(normal.Normalize()),
	}, a.params)
	a.Add(p)

	return p
}

// Solve runs one step: every PreSolve, then iterations sweeps of Solve, then every PostSolve
func (a *Arena) Solve(bodies *actor.Arena, dt float64, iterations int) {
	for _, c := range a.constraints {
		c.PreSolve(bodies, dt)
	}
	for range iterations {
		for _, c := range a.constraints {
			c.Solve(bodies, dt)
		}
	}
	for _, c := range a.constraints {
		c.PostSolve()
	}
}

// Remove drops c and reports whether it was present
func (a *Arena) Remove(c Constraint) bool {
	i := slices.Index(a.constraints, c)
	if i < 0 {
		return false
	}
	a.constraints = slices.Delete(a.constraints, i, i+1)
	return true
}

// RemoveBody drops every constraint touching h and returns how many were removed
func (a *Arena) RemoveBody(h actor.Handle) int {
	before := len(a.constraints)
	a.constraints = slices.DeleteFunc(a.constraints, func(c Constraint) bool {
		ha, hb := c.Bodies()
		return ha == h || hb == h
	})
	return before - len(a.constraints)
}

func (a *Arena) Len() int {
	return len(a.constraints)
}

// Constraints returns the constraints in solve order
func (a *Arena) Constraints() []Constraint {
	return slices.Clone(a.constraints)
}

func (a *Arena) Clear() {
	clear(a.constraints)
	a.constraints = a.constraints[:0]
}
