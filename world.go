// Package impulse advances rigid bodies through time with an impulse-based solver.
//
// Each World.Step applies gravity, finds the contacts of the step and sorts them by
// time of impact, solves the joint constraints once, then integrates the bodies from
// one contact to the next, resolving each contact as it is reached.
package impulse

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type World struct {
	Bodies      *actor.Arena
	Constraints *constraint.Arena
	Settings    *Settings
	SpatialGrid *SpatialGrid
	Collider    *Collider
	Events      Events

	// Logger receives a debug record per step; nil discards
	Logger *slog.Logger

	stepCount uint64
	contacts  []Contact
}

// NewWorld creates an empty world; nil settings means DefaultSettings
func NewWorld(settings *Settings) *World {
	if settings == nil {
		settings = DefaultSettings()
	}

	return &World{
		Bodies:      actor.NewArena(),
		Constraints: constraint.NewArena(settings.ConstraintParams()),
		Settings:    settings,
		SpatialGrid: NewSpatialGrid(settings.GridCellSize, settings.GridCells),
		Collider:    NewCollider(),
		Events:      NewEvents(),
	}
}

// AddBody adds a rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) actor.Handle {
	if body.MaxAngularSpeed <= 0 {
		body.MaxAngularSpeed = w.Settings.MaxAngularSpeed
	}
	return w.Bodies.Add(body)
}

// RemoveBody removes a rigid body, the joints attached to it and its pending events
func (w *World) RemoveBody(h actor.Handle) bool {
	if !w.Bodies.Remove(h) {
		return false
	}

	w.Constraints.RemoveBody(h)
	w.Events.forget(h)

	return true
}

// AddJoint links two bodies at world anchors, keeping their current distance
func (w *World) AddJoint(ha, hb actor.Handle, anchorA, anchorB mgl64.Vec3) *constraint.Distance {
	return w.Constraints.AddDistance(w.Bodies, ha, hb, anchorA, anchorB)
}

func (w *World) StepCount() uint64 {
	return w.stepCount
}

// Contacts returns the contacts resolved during the last step, in time order
func (w *World) Contacts() []Contact {
	return slices.Clone(w.contacts)
}

func (w *World) Step(dt float64) {
	w.stepCount++
	w.Constraints.SetParams(w.Settings.ConstraintParams())

	// Phase 1: gravity, as an impulse
	w.applyGravity(dt)

	// Phase 2.0: Collision pair finding - Broad phase
	pairs := w.SpatialGrid.FindPairs(w.Bodies, dt)

	// Phase 2.1: Collision pair finding - narrow phase
	w.contacts = w.detectCollision(pairs, dt)

	// Phase 3: joints, once for the whole step
	w.Constraints.Solve(w.Bodies, dt, w.Settings.SolverIterations)

	// Phase 4: integrate from contact to contact
	elapsed := 0.0
	for _, c := range w.contacts {
		w.update(c.TimeOfImpact - elapsed)
		ResolveContact(w.Bodies, c)
		elapsed = c.TimeOfImpact
	}
	if remaining := dt - elapsed; remaining > 0 {
		w.update(remaining)
	}

	w.Events.recordContacts(w.contacts)
	w.Events.flush()

	w.logger().Debug("step",
		"step", w.stepCount,
		"dt", dt,
		"bodies", w.Bodies.Len(),
		"pairs", len(pairs),
		"contacts", len(w.contacts),
		"constraints", w.Constraints.Len(),
	)
}

func (w *World) applyGravity(dt float64) {
	for _, body := range w.Bodies.All() {
		if !body.HasInfiniteMass() {
			body.ApplyImpulseLinear(w.Settings.Gravity.Mul(body.Mass() * dt))
		}
	}
}

// detectCollision returns the contacts of the step sorted by time of impact.
// Contacts found at the same time keep the broadphase order.
func (w *World) detectCollision(pairs []Pair, dt float64) []Contact {
	contacts := w.contacts[:0]
	for _, pair := range pairs {
		bodyA, bodyB := w.Bodies.Pair(pair.HandleA, pair.HandleB)
		if bodyA.HasInfiniteMass() && bodyB.HasInfiniteMass() {
			continue
		}

		if contact, ok := w.Collider.Intersect(pair.HandleA, bodyA, pair.HandleB, bodyB, dt); ok {
			contacts = append(contacts, contact)
		}
	}

	slices.SortStableFunc(contacts, func(a, b Contact) int {
		switch {
		case a.TimeOfImpact < b.TimeOfImpact:
			return -1
		case a.TimeOfImpact > b.TimeOfImpact:
			return 1
		}
		return 0
	})

	return contacts
}

func (w *World) update(h float64) {
	if h <= 0 {
		return
	}
	for _, body := range w.Bodies.All() {
		body.Update(h)
	}
}

// Validate reports the first body whose state is no longer finite
func (w *World) Validate() error {
	for h, body := range w.Bodies.All() {
		if !finiteBody(body) {
			return &SimulationError{
				Step:    w.stepCount,
				Handle:  h,
				Wrapped: fmt.Errorf("%w: position %v, velocity %v", ErrNonFiniteState, body.Transform.Position, body.Velocity),
			}
		}
	}
	return nil
}

func finiteBody(body *actor.RigidBody) bool {
	q := body.Transform.Rotation
	values := []float64{q.W, q.V.X(), q.V.Y(), q.V.Z()}
	values = append(values, body.Transform.Position[:]...)
	values = append(values, body.Velocity[:]...)
	values = append(values, body.AngularVelocity[:]...)

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (w *World) logger() *slog.Logger {
	if w.Logger == nil {
		return discardLogger
	}
	return w.Logger
}

var discardLogger = slog.New(slog.DiscardHandler)
