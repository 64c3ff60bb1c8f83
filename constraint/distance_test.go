package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Two free unit spheres one unit apart, joined at their centres
func setupDistancePair(t *testing.T) (*actor.Arena, *Distance) {
	t.Helper()

	bodies := actor.NewArena()
	ha := bodies.Add(createSphere(mgl64.Vec3{0, 0, 0}, 1))
	hb := bodies.Add(createSphere(mgl64.Vec3{1, 0, 0}, 1))

	arena := NewArena(DefaultParams())
	d := arena.AddDistance(bodies, ha, hb, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})

	return bodies, d
}

func TestDistance_RestLengthMeasuredOnAdd(t *testing.T) {
	_, d := setupDistancePair(t)

	if math.Abs(d.RestLength-1) > epsilon {
		t.Errorf("RestLength = %v, want 1", d.RestLength)
	}
}

func TestDistance_Jacobian(t *testing.T) {
	bodies, d := setupDistancePair(t)
	d.PreSolve(bodies, 0.016)

	j := d.Jacobian()
	want := []float64{-2, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0}
	for i, w := range want {
		if math.Abs(j.At(0, i)-w) > epsilon {
			t.Errorf("J[0][%d] = %v, want %v", i, j.At(0, i), w)
		}
	}
}

func TestDistance_SolveRemovesRelativeVelocity(t *testing.T) {
	bodies, d := setupDistancePair(t)
	a, b := bodies.Pair(d.HandleA, d.HandleB)
	b.Velocity = mgl64.Vec3{-1, 0, 0}

	d.PreSolve(bodies, 0.016)
	d.Solve(bodies, 0.016)

	if rel := b.Velocity.Sub(a.Velocity).X(); math.Abs(rel) > 1e-9 {
		t.Errorf("relative velocity along the joint = %v, want 0", rel)
	}
	if momentum := a.Velocity.Add(b.Velocity); !vecNear(momentum, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("momentum = %v, want {-1 0 0}", momentum)
	}
	if math.Abs(d.CachedImpulse().At(0)-0.25) > 1e-9 {
		t.Errorf("cached impulse = %v, want 0.25", d.CachedImpulse().At(0))
	}
}

func TestDistance_WarmStartAppliedOncePerSolve(t *testing.T) {
	bodies, d := setupDistancePair(t)
	a, b := bodies.Pair(d.HandleA, d.HandleB)
	b.Velocity = mgl64.Vec3{-1, 0, 0}

	d.PreSolve(bodies, 0.016)
	d.Solve(bodies, 0.016)
	d.PostSolve()

	a.Velocity, b.Velocity = mgl64.Vec3{}, mgl64.Vec3{}

	d.PreSolve(bodies, 0.016)
	afterFirst := b.Velocity
	if !vecNear(afterFirst, mgl64.Vec3{0.5, 0, 0}, 1e-9) {
		t.Fatalf("warm start gave %v, want {0.5 0 0}", afterFirst)
	}

	d.PreSolve(bodies, 0.016)
	if b.Velocity != afterFirst {
		t.Errorf("second PreSolve changed velocity: %v -> %v", afterFirst, b.Velocity)
	}

	// Solve re-arms the warm start for the next step
	a.Velocity, b.Velocity = mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0}
	d.Solve(bodies, 0.016)
	d.PostSolve()
	before := b.Velocity
	d.PreSolve(bodies, 0.016)
	if b.Velocity == before {
		t.Error("PreSolve after a solve should warm start again")
	}
}

func TestDistance_BiasPullsAnchorsTogether(t *testing.T) {
	bodies, d := setupDistancePair(t)
	a, b := bodies.Pair(d.HandleA, d.HandleB)
	b.Transform.Position = mgl64.Vec3{1.5, 0, 0}

	d.PreSolve(bodies, 0.016)
	d.Solve(bodies, 0.016)

	if rel := b.Velocity.Sub(a.Velocity).X(); rel >= 0 {
		t.Errorf("stretched joint should close, relative velocity = %v", rel)
	}
	if got := d.JointError(bodies); math.Abs(got-0.5) > epsilon {
		t.Errorf("JointError() = %v, want 0.5", got)
	}
}

func TestDistance_InsideSlopHasNoBias(t *testing.T) {
	bodies, d := setupDistancePair(t)
	_, b := bodies.Pair(d.HandleA, d.HandleB)

	// |r|² - rest² = 0.002, below the 0.01 slop
	b.Transform.Position = mgl64.Vec3{1.001, 0, 0}
	d.PreSolve(bodies, 0.016)

	if d.bias != 0 {
		t.Errorf("bias = %v, want 0", d.bias)
	}
}

func TestDistance_StaticAnchor(t *testing.T) {
	bodies := actor.NewArena()
	ha := bodies.Add(createBox(mgl64.Vec3{0, 5, 0}, 0))
	hb := bodies.Add(createBox(mgl64.Vec3{1, 5, 0}, 1))
	arena := NewArena(DefaultParams())
	arena.AddDistance(bodies, ha, hb, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{1, 5, 0})

	a, b := bodies.Pair(ha, hb)
	b.Velocity = mgl64.Vec3{1, 0, 0}

	arena.Solve(bodies, 0.016, 5)

	if a.Velocity != (mgl64.Vec3{}) || a.AngularVelocity != (mgl64.Vec3{}) {
		t.Error("static anchor received an impulse")
	}
	if math.Abs(b.Velocity.X()) > epsilon {
		t.Errorf("B still separating at %v", b.Velocity.X())
	}
}
