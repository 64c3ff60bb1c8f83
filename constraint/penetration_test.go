package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Two unit spheres overlapping by 0.1 along x, A at the origin
func setupOverlap(t *testing.T, params Params) (*actor.Arena, *Arena, *Penetration) {
	t.Helper()

	bodies := actor.NewArena()
	ha := bodies.Add(createSphere(mgl64.Vec3{0, 0, 0}, 1))
	hb := bodies.Add(createSphere(mgl64.Vec3{1.9, 0, 0}, 1))

	arena := NewArena(params)
	p := arena.AddPenetration(bodies, ha, hb,
		mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{0.9, 0, 0},
		mgl64.Vec3{1, 0, 0},
	)

	return bodies, arena, p
}

// contactVelocity returns the velocity of B's contact point relative to A's
func contactVelocity(bodies *actor.Arena, p *Penetration) mgl64.Vec3 {
	a, b := bodies.Pair(p.HandleA, p.HandleB)
	pa := a.LocalToWorld(p.AnchorA)
	pb := b.LocalToWorld(p.AnchorB)
	va := a.Velocity.Add(a.AngularVelocity.Cross(pa.Sub(a.CentreOfMassWorld())))
	vb := b.Velocity.Add(b.AngularVelocity.Cross(pb.Sub(b.CentreOfMassWorld())))
	return vb.Sub(va)
}

func TestPenetration_BiasSeparatesBodies(t *testing.T) {
	bodies, _, p := setupOverlap(t, DefaultParams())

	p.PreSolve(bodies, 0.1)
	p.Solve(bodies, 0.1)

	// bias = 0.25 * (-0.1 + 0.02) / 0.1 = -0.2
	a, b := bodies.Pair(p.HandleA, p.HandleB)
	if !vecNear(a.Velocity, mgl64.Vec3{-0.1, 0, 0}, 1e-9) {
		t.Errorf("A velocity = %v, want {-0.1 0 0}", a.Velocity)
	}
	if !vecNear(b.Velocity, mgl64.Vec3{0.1, 0, 0}, 1e-9) {
		t.Errorf("B velocity = %v, want {0.1 0 0}", b.Velocity)
	}
}

func TestPenetration_NoBiasWithinSlop(t *testing.T) {
	bodies := actor.NewArena()
	ha := bodies.Add(createSphere(mgl64.Vec3{0, 0, 0}, 1))
	hb := bodies.Add(createSphere(mgl64.Vec3{1.99, 0, 0}, 1))
	arena := NewArena(DefaultParams())
	p := arena.AddPenetration(bodies, ha, hb, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0.99, 0, 0}, mgl64.Vec3{1, 0, 0})

	p.PreSolve(bodies, 0.016)
	if p.bias != 0 {
		t.Errorf("bias = %v, want 0 for a 0.01 overlap", p.bias)
	}
}

func TestPenetration_NeverPulls(t *testing.T) {
	bodies, _, p := setupOverlap(t, DefaultParams())
	a, b := bodies.Pair(p.HandleA, p.HandleB)

	b.Velocity = mgl64.Vec3{-1, 0, 0}
	p.PreSolve(bodies, 0.1)
	p.Solve(bodies, 0.1)
	if got := p.CachedImpulse().At(0); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("normal impulse = %v, want 0.6", got)
	}

	// separating fast: the solver may only take back what it pushed
	a.Velocity, b.Velocity = mgl64.Vec3{}, mgl64.Vec3{5, 0, 0}
	p.Solve(bodies, 0.1)

	if got := p.CachedImpulse().At(0); got < 0 || got > 1e-9 {
		t.Errorf("normal impulse = %v, want 0", got)
	}
	if !vecNear(b.Velocity, mgl64.Vec3{4.4, 0, 0}, 1e-9) {
		t.Errorf("B velocity = %v, want {4.4 0 0}", b.Velocity)
	}
}

func TestPenetration_NormalFollowsBodyA(t *testing.T) {
	bodies, _, p := setupOverlap(t, DefaultParams())
	a := bodies.Get(p.HandleA)
	a.Transform.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	p.PreSolve(bodies, 0.016)

	if normal := p.Jacobian().RowVec3(0, 6); !vecNear(normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("world normal = %v, want {0 1 0}", normal)
	}
}

func TestPenetration_Friction(t *testing.T) {
	tests := []struct {
		name           string
		friction       float64
		clamp          bool
		wantTangential float64
	}{
		{name: "frictionless keeps sliding", friction: 0, wantTangential: 1},
		{name: "unclamped friction stops sliding", friction: 0.5, wantTangential: 0},
		{name: "clamped friction limited by the cone", friction: 0.5, clamp: true, wantTangential: 0.825},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.ClampFriction = tt.clamp
			bodies, arena, p := setupOverlap(t, params)

			a, b := bodies.Pair(p.HandleA, p.HandleB)
			a.Friction, b.Friction = tt.friction, tt.friction
			b.Velocity = mgl64.Vec3{0, 1, 0}

			arena.Solve(bodies, 0.1, 5)

			rel := contactVelocity(bodies, p)
			tangential := math.Hypot(rel.Y(), rel.Z())
			if math.Abs(tangential-tt.wantTangential) > 1e-6 {
				t.Errorf("tangential speed = %v, want %v", tangential, tt.wantTangential)
			}
			if math.Abs(rel.X()-0.2) > 1e-6 {
				t.Errorf("separating speed = %v, want 0.2", rel.X())
			}

			if tt.clamp {
				cached := p.CachedImpulse()
				limit := p.Friction()*cached.At(0) + 1e-12
				if math.Abs(cached.At(1)) > limit || math.Abs(cached.At(2)) > limit {
					t.Errorf("friction impulse %v outside cone %v", cached, limit)
				}
			}
		})
	}
}
