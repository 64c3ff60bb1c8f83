package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/linalg"
	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

func vecNear(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}

// Helper function to create a unit sphere at position
func createSphere(position mgl64.Vec3, invMass float64) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: position, Rotation: mgl64.QuatIdent()},
		&actor.Sphere{Radius: 1.0},
		invMass,
	)
}

// Helper function to create a unit cube at position
func createBox(position mgl64.Vec3, invMass float64) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.Transform{Position: position, Rotation: mgl64.QuatIdent()},
		&actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
		invMass,
	)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"contact baumgarte", p.ContactBaumgarte, 0.25},
		{"contact slop", p.ContactSlop, 0.02},
		{"joint baumgarte", p.JointBaumgarte, 0.05},
		{"joint slop", p.JointSlop, 0.01},
		{"warm start limit", p.WarmStartLimit, 1e5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if p.ClampFriction {
		t.Error("friction should be unclamped by default")
	}
}

func TestConfig_Velocities(t *testing.T) {
	a := createSphere(mgl64.Vec3{}, 1)
	b := createSphere(mgl64.Vec3{3, 0, 0}, 1)
	a.Velocity = mgl64.Vec3{1, 2, 3}
	a.AngularVelocity = mgl64.Vec3{4, 5, 6}
	b.Velocity = mgl64.Vec3{7, 8, 9}
	b.AngularVelocity = mgl64.Vec3{10, 11, 12}

	q := Config{}.Velocities(a, b)

	if q.Len() != linalg.DOF {
		t.Fatalf("Len() = %d, want %d", q.Len(), linalg.DOF)
	}
	for i := 0; i < linalg.DOF; i++ {
		if q.At(i) != float64(i+1) {
			t.Errorf("q[%d] = %v, want %v", i, q.At(i), i+1)
		}
	}
}

func TestConfig_InverseMassMatrix(t *testing.T) {
	a := createBox(mgl64.Vec3{}, 0.5)
	b := createBox(mgl64.Vec3{2, 0, 0}, 0)

	m := Config{}.InverseMassMatrix(a, b)

	// unit cube: I = 1/6 per unit mass, so I⁻¹ = 6 · invMass
	diag := []float64{0.5, 0.5, 0.5, 3, 3, 3, 0, 0, 0, 0, 0, 0}
	for i := 0; i < linalg.DOF; i++ {
		for j := 0; j < linalg.DOF; j++ {
			want := 0.0
			if i == j {
				want = diag[i]
			}
			if math.Abs(m.At(i, j)-want) > epsilon {
				t.Errorf("M⁻¹[%d][%d] = %v, want %v", i, j, m.At(i, j), want)
			}
		}
	}
}

func TestConfig_ApplyImpulses(t *testing.T) {
	a := createBox(mgl64.Vec3{}, 1)
	b := createBox(mgl64.Vec3{2, 0, 0}, 0)

	impulses := linalg.NewVecN(linalg.DOF)
	impulses.SetVec3(0, mgl64.Vec3{1, 0, 0})
	impulses.SetVec3(3, mgl64.Vec3{0, 0.1, 0})
	impulses.SetVec3(6, mgl64.Vec3{-1, 0, 0})

	Config{}.ApplyImpulses(a, b, impulses)

	if !vecNear(a.Velocity, mgl64.Vec3{1, 0, 0}, epsilon) {
		t.Errorf("A velocity = %v", a.Velocity)
	}
	if !vecNear(a.AngularVelocity, mgl64.Vec3{0, 0.6, 0}, epsilon) {
		t.Errorf("A angular velocity = %v", a.AngularVelocity)
	}
	if b.Velocity != (mgl64.Vec3{}) {
		t.Errorf("infinite mass body moved: %v", b.Velocity)
	}
}

func TestSolverState_Sanitize(t *testing.T) {
	params := DefaultParams()
	s := newSolverState(Config{}, 3, &params)
	s.cached.Set(0, math.NaN())
	s.cached.Set(1, 1e9)
	s.cached.Set(2, math.Inf(-1))
	s.warmStarted = true

	s.sanitize()

	want := []float64{0, 1e5, 0}
	for i, w := range want {
		if s.cached.At(i) != w {
			t.Errorf("cached[%d] = %v, want %v", i, s.cached.At(i), w)
		}
	}
	if s.warmStarted {
		t.Error("sanitize should re-arm the warm start")
	}
}

func TestNewSolverState_NilParamsUsesDefaults(t *testing.T) {
	s := newSolverState(Config{}, 1, nil)
	if *s.params != DefaultParams() {
		t.Errorf("params = %+v, want defaults", *s.params)
	}
	if s.jacobian.Rows() != 1 || s.jacobian.Cols() != linalg.DOF {
		t.Errorf("jacobian is %dx%d", s.jacobian.Rows(), s.jacobian.Cols())
	}
}
