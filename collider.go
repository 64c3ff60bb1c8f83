package impulse

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultAdvancementIterations = 10
	DefaultContactTolerance      = 1e-3

	// corners closer than this to the extreme projection count as one feature
	featureTolerance = 1e-4
)

// Collider is the narrowphase: it predicts whether and when two bodies touch during a step.
//
// Sphere pairs are solved analytically. Every other pair uses conservative
// advancement: the bodies are moved forward by the largest time step that cannot
// make them overlap, given a lower bound of their distance and an upper bound of
// their approach speed, until they are within Tolerance of each other.
type Collider struct {
	MaxIterations int
	Tolerance     float64
}

func NewCollider() *Collider {
	return &Collider{
		MaxIterations: DefaultAdvancementIterations,
		Tolerance:     DefaultContactTolerance,
	}
}

// Intersect returns the first contact between a and b within dt, if any.
// Both bodies are left untouched; the contact points are taken at the impact pose.
func (c *Collider) Intersect(ha actor.Handle, a *actor.RigidBody, hb actor.Handle, b *actor.RigidBody, dt float64) (Contact, bool) {
	sphereA, aIsSphere := a.Shape.(*actor.Sphere)
	sphereB, bIsSphere := b.Shape.(*actor.Sphere)
	if aIsSphere && bIsSphere {
		return c.intersectSpheres(ha, a, sphereA, hb, b, sphereB, dt)
	}

	return c.advance(ha, a, hb, b, dt)
}

func (c *Collider) intersectSpheres(ha actor.Handle, a *actor.RigidBody, sa *actor.Sphere, hb actor.Handle, b *actor.RigidBody, sb *actor.Sphere, dt float64) (Contact, bool) {
	// Ray from A's centre along the relative displacement, against B inflated by A's radius
	start := a.CentreOfMassWorld()
	centre := b.CentreOfMassWorld()
	displacement := a.Velocity.Sub(b.Velocity).Mul(dt)
	radius := sa.Radius + sb.Radius

	toi, hit := raySphere(start, displacement, centre, radius)
	if !hit {
		return Contact{}, false
	}
	toi *= dt

	ta, tb := a.Predict(toi), b.Predict(toi)
	return newContact(ha, a, ta, hb, b, tb, sphereSphere(ta, sa, tb, sb), toi), true
}

// raySphere returns the fraction t in [0, 1] at which start + t·d enters the sphere.
// A start inside the sphere hits at t = 0.
func raySphere(start, d, centre mgl64.Vec3, radius float64) (float64, bool) {
	m := start.Sub(centre)
	c := m.Dot(m) - radius*radius
	if c <= 0 {
		return 0, true
	}

	a := d.Dot(d)
	if a < 1e-12 {
		return 0, false
	}
	b := 2 * m.Dot(d)
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}

	t := (-b - math.Sqrt(discriminant)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

func (c *Collider) advance(ha actor.Handle, a *actor.RigidBody, hb actor.Handle, b *actor.RigidBody, dt float64) (Contact, bool) {
	maxIterations := c.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultAdvancementIterations
	}

	spin := a.AngularVelocity.Len()*a.Shape.BoundingRadius() + b.AngularVelocity.Len()*b.Shape.BoundingRadius()

	t := 0.0
	for range maxIterations {
		ta, tb := a.Predict(t), b.Predict(t)
		m, ok := separate(a.Shape, ta, b.Shape, tb)
		if !ok {
			return Contact{}, false
		}

		if m.separation < c.Tolerance {
			return newContact(ha, a, ta, hb, b, tb, m, t), true
		}

		approach := a.Velocity.Sub(b.Velocity).Dot(m.normal) + spin
		if approach <= 1e-9 {
			return Contact{}, false
		}

		t += m.separation / approach
		if t > dt {
			return Contact{}, false
		}
	}

	return Contact{}, false
}

func newContact(ha actor.Handle, a *actor.RigidBody, ta actor.Transform, hb actor.Handle, b *actor.RigidBody, tb actor.Transform, m manifold, toi float64) Contact {
	return Contact{
		HandleA:            ha,
		HandleB:            hb,
		LocalPointA:        bodyPoint(a, ta, m.pointA),
		LocalPointB:        bodyPoint(b, tb, m.pointB),
		Normal:             m.normal,
		SeparationDistance: m.separation,
		TimeOfImpact:       toi,
	}
}

// bodyPoint maps a world point into the body space of body placed at transform
func bodyPoint(body *actor.RigidBody, transform actor.Transform, point mgl64.Vec3) mgl64.Vec3 {
	return transform.ApplyInverse(point).Sub(body.Shape.CentreOfMass())
}

// ============================================================================
// Separation queries
// ============================================================================

// manifold describes the closest features of two shapes. The normal points from
// the first shape toward the second, and pointB - pointA = normal * separation.
type manifold struct {
	normal     mgl64.Vec3
	separation float64
	pointA     mgl64.Vec3
	pointB     mgl64.Vec3
}

func (m manifold) flip() manifold {
	return manifold{
		normal:     m.normal.Mul(-1),
		separation: m.separation,
		pointA:     m.pointB,
		pointB:     m.pointA,
	}
}

// separate returns a lower bound of the distance between two posed shapes,
// negative when they overlap. It reports false for unsupported shape pairs.
func separate(sa actor.ShapeInterface, ta actor.Transform, sb actor.ShapeInterface, tb actor.Transform) (manifold, bool) {
	switch a := sa.(type) {
	case *actor.Sphere:
		switch b := sb.(type) {
		case *actor.Sphere:
			return sphereSphere(ta, a, tb, b), true
		case *actor.Box:
			return sphereBox(ta, a, tb, b), true
		case *actor.Plane:
			return planeSphere(tb, b, ta, a).flip(), true
		}
	case *actor.Box:
		switch b := sb.(type) {
		case *actor.Sphere:
			return sphereBox(tb, b, ta, a).flip(), true
		case *actor.Box:
			return boxBox(ta, a, tb, b), true
		case *actor.Plane:
			return planeBox(tb, b, ta, a).flip(), true
		}
	case *actor.Plane:
		switch b := sb.(type) {
		case *actor.Sphere:
			return planeSphere(ta, a, tb, b), true
		case *actor.Box:
			return planeBox(ta, a, tb, b), true
		}
	}

	return manifold{}, false
}

func sphereSphere(ta actor.Transform, a *actor.Sphere, tb actor.Transform, b *actor.Sphere) manifold {
	centreA := ta.Position
	centreB := tb.Position

	ab := centreB.Sub(centreA)
	distance := ab.Len()
	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-12 {
		normal = ab.Mul(1 / distance)
	}

	return manifold{
		normal:     normal,
		separation: distance - a.Radius - b.Radius,
		pointA:     centreA.Add(normal.Mul(a.Radius)),
		pointB:     centreB.Sub(normal.Mul(b.Radius)),
	}
}

func planeSphere(ta actor.Transform, a *actor.Plane, tb actor.Transform, b *actor.Sphere) manifold {
	normal, d := a.WorldPlane(ta)
	centre := tb.Position
	height := normal.Dot(centre) + d

	return manifold{
		normal:     normal,
		separation: height - b.Radius,
		pointA:     centre.Sub(normal.Mul(height)),
		pointB:     centre.Sub(normal.Mul(b.Radius)),
	}
}

func planeBox(ta actor.Transform, a *actor.Plane, tb actor.Transform, b *actor.Box) manifold {
	normal, d := a.WorldPlane(ta)
	corners := worldCorners(tb, b)

	lowest := math.Inf(1)
	for _, corner := range corners {
		lowest = math.Min(lowest, normal.Dot(corner)+d)
	}

	// average the deepest corners so a resting face yields its centre
	feature, _ := extremeFeature(corners[:], normal.Mul(-1), -lowest+d)
	pointB := feature.Add(normal.Mul(lowest - (normal.Dot(feature) + d)))

	return manifold{
		normal:     normal,
		separation: lowest,
		pointA:     pointB.Sub(normal.Mul(lowest)),
		pointB:     pointB,
	}
}

func sphereBox(ta actor.Transform, a *actor.Sphere, tb actor.Transform, b *actor.Box) manifold {
	centre := ta.Position
	local := tb.ApplyInverse(centre)
	h := b.HalfExtents

	closest := mgl64.Vec3{
		mgl64.Clamp(local.X(), -h.X(), h.X()),
		mgl64.Clamp(local.Y(), -h.Y(), h.Y()),
		mgl64.Clamp(local.Z(), -h.Z(), h.Z()),
	}

	var toSphere mgl64.Vec3 // box toward sphere, world space
	var separation float64

	if offset := local.Sub(closest); offset.Len() > 1e-12 {
		toSphere = tb.Rotation.Rotate(offset.Normalize())
		separation = offset.Len() - a.Radius
	} else {
		// centre inside the box: leave through the nearest face
		axis, depth := 0, math.Inf(1)
		for i := 0; i < 3; i++ {
			if d := h[i] - math.Abs(local[i]); d < depth {
				axis, depth = i, d
			}
		}
		var face mgl64.Vec3
		face[axis] = math.Copysign(1, local[axis])
		closest[axis] = face[axis] * h[axis]

		toSphere = tb.Rotation.Rotate(face)
		separation = -depth - a.Radius
	}

	pointB := tb.Apply(closest)

	return manifold{
		normal:     toSphere.Mul(-1),
		separation: separation,
		pointA:     centre.Sub(toSphere.Mul(a.Radius)),
		pointB:     pointB,
	}
}

// boxBox runs the separating axis test over the 3 face axes of each box and
// the 9 edge cross products, keeping the axis of largest separation.
func boxBox(ta actor.Transform, a *actor.Box, tb actor.Transform, b *actor.Box) manifold {
	cornersA := worldCorners(ta, a)
	cornersB := worldCorners(tb, b)

	var axesA, axesB [3]mgl64.Vec3
	for i := 0; i < 3; i++ {
		var e mgl64.Vec3
		e[i] = 1
		axesA[i] = ta.Rotation.Rotate(e)
		axesB[i] = tb.Rotation.Rotate(e)
	}

	axes := make([]mgl64.Vec3, 0, 15)
	axes = append(axes, axesA[:]...)
	axes = append(axes, axesB[:]...)
	faceAxes := len(axes)
	for _, u := range axesA {
		for _, v := range axesB {
			if cross := u.Cross(v); cross.Len() > 1e-6 {
				axes = append(axes, cross.Normalize())
			}
		}
	}

	centreDelta := tb.Position.Sub(ta.Position)

	best := manifold{separation: math.Inf(-1)}
	var bestMaxA, bestMinB float64
	for i, axis := range axes {
		if axis.Dot(centreDelta) < 0 {
			axis = axis.Mul(-1)
		}
		_, maxA := project(cornersA[:], axis)
		minB, _ := project(cornersB[:], axis)
		separation := minB - maxA

		// edge axes must do clearly better than a face axis
		if i >= faceAxes && separation <= best.separation+1e-6 {
			continue
		}
		if separation > best.separation {
			best = manifold{normal: axis, separation: separation}
			bestMaxA, bestMinB = maxA, minB
		}
	}

	featureA, spreadA := extremeFeature(cornersA[:], best.normal, bestMaxA)
	featureB, spreadB := extremeFeature(cornersB[:], best.normal.Mul(-1), -bestMinB)

	// the smaller feature lies inside the contact patch
	centre := featureA
	if spreadB < spreadA {
		centre = featureB
	}

	best.pointA = centre.Add(best.normal.Mul(bestMaxA - centre.Dot(best.normal)))
	best.pointB = centre.Add(best.normal.Mul(bestMinB - centre.Dot(best.normal)))

	return best
}

func worldCorners(t actor.Transform, b *actor.Box) [8]mgl64.Vec3 {
	corners := b.Corners()
	for i := range corners {
		corners[i] = t.Apply(corners[i])
	}
	return corners
}

func project(points []mgl64.Vec3, axis mgl64.Vec3) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// extremeFeature averages the points whose projection on direction is within
// featureTolerance of extreme, and returns that average with the feature's radius.
func extremeFeature(points []mgl64.Vec3, direction mgl64.Vec3, extreme float64) (mgl64.Vec3, float64) {
	var sum mgl64.Vec3
	var selected []mgl64.Vec3
	for _, p := range points {
		if p.Dot(direction) >= extreme-featureTolerance {
			sum = sum.Add(p)
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return mgl64.Vec3{}, math.Inf(1)
	}

	average := sum.Mul(1 / float64(len(selected)))
	spread := 0.0
	for _, p := range selected {
		spread = math.Max(spread, p.Sub(average).Len())
	}
	return average, spread
}
