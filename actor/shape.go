package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
)

// ShapeInterface is the interface that all collision shapes must implement.
// Shapes are immutable once built and may be shared between bodies.
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform) AABB
	// ComputeMass calculates the mass for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	// CentreOfMass is expressed in the shape's local frame
	CentreOfMass() mgl64.Vec3
	// BoundingRadius is the largest distance from the centre of mass to the surface
	BoundingRadius() float64
	Support(direction mgl64.Vec3) mgl64.Vec3
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

// Corners returns the 8 corners of the box in local space
func (b *Box) Corners() [8]mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	return [8]mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{-hx, +hy, -hz},
		{+hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{-hx, +hy, +hz},
		{+hx, +hy, +hz},
	}
}

func (b *Box) ComputeAABB(transform Transform) AABB {
	corners := b.Corners()

	// Transform the first corner to seed min/max
	worldCorner := transform.Apply(corners[0])
	min := worldCorner
	max := worldCorner

	for i := 1; i < 8; i++ {
		worldCorner = transform.Apply(corners[i])

		min[0] = math.Min(min[0], worldCorner[0])
		min[1] = math.Min(min[1], worldCorner[1])
		min[2] = math.Min(min[2], worldCorner[2])

		max[0] = math.Max(max[0], worldCorner[0])
		max[1] = math.Max(max[1], worldCorner[1])
		max[2] = math.Max(max[2], worldCorner[2])
	}

	return AABB{Min: min, Max: max}
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (d1² + d2²)
	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return mgl64.Mat3{
		ix, 0, 0,
		0, iy, 0,
		0, 0, iz,
	}
}

func (b *Box) CentreOfMass() mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (b *Box) BoundingRadius() float64 {
	return b.HalfExtents.Len()
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType {
	return ShapeTypeSphere
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	// Sphere AABB is not affected by rotation, only by position
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	// Volume of sphere = (4/3) * π * r³
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

func (s *Sphere) CentreOfMass() mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (s *Sphere) BoundingRadius() float64 {
	return s.Radius
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-16 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

// Plane represents an infinite plane collision shape
// The plane is defined by the equation: Normal · p + Distance = 0
// where Normal is the plane's normal vector (must be normalized)
// and Distance is the signed distance from the origin along the normal.
// Planes are only meaningful on infinite-mass bodies.
type Plane struct {
	Normal   mgl64.Vec3 // Plane normal (must be normalized)
	Distance float64    // Plane constant (signed distance from origin)
}

const (
	planeThickness = 1.0 // detection depth behind the plane
	planeExtent    = 1e10
)

func (p *Plane) Type() ShapeType {
	return ShapeTypePlane
}

// WorldPlane returns the world-space normal and plane constant at transform
func (p *Plane) WorldPlane(transform Transform) (mgl64.Vec3, float64) {
	normal := transform.Rotation.Rotate(p.Normal)
	point := transform.Apply(p.Normal.Mul(-p.Distance))
	return normal, -normal.Dot(point)
}

func (p *Plane) ComputeAABB(transform Transform) AABB {
	normal, distance := p.WorldPlane(transform)

	// Point on the plane closest to the origin
	planePoint := normal.Mul(-distance)

	// Create base bounds with thickness along the normal
	min := planePoint.Sub(normal.Mul(planeThickness))
	max := planePoint
	for i := 0; i < 3; i++ {
		if min[i] > max[i] {
			min[i], max[i] = max[i], min[i]
		}
	}

	// For non-dominant axes, extend to infinity
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) < 1.0-1e-9 {
			min[i] = -planeExtent
			max[i] = planeExtent
		}
	}

	return AABB{Min: min, Max: max}
}

// ComputeMass calculates mass data for the plane
// Planes are always static with infinite mass
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (p *Plane) CentreOfMass() mgl64.Vec3 {
	return mgl64.Vec3{}
}

func (p *Plane) BoundingRadius() float64 {
	return 0
}

// Support treats the plane as a very wide slab lying behind its surface.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	const halfWidth = 1000.0

	u, v := TangentBasis(p.Normal)
	surface := p.Normal.Mul(-p.Distance)

	point := surface.
		Add(u.Mul(math.Copysign(halfWidth, direction.Dot(u)))).
		Add(v.Mul(math.Copysign(halfWidth, direction.Dot(v))))
	if direction.Dot(p.Normal) <= 0 {
		point = point.Sub(p.Normal.Mul(planeThickness))
	}
	return point
}

// TangentBasis returns two unit vectors orthogonal to normal and to each other
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
