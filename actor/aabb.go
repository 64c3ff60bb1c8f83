package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Union returns the smallest box containing both boxes
func (a AABB) Union(other AABB) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(a.Min[i], other.Min[i])
		out.Max[i] = math.Max(a.Max[i], other.Max[i])
	}
	return out
}

// Swept returns the box covering a's motion along displacement
func (a AABB) Swept(displacement mgl64.Vec3) AABB {
	return a.Union(AABB{Min: a.Min.Add(displacement), Max: a.Max.Add(displacement)})
}
