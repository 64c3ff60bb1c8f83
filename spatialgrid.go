package impulse

import (
	"math"
	"slices"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - coordinates of a cell in 3D space
type CellKey struct {
	X, Y, Z int
}

// Cell - indices of the bodies overlapping a cell
type Cell struct {
	bodyIndices []int
}

// Pair - two bodies that may collide during the step, HandleA before HandleB in slot order
type Pair struct {
	HandleA actor.Handle
	HandleB actor.Handle
}

// SpatialGrid - uniform hashed grid used as broadphase
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	// planes and bodies too large for the grid are tested against every body
	planes Cell

	handles []actor.Handle
	aabbs   []actor.AABB
	seen    []bool
}

// ============================================================================
// Constructor
// ============================================================================

// NewSpatialGrid - numCells is rounded up to a power of two
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert - registers the body at bodyIndex in every cell its bounds overlap
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody, aabb actor.AABB) {
	if _, isPlane := body.Shape.(*actor.Plane); isPlane || sg.oversized(aabb) {
		sg.planes.bodyIndices = append(sg.planes.bodyIndices, bodyIndex)
		return
	}

	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				// a body spanning many cells can hash twice into the same one
				indices := sg.cells[cellIdx].bodyIndices
				if n := len(indices); n > 0 && indices[n-1] == bodyIndex {
					continue
				}
				sg.cells[cellIdx].bodyIndices = append(indices, bodyIndex)
			}
		}
	}
}

// oversized reports bounds covering more cells than the grid holds
func (sg *SpatialGrid) oversized(aabb actor.AABB) bool {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)
	span := float64(maxCell.X-minCell.X+1) * float64(maxCell.Y-minCell.Y+1) * float64(maxCell.Z-minCell.Z+1)
	return span > float64(len(sg.cells))
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
	sg.planes.bodyIndices = sg.planes.bodyIndices[:0]
	sg.handles = sg.handles[:0]
	sg.aabbs = sg.aabbs[:0]
}

// FindPairs rebuilds the grid from bodies and returns every candidate pair once,
// ordered by the slot of the first then of the second body. Each body's bounds
// are swept by its velocity over dt. Pairs of two infinite-mass bodies are skipped.
func (sg *SpatialGrid) FindPairs(bodies *actor.Arena, dt float64) []Pair {
	sg.Clear()
	for h, body := range bodies.All() {
		aabb := body.ComputeAABB().Swept(body.Velocity.Mul(dt))

		sg.Insert(len(sg.handles), body, aabb)
		sg.handles = append(sg.handles, h)
		sg.aabbs = append(sg.aabbs, aabb)
	}

	n := len(sg.handles)
	if cap(sg.seen) < n {
		sg.seen = make([]bool, n)
	}
	sg.seen = sg.seen[:n]

	pairs := make([]Pair, 0, n/2)
	candidates := make([]int, 0, 16)

	for bodyIdx := 0; bodyIdx < n; bodyIdx++ {
		clear(sg.seen)
		candidates = candidates[:0]

		add := func(otherIdx int) {
			if otherIdx <= bodyIdx || sg.seen[otherIdx] {
				return
			}
			sg.seen[otherIdx] = true
			candidates = append(candidates, otherIdx)
		}

		if slices.Contains(sg.planes.bodyIndices, bodyIdx) {
			// unbounded: every later body is a candidate
			for otherIdx := bodyIdx + 1; otherIdx < n; otherIdx++ {
				add(otherIdx)
			}
		} else {
			sg.forEachCell(sg.aabbs[bodyIdx], func(cell *Cell) {
				for _, otherIdx := range cell.bodyIndices {
					add(otherIdx)
				}
			})
			for _, otherIdx := range sg.planes.bodyIndices {
				add(otherIdx)
			}
		}

		slices.Sort(candidates)

		bodyA := bodies.Get(sg.handles[bodyIdx])
		for _, otherIdx := range candidates {
			bodyB := bodies.Get(sg.handles[otherIdx])
			if bodyA.HasInfiniteMass() && bodyB.HasInfiniteMass() {
				continue
			}

			_, aIsPlane := bodyA.Shape.(*actor.Plane)
			_, bIsPlane := bodyB.Shape.(*actor.Plane)
			if aIsPlane || bIsPlane || sg.aabbs[bodyIdx].Overlaps(sg.aabbs[otherIdx]) {
				pairs = append(pairs, Pair{HandleA: sg.handles[bodyIdx], HandleB: sg.handles[otherIdx]})
			}
		}
	}

	return pairs
}

func (sg *SpatialGrid) forEachCell(aabb actor.AABB, fn func(cell *Cell)) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(&sg.cells[sg.hashCell(CellKey{x, y, z})])
			}
		}
	}
}

// worldToCell - world position to cell coordinates
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - cell coordinates to an index in the cell array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
