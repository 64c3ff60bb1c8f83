// Package linalg provides the small fixed-dimension vectors and matrices used by the
// constraint solver, and a projected Gauss-Seidel solver for the resulting systems.
//
// A constraint couples two bodies, each with 3 linear and 3 angular velocity degrees
// of freedom, so Jacobians are always rows × DOF. The dimensions of a VecN or MatMN
// are fixed when it is created; operations on mismatched dimensions panic.
package linalg

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// DOF is the number of generalized velocity components of a body pair:
// [vA, ωA, vB, ωB].
const DOF = 12

// VecN is a column vector whose size is set at construction.
type VecN struct {
	vec *mgl64.VecN
}

// NewVecN returns the zero vector of size n.
func NewVecN(n int) *VecN {
	return &VecN{vec: mgl64.NewVecNFromData(make([]float64, n))}
}

// NewVecNFromData copies data into a new vector.
func NewVecNFromData(data []float64) *VecN {
	return &VecN{vec: mgl64.NewVecNFromData(data)}
}

func (v *VecN) Len() int {
	return len(v.vec.Raw())
}

func (v *VecN) At(i int) float64 {
	return v.vec.Raw()[i]
}

func (v *VecN) Set(i int, x float64) {
	v.vec.Raw()[i] = x
}

// Raw exposes the backing slice.
func (v *VecN) Raw() []float64 {
	return v.vec.Raw()
}

// Zero resets every component to 0, keeping the dimension.
func (v *VecN) Zero() {
	clear(v.vec.Raw())
}

// Vec3 reads the three components starting at i.
func (v *VecN) Vec3(i int) mgl64.Vec3 {
	raw := v.vec.Raw()
	return mgl64.Vec3{raw[i], raw[i+1], raw[i+2]}
}

// SetVec3 writes the three components starting at i.
func (v *VecN) SetVec3(i int, x mgl64.Vec3) {
	raw := v.vec.Raw()
	raw[i], raw[i+1], raw[i+2] = x[0], x[1], x[2]
}

// Add returns v + o as a new vector.
func (v *VecN) Add(o *VecN) *VecN {
	mustMatch("VecN.Add", v.Len(), o.Len())
	out := NewVecN(v.Len())
	for i, x := range v.Raw() {
		out.Raw()[i] = x + o.At(i)
	}
	return out
}

// Sub returns v - o as a new vector.
func (v *VecN) Sub(o *VecN) *VecN {
	mustMatch("VecN.Sub", v.Len(), o.Len())
	out := NewVecN(v.Len())
	for i, x := range v.Raw() {
		out.Raw()[i] = x - o.At(i)
	}
	return out
}

// Scale returns v * s as a new vector.
func (v *VecN) Scale(s float64) *VecN {
	out := NewVecN(v.Len())
	for i, x := range v.Raw() {
		out.Raw()[i] = x * s
	}
	return out
}

func (v *VecN) Dot(o *VecN) float64 {
	mustMatch("VecN.Dot", v.Len(), o.Len())
	var sum float64
	for i, x := range v.Raw() {
		sum += x * o.At(i)
	}
	return sum
}

// Clone returns an independent copy.
func (v *VecN) Clone() *VecN {
	return NewVecNFromData(v.Raw())
}

// CopyFrom overwrites v with o.
func (v *VecN) CopyFrom(o *VecN) {
	mustMatch("VecN.CopyFrom", v.Len(), o.Len())
	copy(v.Raw(), o.Raw())
}

func (v *VecN) String() string {
	return fmt.Sprint(v.Raw())
}

// MatMN is a rows × cols matrix whose dimensions are set at construction.
type MatMN struct {
	mat *mgl64.MatMxN
}

// NewMatMN returns the zero matrix with the given dimensions.
func NewMatMN(rows, cols int) *MatMN {
	return &MatMN{mat: mgl64.NewMatrixFromData(make([]float64, rows*cols), rows, cols)}
}

// NewJacobian returns a zero rows × DOF matrix.
func NewJacobian(rows int) *MatMN {
	return NewMatMN(rows, DOF)
}

// NewMatN returns the zero n × n matrix.
func NewMatN(n int) *MatMN {
	return NewMatMN(n, n)
}

func (m *MatMN) Rows() int {
	return m.mat.NumRows()
}

func (m *MatMN) Cols() int {
	return m.mat.NumCols()
}

func (m *MatMN) At(row, col int) float64 {
	return m.mat.At(row, col)
}

func (m *MatMN) Set(row, col int, x float64) {
	m.mat.Set(row, col, x)
}

// Zero resets every entry to 0, keeping the dimensions.
func (m *MatMN) Zero() {
	clear(m.mat.Raw())
}

// SetVec3 writes x into row, columns col..col+2.
func (m *MatMN) SetVec3(row, col int, x mgl64.Vec3) {
	m.Set(row, col, x.X())
	m.Set(row, col+1, x.Y())
	m.Set(row, col+2, x.Z())
}

// RowVec3 reads row, columns col..col+2.
func (m *MatMN) RowVec3(row, col int) mgl64.Vec3 {
	return mgl64.Vec3{m.At(row, col), m.At(row, col+1), m.At(row, col+2)}
}

// SetBlock3 writes the 3×3 block b with its top-left corner at (row, col).
func (m *MatMN) SetBlock3(row, col int, b mgl64.Mat3) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Set(row+r, col+c, b.At(r, c))
		}
	}
}

// Transpose returns a new cols × rows matrix.
func (m *MatMN) Transpose() *MatMN {
	return &MatMN{mat: m.mat.Transpose(nil)}
}

// Mul returns the matrix product m·o.
func (m *MatMN) Mul(o *MatMN) *MatMN {
	mustMatch("MatMN.Mul", m.Cols(), o.Rows())
	return &MatMN{mat: m.mat.MulMxN(nil, o.mat)}
}

// MulVec returns the matrix-vector product m·v.
func (m *MatMN) MulVec(v *VecN) *VecN {
	mustMatch("MatMN.MulVec", m.Cols(), v.Len())
	return &VecN{vec: m.mat.MulNx1(nil, v.vec)}
}

// Clone returns an independent copy.
func (m *MatMN) Clone() *MatMN {
	out := NewMatMN(m.Rows(), m.Cols())
	copy(out.mat.Raw(), m.mat.Raw())
	return out
}

func mustMatch(op string, a, b int) {
	if a != b {
		panic(fmt.Sprintf("linalg: %s dimension mismatch (%d != %d)", op, a, b))
	}
}
