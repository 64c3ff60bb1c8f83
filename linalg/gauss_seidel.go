package linalg

import "math"

// DefaultIterations is the number of sweeps used when none is given.
const DefaultIterations = 5

// pivotEpsilon is the smallest diagonal entry a row may have to be relaxed.
const pivotEpsilon = 1e-10

// GaussSeidel approximately solves A·x = b by successive relaxation.
//
// Each sweep updates every row in order using the most recent values of the other
// unknowns. There is no convergence test: exactly iterations sweeps are run.
// Rows with a vanishing diagonal (an unused constraint row) are left at zero.
func GaussSeidel(a *MatMN, b *VecN, iterations int) *VecN {
	return GaussSeidelBounded(a, b, iterations, nil, nil)
}

// GaussSeidelBounded is GaussSeidel with each unknown projected onto [lo[i], hi[i]]
// after its update. A nil bound slice leaves that side unbounded.
func GaussSeidelBounded(a *MatMN, b *VecN, iterations int, lo, hi []float64) *VecN {
	n := b.Len()
	mustMatch("GaussSeidel rows", a.Rows(), n)
	mustMatch("GaussSeidel cols", a.Cols(), n)

	x := NewVecN(n)
	xs := x.Raw()

	for range iterations {
		for i := 0; i < n; i++ {
			diag := a.At(i, i)
			if math.Abs(diag) < pivotEpsilon {
				continue
			}

			residual := b.At(i)
			for j := 0; j < n; j++ {
				residual -= a.At(i, j) * xs[j]
			}

			dx := residual / diag
			if math.IsNaN(dx) || math.IsInf(dx, 0) {
				continue
			}
			xs[i] = clampRow(xs[i]+dx, i, lo, hi)
		}
	}

	return x
}

func clampRow(x float64, i int, lo, hi []float64) float64 {
	if lo != nil && x < lo[i] {
		x = lo[i]
	}
	if hi != nil && x > hi[i] {
		x = hi[i]
	}
	return x
}
