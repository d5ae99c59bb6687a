package utils

import (
	"fmt"
	"math"
)

// Non-negative least squares, Lawson–Hanson active-set method.
//
// Solves min ‖A·x − b‖² subject to x ≥ 0, where A is m×n (m constraint rows,
// n variables). The meal-rebalancing use case has m ≤ 3 macro rows and a
// handful of ingredient columns, so the dense normal-equation subproblems are
// cheap.

const (
	nnlsTolerance = 1e-10
	nnlsMaxOuter  = 300
)

// NNLS returns the non-negative x minimizing ‖A·x − b‖². A is indexed
// [row][col]: len(b) constraint rows, one column per variable.
func NNLS(a [][]float64, b []float64) ([]float64, error) {
	m := len(a)
	if m == 0 {
		return nil, fmt.Errorf("nnls: empty constraint matrix")
	}
	if m != len(b) {
		return nil, fmt.Errorf("nnls: %d rows but %d targets", m, len(b))
	}
	n := len(a[0])
	for i := range a {
		if len(a[i]) != n {
			return nil, fmt.Errorf("nnls: ragged matrix row %d", i)
		}
	}

	x := make([]float64, n)
	passive := make([]bool, n)

	residual := func(x []float64) []float64 {
		r := make([]float64, m)
		for i := 0; i < m; i++ {
			r[i] = b[i]
			for j := 0; j < n; j++ {
				r[i] -= a[i][j] * x[j]
			}
		}
		return r
	}

	// gradient w = Aᵀ·(b − A·x)
	gradient := func(x []float64) []float64 {
		r := residual(x)
		w := make([]float64, n)
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				w[j] += a[i][j] * r[i]
			}
		}
		return w
	}

	for outer := 0; outer < nnlsMaxOuter; outer++ {
		w := gradient(x)

		// Most violated variable among the active (zero-held) set.
		best, bestVal := -1, nnlsTolerance
		for j := 0; j < n; j++ {
			if !passive[j] && w[j] > bestVal {
				best, bestVal = j, w[j]
			}
		}
		if best < 0 {
			return x, nil // KKT conditions met
		}
		passive[best] = true

		for inner := 0; inner < nnlsMaxOuter; inner++ {
			z, err := lsqPassive(a, b, passive)
			if err != nil {
				// Singular subproblem: drop the variable just admitted and
				// accept the current iterate.
				passive[best] = false
				return x, nil
			}

			// All passive components strictly positive: take the step.
			feasible := true
			for j := 0; j < n; j++ {
				if passive[j] && z[j] <= nnlsTolerance {
					feasible = false
					break
				}
			}
			if feasible {
				for j := 0; j < n; j++ {
					if passive[j] {
						x[j] = z[j]
					} else {
						x[j] = 0
					}
				}
				break
			}

			// Interpolate back to the feasible boundary and deactivate the
			// variables that hit zero.
			alpha := math.Inf(1)
			for j := 0; j < n; j++ {
				if passive[j] && z[j] <= nnlsTolerance {
					if step := x[j] / (x[j] - z[j]); step < alpha {
						alpha = step
					}
				}
			}
			if math.IsInf(alpha, 1) {
				alpha = 0
			}
			for j := 0; j < n; j++ {
				if passive[j] {
					x[j] += alpha * (z[j] - x[j])
					if x[j] <= nnlsTolerance {
						x[j] = 0
						passive[j] = false
					}
				}
			}
		}
	}
	return x, nil
}

// NNLSBounded runs NNLS and then enforces per-variable upper bounds by fixing
// any variable that exceeds its bound and re-solving the remainder against the
// reduced target. A bound <= 0 means unbounded. Keeps a garnish from being
// solved into the entire dish.
func NNLSBounded(a [][]float64, b []float64, upper []float64) ([]float64, error) {
	m := len(a)
	if m == 0 {
		return nil, fmt.Errorf("nnls: empty constraint matrix")
	}
	n := len(a[0])
	if upper != nil && len(upper) != n {
		return nil, fmt.Errorf("nnls: %d bounds for %d variables", len(upper), n)
	}

	fixed := make([]float64, n) // value for columns pinned at their bound
	pinned := make([]bool, n)

	for pass := 0; pass <= n; pass++ {
		// Reduced problem over the unpinned columns.
		cols := make([]int, 0, n)
		for j := 0; j < n; j++ {
			if !pinned[j] {
				cols = append(cols, j)
			}
		}

		reducedA := make([][]float64, m)
		reducedB := make([]float64, m)
		for i := 0; i < m; i++ {
			reducedA[i] = make([]float64, len(cols))
			reducedB[i] = b[i]
			for k, j := range cols {
				reducedA[i][k] = a[i][j]
			}
			for j := 0; j < n; j++ {
				if pinned[j] {
					reducedB[i] -= a[i][j] * fixed[j]
				}
			}
		}

		var sub []float64
		if len(cols) > 0 {
			var err error
			sub, err = NNLS(reducedA, reducedB)
			if err != nil {
				return nil, err
			}
		}

		x := make([]float64, n)
		overshoot := false
		for k, j := range cols {
			x[j] = sub[k]
			if upper != nil && upper[j] > 0 && x[j] > upper[j] {
				pinned[j] = true
				fixed[j] = upper[j]
				overshoot = true
			}
		}
		for j := 0; j < n; j++ {
			if pinned[j] {
				x[j] = fixed[j]
			}
		}
		if !overshoot {
			return x, nil
		}
	}
	// Every column pinned; return the bounds themselves.
	out := make([]float64, n)
	copy(out, fixed)
	return out, nil
}

// lsqPassive solves the unconstrained least squares over the passive columns
// via normal equations with partial pivoting. Entries for active columns come
// back as zero.
func lsqPassive(a [][]float64, b []float64, passive []bool) ([]float64, error) {
	m := len(a)
	n := len(a[0])

	cols := make([]int, 0, n)
	for j := 0; j < n; j++ {
		if passive[j] {
			cols = append(cols, j)
		}
	}
	p := len(cols)
	if p == 0 {
		return make([]float64, n), nil
	}

	// G = AᵀA, g = Aᵀb restricted to passive columns.
	g := make([][]float64, p)
	rhs := make([]float64, p)
	for u := 0; u < p; u++ {
		g[u] = make([]float64, p)
		for v := 0; v < p; v++ {
			for i := 0; i < m; i++ {
				g[u][v] += a[i][cols[u]] * a[i][cols[v]]
			}
		}
		for i := 0; i < m; i++ {
			rhs[u] += a[i][cols[u]] * b[i]
		}
	}

	z, err := solveLinear(g, rhs)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for u, j := range cols {
		out[j] = z[u]
	}
	return out, nil
}

// solveLinear is Gaussian elimination with partial pivoting on a small dense
// system.
func solveLinear(mat [][]float64, rhs []float64) ([]float64, error) {
	p := len(mat)
	// Work on copies; callers reuse their buffers.
	a := make([][]float64, p)
	for i := range mat {
		a[i] = append([]float64(nil), mat[i]...)
	}
	b := append([]float64(nil), rhs...)

	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < nnlsTolerance {
			return nil, fmt.Errorf("nnls: singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < p; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < p; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, p)
	for r := p - 1; r >= 0; r-- {
		x[r] = b[r]
		for c := r + 1; c < p; c++ {
			x[r] -= a[r][c] * x[c]
		}
		x[r] /= a[r][r]
	}
	return x, nil
}
