package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNNLS_ExactSystem(t *testing.T) {
	// Three constraints, three variables, feasible non-negative solution.
	a := [][]float64{
		{0.20, 0.02, 0.0},
		{0.0, 0.28, 0.0},
		{0.02, 0.003, 1.0},
	}
	b := []float64{20, 40, 5}

	x, err := NNLS(a, b)
	require.NoError(t, err)
	require.Len(t, x, 3)

	for row := range a {
		got := 0.0
		for j := range x {
			got += a[row][j] * x[j]
		}
		assert.InDelta(t, b[row], got, 1e-6, "constraint row %d", row)
	}
	for j, v := range x {
		assert.GreaterOrEqual(t, v, 0.0, "variable %d", j)
	}
}

func TestNNLS_NegativeUnconstrainedSolutionClampsToZero(t *testing.T) {
	// The unconstrained least-squares answer would push x[1] negative; NNLS
	// must keep it at zero instead.
	a := [][]float64{
		{1, 1},
		{1, 2},
	}
	b := []float64{2, 1}

	x, err := NNLS(a, b)
	require.NoError(t, err)
	for j, v := range x {
		assert.GreaterOrEqual(t, v, 0.0, "variable %d", j)
	}
}

func TestNNLS_Underdetermined(t *testing.T) {
	// One constraint, four variables. Any non-negative combination reaching
	// the target is acceptable.
	a := [][]float64{{0.1, 0.2, 0.05, 0.3}}
	b := []float64{12}

	x, err := NNLS(a, b)
	require.NoError(t, err)

	got := 0.0
	for j := range x {
		require.GreaterOrEqual(t, x[j], 0.0)
		got += a[0][j] * x[j]
	}
	assert.InDelta(t, 12.0, got, 1e-6)
}

func TestNNLS_ZeroTarget(t *testing.T) {
	a := [][]float64{
		{0.2, 0.1},
		{0.1, 0.3},
	}
	b := []float64{0, 0}

	x, err := NNLS(a, b)
	require.NoError(t, err)
	for _, v := range x {
		assert.Equal(t, 0.0, v)
	}
}

func TestNNLS_InputValidation(t *testing.T) {
	_, err := NNLS(nil, nil)
	assert.Error(t, err)

	_, err = NNLS([][]float64{{1, 2}}, []float64{1, 2})
	assert.Error(t, err)

	_, err = NNLS([][]float64{{1, 2}, {1}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestNNLSBounded_CapsGrowth(t *testing.T) {
	// A single ingredient could hit the target alone at x = 50, but its
	// bound pins it at 10; the second variable takes up the remainder.
	a := [][]float64{{2, 1}}
	b := []float64{100}
	upper := []float64{10, 0} // 0 means unbounded

	x, err := NNLSBounded(a, b, upper)
	require.NoError(t, err)
	assert.LessOrEqual(t, x[0], 10.0)
	assert.InDelta(t, 100.0, 2*x[0]+x[1], 1e-6)
}

func TestNNLSBounded_AllPinned(t *testing.T) {
	a := [][]float64{{1, 1}}
	b := []float64{1000}
	upper := []float64{5, 7}

	x, err := NNLSBounded(a, b, upper)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7}, x)
}

func TestNNLSBounded_NoBoundsMatchesNNLS(t *testing.T) {
	a := [][]float64{
		{0.5, 0.25},
		{0.1, 0.4},
	}
	b := []float64{30, 20}

	plain, err := NNLS(a, b)
	require.NoError(t, err)
	bounded, err := NNLSBounded(a, b, nil)
	require.NoError(t, err)

	for j := range plain {
		assert.InDelta(t, plain[j], bounded[j], 1e-9)
	}
}
