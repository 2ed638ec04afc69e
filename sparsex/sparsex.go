// Package sparsex extends github.com/james-bowman/sparse with the direct
// solver used for policy evaluation on models whose rows reach few next states.
//
// Package sparsex は疎行列(CSR)の連立一次方程式を直接法で解きます。
package sparsex

import (
	"fmt"
	"github.com/james-bowman/sparse"
	"github.com/sw965/mdp"
	"maps"
	"math"
	"slices"
)

// IMinusScaled returns I - alpha*m for a square m. Rows for which keep reports
// false become identity rows. A nil keep keeps every row.
func IMinusScaled(m *sparse.CSR, alpha float64, keep func(i int) bool) (*sparse.CSR, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("%w: matrix is %dx%d, want square", mdp.ErrDimension, rows, cols)
	}
	a := sparse.NewDOK(rows, cols)
	m.DoNonZero(func(i, j int, v float64) {
		if keep != nil && !keep(i) {
			return
		}
		a.Set(i, j, a.At(i, j)-alpha*v)
	})
	for i := 0; i < rows; i++ {
		a.Set(i, i, a.At(i, i)+1.0)
	}
	return a.ToCSR(), nil
}

// singularTolerance is the smallest pivot magnitude accepted by Solve.
const singularTolerance = 1e-13

// Solve solves m*x = b by Gaussian elimination with partial pivoting over the
// nonzero pattern of m. Fill-in is tracked per column so that rows which do
// not touch the pivot column are never visited.
func Solve(m *sparse.CSR, b []float64) ([]float64, error) {
	n, cols := m.Dims()
	if cols != n {
		return nil, fmt.Errorf("%w: matrix is %dx%d, want square", mdp.ErrDimension, n, cols)
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: right-hand side has length %d, want %d", mdp.ErrDimension, len(b), n)
	}

	rows := make([]map[int]float64, n)
	colRows := make([]map[int]struct{}, n)
	for i := range rows {
		rows[i] = map[int]float64{}
		colRows[i] = map[int]struct{}{}
	}
	m.DoNonZero(func(i, j int, v float64) {
		if v == 0 {
			return
		}
		rows[i][j] += v
		colRows[j][i] = struct{}{}
	})

	rhs := slices.Clone(b)
	used := make([]bool, n)
	pivotRow := make([]int, n)

	for k := 0; k < n; k++ {
		best, bestAbs := -1, 0.0
		candidates := slices.Sorted(maps.Keys(colRows[k]))
		for _, i := range candidates {
			if used[i] {
				continue
			}
			if a := math.Abs(rows[i][k]); a > bestAbs {
				best, bestAbs = i, a
			}
		}
		if best < 0 || bestAbs <= singularTolerance {
			return nil, fmt.Errorf("%w: singular matrix at column %d", mdp.ErrSolver, k)
		}
		used[best] = true
		pivotRow[k] = best

		pivot := rows[best][k]
		for _, i := range candidates {
			if used[i] {
				continue
			}
			f := rows[i][k] / pivot
			for j, v := range rows[best] {
				if j == k {
					continue
				}
				if _, ok := rows[i][j]; !ok {
					colRows[j][i] = struct{}{}
				}
				rows[i][j] -= f * v
			}
			delete(rows[i], k)
			delete(colRows[k], i)
			rhs[i] -= f * rhs[best]
		}
	}

	x := make([]float64, n)
	for k := n - 1; k >= 0; k-- {
		row := rows[pivotRow[k]]
		sum := rhs[pivotRow[k]]
		for _, j := range slices.Sorted(maps.Keys(row)) {
			if j != k {
				sum -= row[j] * x[j]
			}
		}
		x[k] = sum / row[k]
	}
	return x, nil
}
