package linprog

import (
	"errors"
	"fmt"
	"github.com/sw965/mdp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
	"math"
)

const (
	defaultSimplexTolerance = 1e-10
	rankTolerance           = 1e-9
)

// Simplex solves problems with the simplex method of gonum's lp package.
//
// lp.Simplex wants a standard form with full row rank and no zero rows or
// columns, so the problem is presolved first: zero columns are fixed at 0 (or
// make the problem unbounded when their cost is negative), and zero or
// linearly dependent rows are dropped (or make it infeasible when their bound
// disagrees).
type Simplex struct {
	// Tolerance is passed to lp.Simplex. 0 selects a default.
	Tolerance float64
}

// standardForm is min c·x s.t. a x = b, x ≥ 0, stored by rows.
type standardForm struct {
	c []float64
	a [][]float64
	b []float64
}

func (f standardForm) cols() int {
	return len(f.c)
}

func flatten(cs []Constraint, n int) (*mat.Dense, []float64) {
	if len(cs) == 0 {
		return nil, nil
	}
	m := mat.NewDense(len(cs), n, nil)
	bs := make([]float64, len(cs))
	for i, c := range cs {
		m.SetRow(i, c.Coefficients)
		bs[i] = c.Bound
	}
	return m, bs
}

// toStandardForm adds a slack per inequality and, for free variables, splits
// x into xp - xn with lp.Convert. The first len(Objective) columns are x (or
// xp) in both cases.
func toStandardForm(p Problem) standardForm {
	n := len(p.Objective)
	c := make([]float64, n)
	copy(c, p.Objective)
	if p.Sense == Maximize {
		floats.Scale(-1, c)
	}

	if !p.NonNegative {
		if len(p.Inequalities)+len(p.Equalities) == 0 {
			cNew := make([]float64, 2*n)
			copy(cNew, c)
			floats.ScaleTo(cNew[n:], -1, c)
			return standardForm{c: cNew}
		}

		g, h := flatten(p.Inequalities, n)
		a, b := flatten(p.Equalities, n)
		var gm, am mat.Matrix
		if g != nil {
			gm = g
		}
		if a != nil {
			am = a
		}
		cNew, aNew, bNew := lp.Convert(c, gm, h, am, b)
		rows, _ := aNew.Dims()
		f := standardForm{c: cNew, a: make([][]float64, rows), b: bNew}
		for i := range f.a {
			f.a[i] = mat.Row(nil, i, aNew)
		}
		return f
	}

	nIneq := len(p.Inequalities)
	cols := n + nIneq
	f := standardForm{c: make([]float64, cols)}
	copy(f.c, c)
	for i, ineq := range p.Inequalities {
		row := make([]float64, cols)
		copy(row, ineq.Coefficients)
		row[n+i] = 1.0
		f.a = append(f.a, row)
		f.b = append(f.b, ineq.Bound)
	}
	for _, eq := range p.Equalities {
		row := make([]float64, cols)
		copy(row, eq.Coefficients)
		f.a = append(f.a, row)
		f.b = append(f.b, eq.Bound)
	}
	return f
}

// presolved is a reduced standard form. keep maps its columns to the columns
// of the original standard form.
type presolved struct {
	standardForm
	keep       []int
	infeasible bool
	// unbounded is set when a dropped column had a negative cost. The problem
	// is unbounded if the reduced problem is feasible.
	unbounded bool
}

func presolve(f standardForm) presolved {
	var r presolved

	for j := 0; j < f.cols(); j++ {
		used := false
		for _, row := range f.a {
			if row[j] != 0 {
				used = true
				break
			}
		}
		if used {
			r.keep = append(r.keep, j)
			r.c = append(r.c, f.c[j])
		} else if f.c[j] < 0 {
			r.unbounded = true
		}
	}

	// 行を順に消去し、一次独立な行だけを残す
	type pivotRow struct {
		row   []float64
		b     float64
		pivot int
	}
	var basis []pivotRow
	for i, row := range f.a {
		reduced := make([]float64, len(r.keep))
		for k, j := range r.keep {
			reduced[k] = row[j]
		}
		b := f.b[i]
		if b < 0 {
			floats.Scale(-1, reduced)
			b = -b
		}

		scale := 1.0 + math.Max(maxAbs(reduced), b)
		res := make([]float64, len(reduced))
		copy(res, reduced)
		resB := b
		for _, p := range basis {
			if res[p.pivot] == 0 {
				continue
			}
			fac := res[p.pivot] / p.row[p.pivot]
			floats.AddScaled(res, -fac, p.row)
			resB -= fac * p.b
		}

		if maxAbs(res) <= rankTolerance*scale {
			if math.Abs(resB) > rankTolerance*scale {
				r.infeasible = true
				return r
			}
			continue
		}
		basis = append(basis, pivotRow{row: res, b: resB, pivot: argmaxAbs(res)})
		r.a = append(r.a, reduced)
		r.b = append(r.b, b)
	}
	return r
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

func argmaxAbs(xs []float64) int {
	idx := 0
	for i, x := range xs {
		if math.Abs(x) > math.Abs(xs[idx]) {
			idx = i
		}
	}
	return idx
}

func (s Simplex) tolerance() float64 {
	if s.Tolerance <= 0 {
		return defaultSimplexTolerance
	}
	return s.Tolerance
}

// solveReduced returns the status and the reduced solution of r.
func (s Simplex) solveReduced(r presolved) (Status, []float64, error) {
	if r.infeasible {
		return Infeasible, nil, nil
	}
	m, n := len(r.a), len(r.keep)
	if m == 0 || n == 0 {
		// 制約が全て落ちた場合、残る列も存在しない
		return Optimal, make([]float64, n), nil
	}

	a := mat.NewDense(m, n, nil)
	for i, row := range r.a {
		a.SetRow(i, row)
	}
	_, x, err := lp.Simplex(r.c, a, r.b, s.tolerance(), nil)
	switch {
	case err == nil:
		return Optimal, x, nil
	case errors.Is(err, lp.ErrInfeasible):
		return Infeasible, nil, nil
	case errors.Is(err, lp.ErrUnbounded):
		return Unbounded, nil, nil
	default:
		return 0, nil, fmt.Errorf("%w: simplex: %v", mdp.ErrSolver, err)
	}
}

func (s Simplex) Solve(p Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}

	f := toStandardForm(p)
	r := presolve(f)
	status, xr, err := s.solveReduced(r)
	if err != nil {
		return Solution{}, err
	}
	if r.unbounded && status != Infeasible {
		status = Unbounded
	}
	if status != Optimal {
		return Solution{Status: status}, nil
	}

	xs := make([]float64, f.cols())
	for k, j := range r.keep {
		xs[j] = xr[k]
	}

	n := len(p.Objective)
	x := make([]float64, n)
	copy(x, xs[:n])
	if !p.NonNegative {
		floats.Sub(x, xs[n:2*n])
	}
	return Solution{Status: Optimal, X: x, Objective: floats.Dot(p.Objective, x)}, nil
}
