// Package linprog is the linear programming bridge of the solvers: a small
// problem description, the Solver capability that consumes it, a simplex
// backend, and the linear program of a tabular model.
//
// Package linprog は線形計画問題の記述、ソルバーのインターフェース、
// 単体法によるバックエンド、MDPの線形計画定式化を提供します。
package linprog

import (
	"errors"
	"fmt"
	"github.com/sw965/mdp"
)

type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	switch s {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Constraint is Coefficients·x ≤ Bound when used as an inequality and
// Coefficients·x = Bound when used as an equality.
type Constraint struct {
	Coefficients []float64
	Bound        float64
}

type Problem struct {
	Sense        Sense
	Objective    []float64
	Inequalities []Constraint
	Equalities   []Constraint
	// NonNegative restricts every variable to x ≥ 0. Variables are free otherwise.
	NonNegative bool
}

func (p Problem) Validate() error {
	if p.Sense != Minimize && p.Sense != Maximize {
		return fmt.Errorf("%w: unknown sense %v", mdp.ErrConfiguration, p.Sense)
	}
	n := len(p.Objective)
	if n == 0 {
		return fmt.Errorf("%w: problem has no variables", mdp.ErrDimension)
	}
	for i, c := range p.Inequalities {
		if len(c.Coefficients) != n {
			return fmt.Errorf("%w: inequality %d has %d coefficients, want %d", mdp.ErrDimension, i, len(c.Coefficients), n)
		}
	}
	for i, c := range p.Equalities {
		if len(c.Coefficients) != n {
			return fmt.Errorf("%w: equality %d has %d coefficients, want %d", mdp.ErrDimension, i, len(c.Coefficients), n)
		}
	}
	return nil
}

type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution is the outcome of a solve. X and Objective are set only when
// Status is Optimal; Objective is reported in the problem's own sense.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
}

// Solver is the LP capability consumed by SolveMDP and package transient.
// Infeasible and unbounded problems are reported through Solution.Status; the
// error is reserved for malformed problems and backend failures.
type Solver interface {
	Solve(problem Problem) (Solution, error)
}

// StatusError reports a linear program that ended without an optimum.
// It matches mdp.ErrSolver with errors.Is.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: linear program is %v", mdp.ErrSolver, e.Status)
}

func (e *StatusError) Unwrap() error {
	return mdp.ErrSolver
}

// IsStatus reports whether err is a StatusError with status s.
func IsStatus(err error, s Status) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == s
}
