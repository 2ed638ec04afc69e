// Package transient decides whether stationary policies of a model reach a
// terminal state with probability 1, which is what makes the total reward
// objective well defined.
//
// Both checks use the expected-visits linear program over the non-terminal
// states: one variable u(s,a) ≥ 0 per state-action pair and, per state s,
//
//	Σ_a u(s,a) - Σ_{s',a'} P(s|s',a') u(s',a') = 1.
//
// A feasible u is the occupancy of a transient policy started everywhere.
package transient

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/linprog"
)

type pair struct {
	s, a int
}

// program returns the occupancy constraints. ok is false when every state is
// terminal.
func program(model mdp.Model) (linprog.Problem, bool) {
	n := model.StateCount()
	row := make([]int, n)
	rows := 0
	for s := 0; s < n; s++ {
		if mdp.IsTerminal(model, s) {
			row[s] = -1
			continue
		}
		row[s] = rows
		rows++
	}
	if rows == 0 {
		return linprog.Problem{}, false
	}

	var vars []pair
	for s := 0; s < n; s++ {
		if row[s] < 0 {
			continue
		}
		for a := 0; a < model.ActionCount(s); a++ {
			vars = append(vars, pair{s: s, a: a})
		}
	}

	p := linprog.Problem{
		Sense:       linprog.Minimize,
		Objective:   make([]float64, len(vars)),
		Equalities:  make([]linprog.Constraint, rows),
		NonNegative: true,
	}
	for i := range p.Equalities {
		p.Equalities[i] = linprog.Constraint{Coefficients: make([]float64, len(vars)), Bound: 1.0}
	}
	for j, v := range vars {
		p.Objective[j] = 1.0
		p.Equalities[row[v.s]].Coefficients[j] += 1.0
		for _, t := range model.Transition(v.s, v.a) {
			if r := row[t.Next]; r >= 0 {
				p.Equalities[r].Coefficients[j] -= t.Probability
			}
		}
	}
	return p, true
}

// AnyTransient reports whether some stationary policy of model is transient.
func AnyTransient(model mdp.Model, solver linprog.Solver) (bool, error) {
	if solver == nil {
		return false, fmt.Errorf("%w: solver is nil", mdp.ErrConfiguration)
	}
	p, ok := program(model)
	if !ok {
		return true, nil
	}

	sol, err := solver.Solve(p)
	if err != nil {
		return false, err
	}
	switch sol.Status {
	case linprog.Optimal, linprog.Unbounded:
		return true, nil
	case linprog.Infeasible:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected status %v", mdp.ErrSolver, sol.Status)
	}
}

// AllTransient reports whether every stationary policy of model is transient:
// the expected number of visits stays bounded when it is maximized.
func AllTransient(model mdp.Model, solver linprog.Solver) (bool, error) {
	if solver == nil {
		return false, fmt.Errorf("%w: solver is nil", mdp.ErrConfiguration)
	}
	p, ok := program(model)
	if !ok {
		return true, nil
	}
	p.Sense = linprog.Maximize

	sol, err := solver.Solve(p)
	if err != nil {
		return false, err
	}
	switch sol.Status {
	case linprog.Optimal:
		return true, nil
	case linprog.Unbounded, linprog.Infeasible:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected status %v", mdp.ErrSolver, sol.Status)
	}
}
