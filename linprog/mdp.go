package linprog

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/bellman"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/value"
	"gonum.org/v1/gonum/floats"
	"math"
)

type Result struct {
	Value  value.Vector
	Policy policy.StationaryDet
}

func discount(obj objective.Objective) (float64, error) {
	if err := objective.Check(obj); err != nil {
		return 0, err
	}
	switch o := obj.(type) {
	case objective.InfiniteHorizon:
		return o.Discount, nil
	case objective.TotalReward:
		return 1.0, nil
	default:
		return 0, fmt.Errorf("%w: the linear program does not support %T", mdp.ErrConfiguration, obj)
	}
}

// Program returns the linear program whose optimum is the optimal value of
// model: minimize Σv subject to v(s) ≥ r(s,a) + γ Σ P(s'|s,a) v(s') for every
// non-terminal state-action pair and v(s) = 0 for every terminal state.
func Program(model mdp.Model, obj objective.Objective) (Problem, error) {
	gamma, err := discount(obj)
	if err != nil {
		return Problem{}, err
	}

	n := model.StateCount()
	p := Problem{Sense: Minimize, Objective: make([]float64, n)}
	floats.AddConst(1.0, p.Objective)

	for s := 0; s < n; s++ {
		if mdp.IsTerminal(model, s) {
			eq := Constraint{Coefficients: make([]float64, n)}
			eq.Coefficients[s] = 1.0
			p.Equalities = append(p.Equalities, eq)
			continue
		}

		an := model.ActionCount(s)
		if an <= 0 {
			return Problem{}, fmt.Errorf("%w: state %d has no actions", mdp.ErrDomain, s)
		}
		for a := 0; a < an; a++ {
			// -v(s) + γΣPv(s') ≤ -r(s,a)
			ineq := Constraint{Coefficients: make([]float64, n)}
			ineq.Coefficients[s] = -1.0
			r := 0.0
			for _, t := range model.Transition(s, a) {
				ineq.Coefficients[t.Next] += gamma * t.Probability
				r += t.Probability * t.Reward
			}
			ineq.Bound = -r
			p.Inequalities = append(p.Inequalities, ineq)
		}
	}
	return p, nil
}

// SolveMDP solves model for a TotalReward or InfiniteHorizon objective by
// linear programming. With TotalReward the caller is responsible for the
// model being transient (see package transient); no check is made here.
//
// The policy picks, in each state, the lowest action whose constraint is
// binding within cfg.Tolerance, falling back to the greedy action.
func SolveMDP(model mdp.Model, obj objective.Objective, solver Solver, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if solver == nil {
		return Result{}, fmt.Errorf("%w: solver is nil", mdp.ErrConfiguration)
	}
	log := cfg.logger()

	problem, err := Program(model, obj)
	if err != nil {
		return Result{}, err
	}
	log.Debug("solving linear program",
		"variables", len(problem.Objective),
		"inequalities", len(problem.Inequalities),
		"equalities", len(problem.Equalities),
	)

	sol, err := solver.Solve(problem)
	if err != nil {
		return Result{}, err
	}
	if sol.Status != Optimal {
		return Result{}, &StatusError{Status: sol.Status}
	}

	n := model.StateCount()
	if len(sol.X) != n {
		return Result{}, fmt.Errorf("%w: solution has %d values, model has %d states", mdp.ErrSolver, len(sol.X), n)
	}

	v := value.Vector(sol.X)
	pi := policy.NewStationaryDet(n)
	for s := range pi {
		if mdp.IsTerminal(model, s) {
			continue
		}

		best, bestA := math.Inf(-1), 0
		found := false
		for a := 0; a < model.ActionCount(s); a++ {
			q := bellman.QValue(model, obj, 0, s, a, v)
			if v[s]-q <= cfg.Tolerance {
				pi[s] = a
				found = true
				break
			}
			if q > best {
				best, bestA = q, a
			}
		}
		if !found {
			log.Warn("no binding constraint, using the greedy action", "state", s)
			pi[s] = bestA
		}
	}
	return Result{Value: v, Policy: pi}, nil
}
