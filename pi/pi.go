// Package pi solves discounted tabular models by policy iteration with exact
// policy evaluation.
//
// Package pi は方策反復法で割引MDPを解きます。方策評価は連立一次方程式を直接解きます。
package pi

import (
	"errors"
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/bellman"
	"github.com/sw965/mdp/mrp"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/sparsex"
	"github.com/sw965/mdp/value"
	"gonum.org/v1/gonum/mat"
	"log/slog"
	"math"
)

// improvementTolerance is the relative margin by which another action must beat
// the current one before Improve switches to it.
const improvementTolerance = 1e-10

type Result struct {
	Value      value.Vector
	Policy     policy.StationaryDet
	Iterations int
	// Converged is true when an improvement step left the policy unchanged.
	Converged bool
	// History holds the value of every evaluated policy in order. It is
	// non-decreasing in every state.
	History []value.Vector
}

func discount(obj objective.Objective) (float64, error) {
	switch o := obj.(type) {
	case objective.InfiniteHorizon:
		return o.Discount, o.Validate()
	case objective.TotalReward:
		return 1.0, nil
	case nil:
		return 0, fmt.Errorf("%w: objective is nil", mdp.ErrConfiguration)
	default:
		return 0, fmt.Errorf("%w: policy evaluation does not support %T", mdp.ErrConfiguration, obj)
	}
}

// Evaluate solves (I - discount*P)v = r for the Markov reward process of a
// stationary policy. Terminal states are pinned to 0, so with TotalReward the
// system is regular exactly when pi reaches a terminal state from everywhere.
func Evaluate(model mdp.Model, obj objective.Objective, pi policy.Policy, sparse bool) (value.Vector, error) {
	return evaluate(model, obj, pi, sparse, slog.New(slog.DiscardHandler))
}

func evaluate(model mdp.Model, obj objective.Objective, pi policy.Policy, sparse bool, log *slog.Logger) (value.Vector, error) {
	gamma, err := discount(obj)
	if err != nil {
		return nil, err
	}
	if sparse {
		return evaluateSparse(model, gamma, pi)
	}
	return evaluateDense(model, gamma, pi, log)
}

func evaluateDense(model mdp.Model, gamma float64, pi policy.Policy, log *slog.Logger) (value.Vector, error) {
	P, r, err := mrp.Dense(model, pi)
	if err != nil {
		return nil, err
	}

	n := model.StateCount()
	for s := 0; s < n; s++ {
		if mdp.IsTerminal(model, s) {
			P.SetRow(s, make([]float64, n))
		}
	}

	// A = I - γP
	A := mat.NewDense(n, n, nil)
	A.Scale(-gamma, P)
	for i := 0; i < n; i++ {
		A.Set(i, i, A.At(i, i)+1.0)
	}

	var v mat.VecDense
	if err := v.SolveVec(A, r); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: policy evaluation: %v", mdp.ErrSolver, err)
		}
		log.Warn("policy evaluation is ill-conditioned", "condition", float64(cond))
	}
	return value.Vector(v.RawVector().Data), nil
}

func evaluateSparse(model mdp.Model, gamma float64, pi policy.Policy) (value.Vector, error) {
	P, r, err := mrp.Sparse(model, pi)
	if err != nil {
		return nil, err
	}

	A, err := sparsex.IMinusScaled(P, gamma, func(s int) bool {
		return !mdp.IsTerminal(model, s)
	})
	if err != nil {
		return nil, err
	}
	v, err := sparsex.Solve(A, r)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation: %w", err)
	}
	return v, nil
}

// Improve replaces pi[s] with a greedy action wherever one beats the current
// action by more than a relative tolerance, and returns the number of changed
// states. Keeping the current action on near ties stops the iteration from
// flipping between equivalent policies.
func Improve(pi policy.StationaryDet, model mdp.Model, obj objective.Objective, v value.Vector) (int, error) {
	n := model.StateCount()
	if len(pi) != n || len(v) != n {
		return 0, fmt.Errorf("%w: policy length %d, value length %d, state count %d", mdp.ErrDimension, len(pi), len(v), n)
	}
	if err := pi.Validate(model); err != nil {
		return 0, err
	}

	changed := 0
	for s := range pi {
		best, a, err := bellman.BellmanGreedy(model, obj, 0, s, v)
		if err != nil {
			return 0, err
		}
		current := bellman.QValue(model, obj, 0, s, pi[s], v)
		if best-current > improvementTolerance*(1.0+math.Abs(best)) {
			pi[s] = a
			changed++
		}
	}
	return changed, nil
}

// Solve runs policy iteration from initial, or from the greedy policy of the
// zero value when initial is nil. initial is not modified.
//
// Result.Policy is always the last evaluated policy, so Result.Value is its
// value even when the iteration cap stops the loop before convergence.
func Solve(model mdp.Model, obj objective.InfiniteHorizon, initial policy.StationaryDet, cfg Config) (Result, error) {
	if err := obj.Validate(); err != nil {
		return Result{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	log := cfg.logger()

	var pi policy.StationaryDet
	if initial == nil {
		var err error
		pi, err = bellman.Greedy(model, obj, value.NewZeros(model.StateCount()))
		if err != nil {
			return Result{}, err
		}
	} else {
		if err := initial.Validate(model); err != nil {
			return Result{}, err
		}
		pi = initial.Clone()
	}

	result := Result{}
	for result.Iterations < cfg.Iterations {
		v, err := evaluate(model, obj, pi, cfg.Sparse, log)
		if err != nil {
			return Result{}, err
		}
		result.History = append(result.History, v)
		result.Value = v
		result.Policy = pi.Clone()
		result.Iterations++

		changed, err := Improve(pi, model, obj, v)
		if err != nil {
			return Result{}, err
		}
		log.Debug("policy iteration step", "iteration", result.Iterations, "changed", changed)
		if changed == 0 {
			result.Converged = true
			break
		}
	}

	if !result.Converged {
		log.Warn("policy iteration did not converge", "iterations", result.Iterations)
	}
	return result, nil
}
