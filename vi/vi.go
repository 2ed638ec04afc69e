// Package vi solves tabular models by value iteration: backward induction for a
// finite horizon and Jacobi sweeps for the discounted infinite horizon.
//
// Package vi は価値反復法で表形式MDPを解きます。
package vi

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/bellman"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/value"
	"github.com/sw965/omw/parallel"
)

// Result is FiniteResult or InfiniteResult.
type Result interface {
	isResult()
}

type FiniteResult struct {
	// Values has Horizon+1 entries, the last one being the terminal value.
	Values value.Sequence
	Policy policy.MarkovDet
}

func (FiniteResult) isResult() {}

// Evaluation is the outcome of iterating a fixed or greedy operator to a fixed point.
type Evaluation struct {
	Value      value.Vector
	Iterations int
	// Residual is the sup-norm distance between the last two iterates.
	Residual  float64
	Converged bool
}

type InfiniteResult struct {
	Evaluation
	Policy policy.StationaryDet
}

func (InfiniteResult) isResult() {}

func checkTerminal(model mdp.Model, terminal value.Vector) error {
	if terminal == nil {
		return nil
	}
	if n := model.StateCount(); len(terminal) != n {
		return fmt.Errorf("%w: terminal value has length %d, state count is %d", mdp.ErrDimension, len(terminal), n)
	}
	return nil
}

// Finite runs backward induction from terminal (zeros when nil).
func Finite(model mdp.Model, obj objective.FiniteHorizon, terminal value.Vector, cfg Config) (FiniteResult, error) {
	if err := obj.Validate(); err != nil {
		return FiniteResult{}, err
	}
	if err := checkTerminal(model, terminal); err != nil {
		return FiniteResult{}, err
	}

	n := model.StateCount()
	v := value.NewZerosSequence(obj.Horizon, n)
	pi := policy.NewMarkovDet(obj.Horizon, n)
	if err := FiniteInto(v, pi, model, obj, terminal, cfg); err != nil {
		return FiniteResult{}, err
	}
	return FiniteResult{Values: v, Policy: pi}, nil
}

// FiniteInto is Finite over caller-owned buffers. v must hold Horizon+1
// vectors and pi Horizon rows, all of state-count length. A nil terminal keeps
// whatever v[Horizon] already holds, which allows warm restarts.
func FiniteInto(v value.Sequence, pi policy.MarkovDet, model mdp.Model, obj objective.FiniteHorizon, terminal value.Vector, cfg Config) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkTerminal(model, terminal); err != nil {
		return err
	}

	n := model.StateCount()
	T := obj.Horizon
	if len(v) != T+1 || len(pi) != T {
		return fmt.Errorf("%w: got %d values and %d policy rows for horizon %d", mdp.ErrDimension, len(v), len(pi), T)
	}
	for t := range v {
		if len(v[t]) != n {
			return fmt.Errorf("%w: value at time %d has length %d, state count is %d", mdp.ErrDimension, t, len(v[t]), n)
		}
	}
	for t := range pi {
		if len(pi[t]) != n {
			return fmt.Errorf("%w: policy at time %d has length %d, state count is %d", mdp.ErrDimension, t, len(pi[t]), n)
		}
	}

	if terminal != nil {
		copy(v[T], terminal)
	}

	log := cfg.logger()
	for t := T - 1; t >= 0; t-- {
		for s := 0; s < n; s++ {
			q, a, err := bellman.BellmanGreedy(model, obj, t, s, v[t+1])
			if err != nil {
				return err
			}
			v[t][s] = q
			pi[t][s] = a
		}
		log.Debug("backward induction step", "time", t)
	}
	return nil
}

// EvaluateFinite computes the finite-horizon value of a deterministic policy.
// A MarkovDet policy must have one row per decision.
func EvaluateFinite(model mdp.Model, obj objective.FiniteHorizon, pi policy.Deterministic, terminal value.Vector, cfg Config) (value.Sequence, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkTerminal(model, terminal); err != nil {
		return nil, err
	}
	if md, ok := pi.(policy.MarkovDet); ok && len(md) != obj.Horizon {
		return nil, fmt.Errorf("%w: policy has %d rows for horizon %d", mdp.ErrDimension, len(md), obj.Horizon)
	}
	if err := pi.Validate(model); err != nil {
		return nil, err
	}

	n := model.StateCount()
	T := obj.Horizon
	v := value.NewZerosSequence(T, n)
	if terminal != nil {
		copy(v[T], terminal)
	}

	for t := T - 1; t >= 0; t-- {
		for s := 0; s < n; s++ {
			v[t][s] = bellman.QValue(model, obj, t, s, pi.Action(t, s), v[t+1])
		}
	}
	cfg.logger().Debug("finite-horizon evaluation done", "horizon", T)
	return v, nil
}

// stopThreshold is the residual at which the greedy policy of the next iterate
// is epsilon-optimal.
func stopThreshold(discount, epsilon float64) float64 {
	return epsilon * (1.0 - discount) / discount
}

func sweep(dst, src value.Vector, p int, update func(s int, src value.Vector) (float64, error)) error {
	if p <= 1 {
		for s := range dst {
			q, err := update(s, src)
			if err != nil {
				return err
			}
			dst[s] = q
		}
		return nil
	}

	// 各状態は1つのワーカーだけが書き込む
	return parallel.For(len(dst), p, func(workerId, s int) error {
		q, err := update(s, src)
		if err != nil {
			return err
		}
		dst[s] = q
		return nil
	})
}

// iterate applies update from zero until the residual drops below the stop
// threshold or the iteration cap is reached.
func iterate(model mdp.Model, obj objective.InfiniteHorizon, cfg Config, update func(s int, src value.Vector) (float64, error)) (Evaluation, error) {
	if err := obj.Validate(); err != nil {
		return Evaluation{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Evaluation{}, err
	}

	log := cfg.logger()
	n := model.StateCount()
	v := value.NewZeros(n)
	next := value.NewZeros(n)
	threshold := 0.0
	if obj.Discount > 0 {
		threshold = stopThreshold(obj.Discount, cfg.Epsilon)
	}

	ev := Evaluation{}
	for ev.Iterations < cfg.Iterations {
		if err := sweep(next, v, cfg.Parallelism, update); err != nil {
			return Evaluation{}, err
		}
		ev.Iterations++
		ev.Residual = next.Residual(v)
		v, next = next, v
		log.Debug("value iteration sweep", "iteration", ev.Iterations, "residual", ev.Residual)

		// 割引率0なら1回の更新で厳密解になる
		if obj.Discount == 0 || ev.Residual <= threshold {
			ev.Converged = true
			break
		}
	}

	if !ev.Converged {
		log.Warn("value iteration did not converge",
			"iterations", ev.Iterations,
			"residual", ev.Residual,
			"threshold", threshold,
		)
	}
	ev.Value = v
	return ev, nil
}

// Infinite runs value iteration for the discounted infinite horizon and
// returns the greedy policy of the final iterate.
func Infinite(model mdp.Model, obj objective.InfiniteHorizon, cfg Config) (InfiniteResult, error) {
	ev, err := iterate(model, obj, cfg, func(s int, src value.Vector) (float64, error) {
		return bellman.Bellman(model, obj, 0, s, src)
	})
	if err != nil {
		return InfiniteResult{}, err
	}

	pi, err := bellman.Greedy(model, obj, ev.Value)
	if err != nil {
		return InfiniteResult{}, err
	}
	return InfiniteResult{Evaluation: ev, Policy: pi}, nil
}

// EvaluateInfinite iterates the fixed-policy operator of a stationary policy.
func EvaluateInfinite(model mdp.Model, obj objective.InfiniteHorizon, pi policy.Policy, cfg Config) (Evaluation, error) {
	switch pi.(type) {
	case policy.StationaryDet, policy.StationaryRand:
	default:
		return Evaluation{}, fmt.Errorf("%w: infinite-horizon evaluation needs a stationary policy, got %T", mdp.ErrConfiguration, pi)
	}
	if err := pi.Validate(model); err != nil {
		return Evaluation{}, err
	}

	return iterate(model, obj, cfg, func(s int, src value.Vector) (float64, error) {
		q := 0.0
		for a := 0; a < model.ActionCount(s); a++ {
			if p := pi.Probability(0, s, a); p != 0 {
				q += float64(p) * bellman.QValue(model, obj, 0, s, a, src)
			}
		}
		return q, nil
	})
}

// Solve dispatches on the objective. TotalReward has no value iteration
// stopping rule and is rejected; solve it with pi.Evaluate or linprog.SolveMDP.
func Solve(model mdp.Model, obj objective.Objective, cfg Config) (Result, error) {
	if err := objective.Check(obj); err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case objective.FiniteHorizon:
		r, err := Finite(model, o, nil, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case objective.InfiniteHorizon:
		r, err := Infinite(model, o, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case objective.TotalReward:
		return nil, fmt.Errorf("%w: value iteration does not support the total reward objective", mdp.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unknown objective %T", mdp.ErrConfiguration, obj)
	}
}
