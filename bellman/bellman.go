// Package bellman computes state-action values, the Bellman operator and greedy
// policies for a tabular model under an objective.
//
// The time argument t is passed through for time-dependent objectives; the
// current objectives are stationary in their rewards and ignore it.
package bellman

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/value"
	"math"
)

func qvalue(model mdp.Model, s, a int, discount float64, v value.Vector) float64 {
	q := 0.0
	for _, tr := range model.Transition(s, a) {
		q += tr.Probability * (tr.Reward + discount*v[tr.Next])
	}
	return q
}

// QValue is the expected immediate reward of a in s plus the discounted
// expectation of v over the next state.
func QValue(model mdp.Model, obj objective.Objective, t, s, a int, v value.Vector) float64 {
	return qvalue(model, s, a, objective.Discount(obj), v)
}

// QValuesInto writes the value of every action of s into q. q must be at least
// as long as the action count; the remaining entries are set to -Inf.
func QValuesInto(q []float64, model mdp.Model, obj objective.Objective, t, s int, v value.Vector) error {
	an := model.ActionCount(s)
	if len(q) < an {
		return fmt.Errorf("%w: q has length %d, state %d has %d actions", mdp.ErrDimension, len(q), s, an)
	}

	discount := objective.Discount(obj)
	for a := range q {
		if a < an {
			q[a] = qvalue(model, s, a, discount, v)
		} else {
			q[a] = math.Inf(-1)
		}
	}
	return nil
}

func QValues(model mdp.Model, obj objective.Objective, t, s int, v value.Vector) []float64 {
	q := make([]float64, model.ActionCount(s))
	// 長さは行動数と一致する為、エラーにはならない
	_ = QValuesInto(q, model, obj, t, s, v)
	return q
}

func bellmanGreedy(model mdp.Model, s int, discount float64, v value.Vector) (float64, int, error) {
	an := model.ActionCount(s)
	if an <= 0 {
		return 0, 0, fmt.Errorf("%w: state %d has no actions", mdp.ErrDomain, s)
	}

	best, bestA := math.Inf(-1), 0
	for a := 0; a < an; a++ {
		// 同値の場合は添字の小さい行動を優先する
		if q := qvalue(model, s, a, discount, v); q > best {
			best, bestA = q, a
		}
	}
	return best, bestA, nil
}

// BellmanGreedy returns the Bellman operator at s and the lowest action index
// that attains it.
func BellmanGreedy(model mdp.Model, obj objective.Objective, t, s int, v value.Vector) (float64, int, error) {
	return bellmanGreedy(model, s, objective.Discount(obj), v)
}

func Bellman(model mdp.Model, obj objective.Objective, t, s int, v value.Vector) (float64, error) {
	q, _, err := bellmanGreedy(model, s, objective.Discount(obj), v)
	return q, err
}

// GreedyInto stores the greedy action of every state in pi.
func GreedyInto(pi policy.StationaryDet, model mdp.Model, obj objective.Objective, t int, v value.Vector) error {
	n := model.StateCount()
	if len(pi) != n || len(v) != n {
		return fmt.Errorf("%w: policy length %d, value length %d, state count %d", mdp.ErrDimension, len(pi), len(v), n)
	}

	discount := objective.Discount(obj)
	for s := range pi {
		_, a, err := bellmanGreedy(model, s, discount, v)
		if err != nil {
			return err
		}
		pi[s] = a
	}
	return nil
}

func Greedy(model mdp.Model, obj objective.Objective, v value.Vector) (policy.StationaryDet, error) {
	pi := policy.NewStationaryDet(model.StateCount())
	if err := GreedyInto(pi, model, obj, 0, v); err != nil {
		return nil, err
	}
	return pi, nil
}
