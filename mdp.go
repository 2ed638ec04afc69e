// Package mdp provides the tabular Markov decision process contract shared by
// every solver in this module, together with the error taxonomy the solvers
// report through.
//
// Package mdp は各ソルバーが共有する表形式MDPの契約とエラー分類を提供します。
package mdp

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrConfiguration = errors.New("Configエラー: 設定または目的関数が不正です")
	ErrDimension     = errors.New("次元エラー: 要素数が一致しません")
	ErrStructural    = errors.New("Transitionエラー: 同じ遷移先が重複しています")
	ErrDomain        = errors.New("Modelエラー: モデルが不正です")
	ErrSolver        = errors.New("Solverエラー: 求解に失敗しました")
)

// DefaultTolerance is the probability-sum tolerance used by Validate.
const DefaultTolerance = 1e-9

// Transition is one outcome of taking an action in a state.
type Transition struct {
	Next        int
	Probability float64
	Reward      float64
}

// Model is an enumerable tabular MDP. States are 0..StateCount()-1 and the
// actions of s are 0..ActionCount(s)-1.
//
// Implementations must be read-only and safe for concurrent calls while any
// solver is running; the parallel value iteration sweep queries Transition from
// several goroutines at once. The returned slice must not be modified by callers.
type Model interface {
	StateCount() int
	ActionCount(s int) int
	Transition(s, a int) []Transition
}

// IsTerminal reports whether s has a single action that loops back to s with
// probability 1 and reward 0.
func IsTerminal(model Model, s int) bool {
	if model.ActionCount(s) != 1 {
		return false
	}
	ts := model.Transition(s, 0)
	if len(ts) != 1 {
		return false
	}
	t := ts[0]
	return t.Next == s && t.Probability == 1.0 && t.Reward == 0.0
}

// Validate checks the structural contract of model. Duplicate next states are
// allowed here; solvers that need aggregated transitions reject them on their own.
func Validate(model Model, tol float64) error {
	n := model.StateCount()
	if n <= 0 {
		return fmt.Errorf("%w: state count must be positive, got %d", ErrDomain, n)
	}

	for s := 0; s < n; s++ {
		an := model.ActionCount(s)
		if an <= 0 {
			return fmt.Errorf("%w: state %d has no actions", ErrDomain, s)
		}

		for a := 0; a < an; a++ {
			ts := model.Transition(s, a)
			if len(ts) == 0 {
				return fmt.Errorf("%w: state %d action %d has no transitions", ErrDomain, s, a)
			}

			sum := 0.0
			for _, t := range ts {
				if t.Next < 0 || t.Next >= n {
					return fmt.Errorf("%w: state %d action %d: next state %d out of range [0, %d)", ErrDomain, s, a, t.Next, n)
				}
				if !(t.Probability > 0 && t.Probability <= 1) {
					return fmt.Errorf("%w: state %d action %d: probability %v not in (0, 1]", ErrDomain, s, a, t.Probability)
				}
				if math.IsNaN(t.Reward) || math.IsInf(t.Reward, 0) {
					return fmt.Errorf("%w: state %d action %d: reward %v is not finite", ErrDomain, s, a, t.Reward)
				}
				sum += t.Probability
			}

			if math.Abs(sum-1.0) > tol {
				return fmt.Errorf("%w: state %d action %d: probabilities sum to %v", ErrDomain, s, a, sum)
			}
		}
	}
	return nil
}
