// Package intmdp implements mdp.Model with integer states and stationary,
// explicitly enumerated transitions.
package intmdp

import (
	"cmp"
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/omw/slicesx"
	"gonum.org/v1/gonum/mat"
	"slices"
)

// Action is the transition set that follows one action. Next states may repeat:
// aggregating them changes risk-sensitive values, so it only happens through Compress.
type Action struct {
	Transitions []mdp.Transition
}

type State struct {
	Actions []Action
}

type IntMDP struct {
	states []State
}

// New builds a model from states. A state without actions becomes terminal: a
// single action that stays with probability 1 and reward 0.
func New(states []State) (*IntMDP, error) {
	m := &IntMDP{states: make([]State, len(states))}
	for s, st := range states {
		if len(st.Actions) == 0 {
			m.states[s] = terminalState(s)
			continue
		}
		actions := make([]Action, len(st.Actions))
		for a, act := range st.Actions {
			actions[a] = Action{Transitions: slices.Clone(act.Transitions)}
		}
		m.states[s] = State{Actions: actions}
	}

	if err := mdp.Validate(m, mdp.DefaultTolerance); err != nil {
		return nil, err
	}
	return m, nil
}

func terminalState(s int) State {
	return State{Actions: []Action{{Transitions: []mdp.Transition{{Next: s, Probability: 1.0, Reward: 0.0}}}}}
}

func (m *IntMDP) StateCount() int {
	return len(m.states)
}

func (m *IntMDP) ActionCount(s int) int {
	return len(m.states[s].Actions)
}

func (m *IntMDP) Transition(s, a int) []mdp.Transition {
	return m.states[s].Actions[a].Transitions
}

// IsAggregated reports whether no (s, a) lists the same next state twice.
func (m *IntMDP) IsAggregated() bool {
	for _, st := range m.states {
		for _, act := range st.Actions {
			if !isUniqueNext(act.Transitions) {
				return false
			}
		}
	}
	return true
}

// Compressed returns a copy of m in which every transition set has been
// passed through Compress.
func (m *IntMDP) Compressed() *IntMDP {
	c := &IntMDP{states: make([]State, len(m.states))}
	for s, st := range m.states {
		actions := make([]Action, len(st.Actions))
		for a, act := range st.Actions {
			actions[a] = Action{Transitions: Compress(act.Transitions)}
		}
		c.states[s] = State{Actions: actions}
	}
	return c
}

func isUniqueNext(ts []mdp.Transition) bool {
	nexts := make([]int, len(ts))
	for i, t := range ts {
		nexts[i] = t.Next
	}
	return slicesx.IsUnique(nexts)
}

// Compress merges transitions to the same next state. Probabilities are summed
// and the reward becomes the probability-weighted average, which preserves the
// expected reward but not its risk. The result is sorted by next state.
func Compress(ts []mdp.Transition) []mdp.Transition {
	if isUniqueNext(ts) {
		out := slices.Clone(ts)
		slices.SortFunc(out, func(x, y mdp.Transition) int { return cmp.Compare(x.Next, y.Next) })
		return out
	}

	byNext := map[int]*mdp.Transition{}
	for _, t := range ts {
		acc, ok := byNext[t.Next]
		if !ok {
			byNext[t.Next] = &mdp.Transition{Next: t.Next, Probability: t.Probability, Reward: t.Probability * t.Reward}
			continue
		}
		acc.Probability += t.Probability
		acc.Reward += t.Probability * t.Reward
	}

	out := make([]mdp.Transition, 0, len(byNext))
	for _, acc := range byNext {
		acc.Reward /= acc.Probability
		out = append(out, *acc)
	}
	slices.SortFunc(out, func(x, y mdp.Transition) int { return cmp.Compare(x.Next, y.Next) })
	return out
}

// FromMatrices builds a model from one row-stochastic transition matrix and
// one state reward vector per action. Every state gets every action;
// zero-probability entries are dropped.
func FromMatrices(ps []mat.Matrix, rs []mat.Vector) (*IntMDP, error) {
	if len(ps) != len(rs) {
		return nil, fmt.Errorf("%w: %d transition matrices, %d reward vectors", mdp.ErrDimension, len(ps), len(rs))
	}
	return fromMatrices(ps, func(a, s, next int) float64 { return rs[a].AtVec(s) }, func(a int, n int) error {
		if rs[a].Len() != n {
			return fmt.Errorf("%w: action %d: reward vector length %d, want %d", mdp.ErrDimension, a, rs[a].Len(), n)
		}
		return nil
	})
}

// FromMatricesSAS is FromMatrices with rewards that depend on the next state:
// rs[a].At(s, next).
func FromMatricesSAS(ps []mat.Matrix, rs []mat.Matrix) (*IntMDP, error) {
	if len(ps) != len(rs) {
		return nil, fmt.Errorf("%w: %d transition matrices, %d reward matrices", mdp.ErrDimension, len(ps), len(rs))
	}
	return fromMatrices(ps, func(a, s, next int) float64 { return rs[a].At(s, next) }, func(a int, n int) error {
		if r, c := rs[a].Dims(); r != n || c != n {
			return fmt.Errorf("%w: action %d: reward matrix is %dx%d, want %dx%d", mdp.ErrDimension, a, r, c, n, n)
		}
		return nil
	})
}

func fromMatrices(ps []mat.Matrix, reward func(a, s, next int) float64, checkReward func(a, n int) error) (*IntMDP, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no actions", mdp.ErrDimension)
	}

	n, _ := ps[0].Dims()
	for a, p := range ps {
		r, c := p.Dims()
		if r != n || c != n {
			return nil, fmt.Errorf("%w: action %d: transition matrix is %dx%d, want %dx%d", mdp.ErrDimension, a, r, c, n, n)
		}
		if err := checkReward(a, n); err != nil {
			return nil, err
		}
	}

	states := make([]State, n)
	for s := 0; s < n; s++ {
		actions := make([]Action, len(ps))
		for a, p := range ps {
			ts := make([]mdp.Transition, 0, n)
			for next := 0; next < n; next++ {
				prob := p.At(s, next)
				if prob == 0 {
					continue
				}
				ts = append(ts, mdp.Transition{Next: next, Probability: prob, Reward: reward(a, s, next)})
			}
			actions[a] = Action{Transitions: ts}
		}
		states[s] = State{Actions: actions}
	}
	return New(states)
}
