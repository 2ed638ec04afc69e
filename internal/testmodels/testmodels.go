// Package testmodels builds small models with known solutions for the tests of
// the solver packages.
package testmodels

import (
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/intmdp"
	"gonum.org/v1/gonum/mat"
)

const (
	Stay = 0
	Move = 1
)

// Chain3 has actions stay and move. Stay keeps the state, move goes
// 0 -> 1, 1 -> 0 (0.99) or 2 (0.01), and 2 -> 2. Rewards are 10, -1, 0 per state
// regardless of the action.
func Chain3() *intmdp.IntMDP {
	pStay := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	pMove := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0.99, 0, 0.01,
		0, 0, 1,
	})
	r := mat.NewVecDense(3, []float64{10, -1, 0})
	m, err := intmdp.FromMatrices([]mat.Matrix{pStay, pMove}, []mat.Vector{r, r})
	if err != nil {
		panic(err)
	}
	return m
}

// Chain3Optimal is the discounted (0.9) optimal value of Chain3.
var Chain3Optimal = []float64{100, 88.1, 0}

// TwoStateCycle alternates between two states with a single action: reward 1
// when leaving state 0 and 0 when leaving state 1.
func TwoStateCycle() *intmdp.IntMDP {
	m, err := intmdp.New([]intmdp.State{
		{Actions: []intmdp.Action{{Transitions: []mdp.Transition{{Next: 1, Probability: 1, Reward: 1}}}}},
		{Actions: []intmdp.Action{{Transitions: []mdp.Transition{{Next: 0, Probability: 1, Reward: 0}}}}},
	})
	if err != nil {
		panic(err)
	}
	return m
}

// TwoStateCycleValue is the exact discounted value of TwoStateCycle.
func TwoStateCycleValue(discount float64) []float64 {
	v0 := 1.0 / (1.0 - discount*discount)
	return []float64{v0, discount * v0}
}

// Gambler is the transient gambler's ruin: state c is the capital, 0 and target
// are terminal, reaching target pays 1. A bet b in 1..min(c, target-c) is won with
// probability win. Action a is bet a+1. If noop is true a zero bet, which keeps the
// capital forever, is appended as the last action of every non-terminal state.
func Gambler(win float64, target int, noop bool) *intmdp.IntMDP {
	states := make([]intmdp.State, target+1)
	for c := 1; c < target; c++ {
		maxBet := min(c, target-c)
		actions := make([]intmdp.Action, 0, maxBet+1)
		for b := 1; b <= maxBet; b++ {
			up := c + b
			reward := 0.0
			if up == target {
				reward = 1.0
			}
			actions = append(actions, intmdp.Action{Transitions: []mdp.Transition{
				{Next: up, Probability: win, Reward: reward},
				{Next: c - b, Probability: 1 - win, Reward: 0},
			}})
		}
		if noop {
			actions = append(actions, intmdp.Action{Transitions: []mdp.Transition{{Next: c, Probability: 1, Reward: 0}}})
		}
		states[c] = intmdp.State{Actions: actions}
	}

	m, err := intmdp.New(states)
	if err != nil {
		panic(err)
	}
	return m
}

// Duplicated lists next state 1 twice for action 0 of state 0.
func Duplicated() *intmdp.IntMDP {
	m, err := intmdp.New([]intmdp.State{
		{Actions: []intmdp.Action{{Transitions: []mdp.Transition{
			{Next: 1, Probability: 0.5, Reward: 1},
			{Next: 1, Probability: 0.5, Reward: 3},
		}}}},
		{},
	})
	if err != nil {
		panic(err)
	}
	return m
}
