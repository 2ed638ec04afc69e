// Package value holds state value functions: a Vector for stationary
// objectives and a time-indexed Sequence for a finite horizon.
//
// Package value は状態価値関数を表すVectorとSequenceを提供します。
package value

import (
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/objective"
	"gonum.org/v1/gonum/floats"
	"math"
	"slices"
)

// Vector holds one value per state.
type Vector []float64

func NewZeros(n int) Vector {
	return make(Vector, n)
}

func (v Vector) Clone() Vector {
	return slices.Clone(v)
}

// Residual is the sup-norm distance between v and w.
func (v Vector) Residual(w Vector) float64 {
	return floats.Distance(v, w, math.Inf(1))
}

// Span is max(v) - min(v).
func (v Vector) Span() float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v) - floats.Min(v)
}

// Sequence is a time-indexed value function. For a horizon T it has T+1 entries;
// entry t is the value before the decision at time t and entry T is the terminal value.
type Sequence []Vector

func NewZerosSequence(horizon, n int) Sequence {
	seq := make(Sequence, horizon+1)
	for t := range seq {
		seq[t] = NewZeros(n)
	}
	return seq
}

// Make allocates a zero value function shaped for obj. A finite horizon T gets
// T+1 vectors. Stationary objectives (InfiniteHorizon, TotalReward) get a
// Sequence of length 1 whose only entry is the value Vector, so callers read
// it as Make(model, obj)[0].
func Make(model mdp.Model, obj objective.Objective) Sequence {
	n := model.StateCount()
	if h, ok := objective.Horizon(obj); ok {
		return NewZerosSequence(h, n)
	}
	return NewZerosSequence(0, n)
}
