// Package mrp reduces a tabular model and a stationary policy to a Markov reward
// process: a row-stochastic transition matrix P and a reward vector r.
//
// Transition sets must be aggregated: a next state listed twice for one
// state-action pair is rejected with mdp.ErrStructural instead of being summed,
// since summing changes risk-sensitive values. Use intmdp.Compress explicitly
// when expected values are all that matter.
package mrp

import (
	"fmt"
	"github.com/james-bowman/sparse"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/policy"
	"gonum.org/v1/gonum/mat"
)

// accumulator receives the weighted transitions of each state.
type accumulator func(s, next int, p float64)

// builder walks model under pi. seen holds, per next state, the last
// state-action stamp that visited it.
type builder struct {
	model mdp.Model
	seen  []int
	stamp int
}

func newBuilder(model mdp.Model) *builder {
	n := model.StateCount()
	seen := make([]int, n)
	for i := range seen {
		seen[i] = -1
	}
	return &builder{model: model, seen: seen}
}

func (b *builder) action(s, a int, weight float64, add accumulator) (float64, error) {
	an := b.model.ActionCount(s)
	if a < 0 || a >= an {
		return 0, fmt.Errorf("%w: state %d: action %d out of range [0, %d)", mdp.ErrDomain, s, a, an)
	}

	b.stamp++
	r := 0.0
	for _, t := range b.model.Transition(s, a) {
		if b.seen[t.Next] == b.stamp {
			return 0, fmt.Errorf("%w: state %d action %d lists next state %d more than once", mdp.ErrStructural, s, a, t.Next)
		}
		b.seen[t.Next] = b.stamp
		add(s, t.Next, weight*t.Probability)
		r += t.Probability * t.Reward
	}
	return weight * r, nil
}

func (b *builder) run(pi policy.Policy, r []float64, add accumulator) error {
	n := b.model.StateCount()
	switch p := pi.(type) {
	case policy.StationaryDet:
		if len(p) != n {
			return fmt.Errorf("%w: policy has %d states, model has %d", mdp.ErrDimension, len(p), n)
		}
		for s, a := range p {
			rs, err := b.action(s, a, 1.0, add)
			if err != nil {
				return err
			}
			r[s] = rs
		}
	case policy.StationaryRand:
		if err := p.Validate(b.model); err != nil {
			return err
		}
		for s, d := range p {
			r[s] = 0
			for a, w := range d {
				if w == 0 {
					continue
				}
				rs, err := b.action(s, a, float64(w), add)
				if err != nil {
					return err
				}
				r[s] += rs
			}
		}
	default:
		return fmt.Errorf("%w: a Markov reward process needs a stationary policy, got %T", mdp.ErrConfiguration, pi)
	}
	return nil
}

// DenseInto overwrites P and r with the Markov reward process of pi. The
// buffers are owned by the caller and must be n x n and n long.
func DenseInto(P *mat.Dense, r *mat.VecDense, model mdp.Model, pi policy.Policy) error {
	n := model.StateCount()
	if rows, cols := P.Dims(); rows != n || cols != n {
		return fmt.Errorf("%w: P is %dx%d, want %dx%d", mdp.ErrDimension, rows, cols, n, n)
	}
	if r.Len() != n {
		return fmt.Errorf("%w: r has length %d, want %d", mdp.ErrDimension, r.Len(), n)
	}
	P.Zero()
	r.Zero()

	rData := r.RawVector().Data
	if r.RawVector().Inc != 1 {
		rData = make([]float64, n)
	}
	add := func(s, next int, p float64) {
		P.Set(s, next, P.At(s, next)+p)
	}
	if err := newBuilder(model).run(pi, rData, add); err != nil {
		return err
	}
	if r.RawVector().Inc != 1 {
		for s, v := range rData {
			r.SetVec(s, v)
		}
	}
	return nil
}

func Dense(model mdp.Model, pi policy.Policy) (*mat.Dense, *mat.VecDense, error) {
	n := model.StateCount()
	P := mat.NewDense(n, n, nil)
	r := mat.NewVecDense(n, nil)
	if err := DenseInto(P, r, model, pi); err != nil {
		return nil, nil, err
	}
	return P, r, nil
}

// Sparse is Dense with a compressed sparse row transition matrix, preferable
// when every row reaches few next states. The matrix is assembled as a
// dictionary of keys and converted once.
func Sparse(model mdp.Model, pi policy.Policy) (*sparse.CSR, []float64, error) {
	n := model.StateCount()
	P := sparse.NewDOK(n, n)
	r := make([]float64, n)
	add := func(s, next int, p float64) {
		P.Set(s, next, P.At(s, next)+p)
	}
	if err := newBuilder(model).run(pi, r, add); err != nil {
		return nil, nil, err
	}
	return P.ToCSR(), r, nil
}
