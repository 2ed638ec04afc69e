// Package policy provides the tabular policy variants produced by the solvers and
// consumed by roll-out code.
//
// Package policy はソルバーが出力し、ロールアウト側が利用する表形式の方策を提供します。
package policy

import (
	"fmt"
	"github.com/chewxy/math32"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/omw/mathx/randx"
	"math/rand/v2"
	"slices"
)

const distributionTolerance = 1e-4

// Distribution is a probability per action index.
type Distribution []float32

// OneHot returns the distribution that selects a with certainty.
func OneHot(actionCount, a int) Distribution {
	d := make(Distribution, actionCount)
	d[a] = 1.0
	return d
}

func (d Distribution) Validate(actionCount int) error {
	if len(d) != actionCount {
		return fmt.Errorf("%w: distribution size (%d) does not match action count (%d)", mdp.ErrDomain, len(d), actionCount)
	}

	var sum float32
	for a, p := range d {
		if p < 0 || math32.IsNaN(p) || math32.IsInf(p, 0) {
			return fmt.Errorf("%w: invalid probability %v for action %d", mdp.ErrDomain, p, a)
		}
		sum += p
	}

	if math32.Abs(sum-1.0) > distributionTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", mdp.ErrDomain, sum)
	}
	return nil
}

// Policy is the capability handed to roll-out code. Probability is the chance of
// taking action a at time t in state s; stationary policies ignore t.
// The variants are closed: StationaryDet, StationaryRand, MarkovDet, MarkovRand.
type Policy interface {
	Probability(t, s, a int) float32
	Validate(model mdp.Model) error
	isPolicy()
}

// Deterministic policies name the selected action.
type Deterministic interface {
	Policy
	Action(t, s int) int
}

// Randomized policies expose the whole action distribution.
type Randomized interface {
	Policy
	Distribution(t, s int) Distribution
}

func indicator(selected, a int) float32 {
	if selected == a {
		return 1.0
	}
	return 0.0
}

func at(d Distribution, a int) float32 {
	if a < 0 || a >= len(d) {
		return 0.0
	}
	return d[a]
}

// StationaryDet maps each state to an action.
type StationaryDet []int

func NewStationaryDet(n int) StationaryDet {
	return make(StationaryDet, n)
}

func (p StationaryDet) Action(t, s int) int {
	return p[s]
}

func (p StationaryDet) Probability(t, s, a int) float32 {
	return indicator(p[s], a)
}

func (p StationaryDet) Equal(q StationaryDet) bool {
	return slices.Equal(p, q)
}

func (p StationaryDet) Clone() StationaryDet {
	return slices.Clone(p)
}

func (p StationaryDet) Validate(model mdp.Model) error {
	return validateActions(model, p)
}

func (StationaryDet) isPolicy() {}

// StationaryRand maps each state to an action distribution.
type StationaryRand []Distribution

func (p StationaryRand) Distribution(t, s int) Distribution {
	return p[s]
}

func (p StationaryRand) Probability(t, s, a int) float32 {
	return at(p[s], a)
}

func (p StationaryRand) Validate(model mdp.Model) error {
	n := model.StateCount()
	if len(p) != n {
		return fmt.Errorf("%w: policy has %d states, model has %d", mdp.ErrDimension, len(p), n)
	}
	for s, d := range p {
		if err := d.Validate(model.ActionCount(s)); err != nil {
			return fmt.Errorf("state %d: %w", s, err)
		}
	}
	return nil
}

func (StationaryRand) isPolicy() {}

// MarkovDet is indexed [t][s].
type MarkovDet [][]int

func NewMarkovDet(horizon, n int) MarkovDet {
	p := make(MarkovDet, horizon)
	for t := range p {
		p[t] = make([]int, n)
	}
	return p
}

func (p MarkovDet) Action(t, s int) int {
	return p[t][s]
}

func (p MarkovDet) Probability(t, s, a int) float32 {
	return indicator(p[t][s], a)
}

func (p MarkovDet) Validate(model mdp.Model) error {
	for t, actions := range p {
		if err := validateActions(model, actions); err != nil {
			return fmt.Errorf("time %d: %w", t, err)
		}
	}
	return nil
}

func (MarkovDet) isPolicy() {}

// MarkovRand is indexed [t][s].
type MarkovRand [][]Distribution

func (p MarkovRand) Distribution(t, s int) Distribution {
	return p[t][s]
}

func (p MarkovRand) Probability(t, s, a int) float32 {
	return at(p[t][s], a)
}

func (p MarkovRand) Validate(model mdp.Model) error {
	for t, ds := range p {
		if err := StationaryRand(ds).Validate(model); err != nil {
			return fmt.Errorf("time %d: %w", t, err)
		}
	}
	return nil
}

func (MarkovRand) isPolicy() {}

func validateActions(model mdp.Model, actions []int) error {
	n := model.StateCount()
	if len(actions) != n {
		return fmt.Errorf("%w: policy has %d states, model has %d", mdp.ErrDimension, len(actions), n)
	}
	for s, a := range actions {
		if an := model.ActionCount(s); a < 0 || a >= an {
			return fmt.Errorf("%w: state %d: action %d out of range [0, %d)", mdp.ErrDomain, s, a, an)
		}
	}
	return nil
}

// Make allocates deterministic policy storage shaped for obj: MarkovDet with
// one row per decision for a finite horizon, StationaryDet otherwise.
func Make(model mdp.Model, obj objective.Objective) Deterministic {
	n := model.StateCount()
	if h, ok := objective.Horizon(obj); ok {
		return NewMarkovDet(h, n)
	}
	return NewStationaryDet(n)
}

// Random draws a uniformly random stationary deterministic policy.
func Random(model mdp.Model, rng *rand.Rand) StationaryDet {
	n := model.StateCount()
	p := NewStationaryDet(n)
	for s := range p {
		p[s] = rng.IntN(model.ActionCount(s))
	}
	return p
}

// Sample draws the action taken by p at time t in state s.
func Sample(p Policy, t, s int, rng *rand.Rand) (int, error) {
	switch q := p.(type) {
	case Deterministic:
		return q.Action(t, s), nil
	case Randomized:
		return randx.IntByWeights(q.Distribution(t, s), rng)
	default:
		return 0, fmt.Errorf("%w: unsupported policy %T", mdp.ErrConfiguration, p)
	}
}
