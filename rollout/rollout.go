// Package rollout samples trajectories of a tabular model under a policy. It is
// the consumer side of policy.Policy: solvers produce policies, roll-outs play
// them.
//
// Package rollout は方策に従って表形式MDPの軌跡をサンプリングします。
package rollout

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/omw/parallel"
	"math/rand/v2"
)

type Step struct {
	Time   int
	State  int
	Action int
	Reward float64
}

type Record struct {
	Steps []Step
	// Return is the discounted sum of the rewards of Steps.
	Return float64
	Final  int
	// Ended is true when Final is a terminal state.
	Ended bool
}

type Engine struct {
	Model    mdp.Model
	Discount float64
	// MaxSteps caps the length of a trajectory. Markov policies are further
	// capped by their number of rows.
	MaxSteps int
}

func (e Engine) Validate() error {
	if e.Model == nil {
		return fmt.Errorf("%w: model is nil", mdp.ErrConfiguration)
	}
	if e.Discount < 0 || e.Discount > 1 {
		return fmt.Errorf("%w: discount %v not in [0, 1]", mdp.ErrConfiguration, e.Discount)
	}
	if e.MaxSteps < 0 {
		return fmt.Errorf("%w: max steps must be non-negative, got %d", mdp.ErrConfiguration, e.MaxSteps)
	}
	return nil
}

func (e Engine) limit(pi policy.Policy) int {
	switch p := pi.(type) {
	case policy.MarkovDet:
		return min(e.MaxSteps, len(p))
	case policy.MarkovRand:
		return min(e.MaxSteps, len(p))
	default:
		return e.MaxSteps
	}
}

func (e Engine) next(s, a int, rng *rand.Rand) (mdp.Transition, error) {
	ts := e.Model.Transition(s, a)
	ws := make([]float32, len(ts))
	for i, t := range ts {
		ws[i] = float32(t.Probability)
	}
	idx, err := randx.IntByWeights(ws, rng)
	if err != nil {
		return mdp.Transition{}, err
	}
	return ts[idx], nil
}

func (e Engine) playout(pi policy.Policy, start int, limit int, rng *rand.Rand) (Record, error) {
	if start < 0 || start >= e.Model.StateCount() {
		return Record{}, fmt.Errorf("%w: start state %d out of range [0, %d)", mdp.ErrDomain, start, e.Model.StateCount())
	}

	record := Record{Steps: make([]Step, 0, limit)}
	s := start
	weight := 1.0
	for t := 0; t < limit; t++ {
		if mdp.IsTerminal(e.Model, s) {
			break
		}

		a, err := policy.Sample(pi, t, s, rng)
		if err != nil {
			return Record{}, err
		}
		if an := e.Model.ActionCount(s); a < 0 || a >= an {
			return Record{}, fmt.Errorf("%w: time %d state %d: action %d out of range [0, %d)", mdp.ErrDomain, t, s, a, an)
		}

		tr, err := e.next(s, a, rng)
		if err != nil {
			return Record{}, err
		}
		record.Steps = append(record.Steps, Step{Time: t, State: s, Action: a, Reward: tr.Reward})
		record.Return += weight * tr.Reward
		weight *= e.Discount
		s = tr.Next
	}
	record.Final = s
	record.Ended = mdp.IsTerminal(e.Model, s)
	return record, nil
}

// Playout samples one trajectory from start.
func (e Engine) Playout(pi policy.Policy, start int, rng *rand.Rand) (Record, error) {
	if err := e.Validate(); err != nil {
		return Record{}, err
	}
	return e.playout(pi, start, e.limit(pi), rng)
}

// Playouts samples one trajectory per start state on len(rngs) workers. Worker
// i draws only from rngs[i].
func (e Engine) Playouts(pi policy.Policy, starts []int, rngs []*rand.Rand) ([]Record, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if len(rngs) == 0 {
		return nil, fmt.Errorf("%w: at least one random source is required", mdp.ErrConfiguration)
	}

	limit := e.limit(pi)
	records := make([]Record, len(starts))
	err := parallel.For(len(starts), len(rngs), func(workerId, idx int) error {
		record, err := e.playout(pi, starts[idx], limit, rngs[workerId])
		if err != nil {
			return err
		}
		records[idx] = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MeanReturn is the Monte Carlo estimate of the value of pi at start from
// episodes trajectories.
func (e Engine) MeanReturn(pi policy.Policy, start, episodes int, rngs []*rand.Rand) (float64, error) {
	if episodes <= 0 {
		return 0, fmt.Errorf("%w: episodes must be positive, got %d", mdp.ErrConfiguration, episodes)
	}
	starts := make([]int, episodes)
	for i := range starts {
		starts[i] = start
	}

	records, err := e.Playouts(pi, starts, rngs)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, r := range records {
		sum += r.Return
	}
	return sum / float64(episodes), nil
}
