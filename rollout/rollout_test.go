package rollout_test

import (
	"github.com/stretchr/testify/require"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/internal/testmodels"
	"github.com/sw965/mdp/linprog"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/rollout"
	"math/rand/v2"
	"testing"
)

func newRngs(n int) []*rand.Rand {
	rngs := make([]*rand.Rand, n)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(uint64(i), uint64(i+1)))
	}
	return rngs
}

func TestPlayoutDeterministic(t *testing.T) {
	e := rollout.Engine{Model: testmodels.TwoStateCycle(), Discount: 0.5, MaxSteps: 4}

	record, err := e.Playout(policy.StationaryDet{0, 0}, 0, newRngs(1)[0])
	require.NoError(t, err)
	require.Len(t, record.Steps, 4)
	require.InDelta(t, 1.25, record.Return, 1e-12)
	require.Equal(t, 0, record.Final)
	require.False(t, record.Ended)
	require.Equal(t, rollout.Step{Time: 1, State: 1, Action: 0, Reward: 0}, record.Steps[1])
}

func TestPlayoutMarkovLimit(t *testing.T) {
	e := rollout.Engine{Model: testmodels.TwoStateCycle(), Discount: 1, MaxSteps: 100}

	record, err := e.Playout(policy.MarkovDet{{0, 0}, {0, 0}, {0, 0}}, 1, newRngs(1)[0])
	require.NoError(t, err)
	require.Len(t, record.Steps, 3)
	require.InDelta(t, 1.0, record.Return, 1e-12)
}

func TestPlayoutTerminalStart(t *testing.T) {
	e := rollout.Engine{Model: testmodels.Gambler(0.4, 4, false), Discount: 1, MaxSteps: 10}

	record, err := e.Playout(policy.NewStationaryDet(5), 4, newRngs(1)[0])
	require.NoError(t, err)
	require.Empty(t, record.Steps)
	require.True(t, record.Ended)

	_, err = e.Playout(policy.NewStationaryDet(5), 9, newRngs(1)[0])
	require.ErrorIs(t, err, mdp.ErrDomain)
}

func TestMeanReturnMatchesLP(t *testing.T) {
	m := testmodels.Gambler(0.4, 4, false)
	result, err := linprog.SolveMDP(m, objective.TotalReward{}, linprog.Simplex{}, linprog.DefaultConfig())
	require.NoError(t, err)

	e := rollout.Engine{Model: m, Discount: 1, MaxSteps: 1000}
	for _, start := range []int{1, 2, 3} {
		mean, err := e.MeanReturn(result.Policy, start, 4000, newRngs(4))
		require.NoError(t, err)
		require.InDelta(t, result.Value[start], mean, 0.05)
	}
}

func TestPlayoutsRandomized(t *testing.T) {
	m := testmodels.Gambler(0.5, 4, true)
	pi := policy.StationaryRand{{1}, {0.5, 0.5}, {0, 0.5, 0.5}, {0.5, 0.5}, {1}}
	require.NoError(t, pi.Validate(m))

	e := rollout.Engine{Model: m, Discount: 1, MaxSteps: 50}
	records, err := e.Playouts(pi, []int{1, 2, 3, 2, 1}, newRngs(2))
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, r := range records {
		require.LessOrEqual(t, len(r.Steps), 50)
		for _, s := range r.Steps {
			require.Less(t, s.Action, m.ActionCount(s.State))
		}
	}
}

func TestEngineValidate(t *testing.T) {
	tests := []struct {
		name   string
		engine rollout.Engine
	}{
		{name: "異常_モデルなし", engine: rollout.Engine{Discount: 1}},
		{name: "異常_割引率", engine: rollout.Engine{Model: testmodels.Chain3(), Discount: 1.5}},
		{name: "異常_ステップ数", engine: rollout.Engine{Model: testmodels.Chain3(), Discount: 1, MaxSteps: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.engine.Validate(), mdp.ErrConfiguration)
		})
	}

	e := rollout.Engine{Model: testmodels.Chain3(), Discount: 1, MaxSteps: 1}
	_, err := e.Playouts(policy.NewStationaryDet(3), []int{0}, nil)
	require.ErrorIs(t, err, mdp.ErrConfiguration)
	_, err = e.MeanReturn(policy.NewStationaryDet(3), 0, 0, newRngs(1))
	require.ErrorIs(t, err, mdp.ErrConfiguration)
}
