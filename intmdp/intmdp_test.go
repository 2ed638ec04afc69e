package intmdp_test

import (
	"github.com/stretchr/testify/require"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/internal/testmodels"
	"github.com/sw965/mdp/intmdp"
	"gonum.org/v1/gonum/mat"
	"testing"
)

func TestNewTerminalInjection(t *testing.T) {
	m, err := intmdp.New([]intmdp.State{
		{Actions: []intmdp.Action{{Transitions: []mdp.Transition{{Next: 1, Probability: 1, Reward: 5}}}}},
		{},
	})
	require.NoError(t, err)
	require.Equal(t, 2, m.StateCount())
	require.False(t, mdp.IsTerminal(m, 0))
	require.True(t, mdp.IsTerminal(m, 1))
	require.Equal(t, []mdp.Transition{{Next: 1, Probability: 1, Reward: 0}}, m.Transition(1, 0))
}

func TestNewRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		states []intmdp.State
	}{
		{
			name: "異常_確率の合計",
			states: []intmdp.State{
				{Actions: []intmdp.Action{{Transitions: []mdp.Transition{{Next: 0, Probability: 0.5}}}}},
			},
		},
		{
			name: "異常_範囲外の遷移先",
			states: []intmdp.State{
				{Actions: []intmdp.Action{{Transitions: []mdp.Transition{{Next: 3, Probability: 1}}}}},
			},
		},
		{
			name: "異常_遷移なし",
			states: []intmdp.State{
				{Actions: []intmdp.Action{{}}},
			},
		},
		{
			name:   "異常_状態なし",
			states: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := intmdp.New(tc.states)
			require.ErrorIs(t, err, mdp.ErrDomain)
		})
	}
}

func TestFromMatrices(t *testing.T) {
	m := testmodels.Chain3()
	require.Equal(t, 3, m.StateCount())
	require.Equal(t, 2, m.ActionCount(1))
	require.Equal(t, []mdp.Transition{
		{Next: 0, Probability: 0.99, Reward: -1},
		{Next: 2, Probability: 0.01, Reward: -1},
	}, m.Transition(1, testmodels.Move))
	require.True(t, m.IsAggregated())
}

func TestFromMatricesSAS(t *testing.T) {
	p := mat.NewDense(2, 2, []float64{0.5, 0.5, 0, 1})
	r := mat.NewDense(2, 2, []float64{1, 2, 0, 0})
	m, err := intmdp.FromMatricesSAS([]mat.Matrix{p}, []mat.Matrix{r})
	require.NoError(t, err)
	require.Equal(t, []mdp.Transition{
		{Next: 0, Probability: 0.5, Reward: 1},
		{Next: 1, Probability: 0.5, Reward: 2},
	}, m.Transition(0, 0))
	require.True(t, mdp.IsTerminal(m, 1))
}

func TestFromMatricesDimensionMismatch(t *testing.T) {
	p := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	r := mat.NewVecDense(3, nil)
	_, err := intmdp.FromMatrices([]mat.Matrix{p}, []mat.Vector{r})
	require.ErrorIs(t, err, mdp.ErrDimension)

	_, err = intmdp.FromMatrices([]mat.Matrix{p}, nil)
	require.ErrorIs(t, err, mdp.ErrDimension)
}

func TestCompress(t *testing.T) {
	m := testmodels.Duplicated()
	require.False(t, m.IsAggregated())

	c := m.Compressed()
	require.True(t, c.IsAggregated())
	require.False(t, m.IsAggregated(), "Compressed must not modify the receiver")

	ts := c.Transition(0, 0)
	require.Len(t, ts, 1)
	require.Equal(t, 1, ts[0].Next)
	require.InDelta(t, 1.0, ts[0].Probability, 1e-12)
	require.InDelta(t, 2.0, ts[0].Reward, 1e-12)
}

func TestCompressSortsByNext(t *testing.T) {
	got := intmdp.Compress([]mdp.Transition{
		{Next: 2, Probability: 0.25, Reward: 4},
		{Next: 0, Probability: 0.5, Reward: 1},
		{Next: 2, Probability: 0.25, Reward: 0},
	})
	require.Len(t, got, 2)
	require.Equal(t, 0, got[0].Next)
	require.Equal(t, 2, got[1].Next)
	require.InDelta(t, 0.5, got[1].Probability, 1e-12)
	require.InDelta(t, 2.0, got[1].Reward, 1e-12)
}
