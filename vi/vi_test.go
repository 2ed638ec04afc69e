package vi_test

import (
	"bytes"
	"github.com/stretchr/testify/require"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/internal/testmodels"
	"github.com/sw965/mdp/objective"
	"github.com/sw965/mdp/policy"
	"github.com/sw965/mdp/value"
	"github.com/sw965/mdp/vi"
	"log/slog"
	"testing"
)

func TestFinite(t *testing.T) {
	m := testmodels.Chain3()
	obj := objective.FiniteHorizon{Discount: 1, Horizon: 2}

	result, err := vi.Finite(m, obj, nil, vi.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, result.Values, 3)
	require.Len(t, result.Policy, 2)

	require.Equal(t, value.NewZeros(3), result.Values[2])
	require.InDeltaSlice(t, []float64{10, -1, 0}, result.Values[1], 1e-12)
	require.InDeltaSlice(t, []float64{20, 8.9, 0}, result.Values[0], 1e-12)
	require.Equal(t, []int{0, 0, 0}, result.Policy[1])
	require.Equal(t, []int{testmodels.Stay, testmodels.Move, testmodels.Stay}, result.Policy[0])
}

func TestFiniteTerminal(t *testing.T) {
	m := testmodels.Chain3()
	obj := objective.FiniteHorizon{Discount: 0.5, Horizon: 1}

	result, err := vi.Finite(m, obj, value.Vector{0, 100, 0}, vi.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, value.Vector{0, 100, 0}, result.Values[1])
	require.InDeltaSlice(t, []float64{60, 49, 0}, result.Values[0], 1e-12)
	require.Equal(t, []int{testmodels.Move, testmodels.Stay, testmodels.Stay}, result.Policy[0])

	_, err = vi.Finite(m, obj, value.Vector{0}, vi.DefaultConfig())
	require.ErrorIs(t, err, mdp.ErrDimension)
}

func TestFiniteInto(t *testing.T) {
	m := testmodels.Chain3()
	obj := objective.FiniteHorizon{Discount: 1, Horizon: 2}
	cfg := vi.DefaultConfig()

	v := value.NewZerosSequence(2, 3)
	pi := policy.NewMarkovDet(2, 3)
	v[2] = value.Vector{1, 1, 1}
	require.NoError(t, vi.FiniteInto(v, pi, m, obj, nil, cfg))
	require.InDeltaSlice(t, []float64{21, 9.9, 1}, v[0], 1e-12)

	tests := []struct {
		name string
		v    value.Sequence
		pi   policy.MarkovDet
	}{
		{name: "異常_価値の長さ", v: value.NewZerosSequence(1, 3), pi: policy.NewMarkovDet(2, 3)},
		{name: "異常_方策の長さ", v: value.NewZerosSequence(2, 3), pi: policy.NewMarkovDet(3, 3)},
		{name: "異常_状態数", v: value.NewZerosSequence(2, 2), pi: policy.NewMarkovDet(2, 3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := vi.FiniteInto(tc.v, tc.pi, m, obj, nil, cfg)
			require.ErrorIs(t, err, mdp.ErrDimension)
		})
	}
}

func TestEvaluateFinite(t *testing.T) {
	m := testmodels.Chain3()
	obj := objective.FiniteHorizon{Discount: 1, Horizon: 2}
	move := policy.StationaryDet{testmodels.Move, testmodels.Move, testmodels.Move}

	v, err := vi.EvaluateFinite(m, obj, move, nil, vi.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, v, 3)
	require.InDeltaSlice(t, []float64{9, 8.9, 0}, v[0], 1e-12)

	// 最適方策の評価値は最適価値と一致する
	result, err := vi.Finite(m, obj, nil, vi.DefaultConfig())
	require.NoError(t, err)
	v, err = vi.EvaluateFinite(m, obj, result.Policy, nil, vi.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, result.Values, v)

	_, err = vi.EvaluateFinite(m, obj, policy.NewMarkovDet(1, 3), nil, vi.DefaultConfig())
	require.ErrorIs(t, err, mdp.ErrDimension)

	cfg := vi.DefaultConfig()
	cfg.Epsilon = -1
	_, err = vi.EvaluateFinite(m, obj, move, nil, cfg)
	require.ErrorIs(t, err, mdp.ErrConfiguration)
}

func TestInfinite(t *testing.T) {
	cfg := vi.DefaultConfig()

	t.Run("chain3", func(t *testing.T) {
		result, err := vi.Infinite(testmodels.Chain3(), objective.InfiniteHorizon{Discount: 0.9}, cfg)
		require.NoError(t, err)
		require.True(t, result.Converged)
		require.InDeltaSlice(t, testmodels.Chain3Optimal, result.Value, cfg.Epsilon)
		require.Equal(t, policy.StationaryDet{testmodels.Stay, testmodels.Move, testmodels.Stay}, result.Policy)
	})

	t.Run("two_state_cycle", func(t *testing.T) {
		for _, discount := range []float64{0.1, 0.5, 0.95} {
			result, err := vi.Infinite(testmodels.TwoStateCycle(), objective.InfiniteHorizon{Discount: discount}, cfg)
			require.NoError(t, err)
			require.True(t, result.Converged)
			require.InDeltaSlice(t, testmodels.TwoStateCycleValue(discount), result.Value, cfg.Epsilon)
		}
	})

	t.Run("割引率0", func(t *testing.T) {
		result, err := vi.Infinite(testmodels.Chain3(), objective.InfiniteHorizon{Discount: 0}, cfg)
		require.NoError(t, err)
		require.True(t, result.Converged)
		require.Equal(t, 1, result.Iterations)
		require.Equal(t, value.Vector{10, -1, 0}, result.Value)
	})
}

func TestInfiniteNotConverged(t *testing.T) {
	var buf bytes.Buffer
	cfg := vi.DefaultConfig()
	cfg.Iterations = 2
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	result, err := vi.Infinite(testmodels.Chain3(), objective.InfiniteHorizon{Discount: 0.9}, cfg)
	require.NoError(t, err)
	require.False(t, result.Converged)
	require.Equal(t, 2, result.Iterations)
	require.Greater(t, result.Residual, 0.0)
	require.Contains(t, buf.String(), "did not converge")
}

func TestInfiniteParallel(t *testing.T) {
	m := testmodels.Gambler(0.4, 30, true)
	obj := objective.InfiniteHorizon{Discount: 0.95}

	serial, err := vi.Infinite(m, obj, vi.DefaultConfig())
	require.NoError(t, err)

	cfg := vi.DefaultConfig()
	cfg.Parallelism = 4
	parallel, err := vi.Infinite(m, obj, cfg)
	require.NoError(t, err)

	require.Equal(t, serial.Value, parallel.Value)
	require.Equal(t, serial.Policy, parallel.Policy)
	require.Equal(t, serial.Iterations, parallel.Iterations)
}

func TestEvaluateInfinite(t *testing.T) {
	m := testmodels.TwoStateCycle()
	obj := objective.InfiniteHorizon{Discount: 0.5}
	cfg := vi.DefaultConfig()

	ev, err := vi.EvaluateInfinite(m, obj, policy.StationaryRand{{1}, {1}}, cfg)
	require.NoError(t, err)
	require.True(t, ev.Converged)
	require.InDeltaSlice(t, testmodels.TwoStateCycleValue(0.5), ev.Value, cfg.Epsilon)

	_, err = vi.EvaluateInfinite(m, obj, policy.MarkovDet{{0, 0}}, cfg)
	require.ErrorIs(t, err, mdp.ErrConfiguration)
	_, err = vi.EvaluateInfinite(m, obj, policy.StationaryDet{0, 1}, cfg)
	require.ErrorIs(t, err, mdp.ErrDomain)
}

func TestSolve(t *testing.T) {
	m := testmodels.Chain3()
	cfg := vi.DefaultConfig()

	result, err := vi.Solve(m, objective.FiniteHorizon{Discount: 1, Horizon: 3}, cfg)
	require.NoError(t, err)
	finite, ok := result.(vi.FiniteResult)
	require.True(t, ok)
	require.Len(t, finite.Values, 4)

	result, err = vi.Solve(m, objective.InfiniteHorizon{Discount: 0.9}, cfg)
	require.NoError(t, err)
	_, ok = result.(vi.InfiniteResult)
	require.True(t, ok)

	tests := []struct {
		name string
		obj  objective.Objective
	}{
		{name: "異常_総報酬", obj: objective.TotalReward{}},
		{name: "異常_nil", obj: nil},
		{name: "異常_割引率", obj: objective.InfiniteHorizon{Discount: 1}},
		{name: "異常_ホライズン", obj: objective.FiniteHorizon{Discount: 1, Horizon: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := vi.Solve(m, tc.obj, cfg)
			require.ErrorIs(t, err, mdp.ErrConfiguration)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*vi.Config)
		wantErr bool
	}{
		{name: "正常", mutate: func(*vi.Config) {}},
		{name: "異常_反復回数", mutate: func(c *vi.Config) { c.Iterations = 0 }, wantErr: true},
		{name: "異常_epsilon", mutate: func(c *vi.Config) { c.Epsilon = 0 }, wantErr: true},
		{name: "異常_並列数", mutate: func(c *vi.Config) { c.Parallelism = -1 }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := vi.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, mdp.ErrConfiguration)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
