package gokincore

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func grid(t *testing.T, lo, hi float64, n int) []float64 {
	t.Helper()
	xs := make([]float64, n)
	floats.Span(xs, lo, hi)
	return xs
}

func genY(t *testing.T, kind ModelKind, params, x []float64) []float64 {
	t.Helper()
	m, err := LookupModel(kind)
	require.NoError(t, err)
	y := make([]float64, len(x))
	for i, xv := range x {
		y[i] = m.Eval(xv, params)
	}
	return y
}

func requireParamsClose(t *testing.T, want, got []float64, relTol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		tol := relTol * math.Max(math.Abs(want[i]), 1e-8)
		require.InDelta(t, want[i], got[i], tol, "param %d", i)
	}
}

func TestFit_RecoversKnownParams(t *testing.T) {
	cases := []struct {
		name   string
		kind   ModelKind
		params []float64
		init   []float64
		x      []float64
	}{
		{
			name:   "linear",
			kind:   Linear,
			params: []float64{1.5, 0.3},
			init:   []float64{1, 1},
			x:      grid(t, 0, 10, 21),
		},
		{
			name:   "exp1",
			kind:   Exp1,
			params: []float64{2, -0.3, 0.5},
			init:   []float64{1, -1, 0},
			x:      grid(t, 0, 20, 21),
		},
		{
			name:   "exp2",
			kind:   Exp2,
			params: []float64{3, 1, -2, -0.1},
			init:   []float64{2.5, 1.2, -1.7, -0.15},
			x:      grid(t, 0, 20, 41),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			y := genY(t, tc.kind, tc.params, tc.x)
			m, err := LookupModel(tc.kind)
			require.NoError(t, err)

			res, err := Fit(tc.x, y, m, FitOptions{InitParams: tc.init})
			require.NoError(t, err)
			require.Equal(t, OK, res.Status)
			requireParamsClose(t, tc.params, res.Params, 1e-4)
			require.InDelta(t, 1.0, res.RSquared, 1e-6)
			require.Greater(t, res.FuncEval, 0)
			require.Empty(t, res.Warnings)
			for _, se := range res.StdErrs {
				require.False(t, math.IsNaN(se))
				require.False(t, math.IsInf(se, 0))
				require.GreaterOrEqual(t, se, 0.0)
			}
		})
	}
}

func TestFit_DerivedInitParams(t *testing.T) {
	x := grid(t, 0, 10, 21)
	y := genY(t, Exp1, []float64{2, -0.3, 0.5}, x)
	m, _ := LookupModel(Exp1)

	res, err := Fit(x, y, m, FitOptions{})
	require.NoError(t, err)
	requireParamsClose(t, []float64{2, -0.3, 0.5}, res.Params, 1e-4)
}

func TestFit_Deterministic(t *testing.T) {
	x := grid(t, 0, 20, 21)
	y := genY(t, Exp1, []float64{2, -0.3, 0.5}, x)
	m, _ := LookupModel(Exp1)
	opts := FitOptions{InitParams: []float64{1, -1, 0}}

	a, err := Fit(x, y, m, opts)
	require.NoError(t, err)
	b, err := Fit(x, y, m, opts)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFit_CurveSpansObservedRange(t *testing.T) {
	x := []float64{3, 0, 7, 5} // unsorted and sparse on purpose
	y := genY(t, Linear, []float64{2, 1}, x)
	m, _ := LookupModel(Linear)

	res, err := Fit(x, y, m, FitOptions{InitParams: []float64{1, 1}})
	require.NoError(t, err)
	require.Len(t, res.Curve, CurvePoints)
	require.Equal(t, 0.0, res.Curve[0][0])
	require.Equal(t, 7.0, res.Curve[len(res.Curve)-1][0])
	for i := 1; i < len(res.Curve); i++ {
		require.Greater(t, res.Curve[i][0], res.Curve[i-1][0])
	}
}

func TestFit_NoisyData(t *testing.T) {
	x := grid(t, 0, 10, 21)
	m, _ := LookupModel(Exp1)
	truth := []float64{2, -0.3, 0.5}
	y := NoisyCurve(m, x, truth, 0.01, 3)

	res, err := Fit(x, y, m, FitOptions{InitParams: []float64{1, -1, 0}})
	require.NoError(t, err)
	require.Greater(t, res.RSquared, 0.99)
	requireParamsClose(t, truth, res.Params, 0.05)
}

func TestFit_NelderMead(t *testing.T) {
	x := grid(t, 0, 10, 21)
	truth := []float64{2, -0.3, 0.5}
	y := genY(t, Exp1, truth, x)
	m, _ := LookupModel(Exp1)

	res, err := Fit(x, y, m, FitOptions{
		InitParams:   []float64{1.5, -0.5, 0.2},
		Method:       MethodNelderMead,
		MaxFuncEvals: 10000,
	})
	require.NoError(t, err)
	requireParamsClose(t, truth, res.Params, 1e-2)
	require.Greater(t, res.RSquared, 0.999)
}

func TestFit_Bounded(t *testing.T) {
	t.Run("truth inside the box", func(t *testing.T) {
		x := grid(t, 0, 20, 21)
		truth := []float64{2, -0.3, 0.5}
		y := genY(t, Exp1, truth, x)
		m, _ := LookupModel(Exp1)

		res, err := Fit(x, y, m, FitOptions{
			InitParams: []float64{1, -1, 0},
			Bounds:     UniformBounds(-3, 3),
		})
		require.NoError(t, err)
		requireParamsClose(t, truth, res.Params, 1e-4)
		for _, p := range res.Params {
			require.GreaterOrEqual(t, p, -3.0)
			require.LessOrEqual(t, p, 3.0)
		}
	})

	t.Run("bound excludes the truth", func(t *testing.T) {
		x := grid(t, 0, 20, 21)
		y := genY(t, Exp1, []float64{2, -0.3, 0.5}, x)
		m, _ := LookupModel(Exp1)

		res, err := Fit(x, y, m, FitOptions{
			InitParams: []float64{1, -1, 0},
			Bounds: Bounds{
				Lower: []float64{-3, -3, -3},
				Upper: []float64{1.5, 3, 3}, // true amplitude 2 is unreachable
			},
		})
		require.NoError(t, err)
		require.LessOrEqual(t, res.Params[0], 1.5)
		require.Greater(t, res.Params[0], 1.0)
	})
}

func TestFit_BudgetExhausted(t *testing.T) {
	x := grid(t, 0, 20, 21)
	y := genY(t, Exp1, []float64{2, -0.3, 0.5}, x)
	m, _ := LookupModel(Exp1)

	res, err := Fit(x, y, m, FitOptions{
		InitParams:   []float64{5, 5, 5},
		MaxFuncEvals: 3,
	})
	require.Nil(t, res)
	var div *FitDivergedError
	require.ErrorAs(t, err, &div)
	require.Equal(t, Exp1, div.Kind)
	require.Contains(t, div.Reason, "budget")
}

func TestFit_SingularCovariance(t *testing.T) {
	// Flat data fitted with a zero starting amplitude leaves the rate
	// constant without influence on the residuals.
	x := grid(t, 0, 10, 11)
	y := make([]float64, len(x))
	for i := range y {
		y[i] = 5
	}
	m, _ := LookupModel(Exp1)

	_, err := Fit(x, y, m, FitOptions{InitParams: []float64{0, -1, 5}})
	var div *FitDivergedError
	require.ErrorAs(t, err, &div)
}

func TestFit_Validation(t *testing.T) {
	m, _ := LookupModel(Exp1)
	x := grid(t, 0, 10, 11)
	y := genY(t, Exp1, []float64{2, -0.3, 0.5}, x)

	cases := []struct {
		name string
		call func() error
	}{
		{"nil model", func() error {
			_, err := Fit(x, y, nil, FitOptions{})
			return err
		}},
		{"length mismatch", func() error {
			_, err := Fit(x, y[:5], m, FitOptions{})
			return err
		}},
		{"empty sample", func() error {
			_, err := Fit(nil, nil, m, FitOptions{})
			return err
		}},
		{"too few points", func() error {
			_, err := Fit(x[:3], y[:3], m, FitOptions{})
			return err
		}},
		{"wrong init length", func() error {
			_, err := Fit(x, y, m, FitOptions{InitParams: []float64{1, 2}})
			return err
		}},
		{"init outside bounds", func() error {
			_, err := Fit(x, y, m, FitOptions{
				InitParams: []float64{5, -1, 0},
				Bounds:     UniformBounds(-2, 2),
			})
			return err
		}},
		{"bad bounds length", func() error {
			_, err := Fit(x, y, m, FitOptions{Bounds: Bounds{Lower: []float64{1, 2}}})
			return err
		}},
		{"unknown method", func() error {
			_, err := Fit(x, y, m, FitOptions{Method: "annealing"})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			var div *FitDivergedError
			require.False(t, errors.As(err, &div), "validation must not report divergence")
		})
	}
}
