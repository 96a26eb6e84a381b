package gokincore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatReport(t *testing.T) {
	t.Run("exp1", func(t *testing.T) {
		res := &FitResult{
			Kind:     Exp1,
			Params:   []float64{2, -0.3, 0.5},
			StdErrs:  []float64{0.01, 0.002, 0.01},
			RSquared: 0.99872,
			Status:   OK,
		}
		out, err := FormatReport("run-1.csv", res, Minute)
		require.NoError(t, err)

		require.Contains(t, out, "run-1.csv\n")
		require.Contains(t, out, "y = a * exp(k * x) + b")
		require.Contains(t, out, "Parameter")
		require.Contains(t, out, strings.Repeat("-", 30))
		require.Contains(t, out, "+2.0000")
		require.Contains(t, out, "-0.3000")
		require.Contains(t, out, "R-square")
		require.Contains(t, out, "0.99872")
		require.Contains(t, out, "t1 (sec)")
		require.Contains(t, out, "138.63")
		require.NotContains(t, out, "t2 (sec)")
	})

	t.Run("exp2 reports both half-lives", func(t *testing.T) {
		res := &FitResult{
			Kind:     Exp2,
			Params:   []float64{3, 1, -2, -0.1},
			StdErrs:  []float64{0.1, 0.1, 0.05, 0.01},
			RSquared: 0.9999,
			Status:   OK,
		}
		out, err := FormatReport("", res, Second)
		require.NoError(t, err)
		require.Contains(t, out, "t1 (sec)")
		require.Contains(t, out, "t2 (sec)")
		// ln2/2 and ln2/0.1 in seconds
		require.Contains(t, out, "0.35")
		require.Contains(t, out, "6.93")
	})

	t.Run("linear has no half-life", func(t *testing.T) {
		res := &FitResult{
			Kind:     Linear,
			Params:   []float64{1.5, 0.3},
			StdErrs:  []float64{0.01, 0.01},
			RSquared: 0.98,
			Status:   OK,
		}
		out, err := FormatReport("lin", res, Minute)
		require.NoError(t, err)
		require.NotContains(t, out, "(sec)")
	})

	t.Run("zero rate renders inf", func(t *testing.T) {
		res := &FitResult{
			Kind:     Exp1,
			Params:   []float64{2, 0, 0.5},
			StdErrs:  []float64{0.01, 0.002, 0.01},
			RSquared: 0.5,
			Status:   OK,
		}
		out, err := FormatReport("", res, Minute)
		require.NoError(t, err)
		require.Contains(t, out, "inf")
	})

	t.Run("nil result", func(t *testing.T) {
		_, err := FormatReport("x", nil, Minute)
		require.Error(t, err)
	})

	t.Run("mismatched parameter count", func(t *testing.T) {
		res := &FitResult{
			Kind:    Exp1,
			Params:  []float64{2, -0.3},
			StdErrs: []float64{0.1, 0.1},
			Status:  OK,
		}
		_, err := FormatReport("", res, Minute)
		require.Error(t, err)
	})
}

func TestFormatComparisonReport(t *testing.T) {
	cmp := &ComparisonResult{
		Kind: Exp1,
		Best: &FitResult{
			Kind:     Exp1,
			Params:   []float64{2, -0.3, 0.5},
			StdErrs:  []float64{0.01, 0.002, 0.01},
			RSquared: 0.999,
			Status:   OK,
		},
		PValue: 0.2371,
	}
	out, err := FormatComparisonReport("series", cmp, Minute)
	require.NoError(t, err)
	require.Contains(t, out, "p-value")
	require.Contains(t, out, "0.23710")

	_, err = FormatComparisonReport("series", nil, Minute)
	require.Error(t, err)
}
