package gokincore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundsExpand(t *testing.T) {
	t.Run("empty means unconstrained", func(t *testing.T) {
		lo, hi, err := Bounds{}.expand(3)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			require.True(t, math.IsInf(lo[i], -1))
			require.True(t, math.IsInf(hi[i], 1))
		}
	})

	t.Run("uniform broadcast", func(t *testing.T) {
		lo, hi, err := UniformBounds(-2, 2).expand(4)
		require.NoError(t, err)
		require.Equal(t, []float64{-2, -2, -2, -2}, lo)
		require.Equal(t, []float64{2, 2, 2, 2}, hi)
	})

	t.Run("per parameter", func(t *testing.T) {
		b := Bounds{Lower: []float64{-1, -2, -3}, Upper: []float64{1, 2, 3}}
		lo, hi, err := b.expand(3)
		require.NoError(t, err)
		require.Equal(t, b.Lower, lo)
		require.Equal(t, b.Upper, hi)
	})

	t.Run("one sided", func(t *testing.T) {
		lo, hi, err := Bounds{Lower: []float64{0}}.expand(2)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 0}, lo)
		require.True(t, math.IsInf(hi[0], 1))
	})

	t.Run("wrong length", func(t *testing.T) {
		_, _, err := Bounds{Lower: []float64{1, 2}}.expand(3)
		require.Error(t, err)
	})

	t.Run("inverted interval", func(t *testing.T) {
		_, _, err := UniformBounds(2, -2).expand(2)
		require.Error(t, err)
	})

	t.Run("nan bound", func(t *testing.T) {
		_, _, err := Bounds{Lower: []float64{math.NaN()}}.expand(1)
		require.Error(t, err)
	})
}

func TestParamTransform(t *testing.T) {
	t.Run("identity without finite bounds", func(t *testing.T) {
		lo, hi, err := Bounds{}.expand(3)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		require.True(t, tr.identity)
		u := []float64{1.5, -2, 0}
		require.Equal(t, u, tr.external(u))
		require.Equal(t, u, tr.internal(u))
	})

	t.Run("roundtrip inside the box", func(t *testing.T) {
		lo, hi, err := UniformBounds(-2, 2).expand(3)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		theta := []float64{-1.5, 0, 1.9}
		got := tr.external(tr.internal(theta))
		for i := range theta {
			require.InDelta(t, theta[i], got[i], 1e-12)
		}
	})

	t.Run("external stays inside the box", func(t *testing.T) {
		lo, hi, err := UniformBounds(-2, 2).expand(2)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		for _, u := range [][]float64{{100, -100}, {0.5, 3}, {-7, 12345}} {
			got := tr.external(u)
			for i := range got {
				require.GreaterOrEqual(t, got[i], -2.0)
				require.LessOrEqual(t, got[i], 2.0)
			}
		}
	})

	t.Run("one sided roundtrip", func(t *testing.T) {
		lo, hi, err := Bounds{Lower: []float64{0}}.expand(1)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		for _, v := range []float64{0, 0.25, 3, 1e4} {
			got := tr.external(tr.internal([]float64{v}))
			require.InDelta(t, v, got[0], 1e-9*math.Max(1, v))
			require.GreaterOrEqual(t, got[0], 0.0)
		}
	})

	t.Run("upper bounded roundtrip", func(t *testing.T) {
		lo, hi, err := Bounds{Upper: []float64{5}}.expand(1)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		for _, v := range []float64{5, 4.5, -10} {
			got := tr.external(tr.internal([]float64{v}))
			require.InDelta(t, v, got[0], 1e-9)
			require.LessOrEqual(t, got[0], 5.0)
		}
	})

	t.Run("clamp", func(t *testing.T) {
		lo, hi, err := UniformBounds(-2, 2).expand(3)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		require.Equal(t, []float64{-2, 0.5, 2}, tr.clamp([]float64{-9, 0.5, 7}))
	})

	t.Run("contains", func(t *testing.T) {
		lo, hi, err := UniformBounds(0, 1).expand(2)
		require.NoError(t, err)
		tr := newParamTransform(lo, hi)
		require.True(t, tr.contains([]float64{0, 1}))
		require.False(t, tr.contains([]float64{0, 1.01}))
	})
}
