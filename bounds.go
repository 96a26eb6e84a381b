package gokincore

import (
	"fmt"
	"math"
)

// Bounds holds box constraints for the fit parameters. Lower and Upper
// may each be empty (unconstrained), length 1 (the same interval for
// every parameter) or one entry per parameter. Infinities are allowed.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// UniformBounds constrains every parameter to [lo, hi].
func UniformBounds(lo, hi float64) Bounds {
	return Bounds{Lower: []float64{lo}, Upper: []float64{hi}}
}

// expand normalizes the bounds to one entry per parameter, filling
// infinities where nothing was given.
func (b Bounds) expand(p int) ([]float64, []float64, error) {
	lo, err := expandSide(b.Lower, p, math.Inf(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("lower bounds: %w", err)
	}
	hi, err := expandSide(b.Upper, p, math.Inf(1))
	if err != nil {
		return nil, nil, fmt.Errorf("upper bounds: %w", err)
	}
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) {
			return nil, nil, fmt.Errorf("bound %d is NaN", i)
		}
		if lo[i] >= hi[i] {
			return nil, nil, fmt.Errorf("bound %d: lower %v not below upper %v", i, lo[i], hi[i])
		}
	}
	return lo, hi, nil
}

func expandSide(side []float64, p int, fill float64) ([]float64, error) {
	out := make([]float64, p)
	switch len(side) {
	case 0:
		for i := range out {
			out[i] = fill
		}
	case 1:
		for i := range out {
			out[i] = side[0]
		}
	case p:
		copy(out, side)
	default:
		return nil, fmt.Errorf("want 0, 1 or %d entries, got %d", p, len(side))
	}
	return out, nil
}

type boundKind int

const (
	boundNone boundKind = iota
	boundLower
	boundUpper
	boundBoth
)

// paramTransform maps the optimizer's unconstrained vector onto the
// bounded parameter box one coordinate at a time, using the sine
// transform for two-sided bounds and a sqrt shift for one-sided ones.
// With no finite bound anywhere it is the identity and the fit runs
// plainly unconstrained.
type paramTransform struct {
	kinds    []boundKind
	lo, hi   []float64
	identity bool
}

func newParamTransform(lo, hi []float64) *paramTransform {
	t := &paramTransform{
		kinds:    make([]boundKind, len(lo)),
		lo:       lo,
		hi:       hi,
		identity: true,
	}
	for i := range lo {
		loFin, hiFin := !math.IsInf(lo[i], -1), !math.IsInf(hi[i], 1)
		switch {
		case loFin && hiFin:
			t.kinds[i] = boundBoth
		case loFin:
			t.kinds[i] = boundLower
		case hiFin:
			t.kinds[i] = boundUpper
		default:
			t.kinds[i] = boundNone
		}
		if t.kinds[i] != boundNone {
			t.identity = false
		}
	}
	return t
}

// external maps an internal optimizer vector into the bounded space.
func (t *paramTransform) external(u []float64) []float64 {
	out := make([]float64, len(u))
	if t.identity {
		copy(out, u)
		return out
	}
	for i, v := range u {
		switch t.kinds[i] {
		case boundBoth:
			out[i] = t.lo[i] + (t.hi[i]-t.lo[i])*(math.Sin(v)+1)/2
		case boundLower:
			out[i] = t.lo[i] - 1 + math.Sqrt(v*v+1)
		case boundUpper:
			out[i] = t.hi[i] + 1 - math.Sqrt(v*v+1)
		default:
			out[i] = v
		}
	}
	return out
}

// internal inverts external for a point inside the bounds, used to seed
// the optimizer from the caller's initial parameters.
func (t *paramTransform) internal(theta []float64) []float64 {
	out := make([]float64, len(theta))
	if t.identity {
		copy(out, theta)
		return out
	}
	for i, v := range theta {
		switch t.kinds[i] {
		case boundBoth:
			s := 2*(v-t.lo[i])/(t.hi[i]-t.lo[i]) - 1
			out[i] = math.Asin(math.Max(-1, math.Min(1, s)))
		case boundLower:
			d := v - t.lo[i] + 1
			out[i] = math.Sqrt(math.Max(d*d-1, 0))
		case boundUpper:
			d := t.hi[i] - v + 1
			out[i] = math.Sqrt(math.Max(d*d-1, 0))
		default:
			out[i] = v
		}
	}
	return out
}

func (t *paramTransform) contains(theta []float64) bool {
	for i, v := range theta {
		if v < t.lo[i] || v > t.hi[i] {
			return false
		}
	}
	return true
}

func (t *paramTransform) clamp(theta []float64) []float64 {
	out := make([]float64, len(theta))
	for i, v := range theta {
		out[i] = math.Max(t.lo[i], math.Min(t.hi[i], v))
	}
	return out
}
